package http

import (
	"net/http"
	"strconv"

	"finflow/internal/core"
	"finflow/internal/storage"
)

const transactionsPath = "/transactions/"

type transactionJSON struct {
	ID          int64     `json:"id"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	CategoryID  *int64    `json:"category_id"`
	Category    string    `json:"category"`
	Type        core.Kind `json:"type"`
	Amount      moneyJSON `json:"amount"`
}

func transactionView(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Date:        t.Date.String(),
		Description: t.Description,
		CategoryID:  t.CategoryID,
		Category:    t.CategoryName,
		Type:        t.Type,
		Amount:      moneyView(t.Amount),
	}
}

type transactionsPage struct {
	Transactions []core.Transaction
	Categories   []core.Category
	Filter       ListFilter
	Totals       storage.TypeSums
	Today        string
}

// handleTransactions lists the user's transactions, filtered by search, type
// and category.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := currentUser(r)
	query, filter := parseTransactionQuery(r.URL.Query())

	txs, err := s.svc.Transactions.List(ctx, u.ID, query)
	if err != nil {
		s.fail(w, r, err, dashboardPath)
		return
	}
	totals, err := s.svc.Transactions.Totals(ctx, u.ID, query)
	if err != nil {
		s.fail(w, r, err, dashboardPath)
		return
	}

	if isPartial(r) {
		items := make([]transactionJSON, 0, len(txs))
		for _, t := range txs {
			items = append(items, transactionView(t))
		}
		NewHTMXResponse().JSON(map[string]any{
			"transactions":   items,
			"total_income":   moneyView(totals.Income),
			"total_expenses": moneyView(totals.Expense),
		}).Write(w)
		return
	}

	cats, err := s.svc.Categories.List(ctx, u.ID, "")
	if err != nil {
		s.fail(w, r, err, dashboardPath)
		return
	}
	s.render(w, r, "transactions.html", "Transactions", transactionsPage{
		Transactions: txs,
		Categories:   cats,
		Filter:       filter,
		Totals:       totals,
		Today:        core.DateOf(s.now()).String(),
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	p, err := parseBody(r)
	if err != nil {
		s.fail(w, r, err, transactionsPath)
		return
	}
	draft, err := parseTransactionForm(p)
	if err != nil {
		s.fail(w, r, err, transactionsPath)
		return
	}

	t, err := s.svc.Transactions.Create(r.Context(), u.ID, draft)
	if err != nil {
		s.fail(w, r, err, transactionsPath)
		return
	}

	const msg = "Transaction added successfully."
	if isPartial(r) {
		NewHTMXResponse().
			Status(http.StatusCreated).
			TriggerLedgerChanged("transaction", "created", t.ID).
			TriggerFormReset().
			TriggerSuccessNotification(msg).
			JSON(transactionView(t)).
			Write(w)
		return
	}
	redirect(w, r, transactionsPath, NotificationSuccess, msg)
}

type transactionFormPage struct {
	Transaction core.Transaction
	Categories  []core.Category
}

func (s *Server) handleEditTransactionPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err, transactionsPath)
		return
	}
	t, err := s.svc.Transactions.Get(ctx, u.ID, id)
	if err != nil {
		s.fail(w, r, err, transactionsPath)
		return
	}
	if isPartial(r) {
		NewHTMXResponse().JSON(transactionView(t)).Write(w)
		return
	}
	cats, err := s.svc.Categories.List(ctx, u.ID, "")
	if err != nil {
		s.fail(w, r, err, transactionsPath)
		return
	}
	s.render(w, r, "transaction_form.html", "Edit transaction", transactionFormPage{Transaction: t, Categories: cats})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err, transactionsPath)
		return
	}
	back := transactionsPath + strconv.FormatInt(id, 10) + "/edit/"

	p, err := parseBody(r)
	if err != nil {
		s.fail(w, r, err, back)
		return
	}
	draft, err := parseTransactionForm(p)
	if err != nil {
		s.fail(w, r, err, back)
		return
	}

	t, err := s.svc.Transactions.Update(r.Context(), u.ID, id, draft)
	if err != nil {
		s.fail(w, r, err, back)
		return
	}

	const msg = "Transaction updated successfully."
	if isPartial(r) {
		NewHTMXResponse().
			TriggerLedgerChanged("transaction", "updated", t.ID).
			TriggerSuccessNotification(msg).
			JSON(transactionView(t)).
			Write(w)
		return
	}
	redirect(w, r, transactionsPath, NotificationSuccess, msg)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err, transactionsPath)
		return
	}
	if err := s.svc.Transactions.Delete(r.Context(), u.ID, id); err != nil {
		s.fail(w, r, err, transactionsPath)
		return
	}

	const msg = "Transaction deleted successfully."
	if isPartial(r) {
		NewHTMXResponse().
			TriggerLedgerChanged("transaction", "deleted", id).
			TriggerSuccessNotification(msg).
			JSON(map[string]any{"id": id, "deleted": true}).
			Write(w)
		return
	}
	redirect(w, r, transactionsPath, NotificationSuccess, msg)
}
