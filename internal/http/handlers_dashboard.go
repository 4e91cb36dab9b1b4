package http

import (
	"net/http"

	"finflow/internal/core"
	"finflow/internal/report"
)

type moneyJSON struct {
	Cents  int64  `json:"cents"`
	Amount string `json:"amount"`
}

func moneyView(m core.Money) moneyJSON {
	return moneyJSON{Cents: m.Cents, Amount: m.String()}
}

type bucketJSON struct {
	Label   string    `json:"label"`
	Start   string    `json:"start"`
	End     string    `json:"end"`
	Income  moneyJSON `json:"income"`
	Expense moneyJSON `json:"expense"`
	Net     moneyJSON `json:"net"`
}

type rankJSON struct {
	CategoryID int64     `json:"category_id,omitempty"`
	Name       string    `json:"name"`
	Amount     moneyJSON `json:"amount"`
}

type summaryJSON struct {
	Reference    string    `json:"reference"`
	TotalIncome  moneyJSON `json:"total_income"`
	TotalExpense moneyJSON `json:"total_expenses"`
	NetProfit    moneyJSON `json:"net_profit"`
	ProfitMargin string    `json:"profit_margin"`
	Comparison   struct {
		Income  string `json:"income"`
		Expense string `json:"expenses"`
		Profit  string `json:"profit"`
	} `json:"comparison"`
	Counts struct {
		Income  int `json:"income"`
		Expense int `json:"expense"`
	} `json:"counts"`
	Monthly            []bucketJSON      `json:"monthly_data"`
	ExpenseCategories  []rankJSON        `json:"expense_categories"`
	TopIncomeSources   []rankJSON        `json:"top_income_sources"`
	TopExpenseCategory string            `json:"top_expense_category"`
	TopIncomeCategory  string            `json:"top_income_category"`
	Recent             []transactionJSON `json:"recent_transactions"`
}

func ranksView(in []report.CategoryAmount) []rankJSON {
	out := make([]rankJSON, 0, len(in))
	for _, c := range in {
		out = append(out, rankJSON{CategoryID: c.CategoryID, Name: c.Name, Amount: moneyView(c.Amount)})
	}
	return out
}

func summaryView(sum report.Summary) summaryJSON {
	v := summaryJSON{
		Reference:          sum.Reference.String(),
		TotalIncome:        moneyView(sum.Totals.Income),
		TotalExpense:       moneyView(sum.Totals.Expense),
		NetProfit:          moneyView(sum.Totals.Net),
		ProfitMargin:       sum.ProfitMargin.StringFixed(2),
		ExpenseCategories:  ranksView(sum.ExpenseBreakdown),
		TopIncomeSources:   ranksView(sum.TopIncomeSources),
		TopExpenseCategory: sum.TopExpenseCategory.Name,
		TopIncomeCategory:  sum.TopIncomeCategory.Name,
	}
	v.Comparison.Income = sum.Comparison.Income.StringFixed(2)
	v.Comparison.Expense = sum.Comparison.Expense.StringFixed(2)
	v.Comparison.Profit = sum.Comparison.Profit.StringFixed(2)
	v.Counts.Income = sum.Counts.Income
	v.Counts.Expense = sum.Counts.Expense
	for _, b := range sum.Buckets {
		v.Monthly = append(v.Monthly, bucketJSON{
			Label:   b.Label,
			Start:   b.Start.String(),
			End:     b.End.String(),
			Income:  moneyView(b.Income),
			Expense: moneyView(b.Expense),
			Net:     moneyView(b.Net),
		})
	}
	v.Recent = make([]transactionJSON, 0, len(sum.Recent))
	for _, t := range sum.Recent {
		v.Recent = append(v.Recent, transactionView(t))
	}
	return v
}

// handleDashboard renders totals, the monthly chart and recent transactions.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.serveSummary(w, r, "dashboard.html", "Dashboard")
}

// handleReports renders the P&L statement, monthly table and category charts.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	s.serveSummary(w, r, "reports.html", "Reports")
}

func (s *Server) serveSummary(w http.ResponseWriter, r *http.Request, tmpl, title string) {
	u := currentUser(r)
	sum, err := s.svc.Reports.Summary(r.Context(), u.ID)
	if err != nil {
		s.fail(w, r, err, dashboardPath)
		return
	}
	if isPartial(r) {
		NewHTMXResponse().JSON(summaryView(sum)).Write(w)
		return
	}
	s.render(w, r, tmpl, title, sum)
}
