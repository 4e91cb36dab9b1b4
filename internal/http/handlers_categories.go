package http

import (
	"fmt"
	"net/http"
	"strconv"

	"finflow/internal/core"
)

const categoriesPath = "/categories/"

type categoryJSON struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Type             core.Kind `json:"category_type"`
	TransactionCount int       `json:"transaction_count"`
}

func categoryView(c core.Category) categoryJSON {
	return categoryJSON{ID: c.ID, Name: c.Name, Type: c.Type, TransactionCount: c.TransactionCount}
}

type categoriesPage struct {
	Income  []core.Category
	Expense []core.Category
}

// handleCategories lists income and expense categories side by side.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	all, err := s.svc.Categories.List(r.Context(), u.ID, "")
	if err != nil {
		s.fail(w, r, err, dashboardPath)
		return
	}

	data := categoriesPage{Income: []core.Category{}, Expense: []core.Category{}}
	for _, c := range all {
		if c.Type == core.Income {
			data.Income = append(data.Income, c)
		} else {
			data.Expense = append(data.Expense, c)
		}
	}

	if isPartial(r) {
		view := func(cs []core.Category) []categoryJSON {
			out := make([]categoryJSON, 0, len(cs))
			for _, c := range cs {
				out = append(out, categoryView(c))
			}
			return out
		}
		NewHTMXResponse().JSON(map[string]any{
			"income_categories":  view(data.Income),
			"expense_categories": view(data.Expense),
		}).Write(w)
		return
	}
	s.render(w, r, "categories.html", "Categories", data)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	p, err := parseBody(r)
	if err != nil {
		s.fail(w, r, err, categoriesPath)
		return
	}
	name, kind, err := parseCategoryForm(p)
	if err != nil {
		s.fail(w, r, err, categoriesPath)
		return
	}

	c, err := s.svc.Categories.Create(r.Context(), u.ID, name, kind)
	if err != nil {
		s.fail(w, r, err, categoriesPath)
		return
	}

	msg := fmt.Sprintf(`Category "%s" added successfully.`, c.Name)
	if isPartial(r) {
		NewHTMXResponse().
			Status(http.StatusCreated).
			TriggerLedgerChanged("category", "created", c.ID).
			TriggerFormReset().
			TriggerSuccessNotification(msg).
			JSON(categoryView(c)).
			Write(w)
		return
	}
	redirect(w, r, categoriesPath, NotificationSuccess, msg)
}

func (s *Server) handleEditCategoryPage(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err, categoriesPath)
		return
	}
	c, err := s.svc.Categories.Get(r.Context(), u.ID, id)
	if err != nil {
		s.fail(w, r, err, categoriesPath)
		return
	}
	if isPartial(r) {
		NewHTMXResponse().JSON(categoryView(c)).Write(w)
		return
	}
	s.render(w, r, "category_form.html", "Edit category", c)
}

// handleUpdateCategory renames or retypes a category. Its transactions keep
// their own type.
func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err, categoriesPath)
		return
	}
	back := categoriesPath + strconv.FormatInt(id, 10) + "/edit/"

	p, err := parseBody(r)
	if err != nil {
		s.fail(w, r, err, back)
		return
	}
	name, kind, err := parseCategoryForm(p)
	if err != nil {
		s.fail(w, r, err, back)
		return
	}

	c, err := s.svc.Categories.Update(r.Context(), u.ID, id, name, kind)
	if err != nil {
		s.fail(w, r, err, back)
		return
	}

	msg := fmt.Sprintf(`Category "%s" updated successfully.`, c.Name)
	if isPartial(r) {
		NewHTMXResponse().
			TriggerLedgerChanged("category", "updated", c.ID).
			TriggerSuccessNotification(msg).
			JSON(categoryView(c)).
			Write(w)
		return
	}
	redirect(w, r, categoriesPath, NotificationSuccess, msg)
}

// handleDeleteCategory removes a category; its transactions become uncategorized.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err, categoriesPath)
		return
	}
	c, err := s.svc.Categories.Delete(r.Context(), u.ID, id)
	if err != nil {
		s.fail(w, r, err, categoriesPath)
		return
	}

	msg := fmt.Sprintf(`Category "%s" deleted successfully.`, c.Name)
	if isPartial(r) {
		NewHTMXResponse().
			TriggerLedgerChanged("category", "deleted", id).
			TriggerSuccessNotification(msg).
			JSON(map[string]any{"id": id, "deleted": true}).
			Write(w)
		return
	}
	redirect(w, r, categoriesPath, NotificationSuccess, msg)
}
