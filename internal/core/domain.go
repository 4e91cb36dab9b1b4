package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	MaxCategoryName = 100
	MaxDescription  = 255
	// DateLayout is the wire format for dates in forms, exports and the database.
	DateLayout = "2006-01-02"
)

type (
	// Kind tags both categories and transactions.
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Username     string
		Email        string
		FirstName    string
		LastName     string
		PasswordHash string
		CreatedAt    time.Time
	}

	Profile struct {
		UserID       int64
		BusinessName string
		LogoPath     string
		CurrentYear  int
		UpdatedAt    time.Time
	}

	Category struct {
		ID        int64
		UserID    int64
		Name      string
		Type      Kind
		CreatedAt time.Time
		UpdatedAt time.Time

		// TransactionCount is filled by listing queries only.
		TransactionCount int
	}

	Transaction struct {
		ID          int64
		UserID      int64
		Date        Date
		Description string
		CategoryID  *int64
		// CategoryName and CategoryType are empty for uncategorized transactions.
		CategoryName string
		CategoryType Kind
		Type         Kind
		Amount       Money
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}
)

// ParseKind accepts "income" or "expense" in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	}
	return ErrInvalidType
}

// Title returns "Income" or "Expense".
func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	if m.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxCategoryName {
		return ErrNameTooLong
	}
	return c.Type.Validate()
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(desc) > MaxDescription {
		return ErrDescriptionTooLong
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	return t.Amount.Validate()
}

// Categorized reports whether the transaction still references a category.
func (t Transaction) Categorized() bool {
	return t.CategoryID != nil
}

// DisplayName is the full name when present, the username otherwise.
func (u User) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full != "" {
		return full
	}
	return u.Username
}
