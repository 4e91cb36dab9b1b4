// Package report computes dashboard and report figures from an in-memory
// snapshot of a user's transactions.
//
// Every function is pure: no I/O, no shared state, no errors. Degenerate
// input (no transactions, no categories, zero income) maps to zero values or
// the NoCategory sentinel.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"finflow/internal/core"
)

const (
	// DefaultMonths is the trend window shown on the dashboard and reports pages.
	DefaultMonths = 6
	// RecentLimit is the number of transactions listed on the dashboard.
	RecentLimit = 5
	// TopSourcesLimit is the number of income categories in the reports bar chart.
	TopSourcesLimit = 5
	// NoCategory names the top category when nothing qualifies.
	NoCategory = "None"

	bucketLabelLayout = "Jan 2006"
)

var hundred = decimal.NewFromInt(100)

type (
	Totals struct {
		Income  core.Money
		Expense core.Money
		Net     core.Money
	}

	// Bucket is one calendar-month window. End is inclusive.
	Bucket struct {
		Label   string
		Start   core.Date
		End     core.Date
		Income  core.Money
		Expense core.Money
		Net     core.Money
	}

	// Comparison holds month-over-month percentage changes.
	Comparison struct {
		Income  decimal.Decimal
		Expense decimal.Decimal
		Profit  decimal.Decimal
	}

	CategoryAmount struct {
		CategoryID int64
		Name       string
		Amount     core.Money
	}

	Counts struct {
		Income  int
		Expense int
	}

	// Summary is everything the dashboard, reports page and exports need.
	Summary struct {
		Reference          core.Date
		Totals             Totals
		ProfitMargin       decimal.Decimal
		Buckets            []Bucket
		Comparison         Comparison
		Counts             Counts
		ExpenseBreakdown   []CategoryAmount
		IncomeRanking      []CategoryAmount
		TopIncomeSources   []CategoryAmount
		TopExpenseCategory CategoryAmount
		TopIncomeCategory  CategoryAmount
		Recent             []core.Transaction
	}
)

// Build runs every aggregation over one snapshot. categories may be nil, in
// which case rankings are derived from the transactions alone.
func Build(txs []core.Transaction, categories []core.Category, ref time.Time, months int) Summary {
	totals := ComputeTotals(txs)
	expenses := CategoryRanking(txs, categories, core.Expense)
	incomes := CategoryRanking(txs, categories, core.Income)
	return Summary{
		Reference:          core.DateOf(ref),
		Totals:             totals,
		ProfitMargin:       ProfitMargin(totals.Income, totals.Net),
		Buckets:            MonthlyBuckets(txs, ref, months),
		Comparison:         Compare(txs, ref),
		Counts:             CountsByType(txs),
		ExpenseBreakdown:   expenses,
		IncomeRanking:      incomes,
		TopIncomeSources:   TopN(incomes, TopSourcesLimit),
		TopExpenseCategory: TopCategory(expenses),
		TopIncomeCategory:  TopCategory(incomes),
		Recent:             Recent(txs, RecentLimit),
	}
}

// ComputeTotals sums amounts by type in integer cents.
func ComputeTotals(txs []core.Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			t.Income = t.Income.Add(tx.Amount)
		case core.Expense:
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	t.Net = t.Income.Sub(t.Expense)
	return t
}

// ProfitMargin is net/income as a percentage with two decimals, 0 without income.
func ProfitMargin(income, net core.Money) decimal.Decimal {
	if income.Cents == 0 {
		return decimal.Zero
	}
	return net.Decimal().Div(income.Decimal()).Mul(hundred).Round(2)
}

// PercentChange is (cur-prev)/prev*100 rounded to two decimals. A zero
// baseline yields 100 when cur is positive and 0 otherwise.
func PercentChange(prev, cur core.Money) decimal.Decimal {
	if prev.Cents == 0 {
		if cur.Cents > 0 {
			return hundred
		}
		return decimal.Zero
	}
	return cur.Sub(prev).Decimal().Div(prev.Decimal()).Mul(hundred).Round(2)
}

// MonthlyBuckets returns exactly n month windows, oldest first. The newest
// window ends at ref; earlier ones span whole calendar months. n < 1 is
// treated as 1.
func MonthlyBuckets(txs []core.Transaction, ref time.Time, n int) []Bucket {
	if n < 1 {
		n = 1
	}
	today := core.DateOf(ref)
	first := monthStart(today.Time)

	buckets := make([]Bucket, n)
	for i := range buckets {
		start := first.AddDate(0, i-(n-1), 0)
		end := start.AddDate(0, 1, -1)
		if i == n-1 {
			end = today.Time
		}
		buckets[i] = Bucket{
			Label: start.Format(bucketLabelLayout),
			Start: core.Date{Time: start},
			End:   core.Date{Time: end},
		}
	}

	oldest := buckets[0].Start.Time
	for _, tx := range txs {
		d := core.DateOf(tx.Date.Time).Time
		if d.Before(oldest) || d.After(today.Time) {
			continue
		}
		b := &buckets[monthsBetween(oldest, d)]
		switch tx.Type {
		case core.Income:
			b.Income = b.Income.Add(tx.Amount)
		case core.Expense:
			b.Expense = b.Expense.Add(tx.Amount)
		}
	}
	for i := range buckets {
		buckets[i].Net = buckets[i].Income.Sub(buckets[i].Expense)
	}
	return buckets
}

// Compare sets the current month (day 1 through ref) against the whole
// previous calendar month.
func Compare(txs []core.Transaction, ref time.Time) Comparison {
	today := core.DateOf(ref).Time
	curStart := monthStart(today)
	prevStart := curStart.AddDate(0, -1, 0)
	prevEnd := curStart.AddDate(0, 0, -1)

	cur := ComputeTotals(within(txs, curStart, today))
	prev := ComputeTotals(within(txs, prevStart, prevEnd))
	return Comparison{
		Income:  PercentChange(prev.Income, cur.Income),
		Expense: PercentChange(prev.Expense, cur.Expense),
		Profit:  PercentChange(prev.Net, cur.Net),
	}
}

// CategoryRanking sums amounts per category of the given type and sorts them
// descending, keeping input order among equal amounts. Categories with no
// activity rank with amount 0. Uncategorized transactions never appear.
//
// When categories is nil the candidate list is discovered from the
// transactions of that type, in order of first appearance.
func CategoryRanking(txs []core.Transaction, categories []core.Category, kind core.Kind) []CategoryAmount {
	sums := make(map[int64]int64)
	var discovered []CategoryAmount
	seen := make(map[int64]bool)
	for _, tx := range txs {
		if !tx.Categorized() {
			continue
		}
		id := *tx.CategoryID
		sums[id] += tx.Amount.Cents
		if categories == nil && tx.Type == kind && !seen[id] {
			seen[id] = true
			discovered = append(discovered, CategoryAmount{CategoryID: id, Name: tx.CategoryName})
		}
	}

	var out []CategoryAmount
	if categories == nil {
		out = discovered
	} else {
		for _, c := range categories {
			if c.Type != kind {
				continue
			}
			out = append(out, CategoryAmount{CategoryID: c.ID, Name: c.Name})
		}
	}
	for i := range out {
		out[i].Amount = core.Money{Cents: sums[out[i].CategoryID]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}

// TopN returns at most k leading entries.
func TopN(ranking []CategoryAmount, k int) []CategoryAmount {
	if k <= 0 {
		return []CategoryAmount{}
	}
	if k > len(ranking) {
		k = len(ranking)
	}
	out := make([]CategoryAmount, k)
	copy(out, ranking[:k])
	return out
}

// TopCategory is the leading entry, or NoCategory when no category has activity.
func TopCategory(ranking []CategoryAmount) CategoryAmount {
	if len(ranking) == 0 || ranking[0].Amount.Cents == 0 {
		return CategoryAmount{Name: NoCategory}
	}
	return ranking[0]
}

// IsNone reports whether c is the NoCategory sentinel.
func (c CategoryAmount) IsNone() bool {
	return c.CategoryID == 0 && c.Name == NoCategory
}

func CountsByType(txs []core.Transaction) Counts {
	var c Counts
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			c.Income++
		case core.Expense:
			c.Expense++
		}
	}
	return c
}

// Recent returns up to k transactions, newest date first, then newest created.
func Recent(txs []core.Transaction, k int) []core.Transaction {
	sorted := make([]core.Transaction, len(txs))
	copy(sorted, txs)
	SortNewestFirst(sorted)
	if k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted
}

// SortNewestFirst orders txs by date then creation time, both descending.
func SortNewestFirst(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func within(txs []core.Transaction, from, to time.Time) []core.Transaction {
	var out []core.Transaction
	for _, tx := range txs {
		d := core.DateOf(tx.Date.Time).Time
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}
