package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finflow/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "finflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func mustUser(t *testing.T, repo *SQLiteRepository, name string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return u
}

func mustCategory(t *testing.T, repo *SQLiteRepository, userID int64, name string, kind core.Kind) core.Category {
	t.Helper()
	c, err := repo.CreateCategory(context.Background(), core.Category{UserID: userID, Name: name, Type: kind})
	require.NoError(t, err)
	return c
}

func mustTransaction(t *testing.T, repo *SQLiteRepository, tx core.Transaction) core.Transaction {
	t.Helper()
	saved, err := repo.CreateTransaction(context.Background(), tx)
	require.NoError(t, err)
	return saved
}

func TestCreateUserCreatesProfile(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := mustUser(t, repo, "wanjiru")
	assert.NotZero(t, u.ID)

	p, err := repo.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)
	assert.Equal(t, time.Now().UTC().Year(), p.CurrentYear)

	got, err := repo.GetUserByUsername(ctx, "wanjiru")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "wanjiru@example.com", got.Email)
}

func TestCreateUserUniqueness(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	mustUser(t, repo, "otieno")

	_, err := repo.CreateUser(ctx, core.User{Username: "otieno", Email: "other@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, core.ErrUsernameTaken)

	_, err = repo.CreateUser(ctx, core.User{Username: "other", Email: "otieno@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, core.ErrEmailTaken)

	userTaken, emailTaken, err := repo.UserTaken(ctx, "otieno", "new@example.com")
	require.NoError(t, err)
	assert.True(t, userTaken)
	assert.False(t, emailTaken)
}

func TestGetUserMissing(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetUserByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, core.ErrNotFoundOrForbidden)
}

func TestSaveSettings(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := mustUser(t, repo, "amina")

	u.FirstName, u.LastName = "Amina", "Hassan"
	require.NoError(t, repo.SaveSettings(ctx, u, core.Profile{UserID: u.ID, BusinessName: "Hassan Traders", LogoPath: "1.png", CurrentYear: 2024}))

	got, err := repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Amina Hassan", got.DisplayName())

	p, err := repo.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hassan Traders", p.BusinessName)
	assert.Equal(t, 2024, p.CurrentYear)
}

func TestCategoryUniquenessIsPerUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := mustUser(t, repo, "alice")
	bob := mustUser(t, repo, "bob")

	mustCategory(t, repo, alice.ID, "Sales", core.Income)
	_, err := repo.CreateCategory(ctx, core.Category{UserID: alice.ID, Name: "Sales", Type: core.Income})
	assert.ErrorIs(t, err, core.ErrDuplicateCategory)

	// Same name, other type.
	mustCategory(t, repo, alice.ID, "Sales", core.Expense)
	// Same name and type, other user.
	mustCategory(t, repo, bob.ID, "Sales", core.Income)

	cats, err := repo.ListCategories(ctx, alice.ID, "")
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, core.Expense, cats[0].Type, "ordered by type then name")
}

func TestUpdateCategoryDuplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := mustUser(t, repo, "juma")
	mustCategory(t, repo, u.ID, "Rent", core.Expense)
	fuel := mustCategory(t, repo, u.ID, "Fuel", core.Expense)

	fuel.Name = "Rent"
	_, err := repo.UpdateCategory(ctx, fuel)
	assert.ErrorIs(t, err, core.ErrDuplicateCategory)
}

func TestDeleteCategoryOrphansTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := mustUser(t, repo, "kamau")
	rent := mustCategory(t, repo, u.ID, "Rent", core.Expense)

	saved := mustTransaction(t, repo, core.Transaction{
		UserID:      u.ID,
		Date:        core.NewDate(2024, 1, 20),
		Description: "January rent",
		CategoryID:  &rent.ID,
		Type:        core.Expense,
		Amount:      core.Money{Cents: 40000},
	})
	assert.Equal(t, "Rent", saved.CategoryName)
	assert.Equal(t, core.Expense, saved.CategoryType)

	orphaned, err := repo.DeleteCategory(ctx, u.ID, rent.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), orphaned)

	got, err := repo.GetTransaction(ctx, u.ID, saved.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
	assert.Empty(t, got.CategoryName)
	assert.Empty(t, got.CategoryType)
	assert.Equal(t, int64(40000), got.Amount.Cents)
	assert.Equal(t, "January rent", got.Description)
	assert.Equal(t, "2024-01-20", got.Date.String())
}

func TestOwnershipScoping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := mustUser(t, repo, "owner")
	other := mustUser(t, repo, "intruder")
	cat := mustCategory(t, repo, owner.ID, "Sales", core.Income)
	saved := mustTransaction(t, repo, core.Transaction{
		UserID: owner.ID, Date: core.NewDate(2024, 2, 1), Description: "Invoice", Type: core.Income, Amount: core.Money{Cents: 100},
	})

	_, err := repo.GetTransaction(ctx, other.ID, saved.ID)
	assert.ErrorIs(t, err, core.ErrNotFoundOrForbidden)

	assert.ErrorIs(t, repo.DeleteTransaction(ctx, other.ID, saved.ID), core.ErrNotFoundOrForbidden)

	saved.UserID = other.ID
	_, err = repo.UpdateTransaction(ctx, saved)
	assert.ErrorIs(t, err, core.ErrNotFoundOrForbidden)

	_, err = repo.GetCategory(ctx, other.ID, cat.ID)
	assert.ErrorIs(t, err, core.ErrNotFoundOrForbidden)

	_, err = repo.DeleteCategory(ctx, other.ID, cat.ID)
	assert.ErrorIs(t, err, core.ErrNotFoundOrForbidden)

	_, err = repo.GetTransaction(ctx, owner.ID, 9999)
	assert.True(t, errors.Is(err, core.ErrNotFoundOrForbidden))
}

func TestListTransactionsFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := mustUser(t, repo, "njeri")
	stranger := mustUser(t, repo, "stranger")
	sales := mustCategory(t, repo, u.ID, "Sales", core.Income)

	mustTransaction(t, repo, core.Transaction{UserID: u.ID, Date: core.NewDate(2024, 1, 15), Description: "Consulting invoice", CategoryID: &sales.ID, Type: core.Income, Amount: core.Money{Cents: 100000}})
	mustTransaction(t, repo, core.Transaction{UserID: u.ID, Date: core.NewDate(2024, 1, 20), Description: "Office rent", Type: core.Expense, Amount: core.Money{Cents: 40000}})
	mustTransaction(t, repo, core.Transaction{UserID: u.ID, Date: core.NewDate(2024, 2, 10), Description: "100% discount_code", Type: core.Income, Amount: core.Money{Cents: 50000}})
	mustTransaction(t, repo, core.Transaction{UserID: stranger.ID, Date: core.NewDate(2024, 2, 10), Description: "Consulting", Type: core.Income, Amount: core.Money{Cents: 7}})

	all, err := repo.ListTransactions(ctx, TransactionFilter{UserID: u.ID})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2024-02-10", all[0].Date.String(), "newest first")

	cases := []struct {
		name   string
		filter TransactionFilter
		want   int
	}{
		{"search is case-insensitive", TransactionFilter{UserID: u.ID, Search: "CONSULT"}, 1},
		{"search escapes wildcards", TransactionFilter{UserID: u.ID, Search: "0% d"}, 1},
		{"search underscore literal", TransactionFilter{UserID: u.ID, Search: "t_c"}, 1},
		{"type", TransactionFilter{UserID: u.ID, Type: core.Expense}, 1},
		{"category", TransactionFilter{UserID: u.ID, CategoryID: sales.ID}, 1},
		{"date range", TransactionFilter{UserID: u.ID, From: time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), To: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)}, 2},
		{"limit", TransactionFilter{UserID: u.ID, Limit: 2}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.ListTransactions(ctx, tc.filter)
			require.NoError(t, err)
			assert.Len(t, got, tc.want)
		})
	}

	sums, err := repo.SumTransactions(ctx, TransactionFilter{UserID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(150000), sums.Income.Cents)
	assert.Equal(t, int64(40000), sums.Expense.Cents)

	empty, err := repo.SumTransactions(ctx, TransactionFilter{UserID: u.ID, Type: core.Expense, Search: "nothing"})
	require.NoError(t, err)
	assert.Equal(t, TypeSums{}, empty)
}

func TestMigrationVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	version, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}
