package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"budgetly/internal/core"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "budgetly.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createUser(t *testing.T, repo *SQLiteRepository, email string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{Name: "Test", Email: email, PasswordHash: []byte("hash")})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budgetly.db")
	first, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	first.Close()

	second, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer second.Close()
	if err := second.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestUserUniqueEmail(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	created := createUser(t, repo, "Ann@Example.com")
	if created.Email != "ann@example.com" {
		t.Errorf("email not normalized: %q", created.Email)
	}

	_, err := repo.CreateUser(ctx, core.User{Name: "Other", Email: "ann@example.com", PasswordHash: []byte("x")})
	if !errors.Is(err, core.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	other := createUser(t, repo, "bob@example.com")
	if _, err := repo.UpdateUser(ctx, other.ID, "Bob", "ann@example.com"); !errors.Is(err, core.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken on update, got %v", err)
	}

	got, err := repo.GetUserByEmail(ctx, "ANN@example.com")
	if err != nil || got.ID != created.ID {
		t.Fatalf("lookup by email: %+v %v", got, err)
	}
	if _, err := repo.GetUser(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBudgetUpsert(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	u := createUser(t, repo, "a@example.com")

	if _, err := repo.GetBudget(ctx, u.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	first, err := repo.UpsertBudget(ctx, u.ID, core.Money{Cents: 50000})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := repo.UpsertBudget(ctx, u.ID, core.Money{Cents: 75000})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("upsert created a second row: %d vs %d", first.ID, second.ID)
	}

	got, err := repo.GetBudget(ctx, u.ID)
	if err != nil || got.MonthlyBudget.Cents != 75000 {
		t.Fatalf("get budget: %+v %v", got, err)
	}

	users, err := repo.ListBudgetedUsers(ctx)
	if err != nil || len(users) != 1 || users[0].ID != u.ID {
		t.Fatalf("budgeted users: %+v %v", users, err)
	}
}

func TestListExpensesByMonth(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	a := createUser(t, repo, "a@example.com")
	b := createUser(t, repo, "b@example.com")

	for _, e := range []core.Expense{
		{UserID: a.ID, Category: "food", Amount: core.Money{Cents: 100}, Date: core.NewDate(2025, 2, 28)},
		{UserID: a.ID, Category: "food", Amount: core.Money{Cents: 200}, Date: core.NewDate(2025, 3, 31)},
		{UserID: a.ID, Category: "rent", Amount: core.Money{Cents: 300}, Date: core.NewDate(2025, 3, 1)},
		{UserID: a.ID, Category: "rent", Amount: core.Money{Cents: 400}, Date: core.NewDate(2025, 4, 1)},
		{UserID: b.ID, Category: "food", Amount: core.Money{Cents: 500}, Date: core.NewDate(2025, 3, 15)},
	} {
		if _, err := repo.CreateExpense(ctx, e); err != nil {
			t.Fatalf("create expense: %v", err)
		}
	}

	got, err := repo.ListExpenses(ctx, a.ID, 2025, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 expenses in March, got %d", len(got))
	}
	if got[0].Amount.Cents != 300 || got[1].Amount.Cents != 200 {
		t.Errorf("unexpected order: %+v", got)
	}
	if got[0].Date.String() != "2025-03-01" {
		t.Errorf("date round trip: %q", got[0].Date.String())
	}

	december, err := repo.ListExpenses(ctx, a.ID, 2024, 12)
	if err != nil || len(december) != 0 {
		t.Fatalf("expected no December expenses: %+v %v", december, err)
	}

	all, err := repo.ListAllExpenses(ctx, a.ID)
	if err != nil || len(all) != 4 {
		t.Fatalf("list all: %d %v", len(all), err)
	}
}

func TestDeleteExpenseIsScoped(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	a := createUser(t, repo, "a@example.com")
	b := createUser(t, repo, "b@example.com")

	e, err := repo.CreateExpense(ctx, core.Expense{UserID: a.ID, Category: "food", Amount: core.Money{Cents: 1}, Date: core.NewDate(2025, 1, 1)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ok, err := repo.DeleteExpense(ctx, e.ID, b.ID); err != nil || ok {
		t.Fatalf("foreign delete: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.DeleteExpense(ctx, e.ID, a.ID); err != nil || !ok {
		t.Fatalf("owner delete: ok=%v err=%v", ok, err)
	}
}

func TestGoalCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	a := createUser(t, repo, "a@example.com")
	b := createUser(t, repo, "b@example.com")

	g, err := repo.CreateGoal(ctx, core.Goal{UserID: a.ID, Name: "Car", TargetAmount: core.Money{Cents: 60000}, Deadline: core.NewDate(2026, 1, 1)})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	g.Name = "New car"
	updated, err := repo.UpdateGoal(ctx, g)
	if err != nil || updated.Name != "New car" {
		t.Fatalf("update goal: %+v %v", updated, err)
	}

	if _, err := repo.GetGoal(ctx, g.ID, b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign goal, got %v", err)
	}
	foreign := g
	foreign.UserID = b.ID
	if _, err := repo.UpdateGoal(ctx, foreign); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign update, got %v", err)
	}
	if err := repo.DeleteGoal(ctx, g.ID, b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign delete, got %v", err)
	}
	if err := repo.DeleteGoal(ctx, g.ID, a.ID); err != nil {
		t.Fatalf("delete goal: %v", err)
	}
	goals, _ := repo.ListGoals(ctx, a.ID)
	if len(goals) != 0 {
		t.Errorf("goal survived delete")
	}
}

func TestCategoriesOrderedByPriorityThenName(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	u := createUser(t, repo, "a@example.com")

	for _, c := range []core.Category{
		{UserID: u.ID, Name: "Zoo", Priority: 1},
		{UserID: u.ID, Name: "Rent", Priority: 0},
		{UserID: u.ID, Name: "Art", Priority: 1},
	} {
		if _, err := repo.CreateCategory(ctx, c); err != nil {
			t.Fatalf("create category: %v", err)
		}
	}

	cats, err := repo.ListCategories(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"Rent", "Art", "Zoo"}
	for i, name := range want {
		if cats[i].Name != name {
			t.Fatalf("position %d: want %s, got %s", i, name, cats[i].Name)
		}
	}
}

func TestDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	u := createUser(t, repo, "a@example.com")

	repo.UpsertBudget(ctx, u.ID, core.Money{Cents: 1})
	repo.CreateExpense(ctx, core.Expense{UserID: u.ID, Category: "c", Date: core.NewDate(2025, 1, 1)})
	repo.CreateGoal(ctx, core.Goal{UserID: u.ID, Name: "g"})
	repo.CreateCategory(ctx, core.Category{UserID: u.ID, Name: "c"})
	if err := repo.PutResetToken(ctx, core.PasswordReset{Email: u.Email, TokenHash: []byte("t")}); err != nil {
		t.Fatalf("put reset token: %v", err)
	}

	if err := repo.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := repo.GetBudget(ctx, u.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("budget survived")
	}
	if exps, _ := repo.ListAllExpenses(ctx, u.ID); len(exps) != 0 {
		t.Errorf("expenses survived")
	}
	if cats, _ := repo.ListCategories(ctx, u.ID); len(cats) != 0 {
		t.Errorf("categories survived")
	}
	if _, err := repo.GetResetToken(ctx, u.Email); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("reset token survived")
	}
	if err := repo.DeleteUser(ctx, u.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestResetTokenReplaced(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	repo.PutResetToken(ctx, core.PasswordReset{Email: "a@example.com", TokenHash: []byte("one")})
	repo.PutResetToken(ctx, core.PasswordReset{Email: "A@example.com", TokenHash: []byte("two")})

	got, err := repo.GetResetToken(ctx, "a@example.com")
	if err != nil || string(got.TokenHash) != "two" {
		t.Fatalf("expected replaced token: %+v %v", got, err)
	}
	if err := repo.DeleteResetToken(ctx, "a@example.com"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetResetToken(ctx, "a@example.com"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestWritesForDeletedUserAreUnauthorized(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	u := createUser(t, repo, "gone@example.com")
	if err := repo.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	writes := map[string]func() error{
		"budget": func() error { _, err := repo.UpsertBudget(ctx, u.ID, core.Money{Cents: 1}); return err },
		"expense": func() error {
			_, err := repo.CreateExpense(ctx, core.Expense{UserID: u.ID, Category: "food", Amount: core.Money{Cents: 1}, Date: core.NewDate(2025, 1, 1)})
			return err
		},
		"goal": func() error {
			_, err := repo.CreateGoal(ctx, core.Goal{UserID: u.ID, Name: "Car", TargetAmount: core.Money{Cents: 1}, Deadline: core.NewDate(2026, 1, 1)})
			return err
		},
		"category": func() error { _, err := repo.CreateCategory(ctx, core.Category{UserID: u.ID, Name: "Food"}); return err },
	}
	for name, write := range writes {
		t.Run(name, func(t *testing.T) {
			if err := write(); !errors.Is(err, core.ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestAmountCapEnforcedBySchema(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	u := createUser(t, repo, "a@example.com")

	expense := func(cents int64) error {
		_, err := repo.CreateExpense(ctx, core.Expense{UserID: u.ID, Category: "food", Amount: core.Money{Cents: cents}, Date: core.NewDate(2025, 1, 1)})
		return err
	}
	if err := expense(core.MaxAmount); err != nil {
		t.Fatalf("MaxAmount rejected: %v", err)
	}
	if err := expense(core.MaxAmount + 1); err == nil {
		t.Error("expense above MaxAmount was stored")
	}
	if _, err := repo.UpsertBudget(ctx, u.ID, core.Money{Cents: core.MaxAmount + 1}); err == nil {
		t.Error("budget above MaxAmount was stored")
	}
	if _, err := repo.CreateGoal(ctx, core.Goal{UserID: u.ID, Name: "Car", TargetAmount: core.Money{Cents: core.MaxAmount + 1}, Deadline: core.NewDate(2026, 1, 1)}); err == nil {
		t.Error("goal above MaxAmount was stored")
	}
}
