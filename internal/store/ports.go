// Package store declares the data-access ports used by the services.
//
// Every lookup is scoped by user ID. A record owned by another user is
// reported as core.ErrNotFound.
package store

import (
	"context"

	"budgetly/internal/core"
)

type (
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUser(ctx context.Context, id int64) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		UpdateUser(ctx context.Context, id int64, name, email string) (core.User, error)
		UpdatePassword(ctx context.Context, id int64, hash []byte) error
		// DeleteUser removes the user and everything the user owns.
		DeleteUser(ctx context.Context, id int64) error
	}

	BudgetStore interface {
		// GetBudget returns core.ErrNotFound when the user has no budget.
		GetBudget(ctx context.Context, userID int64) (core.Budget, error)
		UpsertBudget(ctx context.Context, userID int64, amount core.Money) (core.Budget, error)
	}

	// BudgetLister enumerates users that have a budget, for batch jobs.
	BudgetLister interface {
		ListBudgetedUsers(ctx context.Context) ([]core.User, error)
	}

	ExpenseStore interface {
		// ListExpenses returns the user's expenses dated in year/month, oldest first.
		ListExpenses(ctx context.Context, userID int64, year, month int) ([]core.Expense, error)
		ListAllExpenses(ctx context.Context, userID int64) ([]core.Expense, error)
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		// DeleteExpense reports whether a matching expense was removed.
		DeleteExpense(ctx context.Context, id, userID int64) (bool, error)
	}

	GoalStore interface {
		ListGoals(ctx context.Context, userID int64) ([]core.Goal, error)
		GetGoal(ctx context.Context, id, userID int64) (core.Goal, error)
		CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
		UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
		DeleteGoal(ctx context.Context, id, userID int64) error
	}

	CategoryStore interface {
		// ListCategories orders by priority, then name.
		ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
		DeleteCategory(ctx context.Context, id, userID int64) error
	}

	PasswordResetStore interface {
		// PutResetToken replaces any pending token for the e-mail.
		PutResetToken(ctx context.Context, r core.PasswordReset) error
		GetResetToken(ctx context.Context, email string) (core.PasswordReset, error)
		DeleteResetToken(ctx context.Context, email string) error
	}

	// Store bundles every port; both backends implement all of it.
	Store interface {
		UserStore
		BudgetStore
		BudgetLister
		ExpenseStore
		GoalStore
		CategoryStore
		PasswordResetStore
	}
)
