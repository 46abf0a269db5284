package services

import (
	"context"
	"fmt"
	"log/slog"

	"budgetly/internal/core"
	applog "budgetly/internal/log"
	"budgetly/internal/store"
)

// Invalidator forgets derived data when a user's records change.
type Invalidator interface {
	Invalidate(userID int64)
}

type noInvalidation struct{}

func (noInvalidation) Invalidate(int64) {}

func orNoop(inv Invalidator) Invalidator {
	if inv == nil {
		return noInvalidation{}
	}
	return inv
}

// ExpenseService validates and stores expenses.
type ExpenseService struct {
	expenses   store.ExpenseStore
	invalidate Invalidator
	month      func() (int, int)
}

// NewExpenseService takes month, the current year and month used when a
// listing names neither.
func NewExpenseService(expenses store.ExpenseStore, inv Invalidator, month func() (int, int)) *ExpenseService {
	return &ExpenseService{expenses: expenses, invalidate: orNoop(inv), month: month}
}

// List returns the expenses of year/month; zero values select the current month.
func (s *ExpenseService) List(ctx context.Context, userID int64, year, month int) ([]core.Expense, error) {
	if year == 0 || month == 0 {
		cy, cm := s.month()
		if year == 0 {
			year = cy
		}
		if month == 0 {
			month = cm
		}
	}
	if month < 1 || month > 12 {
		return nil, core.FieldError("month", "The month must be between 1 and 12.")
	}

	expenses, err := s.expenses.ListExpenses(ctx, userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (s *ExpenseService) Create(ctx context.Context, userID int64, in core.ExpenseInput) (core.Expense, error) {
	e, err := in.Build(userID)
	if err != nil {
		return core.Expense{}, err
	}

	created, err := s.expenses.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.invalidate.Invalidate(userID)

	slog.InfoContext(ctx, "Expense created",
		applog.FieldComponent, applog.ComponentExpense,
		"id", created.ID,
		"user_id", userID,
		"category", created.Category,
		"amount_cents", created.Amount.Cents)
	return created, nil
}

// Delete returns core.ErrNotFound when the expense is missing or foreign.
func (s *ExpenseService) Delete(ctx context.Context, userID, id int64) error {
	ok, err := s.expenses.DeleteExpense(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if !ok {
		return core.ErrNotFound
	}
	s.invalidate.Invalidate(userID)
	return nil
}
