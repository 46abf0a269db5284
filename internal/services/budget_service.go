package services

import (
	"context"
	"errors"
	"fmt"

	"budgetly/internal/core"
	"budgetly/internal/store"
)

type BudgetService struct {
	budgets    store.BudgetStore
	invalidate Invalidator
}

func NewBudgetService(budgets store.BudgetStore, inv Invalidator) *BudgetService {
	return &BudgetService{budgets: budgets, invalidate: orNoop(inv)}
}

// Get returns core.ErrNoBudget when the user has none.
func (s *BudgetService) Get(ctx context.Context, userID int64) (core.Budget, error) {
	b, err := s.budgets.GetBudget(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Budget{}, core.ErrNoBudget
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

// Set creates or replaces the user's single budget.
func (s *BudgetService) Set(ctx context.Context, userID int64, in core.BudgetInput) (core.Budget, error) {
	if err := in.Validate(); err != nil {
		return core.Budget{}, err
	}
	b, err := s.budgets.UpsertBudget(ctx, userID, core.Money{Cents: in.MonthlyBudget})
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	s.invalidate.Invalidate(userID)
	return b, nil
}
