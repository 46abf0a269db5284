package services

import (
	"context"
	"fmt"

	"budgetly/internal/core"
	"budgetly/internal/store"
)

type GoalService struct {
	goals      store.GoalStore
	invalidate Invalidator
}

func NewGoalService(goals store.GoalStore, inv Invalidator) *GoalService {
	return &GoalService{goals: goals, invalidate: orNoop(inv)}
}

func (s *GoalService) List(ctx context.Context, userID int64) ([]core.Goal, error) {
	goals, err := s.goals.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

func (s *GoalService) Create(ctx context.Context, userID int64, in core.GoalInput) (core.Goal, error) {
	g, err := in.Build(userID)
	if err != nil {
		return core.Goal{}, err
	}
	created, err := s.goals.CreateGoal(ctx, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("save goal: %w", err)
	}
	s.invalidate.Invalidate(userID)
	return created, nil
}

// Update replaces every field of goal id. Foreign goals are core.ErrNotFound.
func (s *GoalService) Update(ctx context.Context, userID, id int64, in core.GoalInput) (core.Goal, error) {
	g, err := in.Build(userID)
	if err != nil {
		return core.Goal{}, err
	}
	g.ID = id
	updated, err := s.goals.UpdateGoal(ctx, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	s.invalidate.Invalidate(userID)
	return updated, nil
}

func (s *GoalService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.goals.DeleteGoal(ctx, id, userID); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	s.invalidate.Invalidate(userID)
	return nil
}
