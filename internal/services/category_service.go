package services

import (
	"context"
	"fmt"

	"budgetly/internal/core"
	"budgetly/internal/store"
)

// CategoryService manages the user's named spending categories. Categories
// do not feed the analysis, which groups by the expense's own category text.
type CategoryService struct {
	categories store.CategoryStore
}

func NewCategoryService(categories store.CategoryStore) *CategoryService {
	return &CategoryService{categories: categories}
}

func (s *CategoryService) List(ctx context.Context, userID int64) ([]core.Category, error) {
	cats, err := s.categories.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *CategoryService) Create(ctx context.Context, userID int64, in core.CategoryInput) (core.Category, error) {
	c, err := in.Build(userID)
	if err != nil {
		return core.Category{}, err
	}
	created, err := s.categories.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	return created, nil
}

func (s *CategoryService) Update(ctx context.Context, userID, id int64, in core.CategoryInput) (core.Category, error) {
	c, err := in.Build(userID)
	if err != nil {
		return core.Category{}, err
	}
	c.ID = id
	updated, err := s.categories.UpdateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return updated, nil
}

func (s *CategoryService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.categories.DeleteCategory(ctx, id, userID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
