package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ndegwamoche/budget-tracker/internal/core"
	"github.com/ndegwamoche/budget-tracker/internal/store"
)

// CategoryInput is the write payload for categories.
type CategoryInput struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// CategoryService validates input and drives the category store.
type CategoryService struct {
	store store.CategoryStore
}

func NewCategoryService(st store.CategoryStore) *CategoryService {
	return &CategoryService{store: st}
}

func (s *CategoryService) toCategory(ownerID string, input CategoryInput) (core.Category, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validate.Struct(input); err != nil {
		return core.Category{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return core.Category{OwnerID: ownerID, Name: input.Name}, nil
}

func (s *CategoryService) Create(ctx context.Context, ownerID string, input CategoryInput) (core.Category, error) {
	cat, err := s.toCategory(ownerID, input)
	if err != nil {
		return core.Category{}, err
	}

	created, err := s.store.CreateCategory(ctx, cat)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return created, nil
}

func (s *CategoryService) Update(ctx context.Context, ownerID, id string, input CategoryInput) (core.Category, error) {
	cat, err := s.toCategory(ownerID, input)
	if err != nil {
		return core.Category{}, err
	}
	cat.ID = id

	return s.store.UpdateCategory(ctx, cat)
}

func (s *CategoryService) Delete(ctx context.Context, ownerID, id string) error {
	return s.store.DeleteCategory(ctx, ownerID, id)
}

func (s *CategoryService) List(ctx context.Context, ownerID string) ([]core.Category, error) {
	return s.store.Categories(ctx, ownerID)
}
