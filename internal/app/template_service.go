package app

import (
	"context"
	"strings"

	"mealtracker/internal/domain"
)

// TemplateService encapsulates meal template use cases.
type TemplateService struct {
	repo  domain.TemplateRepository
	foods domain.FoodRepository
}

// NewTemplateService creates a TemplateService.
func NewTemplateService(repo domain.TemplateRepository, foods domain.FoodRepository) *TemplateService {
	return &TemplateService{repo: repo, foods: foods}
}

// List returns the user's templates ordered by name.
func (s *TemplateService) List(ctx context.Context, userID int64) ([]domain.MealTemplate, error) {
	return s.repo.ListTemplates(ctx, userID)
}

// Get returns one of the user's templates.
func (s *TemplateService) Get(ctx context.Context, userID, id int64) (*domain.MealTemplate, error) {
	t, err := s.repo.GetTemplate(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.NotFoundf("meal not found")
	}
	return t, nil
}

// Create validates and stores a new template. A blank description is stored
// as null.
func (s *TemplateService) Create(ctx context.Context, userID int64, name string, description *string, items []domain.ItemInput) (*domain.MealTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalidf("meal name is required")
	}
	if err := domain.ValidateItems(items); err != nil {
		return nil, err
	}
	if err := resolveFoods(ctx, s.foods, items); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetTemplateByName(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.Conflictf("meal with this name already exists")
	}

	return s.repo.CreateTemplate(ctx, userID, name, trimmedOrNil(description), items)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
