package app

import (
	"context"
	"math"
	"strings"

	"mealtracker/internal/domain"
)

// SearchLimit caps the number of foods returned by a search.
const SearchLimit = 20

// FoodService encapsulates food catalog use cases.
type FoodService struct {
	repo domain.FoodRepository
}

// NewFoodService creates a FoodService backed by the given repository.
func NewFoodService(repo domain.FoodRepository) *FoodService {
	return &FoodService{repo: repo}
}

// List returns the whole catalog ordered by name.
func (s *FoodService) List(ctx context.Context) ([]domain.Food, error) {
	return s.repo.ListFoods(ctx)
}

// Search returns foods whose name contains query, ignoring case. A blank
// query matches nothing.
func (s *FoodService) Search(ctx context.Context, query string) ([]domain.Food, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Food{}, nil
	}
	return s.repo.SearchFoods(ctx, query, SearchLimit)
}

// Create adds a food to the catalog. Calories are rounded to whole numbers.
func (s *FoodService) Create(ctx context.Context, name string, calories float64) (*domain.Food, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalidf("food name is required")
	}
	if math.IsNaN(calories) || math.IsInf(calories, 0) || calories < 0 {
		return nil, domain.Invalidf("calories must be a number greater than or equal to 0")
	}
	rounded := math.Round(calories)
	if rounded > domain.MaxCalories {
		return nil, domain.Invalidf("calories must be at most %d", domain.MaxCalories)
	}
	return s.repo.CreateFood(ctx, name, int(rounded))
}

// resolveFoods checks that every item references an existing food.
func resolveFoods(ctx context.Context, repo domain.FoodRepository, items []domain.ItemInput) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, it := range items {
		if !seen[it.FoodID] {
			seen[it.FoodID] = true
			ids = append(ids, it.FoodID)
		}
	}

	found, err := repo.FoodsByID(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return domain.NotFoundf("food %d not found", id)
		}
	}
	return nil
}
