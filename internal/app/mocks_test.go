package app

import (
	"context"
	"time"

	"mealtracker/internal/domain"
)

type mockUserRepo struct {
	getByUsernameFn func(ctx context.Context, username string) (*domain.User, error)
	getByIDFn       func(ctx context.Context, id int64) (*domain.User, error)
	createFn        func(ctx context.Context, username, passwordHash string) (*domain.User, error)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, username, passwordHash)
	}
	return &domain.User{ID: 1, Username: username, PasswordHash: passwordHash}, nil
}

type mockSessionRepo struct {
	createFn        func(ctx context.Context, userID int64, tokenHash, userAgent, ip string, expiresAt time.Time) error
	getByTokenFn    func(ctx context.Context, tokenHash string) (*domain.Session, error)
	deleteFn        func(ctx context.Context, tokenHash string) error
	deleteExpiredFn func(ctx context.Context) (int64, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, userID int64, tokenHash, userAgent, ip string, expiresAt time.Time) error {
	if m.createFn != nil {
		return m.createFn(ctx, userID, tokenHash, userAgent, ip, expiresAt)
	}
	return nil
}

func (m *mockSessionRepo) GetByToken(ctx context.Context, tokenHash string) (*domain.Session, error) {
	if m.getByTokenFn != nil {
		return m.getByTokenFn(ctx, tokenHash)
	}
	return nil, nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, tokenHash string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, tokenHash)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return 0, nil
}

type mockFoodRepo struct {
	listFn      func(ctx context.Context) ([]domain.Food, error)
	searchFn    func(ctx context.Context, query string, limit int) ([]domain.Food, error)
	createFn    func(ctx context.Context, name string, calories int) (*domain.Food, error)
	foodsByIDFn func(ctx context.Context, ids []int64) (map[int64]domain.Food, error)
}

func (m *mockFoodRepo) ListFoods(ctx context.Context) ([]domain.Food, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []domain.Food{}, nil
}

func (m *mockFoodRepo) SearchFoods(ctx context.Context, query string, limit int) ([]domain.Food, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return []domain.Food{}, nil
}

func (m *mockFoodRepo) CreateFood(ctx context.Context, name string, calories int) (*domain.Food, error) {
	if m.createFn != nil {
		return m.createFn(ctx, name, calories)
	}
	return &domain.Food{ID: 1, Name: name, Calories: calories}, nil
}

func (m *mockFoodRepo) FoodsByID(ctx context.Context, ids []int64) (map[int64]domain.Food, error) {
	if m.foodsByIDFn != nil {
		return m.foodsByIDFn(ctx, ids)
	}
	return map[int64]domain.Food{}, nil
}
