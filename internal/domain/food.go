package domain

import (
	"context"
	"math"
	"time"
)

// MaxCalories is the largest per-unit calorie value a food may carry. It is
// the range of the storage column.
const MaxCalories = math.MaxInt32

// Food is an entry in the shared catalog. Calories are per unit of quantity.
type Food struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Calories  int       `json:"calories"`
	CreatedAt time.Time `json:"-"`
}

// FoodRepository is the port for the food catalog. The catalog is global and
// append-only.
type FoodRepository interface {
	ListFoods(ctx context.Context) ([]Food, error)
	SearchFoods(ctx context.Context, query string, limit int) ([]Food, error)
	CreateFood(ctx context.Context, name string, calories int) (*Food, error)
	FoodsByID(ctx context.Context, ids []int64) (map[int64]Food, error)
}
