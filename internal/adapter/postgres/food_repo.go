package postgres

import (
	"context"
	"time"

	"mealtracker/internal/domain"

	"github.com/lib/pq"
)

var _ domain.FoodRepository = (*DB)(nil)

// ListFoods returns every food ordered by name.
func (d *DB) ListFoods(ctx context.Context) ([]domain.Food, error) {
	return d.queryFoods(ctx, "SELECT id, name, calories, created_at FROM foods ORDER BY LOWER(name), id;")
}

// SearchFoods returns up to limit foods whose name contains query, ignoring case.
func (d *DB) SearchFoods(ctx context.Context, query string, limit int) ([]domain.Food, error) {
	return d.queryFoods(ctx,
		"SELECT id, name, calories, created_at FROM foods WHERE name ILIKE '%' || $1 || '%' ESCAPE '\\' ORDER BY LOWER(name), id LIMIT $2;",
		escapeLike(query), limit)
}

// CreateFood inserts a food. Names are unique regardless of case.
func (d *DB) CreateFood(ctx context.Context, name string, calories int) (*domain.Food, error) {
	var f domain.Food
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO foods(name, calories, created_at) VALUES($1, $2, $3) RETURNING id, name, calories, created_at;",
		name, calories, time.Now().UTC(),
	).Scan(&f.ID, &f.Name, &f.Calories, &f.CreatedAt)
	if isUniqueViolation(err) {
		return nil, domain.Conflictf("food with this name already exists")
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// FoodsByID returns the foods among ids that exist.
func (d *DB) FoodsByID(ctx context.Context, ids []int64) (map[int64]domain.Food, error) {
	out := make(map[int64]domain.Food, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	foods, err := d.queryFoods(ctx,
		"SELECT id, name, calories, created_at FROM foods WHERE id = ANY($1);", pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, f := range foods {
		out[f.ID] = f
	}
	return out, nil
}

func (d *DB) queryFoods(ctx context.Context, query string, args ...any) ([]domain.Food, error) {
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := []domain.Food{}
	for rows.Next() {
		var f domain.Food
		if err := rows.Scan(&f.ID, &f.Name, &f.Calories, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			b = append(b, '\\')
		}
		b = append(b, s[i])
	}
	return string(b)
}
