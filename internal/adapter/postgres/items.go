package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"mealtracker/internal/domain"

	"github.com/lib/pq"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// itemTable names an item table and the column referencing its parent.
type itemTable struct {
	name      string
	parentCol string
}

var (
	templateItems = itemTable{name: "meal_template_items", parentCol: "template_id"}
	logItems      = itemTable{name: "meal_log_items", parentCol: "log_id"}
)

// loadItems returns the items of each parent joined with current food data,
// in insertion order.
func loadItems(ctx context.Context, q querier, t itemTable, parentIDs []int64) (map[int64][]domain.MealItem, error) {
	out := make(map[int64][]domain.MealItem, len(parentIDs))
	if len(parentIDs) == 0 {
		return out, nil
	}
	query := fmt.Sprintf(
		"SELECT i.%[2]s, i.id, i.food_id, f.name, f.calories, i.quantity FROM %[1]s i JOIN foods f ON f.id = i.food_id WHERE i.%[2]s = ANY($1) ORDER BY i.id;",
		t.name, t.parentCol)
	rows, err := q.QueryContext(ctx, query, pq.Array(parentIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var parent int64
		var it domain.MealItem
		if err := rows.Scan(&parent, &it.ID, &it.FoodID, &it.FoodName, &it.Calories, &it.Quantity); err != nil {
			return nil, err
		}
		out[parent] = append(out[parent], it)
	}
	return out, rows.Err()
}

// insertItems writes items under parentID. A missing food surfaces as
// domain.ErrNotFound.
func insertItems(ctx context.Context, q querier, t itemTable, parentID int64, items []domain.ItemInput) error {
	query := fmt.Sprintf("INSERT INTO %s(%s, food_id, quantity) VALUES($1, $2, $3);", t.name, t.parentCol)
	for _, it := range items {
		if _, err := q.ExecContext(ctx, query, parentID, it.FoodID, it.Quantity); err != nil {
			if isForeignKeyViolation(err) {
				return domain.NotFoundf("food %d not found", it.FoodID)
			}
			return err
		}
	}
	return nil
}

// withTx runs fn in a transaction, committing only if fn succeeds.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
