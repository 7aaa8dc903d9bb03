package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mealtracker/internal/domain"
)

var _ domain.TemplateRepository = (*DB)(nil)

const templateColumns = "id, user_id, name, description"

// ListTemplates returns the user's templates ordered by name.
func (d *DB) ListTemplates(ctx context.Context, userID int64) ([]domain.MealTemplate, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+templateColumns+" FROM meal_templates WHERE user_id=$1 ORDER BY name;", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := []domain.MealTemplate{}
	ids := []int64{}
	for rows.Next() {
		var t domain.MealTemplate
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Description); err != nil {
			return nil, err
		}
		out = append(out, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := loadItems(ctx, d.sql, templateItems, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
		out[i].Recompute()
	}
	return out, nil
}

// GetTemplate returns the user's template with the given ID.
func (d *DB) GetTemplate(ctx context.Context, userID, id int64) (*domain.MealTemplate, error) {
	return d.getTemplate(ctx,
		"SELECT "+templateColumns+" FROM meal_templates WHERE id=$1 AND user_id=$2;", id, userID)
}

// GetTemplateByName returns the user's template with the given name.
func (d *DB) GetTemplateByName(ctx context.Context, userID int64, name string) (*domain.MealTemplate, error) {
	return d.getTemplate(ctx,
		"SELECT "+templateColumns+" FROM meal_templates WHERE name=$1 AND user_id=$2;", name, userID)
}

func (d *DB) getTemplate(ctx context.Context, query string, args ...any) (*domain.MealTemplate, error) {
	var t domain.MealTemplate
	err := d.sql.QueryRowContext(ctx, query, args...).Scan(&t.ID, &t.UserID, &t.Name, &t.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	items, err := loadItems(ctx, d.sql, templateItems, []int64{t.ID})
	if err != nil {
		return nil, err
	}
	t.Items = items[t.ID]
	t.Recompute()
	return &t, nil
}

// CreateTemplate stores a template and its items atomically.
func (d *DB) CreateTemplate(ctx context.Context, userID int64, name string, description *string, items []domain.ItemInput) (*domain.MealTemplate, error) {
	var id int64
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			"INSERT INTO meal_templates(user_id, name, description, created_at) VALUES($1, $2, $3, $4) RETURNING id;",
			userID, name, description, time.Now().UTC(),
		).Scan(&id)
		if isUniqueViolation(err) {
			return domain.Conflictf("meal with this name already exists")
		}
		if err != nil {
			return err
		}
		return insertItems(ctx, tx, templateItems, id, items)
	})
	if err != nil {
		return nil, err
	}
	return d.GetTemplate(ctx, userID, id)
}

// DeleteTemplate removes the user's template. Items cascade and linked log
// entries lose the link.
func (d *DB) DeleteTemplate(ctx context.Context, userID, id int64) (bool, error) {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM meal_templates WHERE id=$1 AND user_id=$2;", id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
