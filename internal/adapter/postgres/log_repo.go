package postgres

import (
	"context"
	"database/sql"
	"time"

	"mealtracker/internal/domain"
)

var _ domain.LogRepository = (*DB)(nil)

const entryColumns = "id, user_id, meal_date, meal_type, template_id, meal_name"

// EntriesForDate returns the user's entries for one day.
func (d *DB) EntriesForDate(ctx context.Context, userID int64, date domain.Date) ([]domain.LogEntry, error) {
	return d.queryEntries(ctx, d.sql,
		"SELECT "+entryColumns+" FROM meal_log WHERE user_id=$1 AND meal_date=$2 ORDER BY id;", userID, date)
}

// AvailableDates returns the user's distinct days with entries, ascending.
func (d *DB) AvailableDates(ctx context.Context, userID int64) ([]domain.Date, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT DISTINCT meal_date FROM meal_log WHERE user_id=$1 ORDER BY meal_date;", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := []domain.Date{}
	for rows.Next() {
		var day domain.Date
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		out = append(out, day)
	}
	return out, rows.Err()
}

// GetEntry returns the user's entry with the given ID.
func (d *DB) GetEntry(ctx context.Context, userID, id int64) (*domain.LogEntry, error) {
	return d.getEntry(ctx, d.sql, userID, id)
}

func (d *DB) getEntry(ctx context.Context, q querier, userID, id int64) (*domain.LogEntry, error) {
	entries, err := d.queryEntries(ctx, q,
		"SELECT "+entryColumns+" FROM meal_log WHERE id=$1 AND user_id=$2;", id, userID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// ReplaceSlot upserts the slot row and swaps its items in one transaction.
// The upsert locks the row, so concurrent writes to the same slot serialize
// and the last commit wins whole.
func (d *DB) ReplaceSlot(ctx context.Context, w domain.SlotWrite) (*domain.LogEntry, error) {
	var entry *domain.LogEntry
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		var id int64
		err := tx.QueryRowContext(ctx, `
INSERT INTO meal_log(user_id, meal_date, meal_type, template_id, meal_name, created_at, updated_at)
VALUES($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (user_id, meal_date, meal_type)
DO UPDATE SET template_id = EXCLUDED.template_id, meal_name = EXCLUDED.meal_name, updated_at = EXCLUDED.updated_at
RETURNING id;`,
			w.UserID, w.Date, string(w.MealType), w.TemplateID, w.MealName, now,
		).Scan(&id)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM meal_log_items WHERE log_id=$1;", id); err != nil {
			return err
		}
		if err := insertItems(ctx, tx, logItems, id, w.Items); err != nil {
			return err
		}

		entry, err = d.getEntry(ctx, tx, w.UserID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// DeleteEntry removes the user's entry with the given ID. Items cascade.
func (d *DB) DeleteEntry(ctx context.Context, userID, id int64) (bool, error) {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM meal_log WHERE id=$1 AND user_id=$2;", id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListEntries returns the user's entries, newest day first and slots in day order.
func (d *DB) ListEntries(ctx context.Context, userID int64, since *domain.Date) ([]domain.LogEntry, error) {
	var entries []domain.LogEntry
	var err error
	if since == nil {
		entries, err = d.queryEntries(ctx, d.sql,
			"SELECT "+entryColumns+" FROM meal_log WHERE user_id=$1 ORDER BY meal_date DESC, id;", userID)
	} else {
		entries, err = d.queryEntries(ctx, d.sql,
			"SELECT "+entryColumns+" FROM meal_log WHERE user_id=$1 AND meal_date >= $2 ORDER BY meal_date DESC, id;", userID, *since)
	}
	if err != nil {
		return nil, err
	}
	sortSlots(entries)
	return entries, nil
}

// sortSlots orders entries of the same day by slot, keeping days in place.
func sortSlots(entries []domain.LogEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0; j-- {
			a, b := entries[j-1], entries[j]
			if a.MealDate != b.MealDate || a.MealType.Order() <= b.MealType.Order() {
				break
			}
			entries[j-1], entries[j] = b, a
		}
	}
}

func (d *DB) queryEntries(ctx context.Context, q querier, query string, args ...any) ([]domain.LogEntry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	out := []domain.LogEntry{}
	ids := []int64{}
	for rows.Next() {
		var e domain.LogEntry
		var mealType string
		if err := rows.Scan(&e.ID, &e.UserID, &e.MealDate, &mealType, &e.TemplateID, &e.MealName); err != nil {
			_ = rows.Close()
			return nil, err
		}
		e.MealType = domain.MealType(mealType)
		out = append(out, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	// A transaction runs one statement at a time.
	if err := rows.Close(); err != nil {
		return nil, err
	}

	items, err := loadItems(ctx, q, logItems, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
		out[i].Recompute()
	}
	return out, nil
}
