package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"mealtracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to TEST_DATABASE_URL and empties every table.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	connStr := os.Getenv("TEST_DATABASE_URL")
	if connStr == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := Open(connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.sql.Exec("TRUNCATE meal_log_items, meal_log, meal_template_items, meal_templates, foods, sessions, users RESTART IDENTITY CASCADE;")
	require.NoError(t, err)
	return db
}

func TestUsersAndSessions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	u, err := db.Create(ctx, "alice", "hash")
	require.NoError(t, err)
	_, err = db.Create(ctx, "alice", "hash")
	assert.ErrorIs(t, err, domain.ErrConflict)

	sessions := NewSessionRepo(db)
	require.NoError(t, sessions.Create(ctx, u.ID, "digest", "ua", "10.0.0.1", time.Now().Add(time.Hour)))
	require.NoError(t, sessions.Create(ctx, u.ID, "old", "ua", "10.0.0.1", time.Now().Add(-time.Hour)))

	s, err := sessions.GetByToken(ctx, "digest")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, u.ID, s.UserID)
	assert.Equal(t, "10.0.0.1", s.IP)

	n, err := sessions.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFoods(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"Banana", "apple", "100%_juice"} {
		_, err := db.CreateFood(ctx, name, 50)
		require.NoError(t, err)
	}
	_, err := db.CreateFood(ctx, "Apple", 1)
	assert.ErrorIs(t, err, domain.ErrConflict)

	all, err := db.ListFoods(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "100%_juice", all[0].Name)
	assert.Equal(t, "apple", all[1].Name)

	found, err := db.SearchFoods(ctx, "%", 20)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "100%_juice", found[0].Name)
}

func TestReplaceSlot(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	u, err := db.Create(ctx, "alice", "hash")
	require.NoError(t, err)
	egg, err := db.CreateFood(ctx, "Egg", 70)
	require.NoError(t, err)
	toast, err := db.CreateFood(ctx, "Toast", 120)
	require.NoError(t, err)
	day := domain.MustParseDate("2024-02-29")

	first, err := db.ReplaceSlot(ctx, domain.SlotWrite{
		UserID: u.ID, Date: day, MealType: domain.Breakfast,
		Items: []domain.ItemInput{{FoodID: egg.ID, Quantity: 2}, {FoodID: toast.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 260.0, first.TotalCalories)
	assert.Equal(t, day, first.MealDate)

	second, err := db.ReplaceSlot(ctx, domain.SlotWrite{
		UserID: u.ID, Date: day, MealType: domain.Breakfast,
		Items: []domain.ItemInput{{FoodID: toast.ID, Quantity: 0.5}},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.Len(t, second.Items, 1)
	assert.Equal(t, 60.0, second.TotalCalories)

	_, err = db.ReplaceSlot(ctx, domain.SlotWrite{
		UserID: u.ID, Date: day, MealType: domain.Breakfast,
		Items: []domain.ItemInput{{FoodID: 9999, Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The failed write rolled back.
	got, err := db.GetEntry(ctx, u.ID, first.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, toast.ID, got.Items[0].FoodID)

	dates, err := db.AvailableDates(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Date{day}, dates)
}

func TestReplaceSlotConcurrent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	u, err := db.Create(ctx, "alice", "hash")
	require.NoError(t, err)
	egg, err := db.CreateFood(ctx, "Egg", 70)
	require.NoError(t, err)
	day := domain.MustParseDate("2024-03-01")

	var wg sync.WaitGroup
	for i := 1; i <= 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			items := make([]domain.ItemInput, n)
			for j := range items {
				items[j] = domain.ItemInput{FoodID: egg.ID, Quantity: 1}
			}
			_, err := db.ReplaceSlot(ctx, domain.SlotWrite{UserID: u.ID, Date: day, MealType: domain.Lunch, Items: items})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	entries, err := db.EntriesForDate(ctx, u.ID, day)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, float64(len(entries[0].Items))*70, entries[0].TotalCalories)
}

func TestTemplatesAndHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	u, err := db.Create(ctx, "alice", "hash")
	require.NoError(t, err)
	egg, err := db.CreateFood(ctx, "Egg", 70)
	require.NoError(t, err)

	tmpl, err := db.CreateTemplate(ctx, u.ID, "Eggs", nil, []domain.ItemInput{{FoodID: egg.ID, Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, 140.0, tmpl.TotalCalories)
	_, err = db.CreateTemplate(ctx, u.ID, "Eggs", nil, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)

	name := "Eggs"
	for _, w := range []domain.SlotWrite{
		{UserID: u.ID, Date: domain.MustParseDate("2024-03-01"), MealType: domain.Dinner},
		{UserID: u.ID, Date: domain.MustParseDate("2024-03-02"), MealType: domain.Dinner},
		{UserID: u.ID, Date: domain.MustParseDate("2024-03-02"), MealType: domain.Breakfast, MealName: &name, TemplateID: &tmpl.ID},
	} {
		_, err := db.ReplaceSlot(ctx, w)
		require.NoError(t, err)
	}

	entries, err := db.ListEntries(ctx, u.ID, nil)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.Breakfast, entries[0].MealType)
	assert.Equal(t, &tmpl.ID, entries[0].TemplateID)
	assert.Equal(t, domain.Dinner, entries[1].MealType)
	assert.Equal(t, "2024-03-01", entries[2].MealDate.String())

	since := domain.MustParseDate("2024-03-02")
	entries, err = db.ListEntries(ctx, u.ID, &since)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	ok, err := db.DeleteEntry(ctx, u.ID+1, entries[0].ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteTemplateUnlinksEntries(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	u, err := db.Create(ctx, "alice", "hash")
	require.NoError(t, err)
	egg, err := db.CreateFood(ctx, "Egg", 70)
	require.NoError(t, err)
	tmpl, err := db.CreateTemplate(ctx, u.ID, "Eggs", nil, []domain.ItemInput{{FoodID: egg.ID, Quantity: 2}})
	require.NoError(t, err)
	entry, err := db.ReplaceSlot(ctx, domain.SlotWrite{
		UserID: u.ID, Date: domain.MustParseDate("2024-03-10"), MealType: domain.Breakfast,
		TemplateID: &tmpl.ID, Items: []domain.ItemInput{{FoodID: egg.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	deleted, err := db.DeleteTemplate(ctx, u.ID+1, tmpl.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = db.DeleteTemplate(ctx, u.ID, tmpl.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	kept, err := db.GetEntry(ctx, u.ID, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Nil(t, kept.TemplateID)
	assert.Equal(t, 140.0, kept.TotalCalories)
}
