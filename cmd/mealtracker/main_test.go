package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"mealtracker/internal/adapter/memory"
	"mealtracker/internal/app"
	"mealtracker/internal/config"
	"mealtracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCLI returns a cli whose commands all share one memory store.
func newTestCLI(t *testing.T) (*cli, *memory.DB) {
	t.Helper()
	cfg := config.Default()
	cfg.Store = config.StoreMemory
	cfg.LogLevel = "error"
	require.NoError(t, cfg.Validate())

	db := memory.New()
	c := newCLI()
	c.cfg = &cfg
	c.open = func(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
		return &stores{users: db, sessions: db.NewSessionRepo(), foods: db, templates: db, logs: db}, nil
	}
	return c, db
}

func run(t *testing.T, c *cli, args ...string) (string, error) {
	t.Helper()
	root := c.rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFoodsAddAndList(t *testing.T) {
	c, _ := newTestCLI(t)

	out, err := run(t, c, "foods", "add", "Banana", "105")
	require.NoError(t, err)
	assert.Equal(t, "Added food 'Banana' (105 cal) with id 1\n", out)

	_, err = run(t, c, "foods", "add", "Apple", "95")
	require.NoError(t, err)

	_, err = run(t, c, "foods", "add", "banana", "1")
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = run(t, c, "foods", "add", "Air", "lots")
	assert.Error(t, err)

	out, err = run(t, c, "foods", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,name,calories,created_at", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2,Apple,95,"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "1,Banana,105,"), lines[2])
}

func TestUsersAdd(t *testing.T) {
	c, db := newTestCLI(t)

	out, err := run(t, c, "users", "add", "alice", "--password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Created user 'alice'")

	u, err := db.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	t.Setenv("MEALTRACKER_PASSWORD", "")
	_, err = run(t, c, "users", "add", "bob")
	assert.Error(t, err)
}

func TestHistory(t *testing.T) {
	c, db := newTestCLI(t)
	ctx := context.Background()

	user, err := db.Create(ctx, "alice", "hash")
	require.NoError(t, err)
	eggs, err := db.CreateFood(ctx, "Eggs", 70)
	require.NoError(t, err)
	toast, err := db.CreateFood(ctx, "Toast", 120)
	require.NoError(t, err)

	logs := app.NewLogService(db, db, db, db, c.cfg.Location())
	name := "Usual"
	for _, in := range []app.SaveMealInput{
		{MealType: "dinner", MealDate: "2024-03-09", Items: []domain.ItemInput{{FoodID: toast.ID, Quantity: 1}}},
		{MealType: "breakfast", MealDate: "2024-03-10", MealName: &name, Items: []domain.ItemInput{{FoodID: eggs.ID, Quantity: 2}, {FoodID: toast.ID, Quantity: 1}}},
		{MealType: "lunch", MealDate: "2024-03-10"},
	} {
		_, err := logs.Save(ctx, user.ID, in)
		require.NoError(t, err)
	}

	out, err := run(t, c, "history", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Meal History for alice")
	assert.Contains(t, out, "Sunday, March 10, 2024")
	assert.Contains(t, out, "Breakfast - Usual (260 cal)")
	assert.Contains(t, out, "(no items)")
	assert.Contains(t, out, "x2")
	assert.Less(t, strings.Index(out, "March 10"), strings.Index(out, "March 09"))
	assert.Less(t, strings.Index(out, "Breakfast"), strings.Index(out, "Lunch"))

	out, err = run(t, c, "history", "alice", "--csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "date,meal_type,meal_name,food_name,calories,quantity,total_calories", lines[0])
	assert.Equal(t, "2024-03-10,breakfast,Usual,Eggs,70,2,140", lines[1])
	assert.Equal(t, "2024-03-10,lunch,,,0,0,0", lines[3])

	_, err = run(t, c, "history", "nobody")
	assert.Error(t, err)
}

func TestHistoryEmpty(t *testing.T) {
	c, db := newTestCLI(t)
	_, err := db.Create(context.Background(), "alice", "hash")
	require.NoError(t, err)

	out, err := run(t, c, "history", "alice", "--days", "7")
	require.NoError(t, err)
	assert.Equal(t, "No meal history found for user 'alice'\n", out)
}
