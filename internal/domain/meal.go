package domain

import (
	"context"
	"math"
	"strings"
)

// MealType is one of the six fixed slots a day is split into.
type MealType string

const (
	Breakfast      MealType = "breakfast"
	MorningSnack   MealType = "morning_snack"
	Lunch          MealType = "lunch"
	AfternoonSnack MealType = "afternoon_snack"
	Dinner         MealType = "dinner"
	EveningSnack   MealType = "evening_snack"
)

// MealTypes lists every slot in display order.
var MealTypes = []MealType{Breakfast, MorningSnack, Lunch, AfternoonSnack, Dinner, EveningSnack}

var mealTypeLabels = map[MealType]string{
	Breakfast:      "Breakfast",
	MorningSnack:   "Morning Snack",
	Lunch:          "Lunch",
	AfternoonSnack: "Afternoon Snack",
	Dinner:         "Dinner",
	EveningSnack:   "Evening Snack",
}

// ParseMealType validates s as one of MealTypes.
func ParseMealType(s string) (MealType, error) {
	mt := MealType(strings.TrimSpace(s))
	if _, ok := mealTypeLabels[mt]; !ok {
		names := make([]string, len(MealTypes))
		for i, t := range MealTypes {
			names[i] = string(t)
		}
		return "", Invalidf("invalid meal type %q, must be one of: %s", s, strings.Join(names, ", "))
	}
	return mt, nil
}

// Label is the human-readable slot name.
func (t MealType) Label() string {
	if l, ok := mealTypeLabels[t]; ok {
		return l
	}
	return string(t)
}

// Order is the slot's position within a day, or -1 if unknown.
func (t MealType) Order() int {
	for i, mt := range MealTypes {
		if mt == t {
			return i
		}
	}
	return -1
}

// MealItem is one food line of a template or log entry, joined with the
// food's name and per-unit calories.
type MealItem struct {
	ID       int64   `json:"id,omitempty"`
	FoodID   int64   `json:"food_id"`
	FoodName string  `json:"food_name"`
	Calories int     `json:"calories"`
	Quantity float64 `json:"quantity"`
}

// Effective is the item's contribution to a total.
func (i MealItem) Effective() float64 {
	return float64(i.Calories) * i.Quantity
}

// ItemInput is the write shape of a meal item.
type ItemInput struct {
	FoodID   int64   `json:"food_id"`
	Quantity float64 `json:"quantity"`
}

// MaxQuantity bounds a single item's quantity. Together with MaxCalories it
// keeps every total finite.
const MaxQuantity = 10000

// ValidateItems checks the per-item rules shared by log saves and template
// creation. Food existence is checked separately against the catalog.
func ValidateItems(items []ItemInput) error {
	for i, it := range items {
		if it.FoodID <= 0 {
			return Invalidf("item %d: food_id is required", i+1)
		}
		if !(it.Quantity > 0) || math.IsInf(it.Quantity, 0) {
			return Invalidf("item %d: quantity must be greater than 0", i+1)
		}
		if it.Quantity > MaxQuantity {
			return Invalidf("item %d: quantity must be at most %d", i+1, MaxQuantity)
		}
	}
	return nil
}

// SumItems totals the effective calories of items.
func SumItems(items []MealItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Effective()
	}
	return total
}

// MealTemplate is a named, reusable snapshot of a meal's items. Templates are
// never modified after creation.
type MealTemplate struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"-"`
	Name          string     `json:"name"`
	Description   *string    `json:"description"`
	Items         []MealItem `json:"items"`
	TotalCalories float64    `json:"total_calories"`
}

// Recompute refreshes TotalCalories from Items.
func (t *MealTemplate) Recompute() {
	if t.Items == nil {
		t.Items = []MealItem{}
	}
	t.TotalCalories = SumItems(t.Items)
}

// EditorItems copies the template's items into a fresh editable list.
// Changing the result never touches the template.
func (t *MealTemplate) EditorItems() []ItemInput {
	out := make([]ItemInput, len(t.Items))
	for i, it := range t.Items {
		out[i] = ItemInput{FoodID: it.FoodID, Quantity: it.Quantity}
	}
	return out
}

// TemplateRepository is the port for meal templates. Lookups are scoped to
// the owner and return (nil, nil) when nothing matches.
type TemplateRepository interface {
	ListTemplates(ctx context.Context, userID int64) ([]MealTemplate, error)
	GetTemplate(ctx context.Context, userID, id int64) (*MealTemplate, error)
	GetTemplateByName(ctx context.Context, userID int64, name string) (*MealTemplate, error)
	CreateTemplate(ctx context.Context, userID int64, name string, description *string, items []ItemInput) (*MealTemplate, error)
	DeleteTemplate(ctx context.Context, userID, id int64) (bool, error)
}
