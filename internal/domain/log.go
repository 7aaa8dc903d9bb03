package domain

import "context"

// LogEntry is what a user ate in one slot of one day.
type LogEntry struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"-"`
	MealDate      Date       `json:"meal_date"`
	MealType      MealType   `json:"meal_type"`
	TemplateID    *int64     `json:"meal_id"`
	MealName      *string    `json:"meal_name"`
	Items         []MealItem `json:"items"`
	TotalCalories float64    `json:"total_calories"`
}

// Recompute refreshes TotalCalories from Items.
func (e *LogEntry) Recompute() {
	if e.Items == nil {
		e.Items = []MealItem{}
	}
	e.TotalCalories = SumItems(e.Items)
}

// SlotSummary is one slot of a DailyLog. Empty slots have a nil LogID.
type SlotSummary struct {
	LogID    *int64     `json:"log_id"`
	MealName *string    `json:"meal_name"`
	Items    []MealItem `json:"items"`
	Calories float64    `json:"calories"`
}

// DailyLog is the computed view of a day: always one SlotSummary per meal
// type.
type DailyLog struct {
	Date          Date                     `json:"date"`
	TotalCalories float64                  `json:"total_calories"`
	Meals         map[MealType]SlotSummary `json:"meals"`
}

// BuildDailyLog groups entries by slot and fills the missing slots with
// empty summaries. Entries for other dates are ignored.
func BuildDailyLog(date Date, entries []LogEntry) DailyLog {
	bySlot := make(map[MealType]LogEntry, len(entries))
	for _, e := range entries {
		if e.MealDate == date {
			bySlot[e.MealType] = e
		}
	}

	dl := DailyLog{Date: date, Meals: make(map[MealType]SlotSummary, len(MealTypes))}
	for _, mt := range MealTypes {
		e, ok := bySlot[mt]
		if !ok {
			dl.Meals[mt] = SlotSummary{Items: []MealItem{}}
			continue
		}
		e.Recompute()
		id := e.ID
		dl.Meals[mt] = SlotSummary{
			LogID:    &id,
			MealName: e.MealName,
			Items:    e.Items,
			Calories: e.TotalCalories,
		}
		dl.TotalCalories += e.TotalCalories
	}
	return dl
}

// SlotWrite is a full replacement of one (user, date, meal type) slot.
type SlotWrite struct {
	UserID     int64
	Date       Date
	MealType   MealType
	MealName   *string
	TemplateID *int64
	Items      []ItemInput
}

// LogRepository is the port for meal log persistence. ReplaceSlot must be
// atomic per slot: concurrent writers each leave their complete item list,
// never a mix. Lookups return (nil, nil) when the entry is absent or owned by
// someone else.
type LogRepository interface {
	EntriesForDate(ctx context.Context, userID int64, date Date) ([]LogEntry, error)
	AvailableDates(ctx context.Context, userID int64) ([]Date, error)
	GetEntry(ctx context.Context, userID, id int64) (*LogEntry, error)
	ReplaceSlot(ctx context.Context, w SlotWrite) (*LogEntry, error)
	DeleteEntry(ctx context.Context, userID, id int64) (bool, error)
	ListEntries(ctx context.Context, userID int64, since *Date) ([]LogEntry, error)
}
