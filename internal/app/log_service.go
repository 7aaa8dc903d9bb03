package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mealtracker/internal/domain"
)

// SaveRecorder observes successful meal saves.
type SaveRecorder interface {
	MealSaved(mealType domain.MealType, items int)
}

// SaveMealInput is the request to replace one meal slot.
type SaveMealInput struct {
	MealType string
	// MealDate is YYYY-MM-DD; empty means today in the reference timezone.
	MealDate string
	MealName *string
	// SaveAsTemplate additionally keeps the items as a named template.
	SaveAsTemplate bool
	Items          []domain.ItemInput
}

// LogService aggregates daily logs and writes meal slots.
type LogService struct {
	logs      domain.LogRepository
	foods     domain.FoodRepository
	templates domain.TemplateRepository
	users     domain.UserRepository
	loc       *time.Location
	now       func() time.Time
	recorder  SaveRecorder
}

// NewLogService creates a LogService. Calendar days are resolved in loc.
func NewLogService(logs domain.LogRepository, foods domain.FoodRepository, templates domain.TemplateRepository, users domain.UserRepository, loc *time.Location) *LogService {
	if loc == nil {
		loc = time.UTC
	}
	return &LogService{
		logs:      logs,
		foods:     foods,
		templates: templates,
		users:     users,
		loc:       loc,
		now:       time.Now,
	}
}

// WithRecorder attaches r to observe saves.
func (s *LogService) WithRecorder(r SaveRecorder) *LogService {
	s.recorder = r
	return s
}

// Location is the reference timezone that defines day boundaries.
func (s *LogService) Location() *time.Location {
	return s.loc
}

// Today is the current calendar day in the reference timezone.
func (s *LogService) Today() domain.Date {
	return domain.TodayIn(s.loc, s.now())
}

// ResolveDate parses raw, defaulting to Today when it is empty.
func (s *LogService) ResolveDate(raw string) (domain.Date, error) {
	if raw == "" {
		return s.Today(), nil
	}
	return domain.ParseDate(raw)
}

// GetDailyLog returns all six slots for date with per-slot and day totals.
func (s *LogService) GetDailyLog(ctx context.Context, userID int64, date domain.Date) (*domain.DailyLog, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	entries, err := s.logs.EntriesForDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	dl := domain.BuildDailyLog(date, entries)
	return &dl, nil
}

// AvailableDates returns the distinct days with at least one entry, ascending.
func (s *LogService) AvailableDates(ctx context.Context, userID int64) ([]domain.Date, error) {
	dates, err := s.logs.AvailableDates(ctx, userID)
	if err != nil {
		return nil, err
	}
	if dates == nil {
		dates = []domain.Date{}
	}
	return dates, nil
}

// Navigation computes the day picker state for selected.
func (s *LogService) Navigation(ctx context.Context, userID int64, selected domain.Date) (*domain.Navigation, error) {
	dates, err := s.AvailableDates(ctx, userID)
	if err != nil {
		return nil, err
	}
	var earliest *domain.Date
	if len(dates) > 0 {
		d := dates[0]
		earliest = &d
	}
	nav := domain.Navigate(selected, s.Today(), earliest)
	return &nav, nil
}

// Get returns one of the user's log entries.
func (s *LogService) Get(ctx context.Context, userID, id int64) (*domain.LogEntry, error) {
	e, err := s.logs.GetEntry(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, domain.NotFoundf("log entry not found")
	}
	return e, nil
}

// Save replaces the full item list of one (date, meal type) slot. Every
// check runs before anything is written.
func (s *LogService) Save(ctx context.Context, userID int64, in SaveMealInput) (*domain.LogEntry, error) {
	mealType, err := domain.ParseMealType(in.MealType)
	if err != nil {
		return nil, err
	}
	date, err := s.ResolveDate(in.MealDate)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateItems(in.Items); err != nil {
		return nil, err
	}
	if err := resolveFoods(ctx, s.foods, in.Items); err != nil {
		return nil, err
	}

	name := trimmedOrNil(in.MealName)
	if in.SaveAsTemplate && name == nil {
		return nil, domain.Invalidf("meal_name is required to save a template")
	}
	templateID, created, err := s.linkTemplate(ctx, userID, name, in.SaveAsTemplate, in.Items)
	if err != nil {
		return nil, err
	}

	entry, err := s.logs.ReplaceSlot(ctx, domain.SlotWrite{
		UserID:     userID,
		Date:       date,
		MealType:   mealType,
		MealName:   name,
		TemplateID: templateID,
		Items:      in.Items,
	})
	if err != nil {
		if created {
			// Undo the template so a failed save leaves nothing behind.
			if _, derr := s.templates.DeleteTemplate(ctx, userID, *templateID); derr != nil {
				err = errors.Join(err, fmt.Errorf("remove template %d: %w", *templateID, derr))
			}
		}
		return nil, err
	}
	if s.recorder != nil {
		s.recorder.MealSaved(mealType, len(in.Items))
	}
	return entry, nil
}

// linkTemplate finds the user's template named name, creating a snapshot of
// items when asked to and none exists yet. created reports whether this call
// made the template.
func (s *LogService) linkTemplate(ctx context.Context, userID int64, name *string, create bool, items []domain.ItemInput) (id *int64, created bool, err error) {
	if name == nil || s.templates == nil {
		return nil, false, nil
	}
	t, err := s.templates.GetTemplateByName(ctx, userID, *name)
	if err != nil {
		return nil, false, err
	}
	if t == nil && create {
		t, err = s.templates.CreateTemplate(ctx, userID, *name, nil, items)
		if err != nil {
			return nil, false, err
		}
		created = true
	}
	if t == nil {
		return nil, false, nil
	}
	tid := t.ID
	return &tid, created, nil
}

// Delete removes one of the user's log entries.
func (s *LogService) Delete(ctx context.Context, userID, id int64) error {
	deleted, err := s.logs.DeleteEntry(ctx, userID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.NotFoundf("log entry not found")
	}
	return nil
}

// History lists the user's entries newest day first, slots in day order.
// A non-nil since limits it to that day and later.
func (s *LogService) History(ctx context.Context, userID int64, since *domain.Date) ([]domain.LogEntry, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.logs.ListEntries(ctx, userID, since)
}

func (s *LogService) requireUser(ctx context.Context, userID int64) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return domain.NotFoundf("user not found")
	}
	return nil
}
