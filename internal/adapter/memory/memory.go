// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"mealtracker/internal/domain"
)

// DB implements an in-memory database storage. A single mutex guards every
// table, so each repository call is atomic.
type DB struct {
	mu        sync.Mutex
	users     []*domain.User
	sessions  map[string]*domain.Session
	foods     []domain.Food
	templates []templateRow
	entries   []entryRow

	userIDCounter     int64
	foodIDCounter     int64
	templateIDCounter int64
	entryIDCounter    int64
	itemIDCounter     int64
}

type itemRow struct {
	id       int64
	foodID   int64
	quantity float64
}

type templateRow struct {
	id          int64
	userID      int64
	name        string
	description *string
	items       []itemRow
}

type entryRow struct {
	id         int64
	userID     int64
	date       domain.Date
	mealType   domain.MealType
	mealName   *string
	templateID *int64
	items      []itemRow
	updatedAt  time.Time
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		sessions: make(map[string]*domain.Session),
	}
}

// Ensure interfaces are met.
var _ domain.UserRepository = (*DB)(nil)
var _ domain.FoodRepository = (*DB)(nil)
var _ domain.TemplateRepository = (*DB)(nil)
var _ domain.LogRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return nil, domain.Conflictf("username already exists")
		}
	}

	db.userIDCounter++
	u := &domain.User{
		ID:           db.userIDCounter,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	db.users = append(db.users, u)
	cp := *u
	return &cp, nil
}

// --- FoodRepository ---

// ListFoods returns every food ordered by name.
func (db *DB) ListFoods(ctx context.Context) ([]domain.Food, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]domain.Food, len(db.foods))
	copy(out, db.foods)
	sortFoods(out)
	return out, nil
}

// SearchFoods returns up to limit foods whose name contains query, ignoring case.
func (db *DB) SearchFoods(ctx context.Context, query string, limit int) ([]domain.Food, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	q := strings.ToLower(query)
	out := []domain.Food{}
	for _, f := range db.foods {
		if strings.Contains(strings.ToLower(f.Name), q) {
			out = append(out, f)
		}
	}
	sortFoods(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CreateFood adds a food. Names are unique regardless of case.
func (db *DB) CreateFood(ctx context.Context, name string, calories int) (*domain.Food, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, f := range db.foods {
		if strings.EqualFold(f.Name, name) {
			return nil, domain.Conflictf("food with this name already exists")
		}
	}

	db.foodIDCounter++
	f := domain.Food{ID: db.foodIDCounter, Name: name, Calories: calories, CreatedAt: time.Now().UTC()}
	db.foods = append(db.foods, f)
	return &f, nil
}

// FoodsByID returns the foods among ids that exist.
func (db *DB) FoodsByID(ctx context.Context, ids []int64) (map[int64]domain.Food, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make(map[int64]domain.Food, len(ids))
	for _, id := range ids {
		if f, ok := db.food(id); ok {
			out[id] = f
		}
	}
	return out, nil
}

func (db *DB) food(id int64) (domain.Food, bool) {
	for _, f := range db.foods {
		if f.ID == id {
			return f, true
		}
	}
	return domain.Food{}, false
}

func sortFoods(foods []domain.Food) {
	sort.SliceStable(foods, func(i, j int) bool {
		return strings.ToLower(foods[i].Name) < strings.ToLower(foods[j].Name)
	})
}

// --- TemplateRepository ---

// ListTemplates returns the user's templates ordered by name.
func (db *DB) ListTemplates(ctx context.Context, userID int64) ([]domain.MealTemplate, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := []domain.MealTemplate{}
	for _, t := range db.templates {
		if t.userID == userID {
			out = append(out, db.templateView(t))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetTemplate returns the user's template with the given ID.
func (db *DB) GetTemplate(ctx context.Context, userID, id int64) (*domain.MealTemplate, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, t := range db.templates {
		if t.id == id && t.userID == userID {
			v := db.templateView(t)
			return &v, nil
		}
	}
	return nil, nil
}

// GetTemplateByName returns the user's template with the given name.
func (db *DB) GetTemplateByName(ctx context.Context, userID int64, name string) (*domain.MealTemplate, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, t := range db.templates {
		if t.userID == userID && t.name == name {
			v := db.templateView(t)
			return &v, nil
		}
	}
	return nil, nil
}

// CreateTemplate stores a new template.
func (db *DB) CreateTemplate(ctx context.Context, userID int64, name string, description *string, items []domain.ItemInput) (*domain.MealTemplate, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, t := range db.templates {
		if t.userID == userID && t.name == name {
			return nil, domain.Conflictf("meal with this name already exists")
		}
	}
	if err := db.checkFoods(items); err != nil {
		return nil, err
	}

	db.templateIDCounter++
	row := templateRow{
		id:          db.templateIDCounter,
		userID:      userID,
		name:        name,
		description: copyString(description),
		items:       db.newItems(items),
	}
	db.templates = append(db.templates, row)
	v := db.templateView(row)
	return &v, nil
}

// DeleteTemplate removes the user's template. Entries linked to it keep their
// items and lose the link.
func (db *DB) DeleteTemplate(ctx context.Context, userID, id int64) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, t := range db.templates {
		if t.id != id || t.userID != userID {
			continue
		}
		db.templates = append(db.templates[:i], db.templates[i+1:]...)
		for j := range db.entries {
			if tid := db.entries[j].templateID; tid != nil && *tid == id {
				db.entries[j].templateID = nil
			}
		}
		return true, nil
	}
	return false, nil
}

func (db *DB) templateView(t templateRow) domain.MealTemplate {
	v := domain.MealTemplate{
		ID:          t.id,
		UserID:      t.userID,
		Name:        t.name,
		Description: copyString(t.description),
		Items:       db.itemViews(t.items),
	}
	v.Recompute()
	return v
}

// --- LogRepository ---

// EntriesForDate returns the user's entries for one day.
func (db *DB) EntriesForDate(ctx context.Context, userID int64, date domain.Date) ([]domain.LogEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := []domain.LogEntry{}
	for _, e := range db.entries {
		if e.userID == userID && e.date == date {
			out = append(out, db.entryView(e))
		}
	}
	return out, nil
}

// AvailableDates returns the user's distinct days with entries, ascending.
func (db *DB) AvailableDates(ctx context.Context, userID int64) ([]domain.Date, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	seen := make(map[domain.Date]bool)
	out := []domain.Date{}
	for _, e := range db.entries {
		if e.userID == userID && !seen[e.date] {
			seen[e.date] = true
			out = append(out, e.date)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// GetEntry returns the user's entry with the given ID.
func (db *DB) GetEntry(ctx context.Context, userID, id int64) (*domain.LogEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, e := range db.entries {
		if e.id == id && e.userID == userID {
			v := db.entryView(e)
			return &v, nil
		}
	}
	return nil, nil
}

// ReplaceSlot upserts the slot and swaps in the new item list.
func (db *DB) ReplaceSlot(ctx context.Context, w domain.SlotWrite) (*domain.LogEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkFoods(w.Items); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for i := range db.entries {
		e := &db.entries[i]
		if e.userID == w.UserID && e.date == w.Date && e.mealType == w.MealType {
			e.mealName = copyString(w.MealName)
			e.templateID = copyInt64(w.TemplateID)
			e.items = db.newItems(w.Items)
			e.updatedAt = now
			v := db.entryView(*e)
			return &v, nil
		}
	}

	db.entryIDCounter++
	row := entryRow{
		id:         db.entryIDCounter,
		userID:     w.UserID,
		date:       w.Date,
		mealType:   w.MealType,
		mealName:   copyString(w.MealName),
		templateID: copyInt64(w.TemplateID),
		items:      db.newItems(w.Items),
		updatedAt:  now,
	}
	db.entries = append(db.entries, row)
	v := db.entryView(row)
	return &v, nil
}

// DeleteEntry removes the user's entry with the given ID.
func (db *DB) DeleteEntry(ctx context.Context, userID, id int64) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, e := range db.entries {
		if e.id == id && e.userID == userID {
			db.entries = append(db.entries[:i], db.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// ListEntries returns the user's entries, newest day first and slots in day order.
func (db *DB) ListEntries(ctx context.Context, userID int64, since *domain.Date) ([]domain.LogEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := []domain.LogEntry{}
	for _, e := range db.entries {
		if e.userID != userID {
			continue
		}
		if since != nil && e.date.Before(*since) {
			continue
		}
		out = append(out, db.entryView(e))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].MealDate.Compare(out[j].MealDate); c != 0 {
			return c > 0
		}
		return out[i].MealType.Order() < out[j].MealType.Order()
	})
	return out, nil
}

func (db *DB) entryView(e entryRow) domain.LogEntry {
	v := domain.LogEntry{
		ID:         e.id,
		UserID:     e.userID,
		MealDate:   e.date,
		MealType:   e.mealType,
		MealName:   copyString(e.mealName),
		TemplateID: copyInt64(e.templateID),
		Items:      db.itemViews(e.items),
	}
	v.Recompute()
	return v
}

// --- items ---

func (db *DB) checkFoods(items []domain.ItemInput) error {
	for _, it := range items {
		if _, ok := db.food(it.FoodID); !ok {
			return domain.NotFoundf("food %d not found", it.FoodID)
		}
	}
	return nil
}

func (db *DB) newItems(items []domain.ItemInput) []itemRow {
	rows := make([]itemRow, len(items))
	for i, it := range items {
		db.itemIDCounter++
		rows[i] = itemRow{id: db.itemIDCounter, foodID: it.FoodID, quantity: it.Quantity}
	}
	return rows
}

func (db *DB) itemViews(rows []itemRow) []domain.MealItem {
	out := make([]domain.MealItem, 0, len(rows))
	for _, r := range rows {
		f, _ := db.food(r.foodID)
		out = append(out, domain.MealItem{
			ID:       r.id,
			FoodID:   r.foodID,
			FoodName: f.Name,
			Calories: f.Calories,
			Quantity: r.quantity,
		})
	}
	return out
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, tokenHash, userAgent, ip string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[tokenHash] = &domain.Session{
		TokenHash: tokenHash,
		UserID:    userID,
		UserAgent: userAgent,
		IP:        ip,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token digest.
func (r *SessionRepo) GetByToken(ctx context.Context, tokenHash string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[tokenHash]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, tokenHash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, tokenHash)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	var n int64
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
			n++
		}
	}
	return n, nil
}
