package adapthttp

import (
	"net/http"

	"mealtracker/internal/app"
)

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)

	switch r.Method {
	case http.MethodGet:
		date, err := s.logs.ResolveDate(r.URL.Query().Get("date"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		daily, err := s.logs.GetDailyLog(ctx, user.ID, date)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, daily)

	case http.MethodPost:
		var body struct {
			MealType       string     `json:"meal_type"`
			MealDate       string     `json:"meal_date"`
			MealName       *string    `json:"meal_name"`
			SaveAsTemplate bool       `json:"save_as_template"`
			Items          []itemBody `json:"items"`
		}
		if err := parseJSON(r, &body); err != nil {
			s.fail(w, r, err)
			return
		}
		entry, err := s.logs.Save(ctx, user.ID, app.SaveMealInput{
			MealType:       body.MealType,
			MealDate:       body.MealDate,
			MealName:       body.MealName,
			SaveAsTemplate: body.SaveAsTemplate,
			Items:          toItemInputs(body.Items),
		})
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleLogDates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	dates, err := s.logs.AvailableDates(r.Context(), currentUser(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": dates})
}

func (s *Server) handleLogNavigation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	date, err := s.logs.ResolveDate(r.URL.Query().Get("date"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	nav, err := s.logs.Navigation(r.Context(), currentUser(r).ID, date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nav)
}

func (s *Server) handleLogEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
		return
	}
	ctx := r.Context()
	userID := currentUser(r).ID

	id, err := pathID(r, "log entry")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		entry, err := s.logs.Get(ctx, userID, id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)

	case http.MethodDelete:
		if err := s.logs.Delete(ctx, userID, id); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}
