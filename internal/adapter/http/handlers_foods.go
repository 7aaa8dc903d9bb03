package adapthttp

import (
	"net/http"

	"mealtracker/internal/domain"
)

func (s *Server) handleFoods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		foods, err := s.foods.List(ctx)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, foods)

	case http.MethodPost:
		var body struct {
			Name     string   `json:"name"`
			Calories *float64 `json:"calories"`
		}
		if err := parseJSON(r, &body); err != nil {
			s.fail(w, r, err)
			return
		}
		if body.Calories == nil {
			s.fail(w, r, domain.Invalidf("name and calories are required"))
			return
		}
		food, err := s.foods.Create(ctx, body.Name, *body.Calories)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, food)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleFoodSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	foods, err := s.foods.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, foods)
}
