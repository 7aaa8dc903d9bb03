package adapthttp

import (
	"net/http"

	"mealtracker/internal/domain"
)

type itemBody struct {
	FoodID   int64   `json:"food_id"`
	Quantity float64 `json:"quantity"`
}

func toItemInputs(items []itemBody) []domain.ItemInput {
	out := make([]domain.ItemInput, len(items))
	for i, it := range items {
		out[i] = domain.ItemInput{FoodID: it.FoodID, Quantity: it.Quantity}
	}
	return out
}

func (s *Server) handleMeals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(r)

	switch r.Method {
	case http.MethodGet:
		templates, err := s.templates.List(ctx, user.ID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, templates)

	case http.MethodPost:
		var body struct {
			Name        string     `json:"name"`
			Description *string    `json:"description"`
			Items       []itemBody `json:"items"`
		}
		if err := parseJSON(r, &body); err != nil {
			s.fail(w, r, err)
			return
		}
		tmpl, err := s.templates.Create(ctx, user.ID, body.Name, body.Description, toItemInputs(body.Items))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, tmpl)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleMeal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	id, err := pathID(r, "meal")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tmpl, err := s.templates.Get(r.Context(), currentUser(r).ID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}
