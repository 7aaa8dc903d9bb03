package domain

// Navigation is the state of the day picker for a selected date.
type Navigation struct {
	Date         Date  `json:"date"`
	Today        Date  `json:"today"`
	Earliest     *Date `json:"earliest"`
	PreviousDate Date  `json:"previous_date"`
	NextDate     Date  `json:"next_date"`
	CanGoBack    bool  `json:"can_go_back"`
	CanGoForward bool  `json:"can_go_forward"`
	IsToday      bool  `json:"is_today"`
	IsPast       bool  `json:"is_past"`
}

// Navigate computes which neighbouring days are reachable from selected.
// A nil earliest means no data yet, so backward navigation is unbounded.
func Navigate(selected, today Date, earliest *Date) Navigation {
	return Navigation{
		Date:         selected,
		Today:        today,
		Earliest:     earliest,
		PreviousDate: selected.AddDays(-1),
		NextDate:     selected.AddDays(1),
		CanGoBack:    earliest == nil || selected.After(*earliest),
		CanGoForward: selected.Before(today),
		IsToday:      selected == today,
		IsPast:       selected.Before(today),
	}
}
