package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"mealtracker/internal/domain"

	"github.com/spf13/cobra"
)

func (c *cli) historyCmd() *cobra.Command {
	var (
		days  int
		asCSV bool
	)
	cmd := &cobra.Command{
		Use:   "history USERNAME",
		Short: "Print a user's meal history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			username := args[0]

			st, err := c.open(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			user, err := st.users.GetByUsername(ctx, username)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user '%s' not found", username)
			}

			svc := c.services(st)
			var since *domain.Date
			if days > 0 {
				d := svc.logs.Today().AddDays(-days)
				since = &d
			}
			entries, err := svc.logs.History(ctx, user.ID, since)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asCSV {
				return writeHistoryCSV(out, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintf(out, "No meal history found for user '%s'\n", username)
				return nil
			}
			writeHistoryText(out, username, entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 0, "limit to the last N days (0 = all history)")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "output CSV")
	return cmd
}

func roundCal(v float64) int {
	return int(math.Round(v))
}

func formatDay(d domain.Date) string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format("Monday, January 02, 2006")
}

// writeHistoryText renders entries grouped by day with slot and daily totals.
// Entries must be ordered by day.
func writeHistoryText(w io.Writer, username string, entries []domain.LogEntry) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(w, "Meal History for %s\n%s\n", username, rule)

	var current *domain.Date
	daily := 0
	for _, e := range entries {
		if current == nil || e.MealDate != *current {
			if current != nil {
				fmt.Fprintf(w, "\n  %-40s %6d cal\n", "Daily Total:", daily)
			}
			d := e.MealDate
			current = &d
			daily = 0
			fmt.Fprintf(w, "\n%s\n%s\n", formatDay(d), strings.Repeat("-", 60))
		}

		mealCal := 0
		for _, it := range e.Items {
			mealCal += roundCal(it.Effective())
		}
		daily += mealCal

		name := ""
		if e.MealName != nil {
			name = " - " + *e.MealName
		}
		fmt.Fprintf(w, "\n  %s%s (%d cal)\n", e.MealType.Label(), name, mealCal)

		if len(e.Items) == 0 {
			fmt.Fprintln(w, "    (no items)")
			continue
		}
		for _, it := range e.Items {
			qty := ""
			if it.Quantity != 1 {
				qty = "x" + strconv.FormatFloat(it.Quantity, 'g', -1, 64)
			}
			fmt.Fprintf(w, "    - %-32s %4s %6d cal\n", it.FoodName, qty, roundCal(it.Effective()))
		}
	}
	if current != nil {
		fmt.Fprintf(w, "\n  %-40s %6d cal\n", "Daily Total:", daily)
	}
	fmt.Fprintf(w, "\n%s\n", rule)
}

// writeHistoryCSV writes one row per item; empty slots get a single zero row.
func writeHistoryCSV(w io.Writer, entries []domain.LogEntry) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"date", "meal_type", "meal_name", "food_name", "calories", "quantity", "total_calories"})
	for _, e := range entries {
		name := ""
		if e.MealName != nil {
			name = *e.MealName
		}
		if len(e.Items) == 0 {
			_ = cw.Write([]string{e.MealDate.String(), string(e.MealType), name, "", "0", "0", "0"})
			continue
		}
		for _, it := range e.Items {
			_ = cw.Write([]string{
				e.MealDate.String(),
				string(e.MealType),
				name,
				it.FoodName,
				strconv.Itoa(it.Calories),
				strconv.FormatFloat(it.Quantity, 'g', -1, 64),
				strconv.Itoa(roundCal(it.Effective())),
			})
		}
	}
	cw.Flush()
	return cw.Error()
}
