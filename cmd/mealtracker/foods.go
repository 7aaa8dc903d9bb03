package main

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func (c *cli) foodsCmd() *cobra.Command {
	foods := &cobra.Command{
		Use:   "foods",
		Short: "Manage the shared food catalog",
	}
	foods.AddCommand(c.foodsAddCmd(), c.foodsListCmd())
	return foods
}

func (c *cli) foodsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add NAME CALORIES",
		Short: "Add a food to the catalog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			calories, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("calories must be a number: %q", args[1])
			}

			st, err := c.open(cmd.Context(), c.cfg, c.log)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			food, err := c.services(st).foods.Create(cmd.Context(), args[0], calories)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added food '%s' (%d cal) with id %d\n", food.Name, food.Calories, food.ID)
			return nil
		},
	}
}

func (c *cli) foodsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the catalog as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.open(cmd.Context(), c.cfg, c.log)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			foods, err := c.services(st).foods.List(cmd.Context())
			if err != nil {
				return err
			}

			w := csv.NewWriter(cmd.OutOrStdout())
			_ = w.Write([]string{"id", "name", "calories", "created_at"})
			for _, f := range foods {
				_ = w.Write([]string{
					strconv.FormatInt(f.ID, 10),
					f.Name,
					strconv.Itoa(f.Calories),
					f.CreatedAt.UTC().Format(time.RFC3339),
				})
			}
			w.Flush()
			return w.Error()
		},
	}
}
