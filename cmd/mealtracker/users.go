package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func (c *cli) usersCmd() *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	var password string
	add := &cobra.Command{
		Use:   "add USERNAME",
		Short: "Create a user with a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("MEALTRACKER_PASSWORD")
			}
			if password == "" {
				return errors.New("a password is required (--password or MEALTRACKER_PASSWORD)")
			}

			st, err := c.open(cmd.Context(), c.cfg, c.log)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			user, err := c.services(st).auth.CreateUser(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user '%s' with id %d\n", user.Username, user.ID)
			return nil
		},
	}
	add.Flags().StringVar(&password, "password", "", "password for the new user")

	users.AddCommand(add)
	return users
}
