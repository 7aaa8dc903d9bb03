package main

import (
	"context"
	"log/slog"
	"os"

	"mealtracker/internal/app"
	"mealtracker/internal/config"
	"mealtracker/internal/logging"

	"github.com/spf13/cobra"
)

// cli carries state shared by every subcommand.
type cli struct {
	configPath string
	cfg        *config.Config
	log        *slog.Logger

	// open connects the configured stores; tests swap it for a shared memory store.
	open func(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error)
}

func newRootCmd() *cobra.Command {
	return newCLI().rootCmd()
}

func newCLI() *cli {
	return &cli{open: openStores}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mealtracker",
		Short:         "Personal calorie log: API server and maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg == nil {
				cfg, err := config.Load(c.configPath)
				if err != nil {
					return err
				}
				c.cfg = cfg
			}
			logger, err := logging.New(c.cfg.LogFormat, c.cfg.LogLevel, os.Stderr)
			if err != nil {
				return err
			}
			c.log = logger
			slog.SetDefault(logger)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", os.Getenv("MEALTRACKER_CONFIG"), "path to a YAML config file")

	root.AddCommand(c.serveCmd(), c.foodsCmd(), c.historyCmd(), c.usersCmd())
	return root
}

// services builds the application services over st.
type services struct {
	auth      *app.AuthService
	foods     *app.FoodService
	templates *app.TemplateService
	logs      *app.LogService
}

func (c *cli) services(st *stores) services {
	return services{
		auth:      app.NewAuthService(st.users, st.sessions),
		foods:     app.NewFoodService(st.foods),
		templates: app.NewTemplateService(st.templates, st.foods),
		logs:      app.NewLogService(st.logs, st.foods, st.templates, st.users, c.cfg.Location()),
	}
}
