package main

import (
	"context"
	"errors"
	"log/slog"

	"mealtracker/internal/adapter/memory"
	"mealtracker/internal/adapter/postgres"
	redisadapter "mealtracker/internal/adapter/redis"
	"mealtracker/internal/config"
	"mealtracker/internal/domain"
)

// stores are the repositories selected by configuration.
type stores struct {
	users     domain.UserRepository
	sessions  domain.SessionRepository
	foods     domain.FoodRepository
	templates domain.TemplateRepository
	logs      domain.LogRepository

	closers []func() error
}

func (s *stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	st := &stores{}

	switch cfg.Store {
	case config.StoreMemory:
		db := memory.New()
		st.users, st.foods, st.templates, st.logs = db, db, db, db
		st.sessions = db.NewSessionRepo()
		log.Warn("using in-memory store; data is lost on exit")
	default:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, db.Close)
		st.users, st.foods, st.templates, st.logs = db, db, db, db
		st.sessions = postgres.NewSessionRepo(db)
	}

	if cfg.SessionStore == config.SessionsRedis {
		client, err := redisadapter.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		st.closers = append(st.closers, client.Close)
		st.sessions = redisadapter.NewSessionRepo(client)
		log.Info("sessions stored in redis")
	}
	return st, nil
}
