package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	adapthttp "mealtracker/internal/adapter/http"
	"mealtracker/internal/app"
	"mealtracker/internal/metrics"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context())
		},
	}
}

func (c *cli) runServe(ctx context.Context) error {
	cfg := c.cfg
	st, err := c.open(ctx, cfg, c.log)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	m := metrics.New()
	svc := c.services(st)
	svc.logs.WithRecorder(m)

	opts := []adapthttp.Option{
		adapthttp.WithLogger(c.log),
		adapthttp.WithMetrics(m),
		adapthttp.WithForwardAuth(cfg.TrustForwardAuth),
		adapthttp.WithSecureCookies(cfg.SecureCookies),
		adapthttp.WithLoginRate(cfg.LoginRatePerMinute),
	}
	if cfg.OIDC.Enabled() {
		oc, err := adapthttp.NewOIDCConfig(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID, cfg.OIDC.ClientSecret, cfg.OIDC.RedirectURL)
		if err != nil {
			c.log.Warn("sso disabled: provider discovery failed", "issuer", cfg.OIDC.Issuer, "err", err)
		} else {
			opts = append(opts, adapthttp.WithOIDC(oc))
		}
	}

	h := adapthttp.New(adapthttp.Services{
		Auth:      svc.auth,
		Foods:     svc.foods,
		Templates: svc.templates,
		Logs:      svc.logs,
	}, cfg.WebDir, opts...).Handler()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.log.Info("listening", "addr", cfg.Addr, "timezone", cfg.Location().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		sweepSessions(gctx, svc.auth, m, cfg.SessionSweepInterval, c.log)
		return nil
	})
	return g.Wait()
}

// sweepSessions deletes expired sessions every interval until ctx is done.
func sweepSessions(ctx context.Context, auth *app.AuthService, m *metrics.Metrics, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := auth.SweepExpired(ctx)
			if err != nil {
				log.Error("session sweep failed", "err", err)
				continue
			}
			m.SessionsSwept(n)
			if n > 0 {
				log.Info("swept expired sessions", "count", n)
			}
		}
	}
}
