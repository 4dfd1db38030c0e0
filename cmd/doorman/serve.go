package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/doorman/internal/config"
	"github.com/dropDatabas3/doorman/internal/domain/model"
	httpx "github.com/dropDatabas3/doorman/internal/http"
	jwtx "github.com/dropDatabas3/doorman/internal/jwt"
	"github.com/dropDatabas3/doorman/internal/metrics"
	"github.com/dropDatabas3/doorman/internal/observability/logger"
	"github.com/dropDatabas3/doorman/internal/rate"
	accountsvc "github.com/dropDatabas3/doorman/internal/service/account"
	compatsvc "github.com/dropDatabas3/doorman/internal/service/compat"
	oauthsvc "github.com/dropDatabas3/doorman/internal/service/oauth"
	"github.com/dropDatabas3/doorman/internal/store"
	"github.com/dropDatabas3/doorman/internal/store/memory"
	"github.com/dropDatabas3/doorman/internal/store/pg"
)

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.Log.Level,
				ServiceName: "doorman",
				Version:     version,
			})
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			switch cfg.Storage.Driver {
			case "postgres":
				dal, err := pg.New(ctx, cfg.Storage.DSN, pg.Options{
					MaxConns:        cfg.Storage.Postgres.MaxConns,
					ConnMaxLifetime: cfg.PgConnMaxLifetime(),
				})
				if err != nil {
					return err
				}
				defer dal.Close()
				return serve[int64](ctx, cfg, dal)
			default:
				return serve[uuid.UUID](ctx, cfg, memory.New())
			}
		},
	}
}

func serve[D model.Data](ctx context.Context, cfg *config.Config, dal store.DataAccessLayer[D]) error {
	log := logger.L().With(logger.Component("serve"))

	if err := metrics.Register(nil); err != nil {
		return err
	}

	issuer, err := jwtx.NewIssuer(idTokenIssuer(cfg), cfg.IDToken.KeySeed, cfg.IDTokenTTL())
	if err != nil {
		return err
	}

	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		if cfg.Cache.Kind == "redis" {
			client := rdb.NewClient(&rdb.Options{Addr: cfg.Cache.Redis.Addr, DB: cfg.Cache.Redis.DB})
			limiter = rate.NewRedisLimiter(client, cfg.Cache.Redis.Prefix, cfg.Rate.Login.Limit, cfg.LoginWindow())
			log.Info("rate limit habilitado", logger.String("backend", "redis"))
		} else {
			limiter = rate.NewMemoryLimiter(cfg.Rate.Login.Limit, cfg.LoginWindow())
			log.Info("rate limit habilitado", logger.String("backend", "memory"))
		}
	}

	grants := oauthsvc.NewService(oauthsvc.Deps[D]{
		DAL:       dal,
		Issuer:    issuer,
		CodeTTL:   cfg.CodeTTL(),
		AccessTTL: cfg.AccessTTL(),
	})
	login := compatsvc.NewLoginService(compatsvc.Deps[D]{
		DAL:      dal,
		Limiter:  limiter,
		TokenTTL: cfg.CompatTTL(),
	})
	account := accountsvc.New(accountsvc.Deps[D]{DAL: dal})

	router := httpx.NewRouter(httpx.Deps[D]{
		DAL:        dal,
		Grants:     grants,
		Login:      login,
		Account:    account,
		Homeserver: cfg.Homeserver.Name,
	})
	srv := httpx.NewServer(cfg.Server.Addr, router)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening",
			logger.String("addr", cfg.Server.Addr),
			logger.Driver(cfg.Storage.Driver),
			logger.String("homeserver", cfg.Homeserver.Name))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		return httpx.Shutdown(srv, 10*time.Second)
	})
	return g.Wait()
}

func idTokenIssuer(cfg *config.Config) string {
	if cfg.IDToken.Issuer != "" {
		return cfg.IDToken.Issuer
	}
	return "https://" + cfg.Homeserver.Name
}
