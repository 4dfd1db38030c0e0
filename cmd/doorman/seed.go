package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/doorman/internal/config"
	"github.com/dropDatabas3/doorman/internal/domain/model"
	"github.com/dropDatabas3/doorman/internal/domain/repository"
	"github.com/dropDatabas3/doorman/internal/observability/logger"
	"github.com/dropDatabas3/doorman/internal/security/password"
	"github.com/dropDatabas3/doorman/internal/store"
	"github.com/dropDatabas3/doorman/internal/store/memory"
	"github.com/dropDatabas3/doorman/internal/store/pg"
)

func newSeedCmd(cfgPath *string) *cobra.Command {
	var (
		username string
		pass     string
		clientID string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Crea un usuario y un cliente de desarrollo",
		Long:  "Crea el usuario y el cliente OAuth indicados. Idempotente: los que ya existen se dejan como están.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "doorman-seed"})
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
				return seed[int64](ctx, dal, username, pass, clientID)
			default:
				// el backend memory no persiste: seed solo tiene sentido contra postgres
				return seed[uuid.UUID](ctx, memory.New(), username, pass, clientID)
			}
		},
	}
	cmd.Flags().StringVar(&username, "username", "john", "username del usuario")
	cmd.Flags().StringVar(&pass, "password", "123-456", "password del usuario")
	cmd.Flags().StringVar(&clientID, "client-id", "client-1", "client_id del cliente OAuth")
	return cmd
}

func seed[D model.Data](ctx context.Context, dal store.DataAccessLayer[D], username, pass, clientID string) error {
	hash, err := password.Hash(password.Default, pass)
	if err != nil {
		return err
	}
	user, err := dal.Users().Create(ctx, username, hash)
	switch {
	case err == nil:
		fmt.Printf("user %s creado (sub=%s)\n", user.Username, user.Sub)
	case repository.IsConflict(err):
		fmt.Printf("user %s ya existe\n", username)
	default:
		return err
	}

	client, err := dal.Clients().Create(ctx, clientID)
	switch {
	case err == nil:
		fmt.Printf("client %s creado\n", client.ClientID)
	case repository.IsConflict(err):
		fmt.Printf("client %s ya existe\n", clientID)
	default:
		return err
	}
	return nil
}
