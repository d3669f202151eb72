package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/equihome/launchpad/internal/api"
	"github.com/equihome/launchpad/internal/config"
	"github.com/equihome/launchpad/internal/domain"
	"github.com/equihome/launchpad/internal/repository/dynamo"
	"github.com/equihome/launchpad/internal/repository/memory"
	"github.com/equihome/launchpad/internal/repository/postgres"
	"github.com/equihome/launchpad/internal/service/access"
	"github.com/equihome/launchpad/internal/service/activity"
	"github.com/equihome/launchpad/internal/service/newsletter"
	"github.com/equihome/launchpad/internal/storage"
)

// stores groups the repositories of the selected backend.
type stores struct {
	access     access.Repository
	activity   activity.Repository
	newsletter newsletter.Repository
	health     api.Pinger
	close      func() error
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch strings.ToLower(cfg.Storage.Type) {
	case "memory":
		a := memory.NewAccessRepo()
		return &stores{
			access:     a,
			activity:   memory.NewActivityRepo(),
			newsletter: memory.NewNewsletterRepo(),
			health:     a,
			close:      func() error { return nil },
		}, nil

	case "postgres":
		if cfg.Storage.DatabaseURL == "" {
			return nil, fmt.Errorf("storage.database_url is required for postgres")
		}
		db, err := postgres.Open(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return postgresStores(db), nil

	case "dynamodb":
		awsCfg, err := storage.LoadAWSConfig(ctx, storage.AWSOptions{
			Region:  cfg.Storage.AWSRegion,
			Profile: cfg.Storage.GetAWSProfile(),
		})
		if err != nil {
			return nil, err
		}
		client := storage.NewDynamoDBClient(awsCfg, cfg.Storage.Endpoint)
		prefix := cfg.Storage.TablePrefix
		a := dynamo.NewAccessRepo(client, prefix)
		return &stores{
			access:     a,
			activity:   dynamo.NewActivityRepo(client, prefix),
			newsletter: dynamo.NewNewsletterRepo(client, prefix),
			health:     a,
			close:      func() error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
}

func postgresStores(db *sql.DB) *stores {
	a := postgres.NewAccessRepo(db)
	return &stores{
		access:     a,
		activity:   postgres.NewActivityRepo(db),
		newsletter: postgres.NewNewsletterRepo(db),
		health:     a,
		close:      db.Close,
	}
}

func buildAllowlist(entries []config.GrantConfig) (*access.Allowlist, error) {
	grants := make([]access.Grant, 0, len(entries))
	for _, e := range entries {
		g := access.Grant{Email: e.Email}
		for _, r := range e.Resources {
			rt, err := domain.ParseRequestType(r)
			if err != nil {
				return nil, fmt.Errorf("allowlist %s: %w", e.Email, err)
			}
			g.Resources = append(g.Resources, rt)
		}
		grants = append(grants, g)
	}
	return access.NewAllowlist(grants)
}
