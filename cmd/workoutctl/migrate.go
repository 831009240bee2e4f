package main

import (
	"context"
	"fmt"
	"os"

	"github.com/2beens/workouttracker/internal/config"
	"github.com/2beens/workouttracker/internal/db"
)

type MigrateCmd struct {
	Status bool `help:"Only print the applied schema version."`
}

func (c *MigrateCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := config.Load(g.Env, g.Config)
	if err != nil {
		return err
	}

	pool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:     cfg.PostgresHost,
		DBPort:     cfg.PostgresPort,
		DBName:     cfg.PostgresDBName,
		DBUser:     cfg.PostgresUser,
		DBPassword: os.Getenv("WORKOUT_DB_PASS"),
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator := db.NewMigrator(pool)
	if c.Status {
		version, err := migrator.CurrentVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Schema version: %d\n", version)
		return nil
	}

	count, err := migrator.Apply(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		fmt.Println("No migrations to apply. Database is up to date.")
	} else {
		fmt.Printf("Successfully applied %d migration(s).\n", count)
	}
	return nil
}
