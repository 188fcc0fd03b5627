package initializers

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Itish41/FranchiseOps/db"
	services "github.com/Itish41/FranchiseOps/service"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrate brings the schema up to date. Postgres runs the embedded SQL
// migrations; sqlite falls back to gorm AutoMigrate.
func Migrate(cfg Config) error {
	log.Println("Starting database migration...")
	if DB == nil {
		return fmt.Errorf("database is not connected")
	}

	if IsSQLite(cfg.DatabaseURL) {
		if err := services.NewGormStore(DB).AutoMigrate(context.Background()); err != nil {
			return err
		}
		log.Println("Migration completed successfully!")
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("error getting underlying *sql.DB: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create the postgres driver: %w", err)
	}

	source, err := iofs.New(db.Migrations, db.MigrationsDir)
	if err != nil {
		return fmt.Errorf("error reading embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("error creating migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error running migrations: %w", err)
	}

	log.Println("Migration completed successfully!")
	return nil
}
