package initializers

import (
	"fmt"
	"log"
	"strings"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLitePrefix selects the sqlite driver for local runs, e.g. sqlite:dev.db.
const SQLitePrefix = "sqlite:"

var DB *gorm.DB // Migrate also uses this var

// IsSQLite reports whether dsn points at a local sqlite file.
func IsSQLite(dsn string) bool {
	return strings.HasPrefix(dsn, SQLitePrefix)
}

func ConnectDB(cfg Config) error {
	log.Println("Connecting to database")

	dsn := cfg.DatabaseURL
	if dsn == "" {
		log.Println("DIRECT_URL variable not loading...")
		return fmt.Errorf("env variable DIRECT_URL is empty")
	}

	gormConfig := &gorm.Config{
		PrepareStmt:          false,
		DisableAutomaticPing: true,
		TranslateError:       true,
	}

	var dialector gorm.Dialector
	if IsSQLite(dsn) {
		dialector = sqlite.Open(strings.TrimPrefix(dsn, SQLitePrefix))
	} else {
		dialector = postgres.New(postgres.Config{
			PreferSimpleProtocol: true, // Disable implicit prepared statement usage
			DriverName:           "postgres",
			DSN:                  dsn,
		})
	}

	var err error
	DB, err = gorm.Open(dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to the database: %w", err)
	}

	if cfg.DBDebug {
		DB = DB.Debug()
	}

	log.Println("Database connection successful")
	return nil
}
