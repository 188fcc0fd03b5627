package initializers

import (
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
)

// LoadEnv reads .env files into the process environment. A missing file is
// not an error; deployed environments set variables directly.
func LoadEnv(filenames ...string) error {
	log.Println("Loading env file")
	err := godotenv.Load(filenames...)
	if errors.Is(err, fs.ErrNotExist) {
		log.Println("No env file found, using process environment")
		return nil
	}
	if err != nil {
		return fmt.Errorf("env not loading: %w", err)
	}
	log.Println("Env loaded successfully")
	return nil
}
