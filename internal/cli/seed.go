// Package cli holds the non-server subcommands.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/librarium/internal/config"
	"github.com/mrlokans/librarium/internal/database"
	"github.com/mrlokans/librarium/internal/seed"
)

// SeedCommand populates a fresh database with the starter catalog and the
// two provisioned accounts.
type SeedCommand struct {
	DatabasePath string
}

func NewSeedCommand() *SeedCommand {
	return &SeedCommand{}
}

func (cmd *SeedCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s seed [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Seed a fresh database with a starter catalog and one account per role.\n")
		fmt.Fprintf(os.Stderr, "Access tokens are printed once; store them securely.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *SeedCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	result, err := seed.Run(db.DB)
	if err != nil {
		if errors.Is(err, seed.ErrAlreadySeeded) {
			fmt.Println("Database already seeded, nothing to do.")
			return nil
		}
		return err
	}

	if len(result.Books) > 0 {
		fmt.Printf("Seeded %d books:\n", len(result.Books))
		for _, book := range result.Books {
			fmt.Printf("  - %s by %s\n", book.Title, book.Author)
		}
	}

	if len(result.Users) > 0 {
		fmt.Println("\nSeeded accounts (tokens are shown only once):")
		for _, u := range result.Users {
			fmt.Printf("  %-10s (%s)  token: %s\n", u.User.Username, u.User.Role, u.Token)
		}
	}

	return nil
}
