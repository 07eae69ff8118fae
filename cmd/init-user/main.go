package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"relcalc/internal/config"
	"relcalc/internal/models"
	"relcalc/internal/storage"
	"relcalc/internal/utils"
)

// init-user creates an account directly in the database, bypassing the API.
// Useful for bootstrapping a premium account before the server is exposed.
func main() {
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password (min 8 characters)")
	premium := flag.Bool("premium", false, "create the account on the premium tier")
	flag.Parse()

	if *email == "" || !strings.Contains(*email, "@") {
		fmt.Fprintln(os.Stderr, "ERROR: -email must be a valid email address")
		os.Exit(1)
	}
	if len(*password) < 8 {
		fmt.Fprintln(os.Stderr, "ERROR: -password must be at least 8 characters")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Connecting to database...")
	db, err := storage.NewDB(storage.DBConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,

		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,

		// Minimal cache for a one-shot tool.
		UserCacheSize: 10,
		UserCacheTTL:  time.Minute,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := db.NewUserRepository()

	passwordHash, err := utils.HashPasswordArgon2(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to hash password: %v\n", err)
		os.Exit(1)
	}

	user := &models.User{
		Email:        *email,
		PasswordHash: passwordHash,
		IsPremium:    *premium,
		Enabled:      true,
	}

	if err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			fmt.Printf("INFO: Account %s already exists, no action taken\n", *email)
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "ERROR: Failed to create account: %v\n", err)
		os.Exit(1)
	}

	tier := "free"
	if user.IsPremium {
		tier = "premium"
	}
	fmt.Println("SUCCESS: Account created")
	fmt.Printf("Email: %s\n", user.Email)
	fmt.Printf("ID: %s\n", user.ID)
	fmt.Printf("Tier: %s\n", tier)
}
