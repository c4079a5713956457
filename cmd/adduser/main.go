// Command adduser creates an account directly in the database, mirroring
// the web registration flow for operators bootstrapping a deployment.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"fleetwatch/internal/config"
	"fleetwatch/pkg/auth"
	"fleetwatch/pkg/domain"
	"fleetwatch/pkg/store"
)

func main() {
	var (
		configPath = flag.String("config", config.ConfigPath, "path to config file")
		username   = flag.String("username", "", "account username")
		password   = flag.String("password", "", "account password")
		role       = flag.String("role", "", "account role (doctor or police)")
	)
	flag.Parse()

	if *username == "" || *password == "" || *role == "" {
		fmt.Fprintln(os.Stderr, "usage: adduser -username NAME -password PASS -role doctor|police")
		os.Exit(2)
	}
	parsedRole, ok := domain.ParseRole(*role)
	if !ok {
		log.Fatalf("invalid role %q: must be doctor or police", *role)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	dataStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}

	passwordHash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	user, err := dataStore.CreateUser(domain.User{
		Username:     *username,
		PasswordHash: passwordHash,
		Role:         parsedRole,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			log.Fatalf("user %q already exists", *username)
		}
		log.Fatalf("failed to create user: %v", err)
	}
	fmt.Printf("user %s (%s) created with id %d\n", user.Username, user.Role, user.ID)
}
