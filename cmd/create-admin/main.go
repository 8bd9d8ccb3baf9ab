// Command create-admin provisions a user with a bcrypt-hashed password in the
// store named by DB_URL. Running it again for the same username replaces the
// password and role.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"bookstore/internal/app"
	"bookstore/internal/config"
	"bookstore/internal/util"
	"bookstore/pkg/domain"
)

func main() {
	username := flag.String("username", "admin", "username to create or update")
	password := flag.String("password", "", "password (defaults to $ADMIN_PASSWORD)")
	role := flag.String("role", string(domain.RoleAdmin), "role: admin or user")
	flag.Parse()

	if *password == "" {
		*password = os.Getenv("ADMIN_PASSWORD")
	}
	if *password == "" {
		log.Fatalf("password is required: pass -password or set ADMIN_PASSWORD")
	}

	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.InitLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	appCore, err := app.New(ctx, app.Config{
		DatabaseURL:  cfg.DatabaseURL,
		DatabaseName: cfg.DatabaseName,
		JWTSecret:    cfg.JWTSecret,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}
	defer appCore.Close(ctx)

	user, err := appCore.ProvisionUser(ctx, *username, *password, domain.UserRole(*role))
	if err != nil {
		log.Fatalf("failed to provision user: %v", err)
	}
	fmt.Printf("user %q saved with role %s\n", user.Username, user.Role)
}
