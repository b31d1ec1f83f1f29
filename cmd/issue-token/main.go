// Command issue-token mints an access token for an existing user. Accounts
// are managed outside this API, so operators use it to get a token for
// smoke tests and support sessions.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/veroa/veroa-api/internal/config"
	"github.com/veroa/veroa-api/internal/domain/user"
	"github.com/veroa/veroa-api/internal/pkg/database"
	"github.com/veroa/veroa-api/internal/pkg/jwt"
)

func main() {
	userFlag := flag.String("user", "", "user id to issue the token for")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to JWT_ACCESS_TTL)")
	flag.Parse()

	userID, err := uuid.Parse(*userFlag)
	if err != nil {
		log.Fatalf("Invalid -user %q: %v", *userFlag, err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.ClosePostgres(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	u, err := user.NewRepository(db).GetByID(ctx, userID)
	if err != nil {
		log.Fatalf("Failed to load user: %v", err)
	}
	if u == nil {
		log.Fatalf("User %s not found", userID)
	}

	lifetime := cfg.JWTAccessTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	token, err := jwt.NewService(cfg.JWTSecret, lifetime).GenerateAccessToken(u.ID, string(u.Role))
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Printf("user:  %s (%s, %s)\n", u.ID, u.Email, u.Role)
	fmt.Printf("valid: %s\n", lifetime)
	fmt.Println(token)
}
