// seed creates a verified identity in the local dev database so login can
// be exercised without going through email verification.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/ErlanBelekov/credential-service/internal/domain"
	"github.com/ErlanBelekov/credential-service/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/credential-service/internal/secret"
)

const (
	seedEmail  = "seed@test.local"
	seedName   = "Seed User"
	seedSecret = "seed-password"
)

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set, run: direnv allow")
	}

	if err := postgres.Migrate(dbURL); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	hasher, err := secret.NewHasher(bcrypt.DefaultCost, 1)
	if err != nil {
		log.Fatalf("hasher: %v", err)
	}
	hash, err := hasher.Hash(ctx, seedSecret)
	if err != nil {
		log.Fatalf("hash: %v", err)
	}

	identities := postgres.NewIdentityRepository(pool)

	// Re-runs reset the password and keep the id.
	identity, err := identities.Create(ctx, seedEmail, seedName, hash)
	switch {
	case errors.Is(err, domain.ErrDuplicateEmail):
		existing, findErr := identities.FindByEmail(ctx, seedEmail)
		if findErr != nil {
			log.Fatalf("find seed identity: %v", findErr)
		}
		if identity, err = identities.UpdateSecretHash(ctx, existing.ID, hash); err != nil {
			log.Fatalf("reset seed password: %v", err)
		}
	case err != nil:
		log.Fatalf("create seed identity: %v", err)
	}

	if !identity.Verified {
		if identity, err = identities.MarkVerified(ctx, identity.ID); err != nil {
			log.Fatalf("verify seed identity: %v", err)
		}
	}

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  Email:    %s\n", seedEmail)
	fmt.Printf("  Password: %s\n", seedSecret)
	fmt.Printf("  ID:       %s\n", identity.ID)
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  curl -s -c cookies.txt -X POST http://localhost:8080/user/login \\")
	fmt.Println("    -H 'Content-Type: application/json' \\")
	fmt.Printf("    -d '{\"email\":\"%s\",\"password\":\"%s\"}'\n", seedEmail, seedSecret)
	fmt.Println()
	fmt.Println("  curl -s -b cookies.txt http://localhost:8080/user/me")
}
