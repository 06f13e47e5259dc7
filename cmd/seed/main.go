package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// Seeds an initial admin account, idempotently by email.
func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	email := getenvDefault("SEED_ADMIN_EMAIL", "admin@example.com")
	username := getenvDefault("SEED_ADMIN_USERNAME", "admin")
	password := getenvDefault("SEED_ADMIN_PASSWORD", "Admin1234!")

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect db: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping db: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	query := `
	INSERT INTO users (id, email, username, password_hash, email_verified, is_admin,
		is_moderator, status, login_failed_attempts, created_at, updated_at)
	VALUES ($1, $2, $3, $4, TRUE, TRUE, FALSE, 'ACTIVE', 0, $5, $5)
	ON CONFLICT (email) DO UPDATE SET
	  password_hash = EXCLUDED.password_hash,
	  is_admin = TRUE,
	  status = 'ACTIVE',
	  updated_at = EXCLUDED.updated_at
	RETURNING id
	`

	now := time.Now().UTC()
	var id string
	if err := db.QueryRow(query, uuid.New().String(), email, username, string(hash), now).Scan(&id); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}

	fmt.Printf("Seeded admin: email=%s username=%s id=%s\n", email, username, id)
}

func getenvDefault(k, d string) string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	return v
}
