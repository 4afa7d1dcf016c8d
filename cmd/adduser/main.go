// cmd/adduser/main.go
// Creates or updates an operator allowed to sign in to the admin API.
//
// Usage:
//
//	go run ./cmd/adduser -username alice -password s3cret
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/OpenStreetlifting/openstreetlifting-backend/config"
	bundb "github.com/OpenStreetlifting/openstreetlifting-backend/db"
	"github.com/OpenStreetlifting/openstreetlifting-backend/handlers"
	"github.com/OpenStreetlifting/openstreetlifting-backend/models"
)

func main() {
	username := flag.String("username", "", "username (required)")
	password := flag.String("password", "", "plain-text password (required)")
	flag.Parse()

	hash, err := handlers.HashOperatorPassword(*username, *password)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	db, err := bundb.Setup(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := bundb.CreateTables(ctx, db); err != nil {
		log.Fatal("create tables:", err)
	}

	op := &models.Operator{
		Username: *username,
		Password: hash,
	}
	_, err = db.NewInsert().Model(op).
		On("CONFLICT (username) DO UPDATE SET password = EXCLUDED.password").
		Exec(ctx)
	if err != nil {
		log.Fatal("insert operator:", err)
	}

	fmt.Printf("operator %q saved\n", *username)
}
