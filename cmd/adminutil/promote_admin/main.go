package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/sudo-init-do/fintrade/internal/config"
	"github.com/sudo-init-do/fintrade/internal/ledger"
	"github.com/sudo-init-do/fintrade/internal/pricefeed"
	"github.com/sudo-init-do/fintrade/internal/store"
)

func main() {
	email := flag.String("email", "", "Email of the user to promote to admin")
	flag.Parse()

	if *email == "" {
		log.Fatalf("usage: go run ./cmd/adminutil/promote_admin -email user@example.com")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	backend, err := store.Open(ctx, cfg, zap.NewNop())
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer backend.Close()

	svc := ledger.NewService(backend, pricefeed.New(), zap.NewNop())
	u, err := svc.PromoteAdmin(ctx, *email)
	if err != nil {
		log.Fatalf("failed to promote user to admin: %v", err)
	}

	fmt.Printf("User %s (%s) promoted to admin.\n", u.Email, u.ID)
}
