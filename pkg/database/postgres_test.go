package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/wonny/stockcast/pkg/config"
)

func TestNewWithoutURL(t *testing.T) {
	_, err := New(&config.Config{})
	if err == nil {
		t.Error("Expected error when DATABASE_URL is empty, got nil")
	}
}

func TestNewAndMigrate(t *testing.T) {
	// Skip if DATABASE_URL is not set
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	// Second run must be a no-op
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate is not idempotent: %v", err)
	}

	status, err := db.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}

	if !status.Healthy {
		t.Error("Expected database to be healthy")
	}

	if status.Stats.MaxConns == 0 {
		t.Error("Expected MaxConns to be greater than 0")
	}
}
