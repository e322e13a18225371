package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/textilestore/internal/storage/memory"
)

func TestRun_MemoryGracefulShutdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"
	cfg.AdminEmail = "owner@example.com"
	cfg.AdminPassword = "correct-horse"

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	err := Run(ctx, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_InvalidStorageDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "invalid-driver"
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	err := Run(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "unsupported storage driver") {
		t.Fatalf("expected unsupported storage driver error, got %v", err)
	}
}

func TestRun_WeakAdminPassword(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"
	cfg.AdminEmail = "owner@example.com"
	cfg.AdminPassword = "short"

	if err := Run(context.Background(), cfg); err == nil {
		t.Fatal("expected weak admin password to abort startup")
	}
}

func TestInitAuth_RandomSecret(t *testing.T) {
	logger := log.WithField("test", "auth")
	cfg := DefaultConfig()
	cfg.AdminEmail = "owner@example.com"
	cfg.AdminPassword = "correct-horse"

	svc, tokens, err := initAuth(cfg, memory.NewUserRepository(), logger)
	if err != nil {
		t.Fatalf("initAuth failed: %v", err)
	}
	session, err := svc.Login("owner@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("admin login failed: %v", err)
	}
	if _, err := tokens.Validate(session.Token); err != nil {
		t.Fatalf("issued token must validate: %v", err)
	}
}
