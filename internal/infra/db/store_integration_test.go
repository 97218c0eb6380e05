//go:build integration
// +build integration

package db

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"contractflow/internal/config"
	"contractflow/internal/domain"
)

func setupPostgresStore(t *testing.T) *Store {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("POSTGRES_DSN_TEST"))
	if dsn == "" {
		t.Skip("POSTGRES_DSN_TEST not set")
	}
	store, err := NewStore(config.Config{
		DBDriver:       DriverPostgres,
		PostgresDSN:    dsn,
		DBMaxOpenConns: 8,
		DBMaxIdleConns: 2,
		AutoMigrate:    true,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.DB.Exec(`
		TRUNCATE notifications,
			signatures,
			payments,
			contracts,
			audit_logs,
			users,
			branches
		RESTART IDENTITY CASCADE`).Error; err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	if err := store.DB.Exec("UPDATE audit_seq SET seq = 0 WHERE id = 1").Error; err != nil {
		t.Fatalf("reset audit seq: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgres_ConcurrentAuditAppendsStayLinked(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.WithinTx(ctx, func(tx domain.Repositories) error {
				_, err := tx.AuditLogs().Append(ctx, domain.AuditLog{
					ActionType: domain.AuditUpdate,
					TableName:  domain.TableContracts,
				})
				return err
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	chain, err := store.AuditLogs().ListChain(ctx)
	if err != nil {
		t.Fatalf("list chain: %v", err)
	}
	if len(chain) != writers {
		t.Fatalf("expected %d entries, got %d", writers, len(chain))
	}
	for i := 1; i < len(chain); i++ {
		if chain[i].PrevHash != chain[i-1].EntryHash {
			t.Fatalf("seq %d not linked to seq %d", chain[i].Seq, chain[i-1].Seq)
		}
	}
}

func TestPostgres_DuplicateContractNumberIsConflict(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()
	branch, user := seedBranchAndUser(t, store, "JED", domain.RoleEmployee)
	now := time.Now().UTC()
	if _, err := store.Contracts().Create(ctx, newDraft(branch.ID, user.ID, "JED-2026-999999", now)); err != nil {
		t.Fatalf("create contract: %v", err)
	}
	_, err := store.Contracts().Create(ctx, newDraft(branch.ID, user.ID, "JED-2026-999999", now))
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
