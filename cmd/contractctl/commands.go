package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"contractflow/internal/app"
	"contractflow/internal/domain"
	"contractflow/internal/usecase"
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runMigrate(ctx context.Context, a *app.App, args []string, stdout, stderr io.Writer) int {
	if err := newFlagSet("migrate", stderr).Parse(args); err != nil {
		return 1
	}
	if err := a.Store.Migrate(ctx); err != nil {
		fmt.Fprintf(stderr, "migrate: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "migrations applied")
	return 0
}

func runSeed(ctx context.Context, a *app.App, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("seed", stderr)
	email := fs.String("admin-email", a.Config.SeedAdminEmail, "administrator email")
	password := fs.String("admin-password", a.Config.SeedAdminPassword, "administrator password (admin is skipped when empty)")
	branch := fs.String("branch", a.Config.SeedAdminBranch, "administrator branch code")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	res, err := a.Seed(ctx, *email, *password, *branch)
	if err != nil {
		fmt.Fprintf(stderr, "seed: %v\n", err)
		return 1
	}
	return emit(stdout, stderr, map[string]any{
		"branches_created": res.BranchesCreated,
		"admin_created":    res.AdminCreated,
	})
}

func runUserCreate(ctx context.Context, a *app.App, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("user create", stderr)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "initial password")
	role := fs.String("role", string(domain.RoleEmployee), "employee, manager or admin")
	branch := fs.String("branch", "", "branch code")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *email == "" || *password == "" || *branch == "" {
		fmt.Fprintln(stderr, "user create requires --email, --password and --branch")
		return 1
	}
	branches, err := a.Identity.ListBranches(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "list branches: %v\n", err)
		return 1
	}
	var branchID int64
	for _, b := range branches {
		if strings.EqualFold(b.Code, *branch) {
			branchID = b.ID
		}
	}
	if branchID == 0 {
		fmt.Fprintf(stderr, "unknown branch %q\n", *branch)
		return 1
	}
	user, err := a.Identity.ProvisionUser(ctx, usecase.CreateUserInput{
		Email:    *email,
		Password: *password,
		Role:     domain.Role(*role),
		BranchID: branchID,
	})
	if err != nil {
		fmt.Fprintf(stderr, "create user: %v\n", err)
		return 1
	}
	return emit(stdout, stderr, map[string]any{
		"id":        user.ID,
		"email":     user.Email,
		"role":      string(user.Role),
		"branch_id": user.BranchID,
	})
}

// runAuditVerify exits 2 when the chain is broken so scripts can tell a
// tampered log apart from an operational failure.
func runAuditVerify(ctx context.Context, a *app.App, args []string, stdout, stderr io.Writer) int {
	if err := newFlagSet("audit verify", stderr).Parse(args); err != nil {
		return 1
	}
	report, err := usecase.VerifyAuditChain(ctx, a.Store.AuditLogs())
	var chainErr *usecase.ChainError
	if errors.As(err, &chainErr) {
		emit(stdout, stderr, map[string]any{
			"valid":       false,
			"entries":     report.Entries,
			"failed_seq":  chainErr.Seq,
			"fail_reason": chainErr.Reason,
		})
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "verify audit chain: %v\n", err)
		return 1
	}
	return emit(stdout, stderr, map[string]any{
		"valid":     true,
		"entries":   report.Entries,
		"head_seq":  report.HeadSeq,
		"head_hash": report.HeadHash,
	})
}

func runSyncOverdue(ctx context.Context, a *app.App, args []string, stdout, stderr io.Writer) int {
	if err := newFlagSet("payments sync-overdue", stderr).Parse(args); err != nil {
		return 1
	}
	res, err := a.Payments.SyncOverdue(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "sync overdue payments: %v\n", err)
		return 1
	}
	return emit(stdout, stderr, res)
}

func runRemindDue(ctx context.Context, a *app.App, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("payments remind", stderr)
	within := fs.Duration("within", 72*time.Hour, "remind about payments due within this window")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	res, err := a.Payments.RemindDue(ctx, *within)
	if err != nil {
		fmt.Fprintf(stderr, "remind due payments: %v\n", err)
		return 1
	}
	return emit(stdout, stderr, res)
}

func runNotifyExpiring(ctx context.Context, a *app.App, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("contracts notify-expiring", stderr)
	within := fs.Duration("within", 720*time.Hour, "warn about contracts ending within this window")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	res, err := a.Notifications.NotifyExpiring(ctx, *within)
	if err != nil {
		fmt.Fprintf(stderr, "notify expiring contracts: %v\n", err)
		return 1
	}
	return emit(stdout, stderr, res)
}

func emit(stdout, stderr io.Writer, v any) int {
	if err := writeJSON(stdout, v); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}
