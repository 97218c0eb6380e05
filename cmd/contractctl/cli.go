package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"contractflow/internal/app"
	"contractflow/internal/config"
	"contractflow/pkg/logger"
)

type command func(ctx context.Context, a *app.App, args []string, stdout, stderr io.Writer) int

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		usage(args, stderr)
		return 1
	}

	var cmd command
	rest := args[2:]
	switch args[1] {
	case "migrate":
		cmd = runMigrate
	case "seed":
		cmd = runSeed
	case "user":
		if len(args) >= 3 && args[2] == "create" {
			cmd, rest = runUserCreate, args[3:]
		}
	case "audit":
		if len(args) >= 3 && args[2] == "verify" {
			cmd, rest = runAuditVerify, args[3:]
		}
	case "payments":
		if len(args) >= 3 {
			switch args[2] {
			case "sync-overdue":
				cmd, rest = runSyncOverdue, args[3:]
			case "remind":
				cmd, rest = runRemindDue, args[3:]
			}
		}
	case "contracts":
		if len(args) >= 3 && args[2] == "notify-expiring" {
			cmd, rest = runNotifyExpiring, args[3:]
		}
	}
	if cmd == nil {
		usage(args, stderr)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	// stdout carries command output; logs go to stderr.
	slog.SetDefault(logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}, stderr))

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "init: %v\n", err)
		return 1
	}
	defer a.Close()
	return cmd(ctx, a, rest, stdout, stderr)
}

func usage(args []string, w io.Writer) {
	name := "contractctl"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(w, "usage:\n")
	fmt.Fprintf(w, "  %s migrate\n", name)
	fmt.Fprintf(w, "  %s seed [--admin-email <email>] [--admin-password <password>] [--branch <code>]\n", name)
	fmt.Fprintf(w, "  %s user create --email <email> --password <password> --role <employee|manager|admin> --branch <code>\n", name)
	fmt.Fprintf(w, "  %s audit verify\n", name)
	fmt.Fprintf(w, "  %s payments sync-overdue\n", name)
	fmt.Fprintf(w, "  %s payments remind [--within 72h]\n", name)
	fmt.Fprintf(w, "  %s contracts notify-expiring [--within 720h]\n", name)
}
