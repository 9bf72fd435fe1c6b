package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/appforge-ai/AppForge/internal/adapter/postgres"
	"github.com/appforge-ai/AppForge/internal/auth"
	"github.com/appforge-ai/AppForge/internal/config"
)

// runAdmin dispatches admin subcommands (create-key, list-keys, revoke-key).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "create-key":
		return runAdminCreateKey(args[1:])
	case "list-keys":
		return runAdminListKeys(args[1:])
	case "revoke-key":
		return runAdminRevokeKey(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: appforge admin <command> [options]

Commands:
  create-key   Mint a new API key
  list-keys    List issued API keys
  revoke-key   Revoke an API key by id
  help         Show this help message

Examples:
  appforge admin create-key --name ci-pipeline
  appforge admin list-keys
  appforge admin revoke-key --id 7d8e...
`)
}

func loadAdminStore() (*postgres.Store, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	return postgres.New(pool), pool.Close, nil
}

func runAdminCreateKey(args []string) error {
	fs := flag.NewFlagSet("create-key", flag.ContinueOnError)
	name := fs.String("name", "", "key name, e.g. the consuming service (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	key, prefix, hash, err := auth.Mint()
	if err != nil {
		return err
	}

	store, cleanup, err := loadAdminStore()
	if err != nil {
		return err
	}
	defer cleanup()

	rec := &postgres.APIKey{
		ID:     uuid.NewString(),
		Name:   *name,
		Prefix: prefix,
		Hash:   hash,
	}
	if err := store.CreateAPIKey(context.Background(), rec); err != nil {
		return err
	}

	if term.IsTerminal(int(syscall.Stdout)) {
		fmt.Fprintf(os.Stderr, "API key created (id=%s). Store it now; it cannot be shown again:\n", rec.ID)
	}
	fmt.Println(key)
	return nil
}

func runAdminListKeys(args []string) error {
	fs := flag.NewFlagSet("list-keys", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, cleanup, err := loadAdminStore()
	if err != nil {
		return err
	}
	defer cleanup()

	keys, err := store.ListAPIKeys(context.Background())
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("No API keys issued.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tPREFIX\tCREATED")
	for i := range keys {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			keys[i].ID, keys[i].Name, keys[i].Prefix, keys[i].CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runAdminRevokeKey(args []string) error {
	fs := flag.NewFlagSet("revoke-key", flag.ContinueOnError)
	id := fs.String("id", "", "key id to revoke (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("--id is required")
	}

	store, cleanup, err := loadAdminStore()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := store.DeleteAPIKey(context.Background(), *id); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "API key %s revoked\n", *id)
	return nil
}
