// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/handlers"
	"github.com/danielhkuo/quickly-elect/ledger"
	"github.com/danielhkuo/quickly-elect/phase"
)

// globalFlags override the matching environment variables.
type globalFlags struct {
	databaseURL  string
	databaseType string
	ledgerMode   string
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "electionctl",
		Short: "Administer Quickly Elect elections",
		Long: `Administrative tasks for Quickly Elect.

Configuration comes from the same environment variables as the server
(DATABASE_URL, ADMIN_KEY_SALT, VOTER_COMMIT_SALT, LEDGER_MODE, ...).
A .env file in the working directory is loaded first if present.

LEDGER_MODE=memory is treated as off: a one-shot run has no ledger to
share with the server.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flags.databaseURL, "db", "d", "", "Database URL (overrides DATABASE_URL)")
	root.PersistentFlags().StringVarP(&flags.databaseType, "db-type", "t", "", "Database type: sqlite or postgres")
	root.PersistentFlags().StringVar(&flags.ledgerMode, "ledger", "", "Ledger mode: off, memory or ethereum")

	root.AddCommand(
		newMigrateCmd(&flags),
		newReconcileCmd(&flags),
		newAddressCmd(&flags),
		newSweepCmd(&flags),
	)
	return root
}

func (f *globalFlags) config() (cliparse.Config, error) {
	var args []string
	if f.databaseURL != "" {
		args = append(args, "-d", f.databaseURL)
	}
	if f.databaseType != "" {
		args = append(args, "-t", f.databaseType)
	}
	if f.ledgerMode != "" {
		args = append(args, "-ledger", f.ledgerMode)
	}
	return cliparse.ParseFlags(args)
}

// env is an opened database and ledger with the services built over them.
type env struct {
	cfg   cliparse.Config
	conn  *sql.DB
	svc   *handlers.Services
	close func()
}

func (f *globalFlags) open(ctx context.Context) (*env, error) {
	cfg, err := f.config()
	if err != nil {
		return nil, err
	}

	conn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.CreateSchema(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}

	// A memory ledger dies with the command, so anchors written to it would
	// be recorded as confirmed against entries no later run can see.
	ledgerCfg := cfg.Ledger
	if ledgerCfg.Mode == cliparse.LedgerMemory {
		ledgerCfg.Mode = cliparse.LedgerOff
	}

	chain, closeChain, err := ledger.Open(ctx, ledgerCfg)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &env{
		cfg:  cfg,
		conn: conn,
		svc:  handlers.NewServices(conn, cfg, chain, phase.SystemClock()),
		close: func() {
			closeChain()
			conn.Close()
		},
	}, nil
}
