// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/models"
)

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}

			conn, err := db.Open(cmd.Context(), cfg.DatabaseType, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := db.CreateSchema(cmd.Context(), conn); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema ready (%s)\n", cfg.DatabaseType)
			return nil
		},
	}
}

func newReconcileCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <electionID>",
		Short: "Compare an election's votes with the ledger",
		Long: `Report anchor state counts and every divergence between local votes
and ledger entries. Nothing is repaired.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			now := e.svc.Clock.Now()
			report, err := e.svc.Reconciler.Reconcile(cmd.Context(), args[0], now)
			if err != nil {
				return err
			}

			renderReport(cmd.OutOrStdout(), report, now)
			return nil
		},
	}
}

func newAddressCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "address <voterID>",
		Short: "Ensure and print a voter's ledger address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			addr, err := e.svc.Addresses.EnsureAddress(cmd.Context(), args[0], e.svc.Clock.Now())
			if err != nil {
				return err
			}

			renderAddress(cmd.OutOrStdout(), addr)
			return nil
		},
	}
}

func newSweepCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Anchor every unanchored or stalled vote once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			if e.svc.Anchors == nil {
				return fmt.Errorf("sweep needs a persistent ledger (LEDGER_MODE=ethereum), got %q: %w",
					e.cfg.Ledger.Mode, models.ErrLedgerUnavailable)
			}

			results, err := e.svc.Anchors.Drain(cmd.Context())
			renderDrain(cmd.OutOrStdout(), results)
			return err
		},
	}
}
