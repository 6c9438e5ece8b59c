package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	pgrepo "github.com/HyperSlump/shop-sub000/internal/repo/postgres"
)

func newMigrateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the purchase ledger schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			if err := pgrepo.MigrateUp(cfg.Postgres.DSN); err != nil {
				return err
			}
			return printVersion(cmd, cfg.Postgres.DSN)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations, one step by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}

			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			if err := pgrepo.MigrateDown(cfg.Postgres.DSN, steps); err != nil {
				return err
			}
			return printVersion(cmd, cfg.Postgres.DSN)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			return printVersion(cmd, cfg.Postgres.DSN)
		},
	})

	return cmd
}

func printVersion(cmd *cobra.Command, dsn string) error {
	version, dirty, err := pgrepo.MigrationVersion(dsn)
	if err != nil {
		return err
	}
	if dirty {
		cmd.Printf("schema version %d (dirty)\n", version)
		return nil
	}
	cmd.Printf("schema version %d\n", version)
	return nil
}
