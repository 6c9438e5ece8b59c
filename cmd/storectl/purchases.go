package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	pgrepo "github.com/HyperSlump/shop-sub000/internal/repo/postgres"
)

func newPurchasesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "purchases <session_id>",
		Short: "Show the purchase records written for a checkout session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
			if err != nil {
				return err
			}
			defer pool.Close()

			purchases, err := pgrepo.NewPurchaseRepo(pool).ListBySession(ctx, args[0])
			if err != nil {
				return err
			}
			if len(purchases) == 0 {
				cmd.Printf("no purchases recorded for %s\n", args[0])
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPRICE\tEMAIL\tVERIFIED\tCREATED")
			for _, p := range purchases {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", p.ID, p.PriceID, p.CustomerEmail, p.IsVerified, p.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}
