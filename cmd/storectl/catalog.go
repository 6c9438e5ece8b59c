package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HyperSlump/shop-sub000/internal/config"
	"github.com/HyperSlump/shop-sub000/internal/infra/httpclient"
	"github.com/HyperSlump/shop-sub000/internal/infra/printful"
	stripeinfra "github.com/HyperSlump/shop-sub000/internal/infra/stripe"
	redrepo "github.com/HyperSlump/shop-sub000/internal/repo/redis"
	catalogsvc "github.com/HyperSlump/shop-sub000/internal/services/catalog"
)

const catalogCommandTimeout = 60 * time.Second

func newCatalogCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and refresh the merged product catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List digital and physical products straight from the providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			catalog, err := buildCatalog(cfg, log, false)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), catalogCommandTimeout)
			defer cancel()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tNAME\tAMOUNT\tVARIANTS")
			for _, p := range catalog.ListProducts(ctx) {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%d\n", p.ID, p.Type(), p.Name, p.Amount.StringFixed(2), p.Currency, len(p.Variants))
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Refetch both sources and rewrite the Redis catalog cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			catalog, err := buildCatalog(cfg, log, true)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), catalogCommandTimeout)
			defer cancel()
			if err := catalog.Refresh(ctx); err != nil {
				return err
			}
			cmd.Println("catalog cache refreshed")
			return nil
		},
	})

	return cmd
}

// buildCatalog wires the providers; the Redis cache is only attached when
// the command is meant to write it.
func buildCatalog(cfg config.Config, log *zap.Logger, withCache bool) (*catalogsvc.Service, error) {
	stripeAPI := stripeinfra.NewClient(stripeinfra.Config{
		SecretKey:  cfg.Stripe.SecretKey,
		APIURL:     cfg.Stripe.APIURL,
		HTTPClient: httpclient.New("stripe", cfg.Timeouts.Processor),
	})
	partner, err := printful.NewClient(printful.Config{
		BaseURL:    cfg.Printful.BaseURL,
		APIKey:     cfg.Printful.APIKey,
		StoreID:    cfg.Printful.StoreID,
		HTTPClient: httpclient.New("printful", cfg.Timeouts.Partner),
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	deps := catalogsvc.Dependencies{
		Digital:  stripeinfra.NewCatalogSource(stripeAPI, cfg.Stripe.Currency),
		Physical: partner,
		Logger:   log,
	}
	catalogCfg := catalogsvc.Config{DetailConcurrency: cfg.Catalog.DetailConcurrency}
	if withCache {
		deps.Cache = redrepo.NewCatalogCacheRepo(redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB))
		catalogCfg.CacheTTL = cfg.Catalog.CacheTTL
	}
	return catalogsvc.NewService(deps, catalogCfg), nil
}
