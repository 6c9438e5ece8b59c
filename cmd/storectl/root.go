package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HyperSlump/shop-sub000/internal/config"
	"github.com/HyperSlump/shop-sub000/internal/infra/logger"
)

const defaultConfigPath = "configs/config.yaml"

type options struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "storectl",
		Short:        "Operate the storefront backend",
		SilenceUsage: true,
	}

	configPath := os.Getenv("APP_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", configPath, "path to the YAML config file")

	root.AddCommand(
		newMigrateCmd(opts),
		newCatalogCmd(opts),
		newPurchasesCmd(opts),
	)
	return root
}

func (o *options) load() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	// Command output goes to stdout; logs stay quiet unless something is wrong.
	log, err := logger.New("warn", "console")
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}
