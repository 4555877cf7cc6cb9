package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/app"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/config"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/logger"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "fusionctl",
		Short:         "Operações de sync e automação do funil de leads",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", os.Getenv("CONFIG_FILE"), "Arquivo YAML de configuração")

	open := func(ctx context.Context) (*app.App, error) {
		cfg, err := config.LoadFromEnv(configFile)
		if err != nil {
			return nil, err
		}
		logger.Setup(cfg.Log.Level, cfg.Log.Pretty)
		return app.Build(ctx, cfg)
	}

	root.AddCommand(syncCmd(open))
	root.AddCommand(watchCmd(open))
	root.AddCommand(statusCmd(open))
	root.AddCommand(tickCmd(open))
	root.AddCommand(sequencesCmd(open))
	root.AddCommand(triggerCmd(open))
	root.AddCommand(hashPasswordCmd())

	return root
}

type opener func(ctx context.Context) (*app.App, error)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
