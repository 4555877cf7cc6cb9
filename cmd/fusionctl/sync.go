package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/bridge"
)

func syncCmd(open opener) *cobra.Command {
	var direction string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Roda um passe de sincronização entre Lead Store e File Store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var res any
			switch direction {
			case bridge.DirectionPrimaryToSecondary:
				res, err = a.Bridge.SyncPrimaryToSecondary(ctx)
			case bridge.DirectionSecondaryToPrimary:
				res, err = a.Bridge.SyncSecondaryToPrimary(ctx)
			case bridge.DirectionBidirectional:
				res, err = a.Bridge.Bidirectional(ctx)
			case "full":
				res, err = a.Bridge.ForceFullSync(ctx)
			default:
				return fmt.Errorf("direção inválida: %s", direction)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVarP(&direction, "direction", "d", bridge.DirectionBidirectional,
		"primary_to_secondary | secondary_to_primary | bidirectional | full")
	return cmd
}

func watchCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Acompanha mudanças do Lead Store e atualiza a projeção até Ctrl+C",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.Bridge.SyncPrimaryToSecondary(ctx); err != nil {
				return err
			}
			err = a.Bridge.Watch(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func statusCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Mostra o status do sync e da automação",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			out := map[string]any{}
			syncStatus, err := a.Bridge.Status(ctx)
			if err != nil {
				return err
			}
			out["sync"] = syncStatus

			if a.Engine != nil {
				st, err := a.Engine.Status(ctx)
				if err != nil {
					return err
				}
				out["automation"] = st
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}
