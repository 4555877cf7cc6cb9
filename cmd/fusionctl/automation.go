package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/automation"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/auth"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/queue"
)

func tickCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Avança uma vez as instâncias com next_run_at vencido",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			engine, err := a.RequireEngine()
			if err != nil {
				return err
			}
			n, err := engine.Tick(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "instâncias avançadas: %d\n", n)
			return err
		},
	}
}

func sequencesCmd(open opener) *cobra.Command {
	var withInstances bool

	cmd := &cobra.Command{
		Use:   "sequences",
		Short: "Lista as sequências de automação",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			engine, err := a.RequireEngine()
			if err != nil {
				return err
			}
			seqs, err := engine.Sequences(ctx)
			if err != nil {
				return err
			}
			if !withInstances {
				return printJSON(cmd.OutOrStdout(), seqs)
			}
			instances, err := engine.Instances(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"sequences": seqs, "instances": instances})
		},
	}
	cmd.Flags().BoolVarP(&withInstances, "instances", "i", false, "Inclui as instâncias")
	return cmd
}

// parseData aceita pares chave=valor; valores JSON válidos são decodificados.
func parseData(pairs []string) (map[string]any, error) {
	data := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("par inválido %q, use chave=valor", p)
		}
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			data[k] = decoded
		} else {
			data[k] = v
		}
	}
	return data, nil
}

func triggerCmd(open opener) *cobra.Command {
	var (
		leadID, email, name string
		pairs               []string
		local               bool
	)

	cmd := &cobra.Command{
		Use:   "trigger [event_type]",
		Short: "Dispara um evento de automação (via RabbitMQ ou local)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventType := entity.EventType(args[0])
			if !eventType.Valid() {
				return fmt.Errorf("%w: %s", automation.ErrUnknownEvent, eventType)
			}
			data, err := parseData(pairs)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if !local {
				if a.Producer == nil {
					return fmt.Errorf("RabbitMQ não configurado, use --local")
				}
				err := a.Producer.PublishTrigger(ctx, queue.TriggerMessage{
					EventType: eventType, LeadID: leadID, Email: email, Name: name, Data: data,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "trigger %s publicado\n", eventType)
				return nil
			}

			engine, err := a.RequireEngine()
			if err != nil {
				return err
			}
			res, err := engine.Trigger(ctx, eventType, automation.LeadData{LeadID: leadID, Email: email, Name: name, Data: data})
			if res != nil {
				if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
					return perr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&leadID, "lead-id", "", "ID do lead")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Email do lead")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Nome do lead")
	cmd.Flags().StringArrayVar(&pairs, "data", nil, "Dados extras chave=valor (repetível)")
	cmd.Flags().BoolVar(&local, "local", false, "Processa no engine local em vez de publicar na fila")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-password [senha]",
		Short: "Gera o hash bcrypt para ADMIN_BOOTSTRAP_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := (&auth.BcryptHasher{Cost: cost}).Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "Custo do bcrypt")
	return cmd
}
