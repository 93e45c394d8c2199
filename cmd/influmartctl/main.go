// influmartctl es la herramienta de administración: inspección de cuentas,
// invalidación de cache y chequeo de plataformas configuradas.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/influmart/influmart/internal/app"
	"github.com/influmart/influmart/internal/config"
	"github.com/influmart/influmart/internal/observability/logger"
)

var configPath string

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "influmartctl",
		Short:         "Administración del servicio de vinculación de cuentas",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("INFLUMART_CONFIG"), "ruta al YAML de configuración")

	root.AddCommand(accountCmd(), cacheCmd(), platformsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp carga config, inicializa el logger en modo silencioso y cablea la
// aplicación para el comando.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.Init(logger.Config{Env: cfg.Env, Level: "error", ServiceName: "influmartctl"})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "account", Short: "Operaciones sobre cuentas vinculadas"}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Muestra la cuenta almacenada (sin enriquecer)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				acct, err := a.Accounts.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(acct)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "enrich <id>",
		Short: "Ejecuta el pipeline de enriquecimiento completo (sin cache)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				view, err := a.Enrich.Enrich(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(view)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Borra lógicamente la cuenta e invalida su cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if err := a.Accounts.Delete(ctx, args[0]); err != nil {
					return err
				}
				if err := a.Enrich.Invalidate(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	})

	return cmd
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Operaciones sobre el cache de enriquecimiento"}

	cmd.AddCommand(&cobra.Command{
		Use:   "invalidate <accountId>",
		Short: "Elimina la vista enriquecida cacheada de una cuenta",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if err := a.Enrich.Invalidate(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("invalidated", args[0])
				return nil
			})
		},
	})

	return cmd
}

func platformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "Lista las plataformas configuradas",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(func(_ context.Context, a *app.App) error {
				for _, p := range a.Registry.Platforms() {
					fmt.Println(p)
				}
				return nil
			})
		},
	}
}
