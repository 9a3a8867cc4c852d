package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/hellolink/internal/app"
	"github.com/dropDatabas3/hellolink/internal/config"
	"github.com/dropDatabas3/hellolink/internal/domain/types"
	ophttp "github.com/dropDatabas3/hellolink/internal/http"
	"github.com/dropDatabas3/hellolink/internal/link"
	"github.com/dropDatabas3/hellolink/internal/observability/logger"
	"github.com/dropDatabas3/hellolink/internal/providers/password"
)

// errOperationFailed: la operación terminó en Failure y el aviso ya se mostró.
var errOperationFailed = errors.New("operation failed")

type cliOptions struct {
	configPath  string
	envFile     string
	metricsAddr string
	username    string
	secret      string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errOperationFailed) {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		os.Exit(1)
	}
}

func newRootCmd(stdin *os.File, stdout, stderr io.Writer) *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "hellolink",
		Short:         "Sign-in y vinculación de cuentas (password, Google, Facebook, Apple) contra Parse Server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("HELLOLINK_CONFIG"), "Archivo YAML de configuración (env HELLOLINK_CONFIG)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Archivo .env a cargar si existe")
	root.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Expone /metrics en esta dirección mientras corre el comando")

	// run arma la app, restaura la sesión y ejecuta fn.
	run := func(cmd *cobra.Command, prompter password.Prompter, fn func(ctx context.Context, a *app.App) error) error {
		ctx := cmd.Context()
		if err := config.LoadEnvFile(opts.envFile); err != nil {
			return fmt.Errorf("env file: %w", err)
		}
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		if opts.metricsAddr != "" {
			cfg.Metrics.Addr = opts.metricsAddr
		}

		logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "hellolink"})
		defer func() { _ = logger.Sync() }()
		ctx = logger.ToContext(ctx, logger.L())

		a, err := app.New(ctx, app.Deps{Config: cfg, Stdout: stdout, Stderr: stderr, Prompter: prompter})
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if cfg.Metrics.Addr != "" {
			h, err := a.OpsHandler()
			if err != nil {
				return err
			}
			srvCtx, cancel := context.WithCancel(ctx)
			done := make(chan struct{})
			go func() {
				defer close(done)
				if err := ophttp.Start(srvCtx, cfg.Metrics.Addr, h); err != nil {
					logger.From(ctx).Warn("metrics server", logger.Err(err))
				}
			}()
			defer func() {
				cancel()
				select {
				case <-done:
				case <-time.After(6 * time.Second):
				}
			}()
		}

		if _, err := a.Controller.Restore(ctx); err != nil {
			// sin sesión válida se sigue como anónimo
			logger.From(ctx).Debug("restore", logger.Err(err))
		}
		return fn(ctx, a)
	}

	runOutcome := func(cmd *cobra.Command, kind types.ProviderKind, mode types.LinkMode, prompter password.Prompter) error {
		return run(cmd, prompter, func(ctx context.Context, a *app.App) error {
			out, err := a.Controller.Run(ctx, kind, mode)
			if err != nil {
				return err
			}
			if out.Status == link.StatusFailure {
				return errOperationFailed
			}
			return nil
		})
	}

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Iniciar sesión con usuario y contraseña",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var p password.Prompter
			if opts.username != "" || opts.secret != "" {
				p = password.Static(opts.username, opts.secret)
			} else {
				p = newStdinPrompter(stdin, stderr)
			}
			return runOutcome(cmd, types.ProviderPassword, types.ModeSignIn, p)
		},
	}
	loginCmd.Flags().StringVar(&opts.username, "username", "", "Usuario (si falta se pide por terminal)")
	loginCmd.Flags().StringVar(&opts.secret, "password", os.Getenv("HELLOLINK_PASSWORD"), "Contraseña (env HELLOLINK_PASSWORD)")

	signinCmd := &cobra.Command{
		Use:   "signin <provider>",
		Short: "Iniciar sesión con un provider externo (google|facebook|apple)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := socialProvider(args[0])
			if err != nil {
				return err
			}
			return runOutcome(cmd, kind, types.ModeSignIn, nil)
		},
	}

	linkCmd := &cobra.Command{
		Use:   "link <provider>",
		Short: "Vincular un provider externo al usuario con sesión",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// password llega al orquestador para que lo rechace con UnsupportedOperation
			kind, ok := types.ParseProviderKind(args[0])
			if !ok {
				return fmt.Errorf("provider desconocido: %q", args[0])
			}
			return runOutcome(cmd, kind, types.ModeLink, nil)
		},
	}

	whoamiCmd := &cobra.Command{
		Use:   "whoami",
		Short: "Mostrar el usuario con sesión",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, nil, func(ctx context.Context, a *app.App) error {
				id := a.Controller.Current()
				if id == nil {
					fmt.Fprintln(stdout, "Not signed in.")
					return nil
				}
				fmt.Fprintf(stdout, "Hello %s!\n", id.Username)
				if len(id.LinkedProviders) > 0 {
					names := make([]string, 0, len(id.LinkedProviders))
					for _, p := range id.LinkedProviders {
						names = append(names, p.DisplayName())
					}
					fmt.Fprintf(stdout, "Linked: %s\n", strings.Join(names, ", "))
				}
				return nil
			})
		},
	}

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Cerrar la sesión",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, nil, func(ctx context.Context, a *app.App) error {
				if err := a.Controller.SignOut(ctx); err != nil {
					return err
				}
				fmt.Fprintln(stdout, "Signed out.")
				return nil
			})
		},
	}

	usersCmd := &cobra.Command{Use: "users", Short: "Consultas sobre usuarios"}

	searchCmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Buscar usuarios cuyo username contiene <text>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, nil, func(ctx context.Context, a *app.App) error {
				users, err := a.Search.ByUsername(ctx, args[0])
				if err != nil {
					return errOperationFailed
				}
				for _, u := range users {
					fmt.Fprintf(stdout, "  %s\t%s\n", u.ID, u.Username)
				}
				return nil
			})
		},
	}

	latestCmd := &cobra.Command{
		Use:   "latest",
		Short: "Mostrar el último usuario creado",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, nil, func(ctx context.Context, a *app.App) error {
				if _, err := a.Search.Latest(ctx); err != nil {
					return errOperationFailed
				}
				return nil
			})
		},
	}

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "Listar los providers configurados",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, password.Static("", ""), func(ctx context.Context, a *app.App) error {
				for _, k := range a.Providers.Available() {
					fmt.Fprintln(stdout, k)
				}
				return nil
			})
		},
	}

	usersCmd.AddCommand(searchCmd, latestCmd)
	root.AddCommand(loginCmd, signinCmd, linkCmd, whoamiCmd, logoutCmd, usersCmd, providersCmd)
	return root
}

func socialProvider(s string) (types.ProviderKind, error) {
	kind, ok := types.ParseProviderKind(s)
	if !ok || !kind.IsSocial() {
		return "", fmt.Errorf("provider desconocido: %q (google|facebook|apple)", s)
	}
	return kind, nil
}
