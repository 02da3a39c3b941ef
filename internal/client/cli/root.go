package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/agriai/agrisync/internal/buildinfo"
	"github.com/agriai/agrisync/internal/client/config"
	"github.com/agriai/agrisync/internal/client/services"
	"github.com/agriai/agrisync/internal/logging"
	"github.com/spf13/cobra"
)

type appKey struct{}

// appFrom returns the App built by the root command's pre-run hook.
func appFrom(cmd *cobra.Command) (*App, error) {
	a, ok := cmd.Context().Value(appKey{}).(*App)
	if !ok || a == nil {
		return nil, fmt.Errorf("%s: app not initialized", cmd.CommandPath())
	}
	return a, nil
}

// NewRootCommand builds the agrisync command tree. Running it without a
// subcommand starts the REPL.
func NewRootCommand(opts ...AppOption) *cobra.Command {
	root := &cobra.Command{
		Use:           "agrisync",
		Short:         "Local-first crop diagnosis history",
		Long:          "agrisync keeps crop diagnoses in a local SQLite store and reconciles them with the remote diagnosis API whenever the device is online and signed in.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["skipApp"] == "true" || cmd.Name() == "help" {
				return nil
			}
			path, _ := cmd.Flags().GetString(config.FlagConfig)
			cfg, err := config.Load(path, cmd.Flags())
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.LogBackend, cfg.LogLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ioOpts := []AppOption{WithIO(cmd.OutOrStdout(), cmd.InOrStdin())}
			app, err := NewApp(cmd.Context(), cfg, log, append(ioOpts, opts...)...)
			if err != nil {
				return err
			}
			app.Start(cmd.Context())
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, app))
			return nil
		},
		RunE: withApp(func(ctx context.Context, a *App, _ []string) error {
			a.RunREPL(ctx)
			return nil
		}),
	}
	root.CompletionOptions.DisableDefaultCmd = true
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newHistoryCommand(),
		newDiagnoseCommand(),
		newShowCommand(),
		newDeleteCommand(),
		newLoginCommand(),
		newLogoutCommand(),
		newResetCommand(),
		newStatusCommand(),
		newREPLCommand(),
		newVersionCommand(),
	)
	return root
}

// withApp adapts an App method into a cobra RunE. The App is closed when fn
// returns, whatever the outcome.
func withApp(fn func(ctx context.Context, a *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a, err := appFrom(cmd)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, a.Close())
		}()
		return fn(cmd.Context(), a, args)
	}
}

func localIDArg(args []string) (int64, error) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid diagnosis id %q", args[0])
	}
	return id, nil
}

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "history",
		Aliases: []string{"list", "l"},
		Short:   "List diagnoses, newest first",
		Args:    cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *App, _ []string) error {
			return a.History(ctx)
		}),
	}
}

func newDiagnoseCommand() *cobra.Command {
	var req services.PredictionRequest
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Diagnose a crop image",
		Long:  "Uploads the image for diagnosis when online and signed in. Otherwise a placeholder diagnosis is stored locally and never uploaded.",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *App, _ []string) error {
			if req.ImagePath == "" {
				return a.DiagnoseInteractive(ctx)
			}
			return a.Diagnose(ctx, req)
		}),
	}
	cmd.Flags().StringVarP(&req.ImagePath, "image", "i", "", "path to the crop image")
	cmd.Flags().StringVar(&req.Crop, "crop", "", "crop name")
	cmd.Flags().StringVar(&req.Symptoms, "symptoms", "", "observed symptoms")
	cmd.Flags().StringVar(&req.Location, "location", "", "field location")
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one diagnosis with its advice",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *App, args []string) error {
			id, err := localIDArg(args)
			if err != nil {
				return err
			}
			return a.Show(ctx, id)
		}),
	}
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one diagnosis locally and, if synced, remotely",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *App, args []string) error {
			id, err := localIDArg(args)
			if err != nil {
				return err
			}
			return a.Delete(ctx, id)
		}),
	}
}

func newLoginCommand() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a bearer token for the diagnosis API",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *App, _ []string) error {
			return a.Login(ctx, token)
		}),
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token (prompted for when empty)")
	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the token and clear local history",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *App, _ []string) error {
			return a.Logout(ctx)
		}),
	}
}

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Sign out and recreate the local database",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *App, _ []string) error {
			return a.Reset(ctx)
		}),
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity, session and record counts",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *App, _ []string) error {
			return a.Status(ctx)
		}),
	}
}

func newREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive shell (the default with no subcommand)",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *App, _ []string) error {
			a.RunREPL(ctx)
			return nil
		}),
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print build information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipApp": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
			return nil
		},
	}
}
