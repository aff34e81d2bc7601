// Command planact runs plan/act requests from the terminal. Events are printed
// as JSON lines on stdout; when the executor asks a question the answer is
// read from stdin and the session resumes.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/planact"
	"github.com/hupe1980/planact/config"
	"github.com/hupe1980/planact/core"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "planact",
		Short:         "Plan and execute tasks with a language model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a .toml or .yaml config file")

	load := func() (*config.AppConfig, error) { return config.Load(configPath) }

	rootCmd.AddCommand(newRunCmd(load), newSessionsCmd(load), newConfigCmd(load))

	return rootCmd
}

func newRunCmd(load func() (*config.AppConfig, error)) *cobra.Command {
	var (
		sessionID   string
		attachments []string
	)

	runCmd := &cobra.Command{
		Use:   "run [request]",
		Short: "Run a request and stream its events as JSON lines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := planact.New(cfg, func(o *planact.Options) {
				o.Notifier = func(_ context.Context, text string, _ []string) {
					fmt.Fprintln(cmd.ErrOrStderr(), text)
				}
			})
			if err != nil {
				return err
			}

			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				_ = app.Close(shutdownCtx)
			}()

			msg := core.Message{Message: strings.Join(args, " "), Attachments: attachments}

			return runInteractive(ctx, app, app.Flow(sessionID).SessionID(), msg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	runCmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id to record events under; plans do not survive the process (default: generated)")
	runCmd.Flags().StringSliceVarP(&attachments, "attach", "a", nil, "Attachment path, repeatable")

	return runCmd
}

// runInteractive runs turns until the flow stops waiting for input.
func runInteractive(ctx context.Context, app *planact.App, sessionID string, msg core.Message, in io.Reader, out io.Writer) error {
	answers := bufio.NewScanner(in)

	for {
		waiting := false

		for ev, err := range app.Run(ctx, sessionID, msg) {
			if err != nil {
				return err
			}

			data, err := core.MarshalEvent(ev)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, string(data))

			if _, ok := ev.(core.WaitEvent); ok {
				waiting = true
			}
		}

		if !waiting {
			return nil
		}

		if !answers.Scan() {
			return answers.Err()
		}

		msg = core.Message{Message: answers.Text()}
	}
}

func newSessionsCmd(load func() (*config.AppConfig, error)) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect recorded sessions",
	}

	withApp := func(cmd *cobra.Command, fn func(app *planact.App) error) error {
		cfg, err := load()
		if err != nil {
			return err
		}

		app, err := planact.New(cfg)
		if err != nil {
			return err
		}
		defer app.Close(cmd.Context())

		return fn(app)
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(app *planact.App) error {
				sessions, err := app.Store().List(cmd.Context())
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tSTATUS\tUPDATED\tTITLE")

				for _, s := range sessions {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Status, s.Updated.Format(time.RFC3339), s.Title)
				}

				return w.Flush()
			})
		},
	}

	showCmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Print the events of a session as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *planact.App) error {
				sess, err := app.Store().Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				for _, ev := range sess.GetEvents() {
					data, err := core.MarshalEvent(ev)
					if err != nil {
						return err
					}

					fmt.Fprintln(cmd.OutOrStdout(), string(data))
				}

				return nil
			})
		},
	}

	sessionsCmd.AddCommand(listCmd, showCmd)

	return sessionsCmd
}

func newConfigCmd(load func() (*config.AppConfig, error)) *cobra.Command {
	var format string

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			var data []byte

			switch format {
			case "toml":
				data, err = cfg.Redacted().EncodeTOML()
			case "yaml":
				data, err = cfg.Redacted().EncodeYAML()
			default:
				return fmt.Errorf("%w: unknown format %q", config.ErrInvalid, format)
			}

			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}

	showCmd.Flags().StringVarP(&format, "format", "f", "toml", "Output format: toml or yaml")
	configCmd.AddCommand(showCmd)

	return configCmd
}
