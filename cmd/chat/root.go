package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/set-night/mindchat"
	"github.com/set-night/mindchat/internal/backend"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/repository"
	"github.com/set-night/mindchat/internal/service"
)

const defaultStorePath = "mindchat-state.yaml"

// app holds what the commands share once flags are parsed.
type app struct {
	cfg     *config.Config
	profile string
	verbose bool

	// newBackend is replaced in tests.
	newBackend func(cfg *config.Config) service.Backend

	kv   repository.KV
	chat *service.Chat
}

func newApp() *app {
	return &app{
		newBackend: func(cfg *config.Config) service.Backend {
			return backend.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	var (
		apiURL   string
		driver   string
		path     string
		schema   string
		logLevel string
	)

	root := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant from the terminal",
		Long: `Chat with the assistant from the terminal.

Without a subcommand an interactive session starts. Type /help inside it
for the list of commands. Sessions are stored per profile and resumed on
the next start.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if _, ok := os.LookupEnv("STORE_DRIVER"); !ok {
				cfg.StoreDriver = config.StoreDriverFile
			}
			if _, ok := os.LookupEnv("STORE_PATH"); !ok {
				cfg.StorePath = defaultStorePath
			}

			flags := cmd.Flags()
			if flags.Changed("api") {
				cfg.APIBaseURL = apiURL
			}
			if flags.Changed("store") {
				cfg.StoreDriver = driver
			}
			if flags.Changed("path") {
				cfg.StorePath = path
			}
			if flags.Changed("schema") {
				cfg.StoreSchema = schema
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if a.verbose {
				cfg.LogLevel = "debug"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg

			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: cfg.SlogLevel(),
			})))
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd.Context(), a.chat, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&apiURL, "api", "", "chat service base URL (default from CHAT_API_BASE_URL)")
	pf.StringVar(&driver, "store", "", "state store: memory, file, sqlite or postgres")
	pf.StringVar(&path, "path", "", "state file for the file and sqlite stores")
	pf.StringVar(&schema, "schema", "", "persisted layout: single or multi")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVarP(&a.profile, "profile", "p", "default", "profile whose sessions are used")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newListCmd(a),
		newNewCmd(a),
		newResumeCmd(a),
		newDeleteCmd(a),
		newResetCmd(a),
		newHistoryCmd(a),
		newSendCmd(a),
	)
	return root
}

func (a *app) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	kv, err := repository.Open(ctx, repository.Options{
		Driver:      a.cfg.StoreDriver,
		Path:        a.cfg.StorePath,
		DatabaseURL: a.cfg.DatabaseURL,
		Migrations:  mindchat.MigrationsFS,
	})
	if err != nil {
		return err
	}
	a.kv = kv

	persist := repository.NewAdapter(kv, "cli:"+a.profile, a.cfg.StoreSchema)
	a.chat = service.NewChat(a.newBackend(a.cfg), persist, a.cfg.MaxSessions)
	if err := a.chat.Initialize(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

func (a *app) close() error {
	if a.kv == nil {
		return nil
	}
	err := a.kv.Close()
	a.kv = nil
	return err
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printSessions(cmd.OutOrStdout(), a.chat.Sessions(), a.chat.ActiveID())
			return nil
		},
	}
}

func newNewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new session and make it active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.chat.CreateSession(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started session %s\n", sess.ID)
			return nil
		},
	}
}

func newResumeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <id|number>",
		Short: "Make a session active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := resolveSession(a.chat.Sessions(), args[0])
			if err := a.chat.ResumeSession(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Resumed session %s\n", id)
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "delete [id|number]",
		Short: "Delete a session, or every session with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if err := a.chat.DeleteAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Deleted all sessions")
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("a session id or number is required without --all")
			}
			id := resolveSession(a.chat.Sessions(), args[0])
			if err := a.chat.DeleteSession(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "delete every session")
	return cmd
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the active conversation and start a new session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.chat.Reset(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started session %s\n", sess.ID)
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the active conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printMessages(cmd.OutOrStdout(), a.chat.Messages())
			return nil
		},
	}
}

func newSendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send <message>",
		Short: "Send one message to the active session and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := a.chat.Send(cmd.Context(), strings.Join(args, " "))
			if reply.Text != "" {
				printMessages(cmd.OutOrStdout(), []domain.Message{reply})
			}
			return err
		},
	}
}

// resolveSession maps a 1-based list number to a session id. Anything else
// is taken as an id.
func resolveSession(sessions []domain.Session, arg string) string {
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(sessions) {
		return sessions[n-1].ID
	}
	return arg
}

func printSessions(w io.Writer, sessions []domain.Session, activeID string) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions.")
		return
	}
	for i, s := range sessions {
		marker := " "
		if s.ID == activeID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %2d. %-33s %s\n", marker, i+1, s.Preview, s.ID)
	}
}

func printMessages(w io.Writer, msgs []domain.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, "(no messages)")
		return
	}
	for _, m := range msgs {
		fmt.Fprintf(w, "%s: %s\n", senderLabel(m.Sender), m.Text)
	}
}

func senderLabel(s domain.Sender) string {
	if s == domain.SenderUser {
		return "you"
	}
	return "bot"
}
