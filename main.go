package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"chat-widget/internal/chatapi"
	"chat-widget/internal/config"
	"chat-widget/internal/server"
	"chat-widget/internal/terminal"
	"chat-widget/internal/ui"
	"chat-widget/internal/widget"
)

const defaultConfigPath = "~/.chat-widget.yaml"

// rootFlags are the persistent flags shared by every subcommand
type rootFlags struct {
	configPath string
	apiURL     string
	logLevel   string
	logFile    string
}

func main() {
	// Set the GetEnv function for config
	config.GetEnv = os.Getenv

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:          "chat-widget",
		Short:        "Embeddable chat widget for a remote assistant API",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML config file (default "+defaultConfigPath+" if present)")
	root.PersistentFlags().StringVar(&flags.apiURL, "api-url", "", "Chat service base URL (env CHAT_API_URL)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	root.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "Write logs to this file")

	root.AddCommand(newChatCommand(flags), newServeCommand(flags))
	return root
}

func newChatCommand(flags *rootFlags) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			interactive := !plain && terminal.IsTerminal(os.Stdin) && terminal.IsTerminal(os.Stdout)

			// Full-screen mode owns the terminal, so logs go to a file or nowhere
			var logOut io.Writer = os.Stderr
			if interactive {
				logOut = io.Discard
			}
			closeLog, err := setupLogging(cfg, logOut)
			if err != nil {
				return err
			}
			defer closeLog()

			client := chatapi.NewClient(cfg.BaseURL, cfg.RequestTimeout)
			ctx := cmd.Context()

			if err := client.HealthCheck(ctx); err != nil {
				log.Warn().Err(err).Str("base_url", cfg.BaseURL).Msg("chat service health check failed")
			}

			if interactive {
				return ui.Run(ctx, cfg, client, log.Logger)
			}

			return runLineMode(ctx, cfg, client, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Use the line-mode interface even on a terminal")
	return cmd
}

func newServeCommand(flags *rootFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a host page with the widget mounted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.ListenAddr = listen
			}

			closeLog, err := setupLogging(cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog()

			client := chatapi.NewClient(cfg.BaseURL, cfg.RequestTimeout)
			if err := client.HealthCheck(cmd.Context()); err != nil {
				log.Warn().Err(err).Str("base_url", cfg.BaseURL).Msg("chat service health check failed")
			}

			srv, err := server.NewServer(cfg, client)
			if err != nil {
				return err
			}
			return srv.Start(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (env CHAT_WIDGET_LISTEN)")
	return cmd
}

// runLineMode drives the widget through plain scrolling output
func runLineMode(ctx context.Context, cfg *config.Config, client widget.Sender, in io.Reader, out io.Writer) error {
	colors := false
	if f, ok := out.(*os.File); ok {
		colors = terminal.IsTerminal(f)
	}
	display := terminal.NewDisplay(out, colors)

	ctrl := widget.New(client,
		widget.WithView(display),
		widget.WithFallbackMessage(cfg.FallbackMessage()),
	)

	display.PrintWelcome(cfg.Title, cfg.StatusText, cfg.Greeting, cfg.QuickReplies)

	session := &terminal.Session{
		Controller:   ctrl,
		Display:      display,
		Input:        terminal.NewReader(in),
		QuickReplies: cfg.QuickReplies,
	}
	return session.Run(ctx)
}

// loadConfig layers defaults, the config file, the environment and flags
func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg := config.NewConfig()

	path := flags.configPath
	if path == "" {
		if _, err := os.Stat(config.ExpandHome(defaultConfigPath)); err == nil {
			path = defaultConfigPath
		}
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv()

	if flags.apiURL != "" {
		cfg.BaseURL = strings.TrimRight(flags.apiURL, "/")
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.logFile != "" {
		cfg.LogFile = flags.logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration error")
	}
	return cfg, nil
}

// setupLogging points the global logger at out, or at cfg.LogFile when set
func setupLogging(cfg *config.Config, out io.Writer) (func(), error) {
	level := parseZerologLevel(cfg.LogLevel)
	if cfg.Verbose && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	closer := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open log file %s", cfg.LogFile)
		}
		out = f
		closer = func() { _ = f.Close() }
	} else if out != io.Discard {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return closer, nil
}

// parseZerologLevel converts a string level into zerolog.Level with a safe default
func parseZerologLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "info":
		fallthrough
	default:
		return zerolog.InfoLevel
	}
}
