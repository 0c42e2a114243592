// Package cli wires configuration, storage and transports into the widgetd commands.
package cli

import (
	"log/slog"
	"os"
	"strings"

	"github.com/limbo/routinewidget/internal/service"
	"github.com/limbo/routinewidget/pkg/cleanup"
	"github.com/limbo/routinewidget/pkg/config"
	"github.com/spf13/cobra"
)

const (
	defaultAPIAddress = ":8080"
	defaultGatewayURL = "http://localhost:8080"
	defaultWidgetBase = "http://localhost:3000"
)

type App struct {
	Config   *config.Config
	LogLevel string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "widgetd",
		Short:        "Notion-backed embeddable widgets: gateway server, setup wizard and terminal viewer",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Run the gateway
  widgetd serve

  # Create widget URLs interactively
  widgetd setup

  # Watch a widget in the terminal
  widgetd view "http://localhost:3000/widget?config=..."
`),
	}
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "info", "log level: debug, info, warn, error")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		app.Config = config.New()
		setupLogger(app.LogLevel, cmd.Name() == "serve")
		service.InitValidator()
		service.SetTokenPrefixes(app.Config.GetStrings("TOKEN_PREFIXES", nil))
		return nil
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		cleanup.CleanUp()
	}

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newViewCmd(app))
	cmd.AddCommand(newEncodeCmd(app))
	cmd.AddCommand(newDecodeCmd(app))
	cmd.AddCommand(newLogsCmd(app))
	return cmd
}

// setupLogger installs the default slog logger. Interactive commands log to
// stderr as text so the terminal UI stays readable when redirected.
func setupLogger(level string, jsonOut bool) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	if jsonOut {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}
