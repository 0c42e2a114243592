package cli

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/limbo/routinewidget/internal/codec"
	"github.com/limbo/routinewidget/internal/gatewayclient"
	"github.com/limbo/routinewidget/internal/tui"
	"github.com/limbo/routinewidget/internal/widget"
	"github.com/spf13/cobra"
)

func newSetupCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Connect Notion and generate widget URLs interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			client := gatewayclient.New(cfg.GetStringOr("GATEWAY_URL", defaultGatewayURL))
			return tui.RunWizard(client, cfg.GetStringOr("WIDGET_BASE_URL", defaultWidgetBase))
		},
	}
}

// parseWidgetTarget accepts a widget URL or a bare config token. The variant
// comes from the URL path when there is one.
func parseWidgetTarget(arg string) (codec.Variant, url.Values, error) {
	arg = strings.TrimSpace(arg)
	if !strings.Contains(arg, "?") {
		return "", url.Values{codec.QueryParam: []string{arg}}, nil
	}
	u, err := url.Parse(arg)
	if err != nil {
		return "", nil, fmt.Errorf("parsing widget url: %w", err)
	}
	variant := codec.Variant(path.Base(u.Path))
	for _, v := range codec.Variants {
		if v == variant {
			return v, u.Query(), nil
		}
	}
	return "", u.Query(), nil
}

func newViewCmd(app *App) *cobra.Command {
	var (
		variant   string
		debug     bool
		remoteLog bool
	)
	cmd := &cobra.Command{
		Use:   "view [widget-url|config-token]",
		Short: "Render a widget in the terminal; without arguments the last config is restored",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			var (
				fromURL codec.Variant
				query   url.Values
				err     error
			)
			if len(args) == 1 {
				fromURL, query, err = parseWidgetTarget(args[0])
				if err != nil {
					return err
				}
			}
			v := codec.Variant(variant)
			if v == "" {
				v = fromURL
			}
			if v == "" {
				v = codec.VariantProfile
			}

			viewport := cfg.GetStringOr("WIDGET_VIEWPORT", "terminal")
			client := gatewayclient.New(cfg.GetStringOr("GATEWAY_URL", defaultGatewayURL),
				gatewayclient.WithClientID(uuid.NewString()),
				gatewayclient.WithEnvironment(viewport, "widgetd view"),
			)
			userAgent := fmt.Sprintf("widgetd (%s/%s)", runtime.GOOS, runtime.GOARCH)
			opts := widget.Options{
				Variant:      v,
				Store:        openStore(app),
				Gateway:      client,
				Saver:        client,
				PollInterval: cfg.GetDuration("WIDGET_POLL_INTERVAL", widget.DefaultPollInterval),
				Debug:        debug,
				UserAgent:    userAgent,
				Viewport:     viewport,
			}
			if remoteLog {
				opts.RemoteLog = widget.RemoteSender(client, userAgent)
			}
			notifier := tui.NewNotifier()
			opts.OnChange = notifier.Notify
			loop := widget.New(opts)
			defer loop.Unmount()

			if query == nil {
				err = loop.Restore()
			} else {
				err = loop.Mount(query)
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, widget.ConfigInvalidMessage)
				return err
			}
			return tui.RunWidget(loop, notifier)
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "widget, widget-dialogue or widget-routine (default from the URL)")
	cmd.Flags().BoolVar(&debug, "debug", false, "record widget logs for the debug overlay")
	cmd.Flags().BoolVar(&remoteLog, "remote-log", false, "also send debug logs to the gateway")
	return cmd
}
