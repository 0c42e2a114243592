package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/limbo/routinewidget/internal/api"
	"github.com/limbo/routinewidget/internal/notion"
	"github.com/limbo/routinewidget/internal/service"
	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			if address == "" {
				address = cfg.GetStringOr("API_ADDRESS", defaultAPIAddress)
			}
			factory := notion.NewFactory(
				notion.WithBaseURL(cfg.GetStringOr("NOTION_API_URL", notion.DefaultBaseURL)),
				notion.WithVersion(cfg.GetStringOr("NOTION_VERSION", notion.DefaultVersion)),
			)
			gatewayService := service.NewGatewayService(factory,
				service.WithLocation(cfg.Location("WIDGET_TIMEZONE")),
			)
			logsRepo, err := openLogsRepo(app)
			if err != nil {
				return err
			}
			serv := api.New(&api.ServicesList{
				GatewayService:  gatewayService,
				LogsRepository:  logsRepo,
				UpstreamTimeout: cfg.GetDuration("UPSTREAM_TIMEOUT", 10*time.Second),
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			errCh := make(chan error, 1)
			go func() {
				slog.Info("gateway listening", slog.String("address", address))
				errCh <- serv.Run(address)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					slog.Error("server error", slog.String("error", err.Error()))
				}
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			slog.Info("shutting down gateway")
			return serv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "listen address (default API_ADDRESS or :8080)")
	return cmd
}
