package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newLogsCmd(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the most recent widget debug logs stored by the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openLogsRepo(app)
			if err != nil {
				return err
			}
			if repo == nil {
				return errors.New("LOG_SINK is none: no stored logs")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			recs, err := repo.Recent(ctx, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, rec := range recs {
				fmt.Fprintf(out, "%s  %-5s %s  [%s | %s | %s]\n",
					rec.ReceivedAt.Local().Format(time.DateTime),
					rec.Log.Level, rec.Log.Message,
					rec.UserAgent, rec.Viewport, rec.Referrer)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "number of entries")
	return cmd
}
