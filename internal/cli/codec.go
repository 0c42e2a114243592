package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/limbo/routinewidget/internal/codec"
	"github.com/limbo/routinewidget/pkg/entity"
	"github.com/spf13/cobra"
)

// parseRoutineFlag reads "name:minutes[:emoji]".
func parseRoutineFlag(s string) (entity.Routine, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return entity.Routine{}, fmt.Errorf("routine %q: expected name:minutes[:emoji]", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return entity.Routine{}, fmt.Errorf("routine %q: minutes must be a number", s)
	}
	r := entity.Routine{Name: strings.TrimSpace(parts[0]), Duration: n}
	if len(parts) == 3 {
		r.Emoji = strings.TrimSpace(parts[2])
	}
	return r, nil
}

func newEncodeCmd(app *App) *cobra.Command {
	var (
		token      string
		databaseID string
		theme      string
		routines   []string
		preview    bool
		tokenOnly  bool
	)
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a widget config and print the widget URLs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := entity.WidgetConfig{
				Token:      token,
				DatabaseID: databaseID,
				Theme:      entity.Theme(theme),
				IsPreview:  preview,
			}
			for _, raw := range routines {
				r, err := parseRoutineFlag(raw)
				if err != nil {
					return err
				}
				cfg.Routines = append(cfg.Routines, r)
			}
			encoded, err := codec.EncodeConfig(cfg)
			if err != nil {
				return err
			}
			// round trip so invalid input fails here instead of in the widget
			if _, err := codec.DecodeConfig(encoded); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if tokenOnly {
				fmt.Fprintln(out, encoded)
				return nil
			}
			base := app.Config.GetStringOr("WIDGET_BASE_URL", defaultWidgetBase)
			for _, v := range codec.Variants {
				fmt.Fprintf(out, "%-16s %s\n", v, codec.WidgetURL(base, v, encoded))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Notion integration token")
	cmd.Flags().StringVar(&databaseID, "database", "", "Notion database id")
	cmd.Flags().StringVar(&theme, "theme", string(entity.ThemePink), "widget theme")
	cmd.Flags().StringArrayVar(&routines, "routine", nil, "routine as name:minutes[:emoji], repeatable")
	cmd.Flags().BoolVar(&preview, "preview", false, "mark the config as a preview")
	cmd.Flags().BoolVar(&tokenOnly, "token-only", false, "print only the config token")
	return cmd
}

func newDecodeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <widget-url|config-token>",
		Short: "Decode and validate a widget config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, query, err := parseWidgetTarget(args[0])
			if err != nil {
				return err
			}
			cfg, err := codec.FromQuery(query)
			if err != nil {
				return err
			}
			raw, err := sonic.ConfigStd.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}
}
