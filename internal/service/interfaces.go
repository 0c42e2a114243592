package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/limbo/routinewidget/pkg/entity"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_gateway.go -package=mocks

type DatabasesRequest struct {
	Token string `json:"token" validate:"required,notion_token"`
}

type WidgetDataRequest struct {
	Token      string `json:"token" validate:"required,notion_token"`
	DatabaseID string `json:"databaseId" validate:"required"`
}

type RandomPraiseRequest struct {
	Token         string `json:"token" validate:"required,notion_token"`
	DatabaseID    string `json:"databaseId" validate:"required"`
	ExcludePraise string `json:"excludePraise,omitempty"`
}

// Mood is a satisfaction score sent either as a JSON number or a string such as "4점".
type Mood string

func (m *Mood) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*m = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := sonic.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = Mood(s)
		return nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return err
	}
	*m = Mood(raw)
	return nil
}

// Score drops a trailing "점" unit.
func (m Mood) Score() string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(string(m)), "점"))
}

type SaveRoutineRequest struct {
	Token          string `json:"token" validate:"required,notion_token"`
	DatabaseID     string `json:"databaseId" validate:"required"`
	CompletedCount int    `json:"completedCount" validate:"gte=0"`
	TotalCount     int    `json:"totalCount" validate:"gte=0"`
	Mood           Mood   `json:"mood"`
	// YYYY-MM-DD or RFC 3339; empty means today.
	Date string `json:"date"`
}

type DatabasesResult struct {
	Databases []map[string]any         `json:"databases"`
	Items     []entity.DatabaseSummary `json:"items"`
}

type GatewayServiceI interface {
	// Lists every database the token can see. Raw Notion objects are kept next to the summaries.
	ListDatabases(ctx context.Context, req *DatabasesRequest) (*DatabasesResult, error)
	// Builds the profile card record: descriptive fields from the latest records, metrics from today's.
	WidgetData(ctx context.Context, req *WidgetDataRequest) (*entity.WidgetData, error)
	// Picks a praise text other than req.ExcludePraise when one exists.
	RandomPraise(ctx context.Context, req *RandomPraiseRequest) (string, error)
	// Replaces the routine report block group of the record dated req.Date.
	SaveRoutine(ctx context.Context, req *SaveRoutineRequest) error
}
