package service

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	errorvalues "github.com/limbo/routinewidget/internal/error_values"
	"github.com/limbo/routinewidget/internal/notion"
	"github.com/limbo/routinewidget/pkg/entity"
)

// Property names of the widget database.
const (
	PropDate         = "Date"
	PropProfileImage = "profile image"
	PropSleep        = "sleep"
	PropEnergy       = "energy"
	PropName         = "name"
	PropMainText     = "main text"
	PropPraise       = "칭찬"
)

const (
	recentWindow   = 10
	praiseCapacity = 5
	searchPageSize = 100
	blocksPageSize = 100

	ReportMarker = "🎮 TODAY'S ROUTINE REPORT"
	// heading plus the three paragraphs written after it
	reportGroupSize = 4
)

type GatewayService struct {
	notion notion.ClientFactory
	loc    *time.Location
	intn   func(n int) int
	now    func() time.Time
}

type GatewayOption func(*GatewayService)

// WithLocation sets the timezone that defines "today".
func WithLocation(loc *time.Location) GatewayOption {
	return func(gs *GatewayService) {
		if loc != nil {
			gs.loc = loc
		}
	}
}

// WithRandom replaces the uniform source used by RandomPraise. intn(n) must return a value in [0, n).
func WithRandom(intn func(n int) int) GatewayOption {
	return func(gs *GatewayService) {
		if intn != nil {
			gs.intn = intn
		}
	}
}

func WithClock(now func() time.Time) GatewayOption {
	return func(gs *GatewayService) {
		if now != nil {
			gs.now = now
		}
	}
}

func NewGatewayService(factory notion.ClientFactory, opts ...GatewayOption) *GatewayService {
	if factory == nil {
		log.Fatal("provided nil notion client factory")
	}
	gs := &GatewayService{
		notion: factory,
		loc:    time.Local,
		intn:   rand.IntN,
		now:    time.Now,
	}
	for _, o := range opts {
		o(gs)
	}
	return gs
}

func upstreamError(err error) error {
	return fmt.Errorf("%w: %v", errorvalues.ErrUpstream, err)
}

// dayWindow returns the Date filter matching [start of day, start of next day).
func dayWindow(day time.Time) *notion.Filter {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	return &notion.Filter{And: []notion.Filter{
		{Property: PropDate, Date: &notion.DateFilter{OnOrAfter: start.Format(time.RFC3339)}},
		{Property: PropDate, Date: &notion.DateFilter{Before: end.Format(time.RFC3339)}},
	}}
}

func recentQuery() notion.QueryRequest {
	return notion.QueryRequest{
		Sorts:    []notion.Sort{{Property: PropDate, Direction: notion.Descending}},
		PageSize: recentWindow,
	}
}

func formatHours(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64) + "H"
}

// sleepText reads the sleep formula: its string result, else a non-zero number as "<n>H".
func sleepText(page notion.Page) string {
	if s := page.FormulaString(PropSleep); s != "" {
		return s
	}
	if n, ok := page.FormulaNumber(PropSleep); ok && n != 0 {
		return formatHours(n)
	}
	return ""
}

func (gs *GatewayService) ListDatabases(ctx context.Context, req *DatabasesRequest) (*DatabasesResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	resp, err := gs.notion.ForToken(req.Token).Search(ctx, notion.SearchRequest{
		Filter:   &notion.SearchFilter{Property: "object", Value: "database"},
		PageSize: searchPageSize,
	})
	if err != nil {
		return nil, upstreamError(err)
	}
	result := &DatabasesResult{
		Databases: resp.Raw,
		Items:     make([]entity.DatabaseSummary, 0, len(resp.Results)),
	}
	if result.Databases == nil {
		result.Databases = []map[string]any{}
	}
	for _, db := range resp.Results {
		result.Items = append(result.Items, entity.DatabaseSummary{
			ID:    db.ID,
			Title: db.PlainTitle(),
			URL:   db.URL,
		})
	}
	return result, nil
}

func (gs *GatewayService) WidgetData(ctx context.Context, req *WidgetDataRequest) (*entity.WidgetData, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	api := gs.notion.ForToken(req.Token)
	db, err := api.RetrieveDatabase(ctx, req.DatabaseID)
	if err != nil {
		return nil, upstreamError(err)
	}
	if !db.HasProperty(PropDate) {
		return gs.latestRecordData(ctx, api, req.DatabaseID)
	}

	todayResp, err := api.QueryDatabase(ctx, req.DatabaseID, notion.QueryRequest{
		Filter:   dayWindow(gs.now().In(gs.loc)),
		PageSize: 1,
	})
	if err != nil {
		return nil, upstreamError(err)
	}
	recentResp, err := api.QueryDatabase(ctx, req.DatabaseID, recentQuery())
	if err != nil {
		return nil, upstreamError(err)
	}

	data := entity.DefaultWidgetData()
	data.Praise = entity.DefaultPraise
	for _, page := range recentResp.Results {
		if data.ProfileImage == nil {
			if u := page.FileURL(PropProfileImage); u != "" {
				data.ProfileImage = &u
			}
		}
		if data.Name == entity.DefaultName {
			if v := page.PlainText(PropName); v != "" {
				data.Name = v
			}
		}
		if data.MainText == entity.DefaultMainText {
			if v := page.PlainText(PropMainText); v != "" {
				data.MainText = v
			}
		}
		if data.Praise == entity.DefaultPraise {
			if v := page.PlainText(PropPraise); v != "" {
				data.Praise = v
			}
		}
		if data.ProfileImage != nil && data.Name != entity.DefaultName &&
			data.MainText != entity.DefaultMainText && data.Praise != entity.DefaultPraise {
			break
		}
	}

	if len(todayResp.Results) > 0 {
		today := todayResp.Results[0]
		if s := sleepText(today); s != "" && s != "0H" {
			data.Sleep = s
		}
		if e, ok := today.Number(PropEnergy); ok && e > 0 {
			data.Energy = e
		}
	}
	return &data, nil
}

// latestRecordData serves databases without a Date property from their first record.
func (gs *GatewayService) latestRecordData(ctx context.Context, api notion.API, databaseID string) (*entity.WidgetData, error) {
	resp, err := api.QueryDatabase(ctx, databaseID, notion.QueryRequest{PageSize: 1})
	if err != nil {
		return nil, upstreamError(err)
	}
	data := entity.DefaultWidgetData()
	if len(resp.Results) == 0 {
		return &data, nil
	}
	page := resp.Results[0]
	if u := page.FileURL(PropProfileImage); u != "" {
		data.ProfileImage = &u
	}
	if s := sleepText(page); s != "" {
		data.Sleep = s
	}
	if e, ok := page.Number(PropEnergy); ok {
		data.Energy = e
	}
	if v := page.PlainText(PropName); v != "" {
		data.Name = v
	}
	if v := page.PlainText(PropMainText); v != "" {
		data.MainText = v
	}
	return &data, nil
}

func (gs *GatewayService) RandomPraise(ctx context.Context, req *RandomPraiseRequest) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}
	resp, err := gs.notion.ForToken(req.Token).QueryDatabase(ctx, req.DatabaseID, recentQuery())
	if err != nil {
		return "", upstreamError(err)
	}
	candidates := make([]string, 0, praiseCapacity)
	for _, page := range resp.Results {
		praise := page.PlainText(PropPraise)
		if strings.TrimSpace(praise) == "" {
			continue
		}
		if req.ExcludePraise != "" && praise == req.ExcludePraise {
			continue
		}
		candidates = append(candidates, praise)
		if len(candidates) == praiseCapacity {
			break
		}
	}
	if len(candidates) == 0 {
		if req.ExcludePraise != "" {
			return req.ExcludePraise, nil
		}
		return entity.DefaultPraise, nil
	}
	return candidates[gs.intn(len(candidates))], nil
}

// parseDay accepts YYYY-MM-DD (in the gateway timezone) or RFC 3339.
func (gs *GatewayService) parseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return gs.now().In(gs.loc), nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, raw, gs.loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &errorvalues.ValidationError{Field: "date", Reason: "expected YYYY-MM-DD or RFC 3339"}
	}
	return t.In(gs.loc), nil
}

func completedText(completed, total int) string {
	text := fmt.Sprintf("🎉 총 %d개의 루틴을 완료했어요!", completed)
	if total > 0 {
		text += fmt.Sprintf(" (%d/%d)", completed, total)
	}
	return text
}

// ReportBlocks is the block group SaveRoutine appends.
func ReportBlocks(completed, total int, mood Mood) []notion.Block {
	return []notion.Block{
		notion.Heading3(ReportMarker),
		notion.Paragraph(""),
		notion.Paragraph(completedText(completed, total)),
		notion.Paragraph(fmt.Sprintf("💕 오늘의 루틴 만족도 : %s점", mood.Score())),
	}
}

// SaveRoutine is delete-then-append and not transactional: two concurrent
// saves for one date may both delete the old group and both append, leaving
// two report groups on the page.
func (gs *GatewayService) SaveRoutine(ctx context.Context, req *SaveRoutineRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}
	day, err := gs.parseDay(req.Date)
	if err != nil {
		return err
	}
	api := gs.notion.ForToken(req.Token)

	found, err := api.QueryDatabase(ctx, req.DatabaseID, notion.QueryRequest{
		Filter:   dayWindow(day),
		PageSize: 1,
	})
	if err != nil {
		return upstreamError(err)
	}
	var pageID string
	if len(found.Results) > 0 {
		pageID = found.Results[0].ID
	} else {
		page, err := api.CreatePage(ctx, notion.CreatePageRequest{
			Parent: notion.Parent{DatabaseID: req.DatabaseID},
			Properties: map[string]notion.PropertyValue{
				PropDate: {Date: &notion.DateValue{Start: day.Format(time.DateOnly)}},
			},
		})
		if err != nil {
			return upstreamError(err)
		}
		pageID = page.ID
	}

	children, err := api.ListBlockChildren(ctx, pageID, blocksPageSize)
	if err != nil {
		return upstreamError(err)
	}
	for i, block := range children.Results {
		if block.Type != "heading_3" || !strings.Contains(block.Text(), ReportMarker) {
			continue
		}
		end := min(i+reportGroupSize, len(children.Results))
		for _, old := range children.Results[i:end] {
			// the block may already be gone
			if err := api.DeleteBlock(ctx, old.ID); err != nil {
				slog.Debug("deleting report block failed", slog.String("block_id", old.ID), slog.String("error", err.Error()))
			}
		}
		break
	}

	if _, err := api.AppendBlockChildren(ctx, pageID, ReportBlocks(req.CompletedCount, req.TotalCount, req.Mood)); err != nil {
		return upstreamError(err)
	}
	return nil
}
