package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/limbo/routinewidget/internal/notion"
)

type mockState int

const (
	stateSuccess mockState = iota
	stateUpstreamError
	stateDeleteError
)

// fakeNotion keeps pages and blocks in memory and answers the subset of
// queries the gateway issues.
type fakeNotion struct {
	mu      sync.Mutex
	state   mockState
	loc     *time.Location
	hasDate bool
	pages   []notion.Page
	blocks  map[string][]notion.Block
	nextID  int

	tokens  []string
	queries []notion.QueryRequest
	created []notion.CreatePageRequest
	deleted []string

	// listBarrier, when set, is waited on by every ListBlockChildren call.
	listBarrier *sync.WaitGroup
}

func newFakeNotion(loc *time.Location) *fakeNotion {
	return &fakeNotion{
		loc:     loc,
		hasDate: true,
		blocks:  make(map[string][]notion.Block),
	}
}

type fakeFactory struct {
	api *fakeNotion
}

func (f *fakeFactory) ForToken(token string) notion.API {
	f.api.mu.Lock()
	f.api.tokens = append(f.api.tokens, token)
	f.api.mu.Unlock()
	return f.api
}

var errNotion = &notion.APIError{Status: 401, Code: "unauthorized", Message: "API token is invalid."}

func strPtr(s string) *string    { return &s }
func numPtr(n float64) *float64 { return &n }

func richText(s string) []notion.RichText {
	return []notion.RichText{{Type: "text", PlainText: s}}
}

// record builds a page dated day with the given properties.
func record(id, day string, props map[string]notion.PropertyValue) notion.Page {
	if props == nil {
		props = map[string]notion.PropertyValue{}
	}
	if day != "" {
		props["Date"] = notion.PropertyValue{Type: "date", Date: &notion.DateValue{Start: day}}
	}
	return notion.Page{Object: "page", ID: id, Properties: props}
}

func (f *fakeNotion) addPage(p notion.Page) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages = append(f.pages, p)
}

func (f *fakeNotion) pageDate(p notion.Page) (time.Time, bool) {
	prop, ok := p.Properties["Date"]
	if !ok || prop.Date == nil {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation(time.DateOnly, prop.Date.Start, f.loc); err == nil {
		return t, true
	}
	t, err := time.Parse(time.RFC3339, prop.Date.Start)
	return t, err == nil
}

func (f *fakeNotion) RetrieveDatabase(ctx context.Context, databaseID string) (*notion.Database, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == stateUpstreamError {
		return nil, errNotion
	}
	db := &notion.Database{Object: "database", ID: databaseID, Properties: map[string]notion.DatabaseProperty{
		"name": {Name: "name", Type: "rich_text"},
	}}
	if f.hasDate {
		db.Properties["Date"] = notion.DatabaseProperty{Name: "Date", Type: "date"}
	}
	return db, nil
}

func (f *fakeNotion) QueryDatabase(ctx context.Context, databaseID string, req notion.QueryRequest) (*notion.QueryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, req)
	if f.state == stateUpstreamError {
		return nil, errNotion
	}
	results := make([]notion.Page, 0, len(f.pages))
	for _, p := range f.pages {
		if req.Filter != nil && !f.matches(p, *req.Filter) {
			continue
		}
		results = append(results, p)
	}
	if len(req.Sorts) > 0 && req.Sorts[0].Direction == notion.Descending {
		sort.SliceStable(results, func(i, j int) bool {
			ti, _ := f.pageDate(results[i])
			tj, _ := f.pageDate(results[j])
			return ti.After(tj)
		})
	}
	if req.PageSize > 0 && len(results) > req.PageSize {
		results = results[:req.PageSize]
	}
	return &notion.QueryResponse{Results: results}, nil
}

func (f *fakeNotion) matches(p notion.Page, filter notion.Filter) bool {
	for _, sub := range filter.And {
		if !f.matches(p, sub) {
			return false
		}
	}
	if filter.Date == nil {
		return true
	}
	t, ok := f.pageDate(p)
	if !ok {
		return false
	}
	if filter.Date.OnOrAfter != "" {
		bound, _ := time.Parse(time.RFC3339, filter.Date.OnOrAfter)
		if t.Before(bound) {
			return false
		}
	}
	if filter.Date.Before != "" {
		bound, _ := time.Parse(time.RFC3339, filter.Date.Before)
		if !t.Before(bound) {
			return false
		}
	}
	return true
}

func (f *fakeNotion) Search(ctx context.Context, req notion.SearchRequest) (*notion.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == stateUpstreamError {
		return nil, errNotion
	}
	return &notion.SearchResponse{
		Results: []notion.Database{
			{Object: "database", ID: "db1", URL: "https://notion.so/db1", Title: richText("Daily")},
			{Object: "database", ID: "db2", Title: []notion.RichText{{PlainText: "Mood "}, {PlainText: "Log"}}},
		},
		Raw: []map[string]any{
			{"object": "database", "id": "db1"},
			{"object": "database", "id": "db2"},
		},
	}, nil
}

func (f *fakeNotion) CreatePage(ctx context.Context, req notion.CreatePageRequest) (*notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == stateUpstreamError {
		return nil, errNotion
	}
	f.created = append(f.created, req)
	f.nextID++
	page := notion.Page{Object: "page", ID: fmt.Sprintf("created-%d", f.nextID), Properties: req.Properties}
	f.pages = append(f.pages, page)
	return &page, nil
}

func (f *fakeNotion) ListBlockChildren(ctx context.Context, blockID string, pageSize int) (*notion.BlockList, error) {
	f.mu.Lock()
	barrier := f.listBarrier
	f.mu.Unlock()
	if barrier != nil {
		barrier.Done()
		barrier.Wait()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == stateUpstreamError {
		return nil, errNotion
	}
	children := append([]notion.Block(nil), f.blocks[blockID]...)
	if pageSize > 0 && len(children) > pageSize {
		children = children[:pageSize]
	}
	return &notion.BlockList{Results: children}, nil
}

func (f *fakeNotion) DeleteBlock(ctx context.Context, blockID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, blockID)
	if f.state == stateDeleteError {
		return errors.New("conflict")
	}
	for pageID, children := range f.blocks {
		for i, b := range children {
			if b.ID == blockID {
				f.blocks[pageID] = append(children[:i:i], children[i+1:]...)
				return nil
			}
		}
	}
	return &notion.APIError{Status: 404, Code: "object_not_found", Message: "block not found"}
}

func (f *fakeNotion) AppendBlockChildren(ctx context.Context, blockID string, children []notion.Block) (*notion.BlockList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == stateUpstreamError {
		return nil, errNotion
	}
	added := make([]notion.Block, 0, len(children))
	for _, c := range children {
		f.nextID++
		c.Object = "block"
		c.ID = fmt.Sprintf("block-%d", f.nextID)
		added = append(added, c)
	}
	f.blocks[blockID] = append(f.blocks[blockID], added...)
	return &notion.BlockList{Results: added}, nil
}

// pageTexts lists the text of every block on a page.
func (f *fakeNotion) pageTexts(pageID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	texts := make([]string, 0, len(f.blocks[pageID]))
	for _, b := range f.blocks[pageID] {
		texts = append(texts, b.Text())
	}
	return texts
}
