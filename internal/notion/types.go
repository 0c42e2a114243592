package notion

import "strings"

type RichText struct {
	Type      string `json:"type,omitempty"`
	PlainText string `json:"plain_text,omitempty"`
	Text      *Text  `json:"text,omitempty"`
}

type Text struct {
	Content string `json:"content"`
}

type FileObject struct {
	URL string `json:"url"`
}

type File struct {
	Name     string      `json:"name,omitempty"`
	Type     string      `json:"type,omitempty"`
	File     *FileObject `json:"file,omitempty"`
	External *FileObject `json:"external,omitempty"`
}

type Formula struct {
	Type   string   `json:"type,omitempty"`
	String *string  `json:"string,omitempty"`
	Number *float64 `json:"number,omitempty"`
}

type DateValue struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

// PropertyValue is a page property. Only the fields matching Type are set.
type PropertyValue struct {
	ID       string     `json:"id,omitempty"`
	Type     string     `json:"type,omitempty"`
	Title    []RichText `json:"title,omitempty"`
	RichText []RichText `json:"rich_text,omitempty"`
	Number   *float64   `json:"number,omitempty"`
	Files    []File     `json:"files,omitempty"`
	Formula  *Formula   `json:"formula,omitempty"`
	Date     *DateValue `json:"date,omitempty"`
}

type Page struct {
	Object     string                   `json:"object,omitempty"`
	ID         string                   `json:"id"`
	URL        string                   `json:"url,omitempty"`
	Properties map[string]PropertyValue `json:"properties"`
}

// PlainText returns the first rich_text fragment of property name.
func (p Page) PlainText(name string) string {
	prop, ok := p.Properties[name]
	if !ok || len(prop.RichText) == 0 {
		return ""
	}
	return prop.RichText[0].PlainText
}

// FileURL returns the URL of the first file of property name, hosted or external.
func (p Page) FileURL(name string) string {
	prop, ok := p.Properties[name]
	if !ok || len(prop.Files) == 0 {
		return ""
	}
	f := prop.Files[0]
	if f.File != nil && f.File.URL != "" {
		return f.File.URL
	}
	if f.External != nil {
		return f.External.URL
	}
	return ""
}

func (p Page) FormulaString(name string) string {
	prop, ok := p.Properties[name]
	if !ok || prop.Formula == nil || prop.Formula.String == nil {
		return ""
	}
	return *prop.Formula.String
}

func (p Page) FormulaNumber(name string) (float64, bool) {
	prop, ok := p.Properties[name]
	if !ok || prop.Formula == nil || prop.Formula.Number == nil {
		return 0, false
	}
	return *prop.Formula.Number, true
}

func (p Page) Number(name string) (float64, bool) {
	prop, ok := p.Properties[name]
	if !ok || prop.Number == nil {
		return 0, false
	}
	return *prop.Number, true
}

type DatabaseProperty struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type Database struct {
	Object     string                      `json:"object"`
	ID         string                      `json:"id"`
	URL        string                      `json:"url,omitempty"`
	Title      []RichText                  `json:"title"`
	Properties map[string]DatabaseProperty `json:"properties"`
}

func (d Database) HasProperty(name string) bool {
	_, ok := d.Properties[name]
	return ok
}

// PlainTitle joins every title fragment.
func (d Database) PlainTitle() string {
	var sb strings.Builder
	for _, t := range d.Title {
		sb.WriteString(t.PlainText)
	}
	return sb.String()
}

type RichTextBlock struct {
	RichText []RichText `json:"rich_text"`
}

type Block struct {
	Object    string         `json:"object,omitempty"`
	ID        string         `json:"id,omitempty"`
	Type      string         `json:"type"`
	Heading3  *RichTextBlock `json:"heading_3,omitempty"`
	Paragraph *RichTextBlock `json:"paragraph,omitempty"`
}

// Text returns the first fragment of a heading_3 or paragraph block.
func (b Block) Text() string {
	var content *RichTextBlock
	switch b.Type {
	case "heading_3":
		content = b.Heading3
	case "paragraph":
		content = b.Paragraph
	}
	if content == nil || len(content.RichText) == 0 {
		return ""
	}
	rt := content.RichText[0]
	if rt.PlainText != "" {
		return rt.PlainText
	}
	if rt.Text != nil {
		return rt.Text.Content
	}
	return ""
}

func textBlock(content string) *RichTextBlock {
	return &RichTextBlock{RichText: []RichText{{Type: "text", Text: &Text{Content: content}}}}
}

func Heading3(content string) Block {
	return Block{Type: "heading_3", Heading3: textBlock(content)}
}

func Paragraph(content string) Block {
	return Block{Type: "paragraph", Paragraph: textBlock(content)}
}

type DateFilter struct {
	OnOrAfter string `json:"on_or_after,omitempty"`
	Before    string `json:"before,omitempty"`
}

type Filter struct {
	Property string      `json:"property,omitempty"`
	Date     *DateFilter `json:"date,omitempty"`
	And      []Filter    `json:"and,omitempty"`
}

type Sort struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

const (
	Ascending  = "ascending"
	Descending = "descending"
)

type QueryRequest struct {
	Filter      *Filter `json:"filter,omitempty"`
	Sorts       []Sort  `json:"sorts,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
}

type QueryResponse struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

type SearchFilter struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

type SearchRequest struct {
	Filter   *SearchFilter `json:"filter,omitempty"`
	PageSize int           `json:"page_size,omitempty"`
}

type SearchResponse struct {
	Results    []Database `json:"results"`
	HasMore    bool       `json:"has_more"`
	NextCursor *string    `json:"next_cursor"`
	// Raw holds the results exactly as returned.
	Raw []map[string]any `json:"-"`
}

type Parent struct {
	DatabaseID string `json:"database_id"`
}

type CreatePageRequest struct {
	Parent     Parent                   `json:"parent"`
	Properties map[string]PropertyValue `json:"properties"`
}

type BlockList struct {
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

type appendRequest struct {
	Children []Block `json:"children"`
}
