package entity

import "time"

type Theme string

const (
	ThemePink         Theme = "pink"
	ThemePurple       Theme = "purple"
	ThemeBlue         Theme = "blue"
	ThemeMono         Theme = "mono"
	ThemePastelBlue   Theme = "pastel-blue"
	ThemePastelPurple Theme = "pastel-purple"
)

// Themes is the fixed tap-cycling order.
var Themes = []Theme{ThemePink, ThemePurple, ThemeBlue, ThemeMono, ThemePastelBlue, ThemePastelPurple}

// Next returns the theme following t, wrapping around. Unknown themes restart at the first entry.
func (t Theme) Next() Theme {
	for i, th := range Themes {
		if th == t {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

type Routine struct {
	Name     string `json:"name" validate:"required"`
	Duration int    `json:"duration" validate:"gte=1"`
	Emoji    string `json:"emoji"`
}

type WidgetConfig struct {
	Token      string    `json:"token" validate:"required"`
	DatabaseID string    `json:"databaseId" validate:"required"`
	Theme      Theme     `json:"theme" validate:"required,oneof=pink purple blue mono pastel-blue pastel-purple"`
	Routines   []Routine `json:"routines,omitempty" validate:"omitempty,dive"`
	IsPreview  bool      `json:"isPreview,omitempty"`
}

// WithTheme returns a copy of the config using theme th. The receiver is left untouched.
func (c WidgetConfig) WithTheme(th Theme) WidgetConfig {
	out := c
	if c.Routines != nil {
		out.Routines = append([]Routine(nil), c.Routines...)
	}
	out.Theme = th
	return out
}

const (
	DefaultSleep    = "기록하기"
	DefaultName     = "Anonymous"
	DefaultMainText = "오늘도 좋은 하루!"
	DefaultPraise   = "오늘도 화이팅!"
)

type WidgetData struct {
	ProfileImage *string `json:"profileImage"`
	Sleep        string  `json:"sleep"`
	Energy       float64 `json:"energy"`
	Name         string  `json:"name"`
	MainText     string  `json:"mainText"`
	Praise       string  `json:"praise,omitempty"`
}

// DefaultWidgetData is what a record without any populated field maps to.
func DefaultWidgetData() WidgetData {
	return WidgetData{
		Sleep:    DefaultSleep,
		Name:     DefaultName,
		MainText: DefaultMainText,
	}
}

type LogLevel string

const (
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

type LogEntry struct {
	ID        string         `json:"id"`
	Timestamp int64          `json:"timestamp"`
	Level     LogLevel       `json:"level"`
	Message   string         `json:"message"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// RemoteLog is a sanitized log entry received by the debug sink.
type RemoteLog struct {
	ID         int64     `json:"-"`
	Log        LogEntry  `json:"log"`
	UserAgent  string    `json:"userAgent"`
	Viewport   string    `json:"viewport"`
	Referrer   string    `json:"referrer"`
	ReceivedAt time.Time `json:"receivedAt"`
}

type DatabaseSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

type RoutineSummary struct {
	DatabaseID     string
	Date           time.Time
	CompletedCount int
	TotalCount     int
	Mood           string
}
