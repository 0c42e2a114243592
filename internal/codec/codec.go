// Package codec turns widget configuration into the URL-safe token carried by
// the `config` query parameter and back.
//
// The token is plain Base64 of the JSON document, so anyone holding a widget
// URL can read the credentials inside it.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	errorvalues "github.com/limbo/routinewidget/internal/error_values"
	"github.com/limbo/routinewidget/pkg/entity"
)

// QueryParam is the widget route parameter holding the encoded config.
const QueryParam = "config"

type Variant string

const (
	VariantProfile  Variant = "widget"
	VariantDialogue Variant = "widget-dialogue"
	VariantRoutine  Variant = "widget-routine"
)

var Variants = []Variant{VariantProfile, VariantDialogue, VariantRoutine}

var (
	strict = sonic.Config{
		EscapeHTML:            true,
		SortMapKeys:           true,
		DisallowUnknownFields: true,
	}.Froze()

	validate *validator.Validate
	once     sync.Once
)

func validatorInstance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Encode serializes v to JSON and returns it as unpadded URL-safe Base64.
func Encode(v any) (string, error) {
	raw, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	b64 := base64.StdEncoding.EncodeToString(raw)
	b64 = strings.ReplaceAll(b64, "+", "-")
	b64 = strings.ReplaceAll(b64, "/", "_")
	return strings.TrimRight(b64, "="), nil
}

// Decode reverses Encode into v.
func Decode(token string, v any) error {
	raw, err := decodeBytes(token)
	if err != nil {
		return err
	}
	if err := sonic.ConfigStd.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: invalid json: %v", errorvalues.ErrConfigDecode, err)
	}
	return nil
}

func decodeBytes(token string) ([]byte, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", errorvalues.ErrConfigDecode)
	}
	b64 := strings.ReplaceAll(token, "-", "+")
	b64 = strings.ReplaceAll(b64, "_", "/")
	if pad := (4 - len(b64)%4) % 4; pad > 0 {
		b64 += strings.Repeat("=", pad)
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", errorvalues.ErrConfigDecode, err)
	}
	return raw, nil
}

func EncodeConfig(cfg entity.WidgetConfig) (string, error) {
	return Encode(cfg)
}

// DecodeConfig decodes and validates a widget config. Unknown fields are
// rejected; a missing theme falls back to pink.
func DecodeConfig(token string) (entity.WidgetConfig, error) {
	raw, err := decodeBytes(token)
	if err != nil {
		return entity.WidgetConfig{}, err
	}
	return UnmarshalConfig(raw)
}

// MarshalConfig returns the plain JSON form kept in the key-value store.
func MarshalConfig(cfg entity.WidgetConfig) (string, error) {
	return sonic.ConfigStd.MarshalToString(cfg)
}

// UnmarshalConfig parses and validates the JSON form of a widget config.
func UnmarshalConfig(raw []byte) (entity.WidgetConfig, error) {
	var cfg entity.WidgetConfig
	if err := strict.Unmarshal(raw, &cfg); err != nil {
		return entity.WidgetConfig{}, fmt.Errorf("%w: invalid json: %v", errorvalues.ErrConfigDecode, err)
	}
	if cfg.Theme == "" {
		cfg.Theme = entity.ThemePink
	}
	if err := validatorInstance().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return entity.WidgetConfig{}, fmt.Errorf("%w: field %s failed %q", errorvalues.ErrConfigDecode, verrs[0].Namespace(), verrs[0].Tag())
		}
		return entity.WidgetConfig{}, fmt.Errorf("%w: %v", errorvalues.ErrConfigDecode, err)
	}
	return cfg, nil
}

// FromQuery decodes the config query parameter; a missing parameter is a decode error.
func FromQuery(q url.Values) (entity.WidgetConfig, error) {
	token := q.Get(QueryParam)
	if token == "" {
		return entity.WidgetConfig{}, fmt.Errorf("%w: missing %s parameter", errorvalues.ErrConfigDecode, QueryParam)
	}
	return DecodeConfig(token)
}

// WidgetURL builds the embeddable URL of a widget variant.
func WidgetURL(base string, variant Variant, token string) string {
	return strings.TrimRight(base, "/") + "/" + string(variant) + "?" + QueryParam + "=" + token
}

// WidgetURLs returns the URL of every variant for cfg.
func WidgetURLs(base string, cfg entity.WidgetConfig) (map[Variant]string, error) {
	token, err := EncodeConfig(cfg)
	if err != nil {
		return nil, err
	}
	urls := make(map[Variant]string, len(Variants))
	for _, v := range Variants {
		urls[v] = WidgetURL(base, v, token)
	}
	return urls, nil
}
