package service

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	errorvalues "github.com/limbo/routinewidget/internal/error_values"
)

// Package for custom validations
var (
	validate *validator.Validate
	once     sync.Once

	prefixMu      sync.RWMutex
	tokenPrefixes = []string{"ntn_", "secret_"}
)

// SetTokenPrefixes replaces the accepted integration token prefixes. Empty input is ignored.
func SetTokenPrefixes(prefixes []string) {
	if len(prefixes) == 0 {
		return
	}
	prefixMu.Lock()
	defer prefixMu.Unlock()
	tokenPrefixes = append([]string(nil), prefixes...)
}

// HasTokenPrefix reports whether token starts with one of the accepted prefixes.
func HasTokenPrefix(token string) bool {
	prefixMu.RLock()
	defer prefixMu.RUnlock()
	for _, p := range tokenPrefixes {
		if strings.HasPrefix(token, p) {
			return true
		}
	}
	return false
}

func InitValidator() {
	once.Do(func() {
		validate = validator.New()
		// Report json names so errors match the request body
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		validate.RegisterValidation("notion_token", func(fl validator.FieldLevel) bool {
			return HasTokenPrefix(fl.Field().String())
		})
	})
}

// validateRequest turns the first validator failure into a ValidationError.
func validateRequest(req any) error {
	InitValidator()
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.New("validation error: " + err.Error())
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return &errorvalues.ValidationError{Field: fe.Field()}
	case "notion_token":
		return &errorvalues.ValidationError{Field: fe.Field(), Reason: "invalid token format"}
	case "gte":
		return &errorvalues.ValidationError{Field: fe.Field(), Reason: "must be at least " + fe.Param()}
	}
	return &errorvalues.ValidationError{Field: fe.Field(), Reason: "failed " + fe.Tag() + " check"}
}
