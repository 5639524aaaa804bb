// Package validation validates request payloads with go-playground/validator
// v10.  A single validator instance is shared; it caches struct metadata.
//
// Domain aliases keep the catalog rules in one place:
//
//	price   0..100000
//	age     12..110
//	rating  1..5
//
// Each alias carries its own message, so a failing field reads the same
// way the bulk loader reports it.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// aliases maps a domain tag to its validator rule and message.
var aliases = map[string]struct {
	rule    string
	message string
}{
	"price":  {"min=0,max=100000", "Movie price should be from 0 to 100000"},
	"age":    {"min=12,max=110", "User age should be from 12 to 110"},
	"rating": {"min=1,max=5", "Wrong value for a rating"},
}

// FieldError is one failed rule on one field.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// Error is the set of field failures for one payload.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonName)
		for tag, a := range aliases {
			validate.RegisterAlias(tag, a.rule)
		}
	})
	return validate
}

// Struct validates s.  It returns nil or an *Error.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}
	out := &Error{Fields: make([]FieldError, len(verrs))}
	for i, fe := range verrs {
		out.Fields[i] = FieldError{Field: fe.Field(), Tag: fe.Tag(), Message: translate(fe)}
	}
	return out
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func translate(fe validator.FieldError) string {
	if a, ok := aliases[fe.Tag()]; ok {
		return a.message
	}
	field, param := fe.Field(), fe.Param()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "eq":
		return fmt.Sprintf("%s must be %s", field, param)
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
