package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// EventID is an event identifier as it arrives in a request body. Browser
// clients send it either as a JSON number or as a numeric string.
type EventID int64

func (id *EventID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ValidationError{Field: "id", Message: "must be an integer"}
		}
		raw = s
	}
	parsed, err := ParseID(raw)
	if err != nil {
		return err
	}
	*id = EventID(parsed)
	return nil
}

// Text is a free-form body field stored as text. Strings are taken verbatim;
// numbers and booleans keep the literal spelling they were sent with, so
// {"title": 123} stores "123". Objects and arrays are rejected.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ValidationError{Message: "malformed string"}
		}
		*t = Text(s)
	case '{', '[':
		return ValidationError{Message: "must be a string, number or boolean"}
	default:
		*t = Text(raw)
	}
	return nil
}

// TextPtr is a convenience for building inputs in code.
func TextPtr(v string) *Text {
	t := Text(v)
	return &t
}

// CreateInput is the body of a create request. Fields are pointers so that a
// missing key (or null) can be told apart from an empty value.
type CreateInput struct {
	Title *Text `json:"title" validate:"required"`
	Date  *Text `json:"date" validate:"required"`
}

type UpdateInput struct {
	ID    *EventID `json:"id" validate:"required"`
	Title *Text    `json:"title" validate:"required"`
	Date  *Text    `json:"date" validate:"required"`
}

// ParseID parses an event id from a query parameter or body value.
func ParseID(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, ValidationError{Field: "id", Message: "missing"}
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, ValidationError{Field: "id", Message: "must be an integer"}
	}
	return id, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkPresence runs the struct's validate tags and converts the first
// failure into a ValidationError.
func checkPresence(v *validator.Validate, input any) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		message := "is required"
		if fe.Tag() != "required" {
			message = "failed " + fe.Tag()
		}
		return ValidationError{Field: fe.Field(), Message: message}
	}
	return ValidationError{Message: err.Error()}
}
