package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrRequiredField = errors.New("all fields are required")
	ErrInvalidNumber = errors.New("must be a non-negative number")
)

type FieldKind string

const (
	KindText   FieldKind = "text"
	KindEmail  FieldKind = "email"
	KindNumber FieldKind = "number"
)

type Field struct {
	Name     string
	Label    string
	Kind     FieldKind
	Required bool
}

// Schema describes one resource type: where its collection lives, how its
// identifier is named on the wire and which fields the form edits.
type Schema struct {
	// Name is the plural, lower-case resource name ("users").
	Name     string
	Singular string
	Title    string
	Path     string
	IDKey    string
	// MonoID renders identifiers in a fixed-width font.
	MonoID bool
	Fields []Field
}

var UserSchema = Schema{
	Name:     "users",
	Singular: "user",
	Title:    "Users",
	Path:     "/users",
	IDKey:    "id",
	Fields: []Field{
		{Name: "name", Label: "Name", Kind: KindText, Required: true},
		{Name: "email", Label: "Email", Kind: KindEmail, Required: true},
	},
}

var ProductSchema = Schema{
	Name:     "products",
	Singular: "product",
	Title:    "Products",
	Path:     "/products",
	IDKey:    "_id",
	MonoID:   true,
	Fields: []Field{
		{Name: "name", Label: "Name", Kind: KindText, Required: true},
		{Name: "price", Label: "Price", Kind: KindNumber, Required: true},
	},
}

// Label returns the capitalised singular name ("User").
func (s Schema) Label() string {
	if s.Singular == "" {
		return ""
	}
	return strings.ToUpper(s.Singular[:1]) + s.Singular[1:]
}

// Empty returns a form with every schema field present and blank.
func (s Schema) Empty() Fields {
	f := make(Fields, len(s.Fields))
	for _, field := range s.Fields {
		f[field.Name] = ""
	}
	return f
}

// Normalize keeps only the schema's fields, filling the missing ones with "".
func (s Schema) Normalize(in Fields) Fields {
	out := s.Empty()
	for name := range out {
		out[name] = in[name]
	}
	return out
}

func (s Schema) ValidateField(field Field, value string) error {
	if field.Required && value == "" {
		return fmt.Errorf("%s: %w", field.Label, ErrRequiredField)
	}
	if field.Kind == KindNumber && value != "" {
		if _, err := parseNumber(value); err != nil {
			return fmt.Errorf("%s %w", field.Label, ErrInvalidNumber)
		}
	}
	return nil
}

// Validate checks that every required field is filled in and that number
// fields parse. Formats such as e-mail shape are not checked.
func (s Schema) Validate(f Fields) error {
	for _, field := range s.Fields {
		if field.Required && f[field.Name] == "" {
			return ErrRequiredField
		}
	}
	for _, field := range s.Fields {
		if err := s.ValidateField(field, f[field.Name]); err != nil {
			return err
		}
	}
	return nil
}

// Payload converts form values into the request body sent upstream. Text
// fields pass through unchanged; number fields are parsed.
func (s Schema) Payload(f Fields) (map[string]any, error) {
	body := make(map[string]any, len(s.Fields))
	for _, field := range s.Fields {
		v := f[field.Name]
		if field.Kind != KindNumber {
			body[field.Name] = v
			continue
		}
		n, err := parseNumber(v)
		if err != nil {
			return nil, fmt.Errorf("%s %w", field.Label, ErrInvalidNumber)
		}
		body[field.Name] = n
	}
	return body, nil
}

func parseNumber(v string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, err
	}
	if n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, ErrInvalidNumber
	}
	return n, nil
}

// Fields holds form values keyed by field name.
type Fields map[string]string

func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
