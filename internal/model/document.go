package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// DocumentKind is the tag of a Document's top-level value.
type DocumentKind string

const (
	DocumentNull   DocumentKind = "null"
	DocumentBool   DocumentKind = "bool"
	DocumentNumber DocumentKind = "number"
	DocumentString DocumentKind = "string"
	DocumentList   DocumentKind = "list"
	DocumentMap    DocumentKind = "map"
)

// Document is a tool-defined parameter value: a tagged union of null, bool,
// number, string, list and map, composed arbitrarily. The store never
// interprets its shape. The zero Document is null.
type Document struct {
	v *structpb.Value
}

// NewDocument builds a Document from plain Go values (as accepted by
// structpb.NewValue: nil, bool, numbers, string, []any, map[string]any).
func NewDocument(v any) (Document, error) {
	pv, err := structpb.NewValue(v)
	if err != nil {
		return Document{}, fmt.Errorf("parameters: %w", err)
	}
	return Document{v: pv}, nil
}

// MustDocument is NewDocument for literals known to be valid.
func MustDocument(v any) Document {
	d, err := NewDocument(v)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseDocument decodes a JSON-encoded document. Empty input yields null.
// Numbers are held as float64; a number that would come back with a
// different value (e.g. an integer above 2^53) is a *ValidationError.
func ParseDocument(data []byte) (Document, error) {
	if len(data) == 0 {
		return Document{}, nil
	}
	if err := checkNumbers(data); err != nil {
		return Document{}, err
	}
	var pv structpb.Value
	if err := protojson.Unmarshal(data, &pv); err != nil {
		return Document{}, fmt.Errorf("parameters: %w", err)
	}
	return Document{v: &pv}, nil
}

// DocumentFromValue wraps an existing protobuf value. A nil value is null.
func DocumentFromValue(v *structpb.Value) Document {
	if v == nil {
		return Document{}
	}
	return Document{v: proto.Clone(v).(*structpb.Value)}
}

// Value returns the underlying protobuf value; null for the zero Document.
func (d Document) Value() *structpb.Value {
	if d.v == nil {
		return structpb.NewNullValue()
	}
	return d.v
}

// Kind returns the tag of the top-level value.
func (d Document) Kind() DocumentKind {
	switch d.Value().GetKind().(type) {
	case *structpb.Value_BoolValue:
		return DocumentBool
	case *structpb.Value_NumberValue:
		return DocumentNumber
	case *structpb.Value_StringValue:
		return DocumentString
	case *structpb.Value_ListValue:
		return DocumentList
	case *structpb.Value_StructValue:
		return DocumentMap
	default:
		return DocumentNull
	}
}

// IsNull reports whether the document holds no value.
func (d Document) IsNull() bool {
	return d.Kind() == DocumentNull
}

// AsInterface converts the document to plain Go values.
func (d Document) AsInterface() any {
	return d.Value().AsInterface()
}

// Equal reports structural equality.
func (d Document) Equal(other Document) bool {
	return proto.Equal(d.Value(), other.Value())
}

// MarshalJSON encodes the document with sorted map keys so the encoding is
// stable across calls.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.AsInterface())
}

// UnmarshalJSON decodes any JSON value into the document.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// checkNumbers walks the JSON tokens and rejects numbers that do not survive
// conversion to float64. Syntax errors and EOF end the walk; protojson
// reports the former.
func checkNumbers(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		n, ok := tok.(json.Number)
		if !ok || exactFloat(string(n)) {
			continue
		}
		return &ValidationError{Errors: []FieldError{{
			Field:   "parameters",
			Message: fmt.Sprintf("number %s cannot be stored exactly", n),
		}}}
	}
}

func exactFloat(lit string) bool {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return false
	}
	want, ok := decimal(lit)
	if !ok {
		return false
	}
	got, _ := decimal(strconv.FormatFloat(f, 'e', -1, 64))
	return want == got
}

// decimal reduces a number literal to significant digits and a base-10
// exponent, so "-12.50", "-1.25e1" and "-125e-1" all give "-125e-1".
func decimal(lit string) (string, bool) {
	neg := strings.HasPrefix(lit, "-")
	mant, exp := strings.TrimPrefix(lit, "-"), 0
	if i := strings.IndexAny(mant, "eE"); i >= 0 {
		e, err := strconv.Atoi(mant[i+1:])
		if err != nil {
			return "", false
		}
		mant, exp = mant[:i], e
	}
	if i := strings.IndexByte(mant, '.'); i >= 0 {
		exp -= len(mant) - i - 1
		mant = mant[:i] + mant[i+1:]
	}
	mant = strings.TrimLeft(mant, "0")
	if mant == "" {
		return "0", true
	}
	digits := strings.TrimRight(mant, "0")
	exp += len(mant) - len(digits)
	if neg {
		digits = "-" + digits
	}
	return digits + "e" + strconv.Itoa(exp), true
}
