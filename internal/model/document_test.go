package model

import (
	"encoding/json"
	"testing"
)

func TestDocument_Kinds(t *testing.T) {
	for _, tc := range []struct {
		json string
		want DocumentKind
	}{
		{`null`, DocumentNull},
		{`true`, DocumentBool},
		{`3.5`, DocumentNumber},
		{`"d20"`, DocumentString},
		{`[1,"a",null]`, DocumentList},
		{`{"teamSize":3,"names":["a","b"]}`, DocumentMap},
	} {
		d, err := ParseDocument([]byte(tc.json))
		if err != nil {
			t.Fatalf("ParseDocument(%s): %v", tc.json, err)
		}
		if d.Kind() != tc.want {
			t.Errorf("ParseDocument(%s).Kind() = %q, want %q", tc.json, d.Kind(), tc.want)
		}
	}
}

func TestDocument_ZeroIsNull(t *testing.T) {
	var d Document
	if !d.IsNull() {
		t.Error("zero Document should be null")
	}
	data, err := json.Marshal(d)
	if err != nil || string(data) != "null" {
		t.Errorf("Marshal(zero) = %s, %v", data, err)
	}
	empty, err := ParseDocument(nil)
	if err != nil || !empty.IsNull() {
		t.Errorf("ParseDocument(nil) = %v, %v", empty, err)
	}
}

func TestDocument_RoundTripIsStructural(t *testing.T) {
	in := `{"seed":42,"faces":[1,2,3,4,5,6],"nested":{"on":true,"label":"x"},"none":null}`
	d, err := ParseDocument([]byte(in))
	if err != nil {
		t.Fatal(err)
	}
	out, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	again, err := ParseDocument(out)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Equal(d) {
		t.Errorf("round trip changed document: %s -> %s", in, out)
	}
	// Stable encoding: keys sorted, repeated marshals identical.
	out2, _ := json.Marshal(again)
	if string(out) != string(out2) {
		t.Errorf("encoding not stable: %s vs %s", out, out2)
	}
}

func TestDocument_InvalidJSON(t *testing.T) {
	if _, err := ParseDocument([]byte(`{"a":`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
	var d Document
	if err := json.Unmarshal([]byte(`{"parameters":`), &struct{ P *Document }{&d}); err == nil {
		t.Error("expected error from json.Unmarshal")
	}
}

func TestNewDocument_RejectsUnsupported(t *testing.T) {
	if _, err := NewDocument(struct{}{}); err == nil {
		t.Error("expected error for struct value")
	}
	d, err := NewDocument(map[string]any{"teamSize": 3})
	if err != nil {
		t.Fatal(err)
	}
	if d.Kind() != DocumentMap {
		t.Errorf("Kind() = %q", d.Kind())
	}
	if d.AsInterface().(map[string]any)["teamSize"].(float64) != 3 {
		t.Errorf("AsInterface() = %v", d.AsInterface())
	}
}

func TestDocumentFromValue_Copies(t *testing.T) {
	src := MustDocument([]any{"a"})
	d := DocumentFromValue(src.Value())
	d.Value().GetListValue().Values[0] = MustDocument("b").Value()
	if src.AsInterface().([]any)[0] != "a" {
		t.Error("DocumentFromValue aliases its input")
	}
	if !DocumentFromValue(nil).IsNull() {
		t.Error("DocumentFromValue(nil) should be null")
	}
}

func TestDocument_NumbersKeepTheirValue(t *testing.T) {
	for _, in := range []string{
		`{"seed":9007199254740992}`,
		`{"seed":-9007199254740992}`,
		`{"ratio":0.1}`,
		`[1.5,-12.5,0,1e+21]`,
	} {
		d, err := ParseDocument([]byte(in))
		if err != nil {
			t.Fatalf("ParseDocument(%s): %v", in, err)
		}
		out, err := json.Marshal(d)
		if err != nil {
			t.Fatal(err)
		}
		if string(out) != in {
			t.Errorf("round trip: %s -> %s", in, out)
		}
	}
}

func TestDocument_RejectsInexactNumbers(t *testing.T) {
	for _, in := range []string{
		`{"seed":9007199254740993}`,
		`{"ids":[1,12345678901234567890]}`,
		`0.10000000000000000001`,
		`1e400`,
	} {
		_, err := ParseDocument([]byte(in))
		if !IsValidation(err) {
			t.Errorf("ParseDocument(%s) = %v, want validation error", in, err)
		}
	}
	var d Document
	if err := json.Unmarshal([]byte(`{"seed":9007199254740993}`), &d); !IsValidation(err) {
		t.Errorf("UnmarshalJSON = %v, want validation error", err)
	}
}

func TestDecimal(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"0", "0"},
		{"-0.0", "0"},
		{"120", "12e1"},
		{"-12.50", "-125e-1"},
		{"1.25E1", "125e-1"},
		{"3e+00", "3e0"},
		{"9.007199254740992e+15", "9007199254740992e0"},
	} {
		if got, ok := decimal(tc.in); !ok || got != tc.want {
			t.Errorf("decimal(%q) = %q, %v; want %q", tc.in, got, ok, tc.want)
		}
	}
}
