package ai

import (
	"reflect"
	"testing"
)

type sampleVerdict struct {
	Value string `json:"value"`
	Valid bool   `json:"valid"`
}

func TestUnmarshalFlexible(t *testing.T) {
	want := sampleVerdict{Value: "MSFT", Valid: true}

	tests := []struct {
		name  string
		input string
	}{
		{"standard", `{"value": "MSFT", "valid": true}`},
		{"double encoded", `"{\"value\": \"MSFT\", \"valid\": true}"`},
		{"unquoted keys", `{value: "MSFT", valid: true}`},
		{"duplicate leading brace", `{{"value": "MSFT", "valid": true}`},
		{"trailing comma", `{"value": "MSFT", "valid": true,}`},
		{"surrounding whitespace", "\n  {\"value\": \"MSFT\", \"valid\": true}  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got sampleVerdict
			if err := UnmarshalFlexible(tt.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("got %+v, want %+v", got, want)
			}
		})
	}
}

func TestUnmarshalFlexibleRejectsGarbage(t *testing.T) {
	var got sampleVerdict
	if err := UnmarshalFlexible("not json at all []{", &got); err == nil {
		t.Error("expected error for unrepairable input")
	}
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema(&sampleVerdict{})
	if schema == nil {
		t.Fatal("schema is nil")
	}
	// Same schema whether given a value or a pointer.
	if !reflect.DeepEqual(schema, GenerateSchema(sampleVerdict{})) {
		t.Error("pointer and value inputs produced different schemas")
	}
}
