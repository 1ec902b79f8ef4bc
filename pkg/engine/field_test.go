package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractPath(t *testing.T) {
	type address struct {
		City string `json:"city"`
		Zip  string
	}
	type subject struct {
		Name    string            `json:"name"`
		Address *address          `json:"address,omitempty"`
		Tags    []string          `json:"tags"`
		Labels  map[string]string `json:"labels"`
		hidden  string
	}

	s := subject{
		Name:    "ada",
		Address: &address{City: "London", Zip: "N1"},
		Tags:    []string{"a", "b"},
		Labels:  map[string]string{"team": "core"},
		hidden:  "x",
	}
	m := map[string]interface{}{
		"name":    "ada",
		"address": map[string]interface{}{"city": "London"},
		"tags":    []interface{}{"a", "b"},
		"nothing": nil,
	}

	tests := []struct {
		name    string
		subject interface{}
		path    string
		want    interface{}
		found   bool
	}{
		{name: "map top level", subject: m, path: "name", want: "ada", found: true},
		{name: "map nested", subject: m, path: "address.city", want: "London", found: true},
		{name: "map list index", subject: m, path: "tags.1", want: "b", found: true},
		{name: "map index out of range", subject: m, path: "tags.5", found: false},
		{name: "map missing key", subject: m, path: "address.zip", found: false},
		{name: "explicit null is present", subject: m, path: "nothing", want: nil, found: true},
		{name: "through null", subject: m, path: "nothing.deeper", found: false},
		{name: "struct json tag", subject: s, path: "name", want: "ada", found: true},
		{name: "struct pointer nested", subject: &s, path: "address.city", want: "London", found: true},
		{name: "struct field name", subject: s, path: "address.Zip", want: "N1", found: true},
		{name: "struct slice", subject: s, path: "tags.0", want: "a", found: true},
		{name: "struct typed map", subject: s, path: "labels.team", want: "core", found: true},
		{name: "unexported field", subject: s, path: "hidden", found: false},
		{name: "nil pointer field", subject: subject{}, path: "address.city", found: false},
		{name: "empty path is subject", subject: "x", path: "", want: "x", found: true},
		{name: "scalar has no fields", subject: 3, path: "a", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := extractPath(tt.subject, tt.path)
			if found != tt.found {
				t.Fatalf("extractPath() found = %v, want %v", found, tt.found)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("extractPath() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type identified struct{}

func (identified) SubjectID() string { return "custom" }

func TestSubjectID(t *testing.T) {
	tests := []struct {
		subject interface{}
		want    string
	}{
		{subject: map[string]interface{}{"id": "abc"}, want: "abc"},
		{subject: map[string]interface{}{"id": float64(42)}, want: "42"},
		{subject: map[string]interface{}{"name": "x"}, want: ""},
		{subject: identified{}, want: "custom"},
		{subject: nil, want: ""},
	}
	for _, tt := range tests {
		if got := subjectID(tt.subject); got != tt.want {
			t.Errorf("subjectID(%v) = %q, want %q", tt.subject, got, tt.want)
		}
	}
}
