package loader

import (
	"strings"
	"testing"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name string
		key  string
		opts Options
		want string
	}{
		{
			name: "KeyOnly",
			key:  "test-key",
			want: "https://maps.googleapis.com/maps/api/js?key=test-key",
		},
		{
			name: "AllParameters",
			key:  "test-key",
			opts: Options{
				Libraries: []string{"places", "drawing"},
				Language:  "en",
				Region:    "US",
			},
			want: "https://maps.googleapis.com/maps/api/js?key=test-key&libraries=places,drawing&language=en&region=US",
		},
		{
			name: "SingleLibrary",
			key:  "k",
			opts: Options{Libraries: []string{"marker"}},
			want: "https://maps.googleapis.com/maps/api/js?key=k&libraries=marker",
		},
		{
			name: "LanguageAndRegionOnly",
			key:  "k",
			opts: Options{Language: "vi", Region: "VN"},
			want: "https://maps.googleapis.com/maps/api/js?key=k&language=vi&region=VN",
		},
		{
			name: "EmptyLibrariesOmitted",
			key:  "k",
			opts: Options{Libraries: []string{}},
			want: "https://maps.googleapis.com/maps/api/js?key=k",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildURL(tt.key, tt.opts)
			if got != tt.want {
				t.Errorf("Expected URL '%s', got '%s'", tt.want, got)
			}
		})
	}
}

func TestCallbackName(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		name, err := callbackName()
		if err != nil {
			t.Fatalf("callbackName failed: %v", err)
		}
		if !strings.HasPrefix(name, callbackPrefix) {
			t.Errorf("Expected prefix '%s', got '%s'", callbackPrefix, name)
		}
		if strings.Contains(name, "-") {
			t.Errorf("Expected no dashes in callback name, got '%s'", name)
		}
		if seen[name] {
			t.Fatalf("Duplicate callback name '%s'", name)
		}
		seen[name] = true
	}
}
