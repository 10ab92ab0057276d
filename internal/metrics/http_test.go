package metrics

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "static path",
			input:    "/api/events",
			expected: "/api/events",
		},
		{
			name:     "single param",
			input:    "/api/events/{id}",
			expected: "/api/events/{param}",
		},
		{
			name:     "multiple params",
			input:    "/api/events/{id}/notifications/{kind}",
			expected: "/api/events/{param}/notifications/{param}",
		},
		{
			name:     "empty path",
			input:    "",
			expected: "",
		},
		{
			name:     "non-path input",
			input:    "api/events/{id}",
			expected: "api/events/{id}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizePath(tt.input)
			if got != tt.expected {
				t.Fatalf("normalizePath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
