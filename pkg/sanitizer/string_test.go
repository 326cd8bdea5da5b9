package sanitizer

import "testing"

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trim spaces",
			input: "  Morning Yoga  ",
			want:  "Morning Yoga",
		},
		{
			name:  "multiple spaces between words",
			input: "Morning    Yoga",
			want:  "Morning Yoga",
		},
		{
			name:  "tabs and newlines",
			input: "Morning\t\nYoga",
			want:  "Morning Yoga",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: "   \t\n  ",
			want:  "",
		},
		{
			name:  "preserve special characters",
			input: " Café & Spa™ ",
			want:  "Café & Spa™",
		},
		{
			name:  "hebrew characters",
			input: " יוגה בוקר ",
			want:  "יוגה בוקר",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeName(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercase",
			input: "John.Doe@Example.COM",
			want:  "john.doe@example.com",
		},
		{
			name:  "trim spaces",
			input: "  john@example.com  ",
			want:  "john@example.com",
		},
		{
			name:  "already clean",
			input: "john@example.com",
			want:  "john@example.com",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeEmail(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
