package input

import "testing"

func TestSubmittable(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"empty string", "", false},
		{"spaces only", "   ", false},
		{"tabs and newlines", "\t\n", false},
		{"plain domain", "example.com", true},
		{"full URL", "https://www.badsite.example/login", true},
		{"malformed", "ht!tp:/??", true},
		{"padded", "  example.com  ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Submittable(tt.input); got != tt.want {
				t.Errorf("Submittable(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRequestForwardsRawText(t *testing.T) {
	req, ok := Request("  example.com/login ")
	if !ok {
		t.Fatal("Expected padded URL to be submittable")
	}
	if req.URL != "  example.com/login " {
		t.Errorf("Expected raw text to be forwarded unchanged, got %q", req.URL)
	}

	if _, ok := Request(""); ok {
		t.Error("Expected empty input to be rejected")
	}
}
