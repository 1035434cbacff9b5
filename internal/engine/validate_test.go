package engine

import (
	"strings"
	"testing"
)

func TestValidateAccountName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid short", "bob", false},
		{"valid with digits", "bob42", false},
		{"valid hyphenated", "bob-jones", false},
		{"too short", "ab", true},
		{"too long", strings.Repeat("a", 17), true},
		{"max length", strings.Repeat("a", 16), false},
		{"uppercase", "Bob", true},
		{"leading digit", "1bob", true},
		{"leading hyphen", "-bob", true},
		{"underscore", "bob_jones", true},
		{"empty", "", true},
		{"spaces", "bob jones", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAccountName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAccountName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePostBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"normal", "hello world", false},
		{"empty", "", true},
		{"whitespace only", " \t\n ", true},
		{"at limit", strings.Repeat("x", PostBodyMax), false},
		{"over limit", strings.Repeat("x", PostBodyMax+1), true},
		// Multibyte runes count as one character each
		{"multibyte at limit", strings.Repeat("ü", PostBodyMax), false},
		{"multibyte over limit", strings.Repeat("ü", PostBodyMax+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePostBody(tt.body)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePostBody() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCommentBody(t *testing.T) {
	if err := ValidateCommentBody("fine"); err != nil {
		t.Errorf("valid comment rejected: %v", err)
	}
	if err := ValidateCommentBody(""); err == nil {
		t.Error("empty comment accepted")
	}
	if err := ValidateCommentBody(strings.Repeat("y", CommentBodyMax+1)); err == nil {
		t.Error("oversized comment accepted")
	}
}

func TestValidateMediaURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"empty is allowed", "", false},
		{"https", "https://cdn.example.com/a.png", false},
		{"http", "http://cdn.example.com/a.png", false},
		{"ftp", "ftp://cdn.example.com/a.png", true},
		{"relative", "/a.png", true},
		{"too long", "https://" + strings.Repeat("a", MediaURLMax), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMediaURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMediaURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestClampPageSize(t *testing.T) {
	tests := []struct {
		name string
		size int
		want int
	}{
		{"zero uses default", 0, 20},
		{"negative uses default", -5, 20},
		{"in range passes", 35, 35},
		{"above max clamps", 900, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampPageSize(tt.size, 20, 100); got != tt.want {
				t.Errorf("clampPageSize(%d) = %d, want %d", tt.size, got, tt.want)
			}
		})
	}
}
