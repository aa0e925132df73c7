package strutil

import (
	"math"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"empty string", "", 10, ""},
		{"zero max length", "hello", 0, ""},
		{"negative max length", "hello", -1, ""},
		{"shorter than max", "hello", 10, "hello"},
		{"exactly max", "hello", 5, "hello"},
		{"needs truncation", "hello world", 5, "hello..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.maxLen); got != tt.expected {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected float64
	}{
		{"identical", "danone yaourt nature", "danone yaourt nature", 1.0},
		{"disjoint", "danone yaourt", "delice fraise", 0.0},
		{"half overlap", "danone yaourt", "danone fraise", 1.0 / 3.0},
		{"empty left", "", "danone", 0.0},
		{"empty right", "danone", "", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Jaccard(tt.a, tt.b)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Jaccard(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestWordOverlap(t *testing.T) {
	// Tokens of length <= 3 are ignored on the reference side.
	got := WordOverlap("danone yaourt au lait", "danone yaourt nature", 3)
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("WordOverlap = %f, want 1.0 (short tokens ignored)", got)
	}

	got = WordOverlap("danone yaourt nature", "danone fraise", 3)
	if math.Abs(got-1.0/3.0) > 1e-9 {
		t.Errorf("WordOverlap = %f, want 1/3", got)
	}

	if got := WordOverlap("au de la", "anything", 3); got != 0 {
		t.Errorf("WordOverlap with no qualifying tokens = %f, want 0", got)
	}
}

func TestEditRatio(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		min  float64
		max  float64
	}{
		{"identical", "danone", "danone", 1.0, 1.0},
		{"both empty", "", "", 1.0, 1.0},
		{"one empty", "danone", "", 0.0, 0.0},
		{"single edit", "danone", "danune", 5.0 / 6.0, 5.0 / 6.0},
		{"unrelated", "danone", "zzzzzz", 0.0, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EditRatio(tt.a, tt.b)
			if got < tt.min-1e-9 || got > tt.max+1e-9 {
				t.Errorf("EditRatio(%q, %q) = %f, want in [%f, %f]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func TestEditRatio_Symmetric(t *testing.T) {
	a, b := "danone yaourt nature", "danone yaourt"
	if EditRatio(a, b) != EditRatio(b, a) {
		t.Error("EditRatio should be symmetric")
	}
}
