package output

import (
	"testing"
)

func TestColorSchemes(t *testing.T) {
	for name, scheme := range map[string]*ColorScheme{
		"default": DefaultColorScheme(),
		"none":    NoColorScheme(),
		"forced":  ForcedColorScheme(),
	} {
		for i, c := range scheme.all() {
			if c == nil {
				t.Errorf("%s scheme: color %d should not be nil", name, i)
			}
		}
	}
}

func TestNoColorSchemeIsPlain(t *testing.T) {
	scheme := NoColorScheme()
	if got := scheme.Error.Sprint("boom"); got != "boom" {
		t.Errorf("Error.Sprint() = %q, want plain text", got)
	}
	if got := scheme.Title.Sprintf("%d users", 4); got != "4 users" {
		t.Errorf("Title.Sprintf() = %q, want plain text", got)
	}
}

func TestForcedColorSchemeEmitsEscapes(t *testing.T) {
	scheme := ForcedColorScheme()
	got := scheme.Success.Sprint("ok")
	if got == "ok" {
		t.Error("expected ANSI codes around text")
	}
	if stripANSI(got) != "ok" {
		t.Errorf("stripANSI(%q) = %q, want %q", got, stripANSI(got), "ok")
	}
}

func TestRatioColor(t *testing.T) {
	scheme := DefaultColorScheme()
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "success"},
		{0.01, "success"},
		{0.02, "warning"},
		{0.05, "warning"},
		{0.5, "error"},
	}
	byName := map[string]any{
		"success": scheme.Success,
		"warning": scheme.Warning,
		"error":   scheme.Error,
	}
	for _, tt := range tests {
		if got := scheme.ratioColor(tt.ratio); got != byName[tt.want] {
			t.Errorf("ratioColor(%v) is not the %s color", tt.ratio, tt.want)
		}
	}
}
