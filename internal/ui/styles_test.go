package ui

import "testing"

func TestNormalizeAccentColor(t *testing.T) {
	valid := map[string]string{
		"39":       "39",
		" 244 ":    "244",
		"#7AA2F7":  "#7aa2f7",
		"#abc":     "#aabbcc",
		"0":        "0",
		"255":      "255",
		"#A78BFA ": "#a78bfa",
	}
	for in, want := range valid {
		got, ok := normalizeAccentColor(in)
		if !ok || got != want {
			t.Errorf("normalizeAccentColor(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}

	for _, in := range []string{"", "none", "OFF", "default", "256", "-1", "#zzzzzz", "#abcd", "purple"} {
		if got, ok := normalizeAccentColor(in); ok {
			t.Errorf("normalizeAccentColor(%q) = %q, want rejected", in, got)
		}
	}
}

func TestConfigureTheme(t *testing.T) {
	prevStyle, prevColor := Accent, accentColor
	t.Cleanup(func() {
		Accent, accentColor = prevStyle, prevColor
	})

	if got, ok := AccentColor(); !ok || got != defaultAccent {
		t.Fatalf("AccentColor() = %q, %v before configuration", got, ok)
	}

	ConfigureTheme("#abc")
	if got, _ := AccentColor(); got != "#aabbcc" {
		t.Errorf("AccentColor() = %q after ConfigureTheme(#abc)", got)
	}

	ConfigureTheme("off")
	if _, ok := AccentColor(); ok {
		t.Error("expected accent to be disabled")
	}
	if Accent.Render("user") != "user" {
		t.Errorf("disabled accent should render plain text, got %q", Accent.Render("user"))
	}
}
