package calendar

import (
	"strings"
	"testing"
	"time"
)

const sampleConfig = `{
	"Prompt": "A woodcut print of National {occasion} Day",
	"january": {"15": ["Hat", "Bagel"]},
	"october": {"31": ["Knock-Knock Jokes"]}
}`

func TestParseAndLookup(t *testing.T) {
	cal, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	occasions, err := cal.OccasionsFor("january", "15")
	if err != nil {
		t.Fatalf("OccasionsFor failed: %v", err)
	}
	if len(occasions) != 2 || occasions[0] != "Hat" || occasions[1] != "Bagel" {
		t.Errorf("unexpected occasions: %v", occasions)
	}
}

func TestLookupMissingMonthFailsLoudly(t *testing.T) {
	cal, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if _, err := cal.OccasionsFor("march", "9"); err == nil {
		t.Error("expected error for unknown month, got nil")
	}
	if _, err := cal.OccasionsFor("january", "16"); err == nil {
		t.Error("expected error for unknown day, got nil")
	}
}

func TestParseRejectsMalformedCalendar(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"month not an object", `{"january": "nope"}`},
		{"day not an array", `{"january": {"15": "Hat"}}`},
		{"empty day list", `{"january": {"15": []}}`},
		{"occasion not a string", `{"january": {"15": [15]}}`},
		{"not an object", `["january"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Errorf("expected validation error for %s", tt.data)
			}
		})
	}
}

func TestPromptFor(t *testing.T) {
	cal, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got := cal.PromptFor("Hat")
	want := "A woodcut print of National Hat Day"
	if got != want {
		t.Errorf("PromptFor(Hat) = %q, want %q", got, want)
	}
}

func TestPromptForDefaultsWhenTemplateMissing(t *testing.T) {
	cal, err := Parse([]byte(`{"january": {"15": ["Hat"]}}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got := cal.PromptFor("Hat")
	if !strings.HasPrefix(got, "National Hat Day, ") {
		t.Errorf("default prompt missing occasion prefix: %q", got)
	}
}

func TestPromptForSuffixTemplate(t *testing.T) {
	cal, err := Parse([]byte(`{"Prompt": "rendered in pastel colors", "january": {"15": ["Hat"]}}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got := cal.PromptFor("Hat")
	want := "National Hat Day, rendered in pastel colors"
	if got != want {
		t.Errorf("PromptFor(Hat) = %q, want %q", got, want)
	}
}

func TestMonthName(t *testing.T) {
	if got := MonthName(time.January); got != "january" {
		t.Errorf("MonthName(January) = %q", got)
	}
	if got := MonthName(time.December); got != "december" {
		t.Errorf("MonthName(December) = %q", got)
	}
}
