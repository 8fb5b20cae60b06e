// Package calendar holds the national-day occasion calendar and the image
// prompt template, loaded from a configuration object in the image bucket.
package calendar

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultPrompt is used when the configuration object carries no prompt
// template of its own. {occasion} is replaced with the occasion name.
const DefaultPrompt = "National {occasion} Day, but with a nightmarish, horrifyingly evil twist. " +
	"The image should be dark, evil, terrifying, and induce a sense of dread in the viewer. " +
	"Do not adjust this prompt in any way."

// OccasionPlaceholder is the substitution token recognized in prompt templates.
const OccasionPlaceholder = "{occasion}"

var monthNames = map[time.Month]string{
	time.January:   "january",
	time.February:  "february",
	time.March:     "march",
	time.April:     "april",
	time.May:       "may",
	time.June:      "june",
	time.July:      "july",
	time.August:    "august",
	time.September: "september",
	time.October:   "october",
	time.November:  "november",
	time.December:  "december",
}

// MonthName returns the lowercase english month key used by the calendar
func MonthName(m time.Month) string {
	return monthNames[m]
}

// Calendar maps month name -> day of month (as a string) -> ordered occasion
// names. Immutable once parsed.
type Calendar struct {
	prompt string
	months map[string]map[string][]string
}

// Parse validates and decodes a calendar configuration object. The blob is an
// object whose "Prompt" member is the prompt template and whose remaining
// members are month entries: {"Prompt": "...", "january": {"15": ["Hat"]}}
func Parse(data []byte) (*Calendar, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse calendar: %w", err)
	}

	cal := &Calendar{months: make(map[string]map[string][]string, len(raw))}
	for key, value := range raw {
		if key == "Prompt" {
			if err := json.Unmarshal(value, &cal.prompt); err != nil {
				return nil, fmt.Errorf("failed to parse prompt template: %w", err)
			}
			continue
		}
		var days map[string][]string
		if err := json.Unmarshal(value, &days); err != nil {
			return nil, fmt.Errorf("failed to parse month %q: %w", key, err)
		}
		cal.months[key] = days
	}
	return cal, nil
}

// OccasionsFor returns the occasions scheduled for the given month name and
// day-of-month key. An unknown month or day is a loud error, never an empty
// list: silent omission would be indistinguishable from "no occasions today".
func (c *Calendar) OccasionsFor(month, day string) ([]string, error) {
	days, ok := c.months[month]
	if !ok {
		return nil, fmt.Errorf("no calendar entry for month %q", month)
	}
	occasions, ok := days[day]
	if !ok {
		return nil, fmt.Errorf("no calendar entry for %s %s", month, day)
	}
	return occasions, nil
}

// PromptFor builds the generation prompt for an occasion from the calendar's
// template, falling back to DefaultPrompt when the template is empty
func (c *Calendar) PromptFor(occasion string) string {
	template := c.prompt
	if template == "" {
		template = DefaultPrompt
	}
	if strings.Contains(template, OccasionPlaceholder) {
		return strings.ReplaceAll(template, OccasionPlaceholder, occasion)
	}
	// Templates without a placeholder are treated as a style suffix, the way
	// the original configuration objects were written.
	return fmt.Sprintf("National %s Day, %s", occasion, template)
}
