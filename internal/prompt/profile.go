package prompt

import (
	"strconv"
	"strings"
	"time"
)

// Profile carries optional structured facts about the requesting parent's
// family context. It is read-only input to the assembler; nothing in this
// package mutates it.
type Profile struct {
	// ChildBirthYear and ChildBirthMonth describe the child's birthdate as
	// decimal strings ("2017", "3"). They arrive as free-form user input, so
	// both may be empty or malformed.
	ChildBirthYear  string   `json:"childBirthYear,omitempty"`
	ChildBirthMonth string   `json:"childBirthMonth,omitempty"`
	Concerns        []string `json:"concerns,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	Facts           []string `json:"facts,omitempty"`
}

// Empty reports whether the profile carries no usable field at all.
func (p *Profile) Empty() bool {
	if p == nil {
		return true
	}
	if strings.TrimSpace(p.ChildBirthYear) != "" {
		return false
	}
	for _, c := range p.Concerns {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	if strings.TrimSpace(p.Notes) != "" {
		return false
	}
	for _, f := range p.Facts {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// childAge computes the child's age in whole years at time now.
// The month is optional; when present, the age is decremented if the current
// month precedes the birth month. Any parse failure yields ok=false so the
// caller omits the age line instead of propagating an error.
func (p *Profile) childAge(now time.Time) (years int, ok bool) {
	year, err := strconv.Atoi(strings.TrimSpace(p.ChildBirthYear))
	if err != nil || year < 1900 || year > now.Year() {
		return 0, false
	}

	years = now.Year() - year

	monthStr := strings.TrimSpace(p.ChildBirthMonth)
	if monthStr != "" {
		month, err := strconv.Atoi(monthStr)
		if err != nil || month < 1 || month > 12 {
			// A bad month does not invalidate a good year.
			return years, true
		}
		if int(now.Month()) < month {
			years--
		}
	}

	if years < 0 {
		return 0, false
	}
	return years, true
}
