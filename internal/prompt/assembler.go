// Package prompt composes the system instructions sent to the upstream
// completion service.
//
// Composition order is fixed and append-only: base behavioral prompt, then one
// block per identified knowledge module, then the static guidance sections,
// then the family-context section. Module blocks and family context are the
// only conditional sections; both are omitted when empty. Assembly is
// deterministic: identical inputs produce byte-identical output.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/asterhq/aster/internal/modules"
)

// Assembler builds system prompts. The zero value is not usable; construct
// with New.
type Assembler struct {
	// now is injectable so tests can pin the clock the age computation reads.
	now func() time.Time
}

// New creates an Assembler using the wall clock.
func New() *Assembler {
	return NewWithClock(time.Now)
}

// NewWithClock creates an Assembler with a fixed clock source. Tests use this
// to make age computation reproducible.
func NewWithClock(now func() time.Time) *Assembler {
	return &Assembler{now: now}
}

// Assemble composes the full system prompt for one chat turn.
// ids must already be filtered to the closed module vocabulary; unknown
// identifiers are skipped here as a second line of defense, never injected.
func (a *Assembler) Assemble(profile *Profile, ids []modules.ID) string {
	var b strings.Builder

	b.WriteString(basePrompt)

	for _, id := range ids {
		content, ok := modules.Content(id)
		if !ok {
			continue
		}
		b.WriteString("\n\n## Module: ")
		b.WriteString(string(id))
		b.WriteString("\n")
		b.WriteString(content)
	}

	b.WriteString("\n\n")
	b.WriteString(valuePreviewGuidance)
	b.WriteString("\n\n")
	b.WriteString(planGuidance)
	b.WriteString("\n\n")
	b.WriteString(markerGuidance)

	if ctx := a.familyContext(profile); ctx != "" {
		b.WriteString("\n\n")
		b.WriteString(ctx)
	}

	return b.String()
}

// familyContext renders the user-context section, or "" when the profile has
// nothing to contribute. Missing fields are omitted individually rather than
// replaced with placeholders.
func (a *Assembler) familyContext(profile *Profile) string {
	if profile.Empty() {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Family context\n")

	if age, ok := profile.childAge(a.now()); ok {
		fmt.Fprintf(&b, "The child is %d years old.\n", age)
	}

	if concerns := nonEmpty(profile.Concerns); len(concerns) > 0 {
		b.WriteString("Stated concerns:\n")
		for _, c := range concerns {
			b.WriteString("- ")
			b.WriteString(c)
			b.WriteString("\n")
		}
	}

	if notes := strings.TrimSpace(profile.Notes); notes != "" {
		b.WriteString("Family notes: ")
		b.WriteString(notes)
		b.WriteString("\n")
	}

	if facts := nonEmpty(profile.Facts); len(facts) > 0 {
		b.WriteString("Previously learned:\n")
		for _, f := range facts {
			b.WriteString("- ")
			b.WriteString(f)
			b.WriteString("\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// nonEmpty trims each entry and drops blank ones, preserving order.
func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
