// Package modules provides the knowledge-module catalog.
//
// A module is a pre-authored block of domain knowledge that can be injected
// into the system prompt when the router decides it is relevant to the current
// turn. The set of module identifiers is a closed vocabulary: identifiers
// outside the set are never injected, regardless of what the classifier model
// returns.
//
// The catalog is static reference data. It is built once at package
// initialization and never mutated afterwards, which makes it safe for
// unlimited concurrent readers.
package modules

import (
	"sort"
	"strings"
)

// ID identifies one knowledge module. The valid values form a closed set; see
// All().
type ID string

// The full module vocabulary.
const (
	Sleep      ID = "sleep"
	School     ID = "school"
	Medication ID = "medication"
	Behavior   ID = "behavior"
	Emotions   ID = "emotions"
	Diagnosis  ID = "diagnosis"
)

// entry pairs a module's prompt content with the natural-language trigger
// description shown to the classifier.
type entry struct {
	trigger string
	content string
}

// catalog is the immutable module lookup table. Built once; read-only after
// package initialization.
var catalog = map[ID]entry{
	Sleep:      {trigger: sleepTrigger, content: sleepContent},
	School:     {trigger: schoolTrigger, content: schoolContent},
	Medication: {trigger: medicationTrigger, content: medicationContent},
	Behavior:   {trigger: behaviorTrigger, content: behaviorContent},
	Emotions:   {trigger: emotionsTrigger, content: emotionsContent},
	Diagnosis:  {trigger: diagnosisTrigger, content: diagnosisContent},
}

// All returns every valid module identifier in stable (sorted) order.
func All() []ID {
	ids := make([]ID, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Valid reports whether id belongs to the closed module vocabulary.
func Valid(id ID) bool {
	_, ok := catalog[id]
	return ok
}

// Content returns the knowledge block for id. ok is false for identifiers
// outside the vocabulary.
func Content(id ID) (content string, ok bool) {
	e, ok := catalog[id]
	return e.content, ok
}

// Trigger returns the classifier-facing trigger description for id.
func Trigger(id ID) (trigger string, ok bool) {
	e, ok := catalog[id]
	return e.trigger, ok
}

// Normalize lowercases and trims a raw identifier candidate so that minor
// classifier formatting noise ("Sleep", " sleep ") still matches.
func Normalize(raw string) ID {
	return ID(strings.ToLower(strings.TrimSpace(raw)))
}
