// Package languages holds the supported-locale table, the system prompt
// builder and the request language resolver for the election advisor.
package languages

import (
	"fmt"
	"sort"
)

// DefaultCode is the registry's primary language. Every lookup that cannot
// be satisfied resolves to it.
const DefaultCode = "hi"

// Entry describes one supported locale: the instruction fragment appended to
// the base system prompt and the refusal copy returned verbatim for
// off-topic queries.
type Entry struct {
	Code        string `yaml:"code"`
	Instruction string `yaml:"instruction"`
	Refusal     string `yaml:"refusal"`
}

// builtin is the shipped language table. A languages.yaml file given at
// startup replaces it (see Load).
var builtin = []Entry{
	{Code: "hi", Instruction: "Language: Respond in simple, clear Hindi.", Refusal: "🚫 *माफ करें, मैं इस बारे में नहीं जानता।*"},
	{Code: "en", Instruction: "Language: Respond in simple, clear English.", Refusal: "🚫 *Sorry, I do not have information on that topic.*"},
	{Code: "bn", Instruction: "Language: Respond in simple, clear Bengali.", Refusal: "🚫 *দুঃখিত, আমি এই বিষয়ে জানি না।*"},
	{Code: "ta", Instruction: "Language: Respond in simple, clear Tamil.", Refusal: "🚫 *மன்னிக்கவும், எனக்கு அதைப் பற்றித் தெரியாது.*"},
	{Code: "mr", Instruction: "Language: Respond in simple, clear Marathi.", Refusal: "🚫 *माफ करा, मला याबद्दल माहिती नाही.*"},
}

// Registry is an immutable code-to-Entry mapping with a guaranteed default
// entry. It is built once at startup and validated up front so a malformed
// table fails the process instead of a request.
type Registry struct {
	entries     map[string]Entry
	defaultCode string
}

// NewRegistry returns a registry backed by the built-in language table.
func NewRegistry() *Registry {
	r, err := newRegistry(builtin, DefaultCode)
	if err != nil {
		// The built-in table is compile-time data; a validation failure
		// here is a programming error.
		panic(err)
	}
	return r
}

func newRegistry(entries []Entry, defaultCode string) (*Registry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("language table is empty")
	}

	m := make(map[string]Entry, len(entries))
	for i, e := range entries {
		if e.Code == "" {
			return nil, fmt.Errorf("language entry %d: missing code", i)
		}
		if e.Instruction == "" {
			return nil, fmt.Errorf("language %q: missing instruction", e.Code)
		}
		if e.Refusal == "" {
			return nil, fmt.Errorf("language %q: missing refusal text", e.Code)
		}
		if _, dup := m[e.Code]; dup {
			return nil, fmt.Errorf("language %q: duplicate code", e.Code)
		}
		m[e.Code] = e
	}

	if _, ok := m[defaultCode]; !ok {
		return nil, fmt.Errorf("default language %q not present in table", defaultCode)
	}

	return &Registry{entries: m, defaultCode: defaultCode}, nil
}

// Lookup returns the entry for code, or the default entry when the code is
// unknown. It never fails.
func (r *Registry) Lookup(code string) Entry {
	if e, ok := r.entries[code]; ok {
		return e
	}
	return r.entries[r.defaultCode]
}

// Has reports whether code is present in the table.
func (r *Registry) Has(code string) bool {
	_, ok := r.entries[code]
	return ok
}

// Default returns the code every fallback path resolves to.
func (r *Registry) Default() string {
	return r.defaultCode
}

// Codes returns the supported codes in sorted order.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.entries))
	for c := range r.entries {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
