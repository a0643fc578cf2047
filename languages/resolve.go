package languages

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// linguaFor maps registry codes to lingua's language identifiers. Codes
// without a mapping simply never win detection.
var linguaFor = map[string]lingua.Language{
	"hi": lingua.Hindi,
	"en": lingua.English,
	"bn": lingua.Bengali,
	"ta": lingua.Tamil,
	"mr": lingua.Marathi,
}

// Resolver picks the registry code for one request. The client hint is
// authoritative; detection of the message text is best-effort and the
// default code backstops everything.
type Resolver struct {
	registry *Registry
	detector lingua.LanguageDetector
}

// NewResolver builds a resolver whose detector is restricted to the
// registry's languages. Detection is disabled (always falling back to the
// default) when fewer than two registry languages are detectable.
func NewResolver(r *Registry) *Resolver {
	var candidates []lingua.Language
	for _, code := range r.Codes() {
		if l, ok := linguaFor[code]; ok {
			candidates = append(candidates, l)
		}
	}

	var detector lingua.LanguageDetector
	if len(candidates) >= 2 {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(candidates...).
			Build()
	}

	return &Resolver{registry: r, detector: detector}
}

// Resolve decides the language code for a chat turn.
//
// A non-empty hint is normalized and used; an unknown hint falls straight to
// the default rather than through detection, so clients get predictable
// behavior. Without a hint the message text is classified; the classifier is
// probabilistic and short or scriptless text may not resolve, in which case
// the default code is returned. Resolve never fails.
func (rv *Resolver) Resolve(hint, message string) string {
	if hint != "" {
		code := strings.ToLower(strings.TrimSpace(hint))
		if rv.registry.Has(code) {
			return code
		}
		return rv.registry.defaultCode
	}

	if rv.detector != nil && strings.TrimSpace(message) != "" {
		if lang, ok := rv.detector.DetectLanguageOf(message); ok {
			code := strings.ToLower(lang.IsoCode639_1().String())
			if rv.registry.Has(code) {
				return code
			}
		}
	}

	return rv.registry.defaultCode
}
