// Package lang validates transcription language codes.
package lang

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// validLanguages contains the ISO 639-1 codes accepted by the transcription
// providers. Regional variants are allowed when their base is listed.
var validLanguages = map[string]bool{
	"af": true, // Afrikaans
	"ar": true, // Arabic
	"bg": true, // Bulgarian
	"bn": true, // Bengali
	"ca": true, // Catalan
	"cs": true, // Czech
	"da": true, // Danish
	"de": true, // German
	"el": true, // Greek
	"en": true, // English
	"es": true, // Spanish
	"et": true, // Estonian
	"fa": true, // Persian
	"fi": true, // Finnish
	"fr": true, // French
	"gu": true, // Gujarati
	"he": true, // Hebrew
	"hi": true, // Hindi
	"hr": true, // Croatian
	"hu": true, // Hungarian
	"id": true, // Indonesian
	"it": true, // Italian
	"ja": true, // Japanese
	"kn": true, // Kannada
	"ko": true, // Korean
	"lt": true, // Lithuanian
	"lv": true, // Latvian
	"mk": true, // Macedonian
	"ml": true, // Malayalam
	"mr": true, // Marathi
	"ms": true, // Malay
	"nl": true, // Dutch
	"no": true, // Norwegian
	"pa": true, // Punjabi
	"pl": true, // Polish
	"pt": true, // Portuguese
	"ro": true, // Romanian
	"ru": true, // Russian
	"sk": true, // Slovak
	"sl": true, // Slovenian
	"sr": true, // Serbian
	"sv": true, // Swedish
	"sw": true, // Swahili
	"ta": true, // Tamil
	"te": true, // Telugu
	"th": true, // Thai
	"tl": true, // Tagalog
	"tr": true, // Turkish
	"uk": true, // Ukrainian
	"ur": true, // Urdu
	"vi": true, // Vietnamese
	"zh": true, // Chinese
}

// DefaultCode is the language used when none is configured.
const DefaultCode = "en"

// Language is a validated language tag. The zero value means "not specified".
type Language struct {
	tag language.Tag
}

// Normalize lowercases a code and uses hyphen separators.
// Accepts: "pt-BR", "pt_BR", "PT-BR", "pt-br" -> "pt-br"
func Normalize(code string) string {
	return strings.ToLower(strings.ReplaceAll(code, "_", "-"))
}

// Parse validates code as an ISO 639-1 language, optionally with a region
// or script ("pt-BR", "zh-Hans"). An empty code returns the zero Language.
func Parse(code string) (Language, error) {
	if code == "" {
		return Language{}, nil
	}

	normalized := Normalize(code)
	primary, _, _ := strings.Cut(normalized, "-")
	if len(primary) != 2 || !validLanguages[primary] {
		return Language{}, invalid(code)
	}

	tag, err := language.Parse(normalized)
	if err != nil {
		return Language{}, invalid(code)
	}
	return Language{tag: tag}, nil
}

func invalid(code string) error {
	return fmt.Errorf("invalid language code %q (use ISO 639-1 codes like 'en', 'fr', 'pt-BR'): %w",
		code, ErrInvalid)
}

// MustParse is like Parse but panics on invalid input.
// Intended for package-level values and tests.
func MustParse(code string) Language {
	l, err := Parse(code)
	if err != nil {
		panic(err)
	}
	return l
}

// Default is the parsed DefaultCode.
var Default = MustParse(DefaultCode)

// Validate reports whether code would be accepted by Parse.
func Validate(code string) error {
	_, err := Parse(code)
	return err
}

// IsZero reports whether no language was specified.
func (l Language) IsZero() bool {
	return l.tag == language.Und
}

// String returns the canonical BCP 47 form ("pt-BR"), or "" for the zero value.
func (l Language) String() string {
	if l.IsZero() {
		return ""
	}
	return l.tag.String()
}

// BaseCode returns the ISO 639-1 base language ("pt-BR" -> "pt").
func (l Language) BaseCode() string {
	if l.IsZero() {
		return ""
	}
	base, _ := l.tag.Base()
	return base.String()
}

// Region returns the ISO 3166 region code, or "" when the tag has none.
func (l Language) Region() string {
	if l.IsZero() {
		return ""
	}
	region, conf := l.tag.Region()
	if conf != language.Exact {
		return ""
	}
	return region.String()
}

// DisplayName returns the English name of the language ("Brazilian Portuguese").
func (l Language) DisplayName() string {
	if l.IsZero() {
		return ""
	}
	if name := display.English.Tags().Name(l.tag); name != "" {
		return name
	}
	return l.String()
}
