// Package dates renders publication dates for display.
package dates

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/es"
	"github.com/go-playground/locales/pt_BR"
)

// DefaultLocale is the locale used when none is configured
const DefaultLocale = "pt_BR"

var translators = map[string]func() locales.Translator{
	"pt_BR": pt_BR.New,
	"en":    en.New,
	"es":    es.New,
}

// Formatter renders timestamps as "dd MMM yyyy" in a fixed locale.
type Formatter struct {
	translator locales.Translator
	location   *time.Location
}

// NewFormatter returns a formatter for the given locale and location.
// Unknown locales fall back to DefaultLocale, a nil location to UTC.
func NewFormatter(locale string, location *time.Location) *Formatter {
	newTranslator, ok := translators[locale]
	if !ok {
		newTranslator = translators[DefaultLocale]
	}
	if location == nil {
		location = time.UTC
	}
	return &Formatter{
		translator: newTranslator(),
		location:   location,
	}
}

// Format renders t as day, abbreviated month and year, e.g. "15 mar 2021".
// The zero time renders as an empty string.
func (f *Formatter) Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(f.location)

	// CLDR abbreviations carry a trailing dot in some locales ("mar.")
	month := strings.TrimSuffix(f.translator.MonthAbbreviated(t.Month()), ".")

	return fmt.Sprintf("%02d %s %04d", t.Day(), month, t.Year())
}

// Locale returns the locale name of the underlying translator
func (f *Formatter) Locale() string {
	return f.translator.Locale()
}
