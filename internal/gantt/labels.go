package gantt

import (
	"strconv"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var monthNames = map[language.Tag][12]string{
	language.Italian: {"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
		"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre"},
	language.English: {"january", "february", "march", "april", "may", "june",
		"july", "august", "september", "october", "november", "december"},
	language.German: {"januar", "februar", "märz", "april", "mai", "juni",
		"juli", "august", "september", "oktober", "november", "dezember"},
	language.French: {"janvier", "février", "mars", "avril", "mai", "juin",
		"juillet", "août", "septembre", "octobre", "novembre", "décembre"},
	language.Spanish: {"enero", "febrero", "marzo", "abril", "mayo", "junio",
		"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
}

// Italian first: it is the fallback for unmatched tags.
var supportedLocales = []language.Tag{
	language.Italian,
	language.English,
	language.German,
	language.French,
	language.Spanish,
}

var localeMatcher = language.NewMatcher(supportedLocales)

// MonthLabeler renders "Month Year" headers for one locale. A nil labeler uses
// Italian.
type MonthLabeler struct {
	tag   language.Tag
	names [12]string
}

// NewMonthLabeler accepts a BCP 47 tag such as "it", "en-GB" or "de".
func NewMonthLabeler(locale string) *MonthLabeler {
	tag := language.Italian
	if parsed, err := language.Parse(locale); err == nil {
		_, idx, conf := localeMatcher.Match(parsed)
		if conf != language.No {
			tag = supportedLocales[idx]
		}
	}
	return &MonthLabeler{
		tag:   tag,
		names: monthNames[tag],
	}
}

func (l *MonthLabeler) Locale() string {
	if l == nil {
		return language.Italian.String()
	}
	return l.tag.String()
}

func (l *MonthLabeler) Label(d Date) string {
	if l == nil {
		l = defaultLabeler
	}
	if d.Month < time.January || d.Month > time.December {
		d = NewDate(d.Year, d.Month, 1)
	}
	// Casers are stateful; one per call keeps Label safe for concurrent use.
	return cases.Title(l.tag).String(l.names[d.Month-1] + " " + strconv.Itoa(d.Year))
}

var defaultLabeler = NewMonthLabeler("it")
