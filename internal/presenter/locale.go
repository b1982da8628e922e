package presenter

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Locale holds resolved formatting conventions for dates, numbers and money.
type Locale struct {
	tag     language.Tag
	printer *message.Printer
}

// DetectLocale resolves the user's locale. A non-empty override (from
// config or STUDYSYNC_LOCALE) wins over LC_ALL, LC_TIME and LANG.
// Falls back to en-US if nothing is set or parseable.
func DetectLocale(override string) Locale {
	raw := override
	for _, key := range []string{"LC_ALL", "LC_TIME", "LANG"} {
		if raw != "" {
			break
		}
		raw = os.Getenv(key)
	}
	return NewLocale(raw)
}

// NewLocale creates a Locale from a POSIX locale string (e.g. "vi_VN.UTF-8")
// or BCP 47 tag (e.g. "vi-VN"). Returns en-US for empty or unparseable input.
func NewLocale(raw string) Locale {
	if idx := strings.IndexByte(raw, '.'); idx != -1 {
		raw = raw[:idx]
	}
	raw = strings.ReplaceAll(raw, "_", "-")

	tag, _ := language.Parse(raw)
	if tag == language.Und {
		tag = language.AmericanEnglish
	}

	return Locale{
		tag:     tag,
		printer: message.NewPrinter(tag),
	}
}

// Tag returns the resolved language tag.
func (l Locale) Tag() language.Tag {
	return l.tag
}

// FormatDate formats t as a locale-appropriate date string.
func (l Locale) FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(l.dateLayout())
}

// FormatNumber formats v with locale-appropriate grouping and decimal separators.
func (l Locale) FormatNumber(v float64) string {
	if v == float64(int64(v)) {
		return l.printer.Sprint(number.Decimal(int64(v)))
	}
	return l.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// FormatMoney formats a whole-unit amount followed by its ISO 4217 code.
// Plan prices are integer amounts; VND has no minor unit.
func (l Locale) FormatMoney(amount int64, code string) string {
	if code == "" {
		code = "VND"
	}
	if unit, err := currency.ParseISO(code); err == nil {
		code = unit.String()
	}
	return fmt.Sprintf("%s %s", l.FormatNumber(float64(amount)), strings.ToUpper(code))
}

func (l Locale) dateLayout() string {
	region, _ := l.tag.Region()
	if layout, ok := dateLayouts[region.String()]; ok {
		return layout
	}
	base, _ := l.tag.Base()
	if layout, ok := dateLayoutsByLang[base.String()]; ok {
		return layout
	}
	return layoutMDY
}

// Date layouts using Go's reference time.
const (
	layoutMDY    = "Jan 2, 2006"
	layoutDMY    = "2 Jan 2006"
	layoutDMYNum = "02/01/2006"
	layoutYMD    = "2006-01-02"
	layoutDMYDot = "2. Jan 2006"
)

var dateLayouts = map[string]string{
	"US": layoutMDY,
	"PH": layoutMDY,

	"VN": layoutDMYNum,
	"GB": layoutDMY,
	"AU": layoutDMY,
	"IN": layoutDMY,
	"FR": layoutDMY,
	"ES": layoutDMY,
	"IT": layoutDMY,
	"BR": layoutDMY,
	"NL": layoutDMY,

	"DE": layoutDMYDot,
	"AT": layoutDMYDot,
	"CH": layoutDMYDot,

	"JP": layoutYMD,
	"CN": layoutYMD,
	"KR": layoutYMD,
	"CA": layoutYMD,
}

var dateLayoutsByLang = map[string]string{
	"en": layoutMDY,
	"vi": layoutDMYNum,
	"de": layoutDMYDot,
	"fr": layoutDMY,
	"es": layoutDMY,
	"ja": layoutYMD,
	"zh": layoutYMD,
	"ko": layoutYMD,
}
