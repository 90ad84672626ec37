package submission

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MinTitleRunes is the minimum trimmed title length.
	MinTitleRunes = 2
	// MinBodyRunes is the minimum trimmed body length.
	MinBodyRunes = 50
)

// Check inspects one aspect of a draft.
type Check interface {
	Name() string
	Check(d Draft) []Violation
}

// DefaultChecks returns the draft checks in reporting order.
func DefaultChecks() []Check {
	return []Check{
		lengthCheck{field: FieldTitle, min: MinTitleRunes},
		scriptCheck{field: FieldTitle},
		scriptCheck{field: FieldBody},
		lengthCheck{field: FieldBody, min: MinBodyRunes},
		metaCheck{},
	}
}

// Validate runs every check and collects all violations.
func Validate(d Draft, checks ...Check) ValidationResult {
	if len(checks) == 0 {
		checks = DefaultChecks()
	}
	var out ValidationResult
	for _, c := range checks {
		out = append(out, c.Check(d)...)
	}
	return out
}

func fieldValue(d Draft, f Field) string {
	switch f {
	case FieldTitle:
		return d.Title
	case FieldBody:
		return d.Body
	default:
		return ""
	}
}

type lengthCheck struct {
	field Field
	min   int
}

func (c lengthCheck) Name() string { return string(c.field) + "-length" }

func (c lengthCheck) Check(d Draft) []Violation {
	if utf8.RuneCountInString(strings.TrimSpace(fieldValue(d, c.field))) < c.min {
		return []Violation{{Field: c.field, Kind: TooShort}}
	}
	return nil
}

// scriptCheck rejects Hangul jamo, compatibility jamo and syllables.
type scriptCheck struct {
	field Field
}

func (c scriptCheck) Name() string { return string(c.field) + "-script" }

func (c scriptCheck) Check(d Draft) []Violation {
	if ContainsHangul(fieldValue(d, c.field)) {
		return []Violation{{Field: c.field, Kind: DisallowedScript}}
	}
	return nil
}

// ContainsHangul reports whether s has any Hangul character.
func ContainsHangul(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.Is(unicode.Hangul, r)
	}) >= 0
}

type metaCheck struct{}

func (metaCheck) Name() string { return "meta" }

func (metaCheck) Check(d Draft) []Violation {
	var out []Violation
	if !d.Mood.Valid() {
		out = append(out, Violation{Field: FieldMood, Kind: UnknownValue})
	}
	if !d.Weather.Valid() {
		out = append(out, Violation{Field: FieldWeather, Kind: UnknownValue})
	}
	return out
}
