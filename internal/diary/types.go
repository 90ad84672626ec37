package diary

import (
	"encoding/json"
	"strings"
)

// Mood is the self-reported mood attached to an entry.
type Mood string

const (
	MoodVeryBad  Mood = "very_bad"
	MoodBad      Mood = "bad"
	MoodNeutral  Mood = "neutral"
	MoodGood     Mood = "good"
	MoodVeryGood Mood = "very_good"
)

// Moods lists every mood in display order.
var Moods = []Mood{MoodVeryBad, MoodBad, MoodNeutral, MoodGood, MoodVeryGood}

// Valid reports whether m is a known mood.
func (m Mood) Valid() bool {
	for _, known := range Moods {
		if m == known {
			return true
		}
	}
	return false
}

// Weather is the weather attached to an entry.
type Weather string

const (
	WeatherSunny  Weather = "sunny"
	WeatherCloudy Weather = "cloudy"
	WeatherRainy  Weather = "rainy"
	WeatherSnowy  Weather = "snowy"
)

// Weathers lists every weather value in display order.
var Weathers = []Weather{WeatherSunny, WeatherCloudy, WeatherRainy, WeatherSnowy}

// Valid reports whether w is a known weather value.
func (w Weather) Valid() bool {
	for _, known := range Weathers {
		if w == known {
			return true
		}
	}
	return false
}

// Meta carries the entry's mood and weather.
type Meta struct {
	Weather Weather `json:"weather"`
	Mood    Mood    `json:"mood"`
}

// NewEntry is the body of POST /entries/.
type NewEntry struct {
	Title        string `json:"title"`
	Meta         Meta   `json:"meta"`
	OriginalLang string `json:"original_lang"`
	OriginalText string `json:"original_text"`
	// Date pins the entry to a day other than today.
	Date string `json:"date,omitempty"`
}

// Entry is an entry as returned by the server.
type Entry struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title,omitempty"`
	Meta         *Meta     `json:"meta,omitempty"`
	OriginalLang string    `json:"original_lang"`
	OriginalText string    `json:"original_text"`
	Analysis     *Analysis `json:"analysis,omitempty"`
}

// Analyzed reports whether the server has attached analysis results.
func (e *Entry) Analyzed() bool {
	return e.Analysis != nil
}

// Analysis is server-computed feedback. Every part is optional.
type Analysis struct {
	Translation      *Translation `json:"translation,omitempty"`
	Corrections      *Corrections `json:"corrections,omitempty"`
	VocabSuggestions []Vocab      `json:"vocab_suggestions,omitempty"`
	Score            *float64     `json:"score,omitempty"`
	Model            string       `json:"model,omitempty"`
}

// Translation of the original text.
type Translation struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// Corrections proposed for the original text.
type Corrections struct {
	Corrected    string   `json:"corrected,omitempty"`
	Explanations []string `json:"explanations,omitempty"`
}

// Vocab is one suggested word.
type Vocab struct {
	Word      string `json:"word"`
	MeaningKo string `json:"meaning_ko,omitempty"`
	ExampleEn string `json:"example_en,omitempty"`
}

// ByDate is the reply of GET /entries/by-date/.
type ByDate struct {
	Exists bool      `json:"exists"`
	Entry  *EntryRef `json:"entry,omitempty"`
}

// EntryRef points at an entry by id.
type EntryRef struct {
	ID int64 `json:"id"`
}

// EntryID returns the referenced id, or 0.
func (b ByDate) EntryID() int64 {
	if b.Entry == nil {
		return 0
	}
	return b.Entry.ID
}

// Quote is a bilingual quote.
type Quote struct {
	En string `json:"en"`
	Ko string `json:"ko"`
}

// LoginRequest is the body of POST /accounts/login.
type LoginRequest struct {
	AuthorizationCode string `json:"authorizationCode"`
	Referrer          string `json:"referrer"`
}

// LoginResponse is the reply of POST /accounts/login.
type LoginResponse struct {
	JWT  string     `json:"jwt"`
	User *LoginUser `json:"user,omitempty"`
}

// LoginUser identifies the account. Servers send the key as either userKey
// or tossUserKey, as a string or a number.
type LoginUser struct {
	UserKey     json.RawMessage `json:"userKey,omitempty"`
	TossUserKey json.RawMessage `json:"tossUserKey,omitempty"`
}

// Key returns the user key as text, or "".
func (u *LoginUser) Key() string {
	if u == nil {
		return ""
	}
	for _, raw := range []json.RawMessage{u.UserKey, u.TossUserKey} {
		if k := rawKey(raw); k != "" {
			return k
		}
	}
	return ""
}

func rawKey(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return strings.Trim(string(raw), `"`)
}
