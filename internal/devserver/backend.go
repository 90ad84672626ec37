package devserver

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/fyrsmithlabs/daybook/internal/diary"
	"github.com/google/uuid"
)

// DateLayout is the date key format used on the wire.
const DateLayout = "2006-01-02"

// Backend is the in-memory state behind the dev server.
type Backend struct {
	mu     sync.Mutex
	now    func() time.Time
	nextID int64
	tokens map[string]string // bearer -> user key
	// entries and dates are keyed per user.
	entries map[int64]*stored
	dates   map[string]int64 // user|date -> id
	quotes  []diary.Quote
}

type stored struct {
	owner string
	date  string
	entry diary.Entry
}

// NewBackend creates an empty backend.
func NewBackend() *Backend {
	return &Backend{
		now:     time.Now,
		nextID:  1,
		tokens:  make(map[string]string),
		entries: make(map[int64]*stored),
		dates:   make(map[string]int64),
		quotes: []diary.Quote{
			{En: "The secret of getting ahead is getting started.", Ko: "앞서 나가는 비결은 시작하는 것이다."},
			{En: "Little by little, one travels far.", Ko: "조금씩 나아가면 멀리 갈 수 있다."},
			{En: "Every day is a new beginning.", Ko: "매일이 새로운 시작이다."},
		},
	}
}

// IssueToken registers token for userKey. An empty token gets a random one.
func (b *Backend) IssueToken(token, userKey string) string {
	if token == "" {
		token = "dev-" + uuid.NewString()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[token] = userKey
	return token
}

// RevokeToken forgets token.
func (b *Backend) RevokeToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tokens, token)
}

func (b *Backend) user(token string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.tokens[token]
	return u, ok
}

// SetQuotes replaces the quote list.
func (b *Backend) SetQuotes(q []diary.Quote) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quotes = append([]diary.Quote(nil), q...)
}

// Quotes returns the quote list.
func (b *Backend) Quotes() []diary.Quote {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]diary.Quote{}, b.quotes...)
}

// fieldErrors is a validation-error payload: field -> messages.
type fieldErrors map[string][]string

func (b *Backend) create(owner string, in diary.NewEntry) (*diary.Entry, fieldErrors) {
	errs := fieldErrors{}
	if strings.TrimSpace(in.Title) == "" {
		errs["title"] = []string{"This field may not be blank."}
	} else if len([]rune(in.Title)) > 100 {
		errs["title"] = []string{"Ensure this field has no more than 100 characters."}
	}
	if strings.TrimSpace(in.OriginalText) == "" {
		errs["original_text"] = []string{"This field may not be blank."}
	}
	if in.OriginalLang != "en" {
		errs["original_lang"] = []string{fmt.Sprintf("%q is not a valid choice.", in.OriginalLang)}
	}
	if !in.Meta.Mood.Valid() || !in.Meta.Weather.Valid() {
		errs["meta"] = []string{"Invalid mood or weather."}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	date := in.Date
	if date == "" {
		date = b.now().Format(DateLayout)
	} else if _, err := time.Parse(DateLayout, date); err != nil {
		errs["date"] = []string{"Date has wrong format. Use YYYY-MM-DD."}
	}
	if _, taken := b.dates[owner+"|"+date]; taken && errs["date"] == nil {
		errs["date"] = []string{"An entry for this date already exists."}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	meta := in.Meta
	s := &stored{
		owner: owner,
		date:  date,
		entry: diary.Entry{
			ID:           b.nextID,
			Title:        strings.TrimSpace(in.Title),
			Meta:         &meta,
			OriginalLang: in.OriginalLang,
			OriginalText: in.OriginalText,
		},
	}
	b.nextID++
	b.entries[s.entry.ID] = s
	b.dates[owner+"|"+date] = s.entry.ID

	out := s.entry
	return &out, nil
}

func (b *Backend) get(owner string, id int64) (*diary.Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.entries[id]
	if !ok || s.owner != owner {
		return nil, false
	}
	out := s.entry
	return &out, true
}

func (b *Backend) analyze(owner string, id int64) (*diary.Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.entries[id]
	if !ok || s.owner != owner {
		return nil, false
	}
	s.entry.Analysis = analyze(s.entry.OriginalText)
	out := s.entry
	return &out, true
}

func (b *Backend) byDate(owner, date string) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.dates[owner+"|"+date]
	return id, ok
}

func (b *Backend) calendar(owner, month string) map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]int)
	for _, s := range b.entries {
		if s.owner == owner && strings.HasPrefix(s.date, month+"-") {
			out[s.date]++
		}
	}
	return out
}

// analyze produces a deterministic stand-in for model feedback.
func analyze(text string) *diary.Analysis {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	longest := append([]string(nil), words...)
	sort.SliceStable(longest, func(i, j int) bool { return len(longest[i]) > len(longest[j]) })
	var vocab []diary.Vocab
	for _, w := range longest {
		if len(vocab) == 3 {
			break
		}
		vocab = append(vocab, diary.Vocab{Word: strings.ToLower(w), ExampleEn: text})
	}

	score := float64(len(words)) / 2
	if score > 10 {
		score = 10
	}

	corrected := strings.TrimSpace(text)
	var explanations []string
	if corrected != "" && unicode.IsLower([]rune(corrected)[0]) {
		r := []rune(corrected)
		r[0] = unicode.ToUpper(r[0])
		corrected = string(r)
		explanations = append(explanations, "Start the first sentence with a capital letter.")
	}

	return &diary.Analysis{
		Translation:      &diary.Translation{To: "ko", Text: "[ko] " + text},
		Corrections:      &diary.Corrections{Corrected: corrected, Explanations: explanations},
		VocabSuggestions: vocab,
		Score:            &score,
		Model:            "devserver",
	}
}
