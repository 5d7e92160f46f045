// Package analytics computes corpus statistics over stored notes.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/vango-dev/notes/internal/notes"
)

const (
	// DefaultTopN is how many words and phrases a report lists.
	DefaultTopN = 10

	// DefaultTopNotes is how many longest and shortest notes a report lists.
	DefaultTopNotes = 3

	// DefaultTTL bounds how long a cached report is served.
	DefaultTTL = 5 * time.Minute
)

// Report is the analytics payload.
type Report struct {
	TotalWordCount      int      `json:"total_word_count"`
	AverageNoteLength   float64  `json:"average_note_length"`
	MostCommonWords     []string `json:"most_common_words"`
	TopNotes            TopNotes `json:"top_notes"`
	TotalCharacterCount int      `json:"total_character_count"`
	MedianNoteLength    float64  `json:"median_note_length"`
	CommonBigrams       []string `json:"common_bigrams"`
	CommonTrigrams      []string `json:"common_trigrams"`
}

// TopNotes lists the longest and shortest notes by content length.
type TopNotes struct {
	Longest  []NoteLength `json:"longest"`
	Shortest []NoteLength `json:"shortest"`
}

// NoteLength is a note id with its content length in characters.
type NoteLength struct {
	ID     int64 `json:"id"`
	Length int   `json:"length"`
}

// Source provides the notes to analyze. Revision must change whenever
// the notes do.
type Source interface {
	List(ctx context.Context) ([]notes.Note, error)
	Revision() uint64
}

// Service computes reports and caches the last one until the source
// revision moves or the TTL expires.
type Service struct {
	src      Source
	topN     int
	topNotes int
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu       sync.Mutex
	cached   *Report
	revision uint64
	expires  time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTopN sets how many words and phrases are listed.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithTTL sets how long a cached report may be served.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithClock overrides the time source used for the TTL.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Service over src.
func New(src Source, opts ...Option) *Service {
	s := &Service{
		src:      src,
		topN:     DefaultTopN,
		topNotes: DefaultTopNotes,
		ttl:      DefaultTTL,
		now:      time.Now,
		logger:   slog.Default().With("component", "analytics"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Report returns the current report, computing it if the cache is stale.
func (s *Service) Report(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rev := s.src.Revision()
	if s.cached != nil && rev == s.revision && s.now().Before(s.expires) {
		return s.cached, nil
	}

	list, err := s.src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("analytics: list notes: %w", err)
	}
	report := Compute(list, s.topN, s.topNotes)

	s.cached = report
	s.revision = rev
	s.expires = s.now().Add(s.ttl)
	s.logger.Debug("report computed", "notes", len(list), "revision", rev)
	return report, nil
}

// Compute builds a report over list. Lengths count characters (runes).
func Compute(list []notes.Note, topN, topNotes int) *Report {
	r := &Report{
		MostCommonWords: []string{},
		CommonBigrams:   []string{},
		CommonTrigrams:  []string{},
		TopNotes: TopNotes{
			Longest:  []NoteLength{},
			Shortest: []NoteLength{},
		},
	}
	if len(list) == 0 {
		return r
	}

	lengths := make([]NoteLength, 0, len(list))
	words := newCounter()
	bigrams := newCounter()
	trigrams := newCounter()

	for _, n := range list {
		length := utf8.RuneCountInString(n.Content)
		lengths = append(lengths, NoteLength{ID: n.ID, Length: length})
		r.TotalCharacterCount += length
		r.TotalWordCount += strings.Count(n.Content, " ") + 1

		tokens := tokenize(n.Content)
		for _, w := range tokens {
			if isAlnum(w) {
				words.add(w)
			}
		}
		for i := 0; i+1 < len(tokens); i++ {
			bigrams.add(tokens[i] + " " + tokens[i+1])
		}
		for i := 0; i+2 < len(tokens); i++ {
			trigrams.add(tokens[i] + " " + tokens[i+1] + " " + tokens[i+2])
		}
	}

	r.AverageNoteLength = float64(r.TotalCharacterCount) / float64(len(list))
	r.MedianNoteLength = median(lengths)
	r.MostCommonWords = words.top(topN)
	r.CommonBigrams = bigrams.top(topN)
	r.CommonTrigrams = trigrams.top(topN)
	r.TopNotes = topNotesOf(lengths, topNotes)
	return r
}

// tokenize lowercases content and splits it on spaces, dropping the
// empty tokens runs of spaces produce.
func tokenize(content string) []string {
	parts := strings.Split(strings.ToLower(content), " ")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func median(lengths []NoteLength) float64 {
	vals := make([]int, len(lengths))
	for i, l := range lengths {
		vals[i] = l.Length
	}
	sort.Ints(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return float64(vals[mid])
	}
	return float64(vals[mid-1]+vals[mid]) / 2
}

// topNotesOf picks the n longest and n shortest notes. Ties keep list
// order.
func topNotesOf(lengths []NoteLength, n int) TopNotes {
	longest := append([]NoteLength(nil), lengths...)
	sort.SliceStable(longest, func(i, j int) bool { return longest[i].Length > longest[j].Length })
	shortest := append([]NoteLength(nil), lengths...)
	sort.SliceStable(shortest, func(i, j int) bool { return shortest[i].Length < shortest[j].Length })
	return TopNotes{
		Longest:  longest[:min(n, len(longest))],
		Shortest: shortest[:min(n, len(shortest))],
	}
}

// counter counts strings and remembers first-seen order for ties.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(s string) {
	if _, ok := c.counts[s]; !ok {
		c.order = append(c.order, s)
	}
	c.counts[s]++
}

// top returns the n most frequent strings, most frequent first.
func (c *counter) top(n int) []string {
	keys := append([]string(nil), c.order...)
	sort.SliceStable(keys, func(i, j int) bool { return c.counts[keys[i]] > c.counts[keys[j]] })
	if len(keys) > n {
		keys = keys[:n]
	}
	if keys == nil {
		return []string{}
	}
	return keys
}
