package analytics

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/vango-dev/notes/internal/notes"
)

type fakeSource struct {
	notes []notes.Note
	rev   uint64
	calls int
	err   error
}

func (f *fakeSource) List(ctx context.Context) ([]notes.Note, error) {
	f.calls++
	return f.notes, f.err
}

func (f *fakeSource) Revision() uint64 { return f.rev }

func TestComputeEmpty(t *testing.T) {
	r := Compute(nil, DefaultTopN, DefaultTopNotes)
	if r.TotalWordCount != 0 || r.AverageNoteLength != 0 || r.MedianNoteLength != 0 {
		t.Errorf("unexpected non-zero report: %+v", r)
	}
	if r.MostCommonWords == nil || r.CommonBigrams == nil || r.TopNotes.Longest == nil {
		t.Error("empty report lists must be non-nil for JSON")
	}
}

func TestCompute(t *testing.T) {
	list := []notes.Note{
		{ID: 1, Content: "the cat sat"},
		{ID: 2, Content: "The cat ran, the end"},
		{ID: 3, Content: "x"},
		{ID: 4, Content: "cat cat"},
	}

	r := Compute(list, 3, 2)

	if r.TotalWordCount != 3+5+1+2 {
		t.Errorf("TotalWordCount = %d, want 11", r.TotalWordCount)
	}
	if r.TotalCharacterCount != 11+20+1+7 {
		t.Errorf("TotalCharacterCount = %d, want 39", r.TotalCharacterCount)
	}
	if r.AverageNoteLength != 39.0/4 {
		t.Errorf("AverageNoteLength = %v", r.AverageNoteLength)
	}
	// Lengths 1, 7, 11, 20.
	if r.MedianNoteLength != 9 {
		t.Errorf("MedianNoteLength = %v, want 9", r.MedianNoteLength)
	}

	// "ran," is not alphanumeric and is skipped.
	wantWords := []string{"cat", "the", "sat"}
	if !reflect.DeepEqual(r.MostCommonWords, wantWords) {
		t.Errorf("MostCommonWords = %v, want %v", r.MostCommonWords, wantWords)
	}

	wantBigrams := []string{"the cat", "cat sat", "cat ran,"}
	if !reflect.DeepEqual(r.CommonBigrams, wantBigrams) {
		t.Errorf("CommonBigrams = %v, want %v", r.CommonBigrams, wantBigrams)
	}
	if r.CommonTrigrams[0] != "the cat sat" {
		t.Errorf("CommonTrigrams = %v", r.CommonTrigrams)
	}

	wantLongest := []NoteLength{{ID: 2, Length: 20}, {ID: 1, Length: 11}}
	wantShortest := []NoteLength{{ID: 3, Length: 1}, {ID: 4, Length: 7}}
	if !reflect.DeepEqual(r.TopNotes.Longest, wantLongest) {
		t.Errorf("Longest = %v, want %v", r.TopNotes.Longest, wantLongest)
	}
	if !reflect.DeepEqual(r.TopNotes.Shortest, wantShortest) {
		t.Errorf("Shortest = %v, want %v", r.TopNotes.Shortest, wantShortest)
	}
}

func TestComputeOddMedianAndRunes(t *testing.T) {
	r := Compute([]notes.Note{
		{ID: 1, Content: "äöü"},
		{ID: 2, Content: "a"},
		{ID: 3, Content: "hello"},
	}, DefaultTopN, DefaultTopNotes)

	if r.MedianNoteLength != 3 {
		t.Errorf("MedianNoteLength = %v, want 3", r.MedianNoteLength)
	}
	if r.TotalCharacterCount != 9 {
		t.Errorf("TotalCharacterCount = %d, want 9", r.TotalCharacterCount)
	}
	if len(r.TopNotes.Longest) != 3 {
		t.Errorf("Longest has %d entries", len(r.TopNotes.Longest))
	}
}

func TestServiceCaches(t *testing.T) {
	src := &fakeSource{notes: []notes.Note{{ID: 1, Content: "one two"}}}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := New(src, WithTTL(time.Minute), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	first, err := svc.Report(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := svc.Report(ctx)
	if first != second || src.calls != 1 {
		t.Errorf("expected cached report, calls = %d", src.calls)
	}

	// A new revision invalidates the cache.
	src.rev++
	src.notes = append(src.notes, notes.Note{ID: 2, Content: "three"})
	third, _ := svc.Report(ctx)
	if src.calls != 2 || third.TotalWordCount != 3 {
		t.Errorf("calls = %d, words = %d", src.calls, third.TotalWordCount)
	}

	// So does the TTL.
	now = now.Add(2 * time.Minute)
	svc.Report(ctx)
	if src.calls != 3 {
		t.Errorf("calls = %d after TTL, want 3", src.calls)
	}
}

func TestServiceError(t *testing.T) {
	boom := errors.New("boom")
	svc := New(&fakeSource{err: boom})
	if _, err := svc.Report(context.Background()); !errors.Is(err, boom) {
		t.Errorf("error = %v, want boom", err)
	}
}
