package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		wantMsg    string
		wantCat    Category
		wantStatus int
	}{
		{"not found", "N300", "Note not found", CategoryNotFound, http.StatusNotFound},
		{"validation override", "N200", "Invalid note", CategoryValidation, http.StatusUnprocessableEntity},
		{"empty update", "N201", "No fields to update", CategoryValidation, http.StatusBadRequest},
		{"summarizer", "N501", "Summarizer not configured", CategoryUpstream, http.StatusServiceUnavailable},
		{"unknown code", "N999", "Unknown error", CategoryInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Status() != tt.wantStatus {
				t.Errorf("Status() = %d, want %d", err.Status(), tt.wantStatus)
			}
		})
	}
}

func TestBuildersCopy(t *testing.T) {
	base := New("N300")
	derived := base.WithDetail("note 7").WithField("id").WithSuggestion("check the id")
	if base.WithStatus(http.StatusGone).Status() != http.StatusGone || base.Status() != http.StatusNotFound {
		t.Error("WithStatus should only change the copy")
	}

	if base.Detail != "" || base.Field != "" {
		t.Error("builders must not mutate the receiver")
	}
	if derived.Error() != "N300: Note not found: note 7" {
		t.Errorf("Error() = %q", derived.Error())
	}
}

func TestWrapAndIs(t *testing.T) {
	cause := stderrors.New("disk full")
	err := fmt.Errorf("saving: %w", New("N500").Wrap(cause))

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	if !stderrors.Is(err, New("N500")) {
		t.Error("errors.Is should match by code")
	}
	if stderrors.Is(err, New("N300")) {
		t.Error("different codes must not match")
	}
	if HTTPStatus(err) != http.StatusInternalServerError {
		t.Errorf("HTTPStatus = %d", HTTPStatus(err))
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil) != nil {
		t.Error("FromError(nil) should be nil")
	}

	coded := New("N301")
	if got := FromError(fmt.Errorf("wrap: %w", coded)); got != coded {
		t.Error("FromError should unwrap to the existing NotesError")
	}

	plain := FromError(stderrors.New("boom"))
	if plain.Code != "N500" || plain.Detail != "boom" {
		t.Errorf("FromError(plain) = %+v", plain)
	}
	if CodeOf(fmt.Errorf("x: %w", New("N202"))) != "N202" || CodeOf(nil) != "" {
		t.Error("CodeOf mismatch")
	}
	if HTTPStatus(stderrors.New("x")) != http.StatusInternalServerError {
		t.Error("plain errors map to 500")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	out := New("N501").WithDetail("no key").Format()
	for _, want := range []string{"ERROR N501: Summarizer not configured", "no key", "Hint: Set NOTES_GEMINI_API_KEY."} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}

	var buf bytes.Buffer
	Fprint(&buf, stderrors.New("plain"))
	if !strings.Contains(buf.String(), "ERROR: plain") {
		t.Errorf("Fprint() = %q", buf.String())
	}
}

func TestFormatJSON(t *testing.T) {
	got := New("N200").WithField("title").WithDetail("too short").FormatJSON()
	want := `{"code":"N200","category":"validation","message":"Invalid note","detail":"too short","field":"title"}`
	if got != want {
		t.Errorf("FormatJSON() = %s, want %s", got, want)
	}
}

func TestRegistry(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 || codes[0] != "N100" {
		t.Errorf("GetAllCodes() = %v", codes)
	}
	for _, code := range codes {
		tmpl, _ := GetTemplate(code)
		if tmpl.Message == "" || tmpl.Category == "" {
			t.Errorf("%s: incomplete template", code)
		}
	}
	if _, ok := GetTemplate("E001"); ok {
		t.Error("unexpected template")
	}
}
