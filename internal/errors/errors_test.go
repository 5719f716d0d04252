package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/vango-dev/wiretap/pkg/protocol"
	"github.com/vango-dev/wiretap/pkg/session"
	"github.com/vango-dev/wiretap/pkg/store"
	"github.com/vango-dev/wiretap/pkg/tap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		wantMsg    string
		wantCat    Category
		wantStatus int
	}{
		{
			name:       "transport unavailable",
			code:       "W001",
			wantMsg:    "Transport unavailable",
			wantCat:    CategoryRuntime,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "protocol error",
			code:       "W040",
			wantMsg:    "Malformed frame",
			wantCat:    CategoryProtocol,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "store error",
			code:       "W120",
			wantMsg:    "Record not found",
			wantCat:    CategoryStore,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown error code",
			code:       "W999",
			wantMsg:    "Unknown error",
			wantCat:    "",
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
			if err.HTTPStatus() != tt.wantStatus {
				t.Errorf("HTTPStatus() = %d, want %d", err.HTTPStatus(), tt.wantStatus)
			}
		})
	}
}

func TestErrorString(t *testing.T) {
	err := New("W001")
	if got, want := err.Error(), "W001: Transport unavailable"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err.Wrap(stderrors.New("no capture"))
	if got, want := err.Error(), "W001: Transport unavailable: no capture"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	plain := Newf(CategoryCLI, "file %q not found", "x.json")
	if plain.Error() != `file "x.json" not found` {
		t.Errorf("Error() = %q", plain.Error())
	}
	if plain.HTTPStatus() != http.StatusInternalServerError {
		t.Errorf("HTTPStatus() = %d, want 500", plain.HTTPStatus())
	}
}

func TestUnwrap(t *testing.T) {
	err := New("W003").Wrap(session.ErrTransportUnavailable)
	if !stderrors.Is(err, session.ErrTransportUnavailable) {
		t.Error("errors.Is does not see the wrapped error")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "W001") != nil {
		t.Error("FromError(nil) != nil")
	}

	we := New("W120")
	wrapped := fmt.Errorf("outer: %w", we)
	if FromError(wrapped, "W001") != we {
		t.Error("FromError() did not return the existing WiretapError")
	}

	got := FromError(stderrors.New("boom"), "W121")
	if got.Code != "W121" || got.Wrapped == nil {
		t.Errorf("FromError() = %+v", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{session.ErrTransportUnavailable, "W001"},
		{fmt.Errorf("session: send: %w", tap.ErrClosed), "W001"},
		{fmt.Errorf("api: %w", session.ErrStateUnavailable), "W002"},
		{session.ErrEmptyStateCode, "W006"},
		{store.ErrEmptyStateCode, "W006"},
		{&protocol.ShortBufferError{Op: "ReadInt32", Need: 4}, "W040"},
		{protocol.ErrInvalidLength, "W041"},
		{protocol.ErrStringTooLong, "W042"},
		{fmt.Errorf("%w: abc", store.ErrNotFound), "W120"},
		{stderrors.New("disk full"), "W121"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := Classify(tt.err, "W121")
			if got.Code != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got.Code, tt.want)
			}
			if !stderrors.Is(got, tt.err) {
				t.Errorf("Classify(%v) lost the cause", tt.err)
			}
		})
	}

	if Classify(nil, "W121") != nil {
		t.Error("Classify(nil) != nil")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("W001").
		WithSuggestion("Connect a client first").
		Wrap(stderrors.New("nothing captured"))
	out := err.Format()

	for _, want := range []string{
		"ERROR W001: Transport unavailable",
		"No upstream connection has been observed yet",
		"Cause: nothing captured",
		"Hint: Connect a client first",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() contains ANSI codes with colors disabled")
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("W120").WithDetail(`id "x" has "quotes"`).Wrap(store.ErrNotFound)

	var decoded map[string]string
	if jerr := json.Unmarshal([]byte(err.FormatJSON()), &decoded); jerr != nil {
		t.Fatalf("FormatJSON() is not valid JSON: %v\n%s", jerr, err.FormatJSON())
	}
	if decoded["code"] != "W120" || decoded["category"] != "store" {
		t.Errorf("decoded = %v", decoded)
	}
	if decoded["detail"] != `id "x" has "quotes"` {
		t.Errorf("detail = %q", decoded["detail"])
	}
	if decoded["cause"] != store.ErrNotFound.Error() {
		t.Errorf("cause = %q", decoded["cause"])
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 30), 20)
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line %q longer than 20", l)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText(\"\") != nil")
	}
}

func TestRegistry(t *testing.T) {
	Register("W900", ErrorTemplate{Category: CategoryCLI, Message: "custom", Status: 418})
	defer delete(registry, "W900")

	if got := New("W900"); got.Message != "custom" || got.HTTPStatus() != 418 {
		t.Errorf("New(W900) = %+v", got)
	}
	if _, ok := GetTemplate("W001"); !ok {
		t.Error("GetTemplate(W001) missing")
	}
	for _, code := range GetAllCodes() {
		if !strings.HasPrefix(code, "W") {
			t.Errorf("code %q does not start with W", code)
		}
	}
}
