package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		cents   int64
	}{
		{"number amount", `{"amount":12.5,"date":"2025-08-26"}`, nil, 1250},
		{"string amount", `{"amount":"12,50","date":"2025-08-26"}`, nil, 1250},
		{"bad amount", `{"amount":"twelve"}`, core.ErrInvalidAmount, 0},
		{"bad date", `{"amount":1,"date":"2025-13-45"}`, core.ErrInvalidDate, 0},
		{"unknown field", `{"amount":1,"note":"x"}`, errBadBody, 0},
		{"trailing data", `{"amount":1}{"amount":2}`, errBadBody, 0},
		{"not json", `amount=1`, errBadBody, 0},
		{"wrong type", `{"description":5}`, errBadBody, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var req transactionRequest
			err := DecodeJSON(r, &req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.Amount.Cents != tt.cents {
				t.Errorf("cents = %d, want %d", req.Amount.Cents, tt.cents)
			}
		})
	}
}

func TestDecodeJSON_EmptyBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	var req categoryRequest
	if err := DecodeJSON(r, &req); !errors.Is(err, errBadBody) {
		t.Errorf("err = %v, want errBadBody", err)
	}
}

func TestQueryDate(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?date=2025-08-26", nil)
	d, err := QueryDate(r, "date", true)
	if err != nil || !d.Equal(core.NewDate(2025, 8, 26)) {
		t.Errorf("QueryDate = %v, %v", d, err)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	if d, err := QueryDate(r, "date", false); err != nil || d.Valid() {
		t.Errorf("optional missing date = %v, %v", d, err)
	}
	if _, err := QueryDate(r, "date", true); !errors.Is(err, errBadBody) {
		t.Errorf("required missing date err = %v", err)
	}

	r = httptest.NewRequest(http.MethodGet, "/?date=tomorrow", nil)
	if _, err := QueryDate(r, "date", false); !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("invalid date err = %v", err)
	}
}

func TestRequestConversions(t *testing.T) {
	cat, err := categoryRequest{Name: " Books\x00 ", Type: "Expense"}.toCategory()
	if err != nil {
		t.Fatalf("toCategory: %v", err)
	}
	if cat.Name != "Books" || cat.Kind != core.Expense {
		t.Errorf("category = %+v", cat)
	}
	if _, err := (categoryRequest{Name: "x", Type: "debt"}).toCategory(); !errors.Is(err, core.ErrInvalidKind) {
		t.Errorf("bad kind err = %v", err)
	}

	name := "  Trip\x07 "
	upd := goalPatchRequest{Name: &name}.toUpdate()
	if upd.Name == nil || *upd.Name != "Trip" || upd.Target != nil || upd.Deadline != nil {
		t.Errorf("update = %+v", upd)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  hello  ", "hello"},
		{"a\x00b\x1fc", "abc"},
		{"line\nbreak\ttab", "line\nbreak\ttab"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
