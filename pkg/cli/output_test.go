package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

// statusLine stands in for the status reports the CLI renders.
type statusLine struct {
	Period    string  `json:"period"`
	Level     string  `json:"level"`
	TotalCost float64 `json:"total_cost"`
}

func (s statusLine) String() string {
	return fmt.Sprintf("%s %s $%.2f", s.Period, s.Level, s.TotalCost)
}

func TestTextFormatterRendersStringer(t *testing.T) {
	st := statusLine{Period: "2025-02-01", Level: "alert", TotalCost: 16.0}

	out, err := (&TextFormatter{}).Format(st)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if got, want := string(out), "2025-02-01 alert $16.00\n"; got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestTextFormatterWritesToWriter(t *testing.T) {
	buf := &bytes.Buffer{}

	if err := (&TextFormatter{}).FormatTo(buf, "no ledger found"); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if got, want := buf.String(), "no ledger found\n"; got != want {
		t.Errorf("FormatTo() = %q, want %q", got, want)
	}
}

func TestJSONFormatterRoundTrips(t *testing.T) {
	st := statusLine{Period: "2025-02-01", Level: "shutdown", TotalCost: 36.0}

	out, err := (&JSONFormatter{Indent: true}).Format(st)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var decoded statusLine
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("Format() produced invalid JSON: %v", err)
	}
	if decoded != st {
		t.Errorf("round trip = %+v, want %+v", decoded, st)
	}
	if !strings.Contains(string(out), "\n") {
		t.Error("indented output should span multiple lines")
	}
}

func TestJSONFormatterCompact(t *testing.T) {
	out, err := (&JSONFormatter{}).Format(map[string]string{"level": "normal"})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if got, want := string(out), `{"level":"normal"}`; got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestJSONFormatterWritesToWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	st := statusLine{Period: "2025-02-02", Level: "normal"}

	if err := (&JSONFormatter{Indent: true}).FormatTo(buf, st); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var decoded statusLine
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("FormatTo() produced invalid JSON: %v", err)
	}
	if decoded.Period != "2025-02-02" {
		t.Errorf("Period = %q, want 2025-02-02", decoded.Period)
	}
}

func TestNewFormatterSelection(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON).(*JSONFormatter); !ok {
		t.Error("NewFormatter(json) did not return a JSONFormatter")
	}
	if _, ok := NewFormatter(FormatText).(*TextFormatter); !ok {
		t.Error("NewFormatter(text) did not return a TextFormatter")
	}
	if _, ok := NewFormatter("yaml").(*TextFormatter); !ok {
		t.Error("unknown formats should fall back to text")
	}
}
