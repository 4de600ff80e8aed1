package hardware

import (
	"errors"
	"testing"

	"github.com/authintegrate/authintegrate/internal/store"
)

func TestParseLine(t *testing.T) {
	ev, err := ParseLine("REG,5,55,123456")
	if err != nil {
		t.Fatalf("parse REG: %v", err)
	}
	if ev.Command != CommandRegister || *ev.UserID != 5 || *ev.FingerID != 55 || ev.Password != "123456" || ev.Result != store.OutcomeRegistered {
		t.Fatalf("unexpected REG event: %+v", ev)
	}

	ev, err = ParseLine("login, 5, granted, front door, level 2\r")
	if err != nil {
		t.Fatalf("parse LOGIN: %v", err)
	}
	if ev.Command != CommandLogin || *ev.UserID != 5 || ev.Result != store.OutcomeGranted || ev.Note != "front door, level 2" {
		t.Fatalf("unexpected LOGIN event: %+v", ev)
	}

	ev, err = ParseLine(`{"command":"login","userId":3,"result":"denied"}`)
	if err != nil {
		t.Fatalf("parse JSON line: %v", err)
	}
	if ev.Command != CommandLogin || *ev.UserID != 3 || ev.Result != store.OutcomeDenied {
		t.Fatalf("unexpected JSON event: %+v", ev)
	}
}

func TestParseLineSkipsAndRejects(t *testing.T) {
	for _, line := range []string{"", "   ", "# boot banner"} {
		if _, err := ParseLine(line); !errors.Is(err, ErrBlankLine) {
			t.Fatalf("%q: expected ErrBlankLine, got %v", line, err)
		}
	}
	for _, line := range []string{"LOGIN", "LOGIN,abc", "REG,1", "REG,1,x", "OPEN,1", `{"userId":`} {
		if _, err := ParseLine(line); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%q: expected ErrInvalid, got %v", line, err)
		}
	}
}

func TestDecodeJSONRejectsNonIntegerIDs(t *testing.T) {
	if _, err := DecodeJSON([]byte(`{"command":"LOGIN","userId":"5"}`)); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for string id, got %v", err)
	}
	if _, err := DecodeJSON([]byte(`{"command":"LOGIN","userId":5.5}`)); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for fractional id, got %v", err)
	}
}
