// Package hardware turns device reports into access events. Reports arrive as
// JSON over HTTP or as text lines on a serial port; both bindings share one
// Adapter.
package hardware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/authintegrate/authintegrate/internal/store"
)

// Command is the device operation carried by an Event.
type Command string

const (
	CommandRegister Command = "REG"
	CommandLogin    Command = "LOGIN"
)

// bcrypt rejects longer inputs.
const maxPasswordBytes = 72

// ErrBlankLine is returned by ParseLine for lines that carry no event.
var ErrBlankLine = errors.New("blank line")

// Event is one device report. UserID is a pointer so a missing id can be told
// apart from id 0.
type Event struct {
	Command  Command       `json:"command"`
	UserID   *int          `json:"userId"`
	FingerID *int          `json:"fingerId,omitempty"`
	Password string        `json:"password,omitempty"`
	Result   store.Outcome `json:"result,omitempty"`
	Note     string        `json:"note,omitempty"`
}

// DecodeJSON decodes the HTTP payload of a device event.
func DecodeJSON(body []byte) (Event, error) {
	var ev Event
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	ev.Command = Command(strings.ToUpper(strings.TrimSpace(string(ev.Command))))
	ev.Result = store.Outcome(strings.ToUpper(strings.TrimSpace(string(ev.Result))))
	return ev, nil
}

// ParseLine decodes one serial line. Accepted forms:
//
//	REG,<userId>,<fingerId>[,<password>]
//	LOGIN,<userId>[,<result>[,<note>]]
//	{"command":"LOGIN",...}
//
// The LOGIN note keeps any commas it contains. Blank lines and lines starting
// with '#' yield ErrBlankLine.
func ParseLine(line string) (Event, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Event{}, ErrBlankLine
	}
	if strings.HasPrefix(line, "{") {
		return DecodeJSON([]byte(line))
	}

	fields := strings.SplitN(line, ",", 4)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	ev := Event{Command: Command(strings.ToUpper(fields[0]))}
	if len(fields) < 2 {
		return Event{}, fmt.Errorf("%w: %q has no user id", ErrInvalid, line)
	}
	uid, err := strconv.Atoi(fields[1])
	if err != nil {
		return Event{}, fmt.Errorf("%w: user id %q is not an integer", ErrInvalid, fields[1])
	}
	ev.UserID = &uid

	switch ev.Command {
	case CommandRegister:
		if len(fields) < 3 {
			return Event{}, fmt.Errorf("%w: REG requires a finger id", ErrInvalid)
		}
		fid, err := strconv.Atoi(fields[2])
		if err != nil {
			return Event{}, fmt.Errorf("%w: finger id %q is not an integer", ErrInvalid, fields[2])
		}
		ev.FingerID = &fid
		if len(fields) == 4 {
			ev.Password = fields[3]
		}
		ev.Result = store.OutcomeRegistered
	case CommandLogin:
		if len(fields) >= 3 {
			ev.Result = store.Outcome(strings.ToUpper(fields[2]))
		}
		if len(fields) == 4 {
			ev.Note = fields[3]
		}
	default:
		return Event{}, fmt.Errorf("%w: unknown command %q", ErrInvalid, fields[0])
	}
	return ev, nil
}

func (ev Event) validate() error {
	switch ev.Command {
	case CommandRegister, CommandLogin:
	case "":
		return fmt.Errorf("%w: command is required", ErrInvalid)
	default:
		return fmt.Errorf("%w: invalid hardware command %q", ErrInvalid, ev.Command)
	}
	if ev.UserID == nil {
		return fmt.Errorf("%w: userId is required", ErrInvalid)
	}
	if *ev.UserID < 0 {
		return fmt.Errorf("%w: userId must not be negative", ErrInvalid)
	}
	if ev.Command == CommandRegister {
		if ev.FingerID == nil {
			return fmt.Errorf("%w: fingerId is required for REG", ErrInvalid)
		}
		if *ev.FingerID < 0 {
			return fmt.Errorf("%w: fingerId must not be negative", ErrInvalid)
		}
		if len(ev.Password) > maxPasswordBytes {
			return fmt.Errorf("%w: password is too long", ErrInvalid)
		}
		if ev.Result != "" && ev.Result != store.OutcomeRegistered {
			return fmt.Errorf("%w: REG result must be REGISTERED", ErrInvalid)
		}
	}
	return nil
}

// loginOutcome never reports success unless the device said so.
func (ev Event) loginOutcome() store.Outcome {
	if ev.Result == store.OutcomeGranted {
		return store.OutcomeGranted
	}
	return store.OutcomeDenied
}

func truncateNote(note string) string {
	r := []rune(note)
	if len(r) <= store.MaxNoteLength {
		return note
	}
	return string(r[:store.MaxNoteLength])
}
