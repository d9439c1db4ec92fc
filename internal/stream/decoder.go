package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// DataPrefix marks a line that carries an event payload.
const DataPrefix = "data:"

// ErrMalformedMessage is returned for a data line whose payload cannot be decoded.
var ErrMalformedMessage = errors.New("malformed stream message")

// Message is a decoded `{"event": ..., "data": ...}` payload.
type Message struct {
	Event string
	// Data is the raw JSON of the data member; nil when the member is absent.
	Data json.RawMessage
}

// Decode inspects a single line. ok is false when the line carries no
// payload (blank separators, comments, other SSE fields) and should be ignored.
func Decode(line string) (msg Message, ok bool, err error) {
	payload, found := strings.CutPrefix(line, DataPrefix)
	if !found {
		return Message{}, false, nil
	}
	payload = strings.TrimPrefix(payload, " ")
	if strings.TrimSpace(payload) == "" {
		return Message{}, false, nil
	}

	if !gjson.Valid(payload) {
		return Message{}, true, fmt.Errorf("%w: invalid JSON", ErrMalformedMessage)
	}
	root := gjson.Parse(payload)
	if !root.IsObject() {
		return Message{}, true, fmt.Errorf("%w: payload is not an object", ErrMalformedMessage)
	}

	event := root.Get("event")
	if event.Type != gjson.String || event.Str == "" {
		return Message{}, true, fmt.Errorf("%w: missing event name", ErrMalformedMessage)
	}

	msg = Message{Event: event.Str}
	if data := root.Get("data"); data.Exists() {
		msg.Data = json.RawMessage(data.Raw)
	}
	return msg, true, nil
}
