package chat

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Message is the JSON payload exchanged with the relay. Outgoing messages
// carry only author and message; the relay adds time.
type Message struct {
	Author  string  `json:"author"`
	Message string  `json:"message"`
	Time    *Millis `json:"time,omitempty"`
}

// Millis is an epoch timestamp in milliseconds. It decodes from a JSON
// number or from a string holding a number. A nil *Millis means the payload
// carried no time.
type Millis int64

func (m *Millis) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		raw = bytes.TrimSpace([]byte(s))
	}
	if len(raw) == 0 {
		return errors.New("time is empty")
	}
	if v, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
		*m = Millis(v)
		return nil
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return errors.Errorf("time %q is not a number", raw)
	}
	*m = Millis(int64(f))
	return nil
}

// Time converts m to a time.Time, or returns ok=false when m is nil.
func (m *Millis) Time() (t time.Time, ok bool) {
	if m == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(*m)), true
}

// DecodeMessage parses an inbound payload. Anything but a JSON object is an
// error.
func DecodeMessage(body string) (Message, error) {
	raw := bytes.TrimSpace([]byte(body))
	if len(raw) == 0 || raw[0] != '{' {
		return Message{}, errors.New("payload is not a JSON object")
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, errors.Wrap(err, "decode message")
	}
	return msg, nil
}

// EncodeMessage renders the outgoing payload for author and text.
func EncodeMessage(author, text string) (string, error) {
	b, err := json.Marshal(Message{Author: author, Message: text})
	if err != nil {
		return "", errors.Wrap(err, "encode message")
	}
	return string(b), nil
}
