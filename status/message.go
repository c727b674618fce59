package status

import (
	"io"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap/zapcore"
)

// Message is a single diagnostic record. It is passed by value and never
// modified after publication.
type Message struct {
	Level   zapcore.Level
	Text    string
	Logger  string
	ScopeID string
	Time    time.Time
	Err     error
}

func (m Message) String() string {
	out := m.Level.CapitalString() + " "
	if m.Logger != "" {
		out += m.Logger + ": "
	}
	out += m.Text
	if m.Err != nil {
		out += ": " + m.Err.Error()
	}
	return out
}

// encoded is the JSON line layout written by WriteJSON.
type encoded struct {
	Time    time.Time     `json:"time"`
	Level   zapcore.Level `json:"level"`
	Logger  string        `json:"logger,omitempty"`
	Text    string        `json:"message"`
	Error   string        `json:"error,omitempty"`
	ScopeID string        `json:"scope_id,omitempty"`
}

func (m Message) pack() encoded {
	e := encoded{
		Time:    m.Time,
		Level:   m.Level,
		Logger:  m.Logger,
		Text:    m.Text,
		ScopeID: m.ScopeID,
	}
	if m.Err != nil {
		e.Error = m.Err.Error()
	}
	return e
}

func writeJSON(w io.Writer, messages []Message) error {
	enc := json.NewEncoder(w)
	for i := 0; i < len(messages); i++ {
		if err := enc.Encode(messages[i].pack()); err != nil {
			return err
		}
	}
	return nil
}
