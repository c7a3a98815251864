package network

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/MRamiBalles/CosmicClicker/server/internal/engine"
)

// MessageType tags server-to-client messages.
type MessageType string

const (
	MsgTypeView      MessageType = "view"
	MsgTypeAnalytics MessageType = "analytics"
	MsgTypeResult    MessageType = "result"
	MsgTypeError     MessageType = "error"
)

// Message is one server-to-client message.
type Message struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

// Envelope is one client-to-server command.
type Envelope struct {
	Type      engine.CommandType `json:"type"`
	RequestID string             `json:"requestId,omitempty"`
	Payload   json.RawMessage    `json:"payload,omitempty"`
}

// Command decodes the envelope payload into an engine command.
func (e Envelope) Command() (engine.Command, error) {
	var cmd engine.Command
	if p := bytes.TrimSpace(e.Payload); len(p) > 0 && !bytes.Equal(p, []byte("null")) {
		if err := json.Unmarshal(p, &cmd); err != nil {
			return engine.Command{}, fmt.Errorf("decode %s payload: %w", e.Type, err)
		}
	}
	cmd.Type = e.Type
	return cmd, nil
}

// Result answers one Envelope.
type Result struct {
	RequestID string  `json:"requestId,omitempty"`
	OK        bool    `json:"ok"`
	Crit      bool    `json:"crit,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
}

func newResult(requestID string, res engine.CommandResult) Result {
	r := Result{RequestID: requestID, OK: res.Applied}
	if res.Click != nil {
		r.Crit = res.Click.Crit
		r.Amount = res.Click.Amount
	}
	if res.Credit != nil {
		r.Amount = res.Credit.Amount
	}
	return r
}
