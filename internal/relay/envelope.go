package relay

import "encoding/json"

// RequestEnvelope is the wire format for one correlated call to the remote
// actor. RequestID must be globally unique; the actor echoes it back verbatim.
type RequestEnvelope struct {
	RequestID string          `json:"request_id"`
	Action    string          `json:"action"`
	Payload   json.RawMessage `json:"payload"`
}

// ResponseEnvelope is the wire format for the actor's reply.
type ResponseEnvelope struct {
	RequestID string          `json:"request_id"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}
