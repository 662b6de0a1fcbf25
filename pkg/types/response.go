package types

import "encoding/json"

// Envelope is the wire wrapper shared by the dashboard backend and this service.
type Envelope struct {
	Status    bool   `json:"status"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Errors    any    `json:"errors"`
	Timestamp string `json:"timestamp"`
}

// RawEnvelope defers decoding of data/errors until the caller knows the payload type.
type RawEnvelope struct {
	Status    bool            `json:"status"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Errors    json.RawMessage `json:"errors"`
	Timestamp string          `json:"timestamp"`
}

// APIError is the errors payload written by this service.
type APIError struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}
