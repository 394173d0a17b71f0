package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Request is the envelope sent to the wallet daemon. Each connection carries
// exactly one Request.
//
// On the wire a request is a single JSON object:
//
//	{"action": "send_del", "payload": {"to": "0x...", "amount": 1.5, "wallet_address": "0x...", "wallet_id": "..."}}
type Request struct {
	// Action names the daemon operation, e.g. "send_del" or "get_balance".
	Action string `json:"action"`

	// Payload holds the operation arguments. The client adds the bound
	// wallet address and the session wallet id before sending.
	Payload Params `json:"payload"`
}

// NewRequest creates a Request for action. A nil payload is replaced with an
// empty one so the daemon always receives an object.
func NewRequest(action string, payload Params) Request {
	if payload == nil {
		payload = Params{}
	}

	return Request{
		Action:  action,
		Payload: payload,
	}
}

// Response is the envelope returned by the wallet daemon.
//
// A successful call looks like {"success": true, "result": ...}; a failed one
// like {"success": false, "error": "insufficient funds for transaction"}.
// Daemons may add a machine-readable "code" naming an ErrorKind.
//
// Decoding is lenient about field types so that malformed envelopes can be
// reported precisely by the client instead of failing inside the decoder:
// a non-boolean "success" decodes as absent, a non-string "error" keeps its
// raw JSON text.
type Response struct {
	// Success is nil when the field was absent or not a boolean.
	Success *bool `json:"success,omitempty"`

	// Result is the raw result value. It stays undecoded until the client
	// normalizes it.
	Result json.RawMessage `json:"result,omitempty"`

	// Error is the daemon's failure message, if any.
	Error *string `json:"error,omitempty"`

	// Code is the optional machine-readable failure kind.
	Code string `json:"code,omitempty"`
}

// NewSuccessResponse builds a successful response around result.
func NewSuccessResponse(result any) (Response, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return Response{}, fmt.Errorf("error marshalling result: %w", err)
	}

	success := true
	return Response{Success: &success, Result: data}, nil
}

// NewErrorResponse builds a failed response with the given message.
func NewErrorResponse(message string) Response {
	success := false
	return Response{Success: &success, Error: &message}
}

// UnmarshalJSON implements json.Unmarshaler. The envelope itself must be a
// JSON object; its fields are decoded leniently.
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("response is not a JSON object: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("response is null")
	}

	*r = Response{}

	if v, ok := raw["success"]; ok {
		var success bool
		if err := json.Unmarshal(v, &success); err == nil && !isNull(v) {
			r.Success = &success
		}
	}

	if v, ok := raw["result"]; ok && !isNull(v) {
		r.Result = v
	}

	if v, ok := raw["error"]; ok && !isNull(v) {
		var msg string
		if err := json.Unmarshal(v, &msg); err != nil {
			msg = string(v)
		}
		r.Error = &msg
	}

	if v, ok := raw["code"]; ok {
		var code string
		if err := json.Unmarshal(v, &code); err == nil {
			r.Code = code
		}
	}

	return nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
