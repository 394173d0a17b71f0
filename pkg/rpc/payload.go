package rpc

import (
	"encoding/json"
	"fmt"
)

// Params holds the arguments of a daemon action as a map of raw JSON values.
// Values stay encoded until they are needed:
//
//	// Creating params from a map or a struct
//	params, _ := NewParams(map[string]any{"to": "0x123...", "amount": 1.5})
//
//	// Accessing a single argument
//	var to string
//	json.Unmarshal(params["to"], &to)
//
//	// Translating into a struct
//	var res SendDELResult
//	params.Translate(&res)
type Params map[string]json.RawMessage

// NewParams creates Params from any value that encodes as a JSON object,
// typically a map or a struct.
//
// Returns an error if the value cannot be marshaled or is not an object.
func NewParams(v any) (Params, error) {
	if v == nil {
		return Params{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("error marshalling params: %w", err)
	}
	var params Params
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("error unmarshalling params: %w", err)
	}
	if params == nil {
		params = Params{}
	}
	return params, nil
}

// Translate decodes the parameters into v, which should be a pointer to a
// struct or a map.
func (p Params) Translate(v any) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("error marshalling params: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("error unmarshalling params: %w", err)
	}
	return nil
}

// Set encodes value and stores it under key.
func (p Params) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error marshalling %s: %w", key, err)
	}
	p[key] = data
	return nil
}
