package frame

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrJSONMarshalFailed   = errors.New("failed to marshal frame to JSON")
	ErrJSONUnmarshalFailed = errors.New("failed to unmarshal frame JSON")
)

// Encode serializes a frame for publishing.
func Encode(f Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSONMarshalFailed, err)
	}
	return data, nil
}

// Decode parses a published frame. It returns ErrJSONUnmarshalFailed
// (wrapping the original error) if the payload is not a frame.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrJSONUnmarshalFailed, err)
	}
	return f, nil
}
