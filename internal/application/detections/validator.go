package detections

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RequiredFields lists the fields every detection request must carry
var RequiredFields = []string{"frequency", "magnitude"}

// ErrMissingFieldsMessage is returned to clients when a required field is absent
const ErrMissingFieldsMessage = "Missing required fields"

// Request is the body of POST /api/detections. Frequency and magnitude stay
// raw until validated so that any falsy JSON value counts as missing rather
// than failing to decode.
type Request struct {
	Frequency json.RawMessage `json:"frequency"`
	Magnitude json.RawMessage `json:"magnitude"`
	Timestamp *string         `json:"timestamp"`
}

// ValidationError reports a request the client must fix
type ValidationError struct {
	Message  string
	Required []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DecodeRequest parses a detection request body. The body must be a JSON
// object; "null" and other non-object documents are rejected.
func DecodeRequest(body []byte) (*Request, error) {
	var req *Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request body: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("request body must be a JSON object")
	}
	return req, nil
}

// Validate checks that frequency and magnitude are present and truthy.
// Absent, null, false, 0, "", [] and {} all count as missing.
func Validate(req *Request) error {
	if isMissing(req.Frequency) || isMissing(req.Magnitude) {
		return &ValidationError{
			Message:  ErrMissingFieldsMessage,
			Required: RequiredFields,
		}
	}
	return nil
}

// Values returns the numeric frequency and magnitude of a validated request
func (req *Request) Values() (frequency, magnitude float64, err error) {
	if frequency, err = number("frequency", req.Frequency); err != nil {
		return 0, 0, err
	}
	if magnitude, err = number("magnitude", req.Magnitude); err != nil {
		return 0, 0, err
	}
	return frequency, magnitude, nil
}

func number(field string, raw json.RawMessage) (float64, error) {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	return v, nil
}

func isMissing(raw json.RawMessage) bool {
	if len(bytes.TrimSpace(raw)) == 0 {
		return true
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}

	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case float64:
		return x == 0
	case string:
		return x == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}
