package core

import (
	"encoding/json"
	"strconv"
	"time"
)

// StatusError is the status of a response that never came back from the
// server, or that failed local validation.
const StatusError Status = -1

// Status is a numeric HTTP status, or StatusError.
type Status int

// String returns the numeric code, or "Error".
func (s Status) String() string {
	if s == StatusError {
		return "Error"
	}
	return strconv.Itoa(int(s))
}

// IsError reports whether the status is the literal "Error".
func (s Status) IsError() bool {
	return s == StatusError
}

// MarshalJSON encodes StatusError as the string "Error" and anything else as a number.
func (s Status) MarshalJSON() ([]byte, error) {
	if s == StatusError {
		return []byte(`"Error"`), nil
	}
	return []byte(strconv.Itoa(int(s))), nil
}

// UnmarshalJSON accepts a number or the string "Error".
func (s *Status) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		if text == "Error" {
			*s = StatusError
			return nil
		}
		n, err := strconv.Atoi(text)
		if err != nil {
			return err
		}
		*s = Status(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = Status(n)
	return nil
}

// Response is the normalized outcome of a send. Successful responses, HTTP
// errors, network failures and local validation failures share this shape.
type Response struct {
	Status     Status            `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	Body       any               `json:"body"`
	Elapsed    time.Duration     `json:"elapsed"`
}

// ErrorBody is the body used when no server response is available.
func ErrorBody(message string) map[string]any {
	return map[string]any{"error": message}
}
