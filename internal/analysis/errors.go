package analysis

import "fmt"

// TransportError reports that the analysis service could not be reached
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("analysis request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a non-2xx response from the analysis service
type ProtocolError struct {
	StatusCode int
	Status     string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("analysis service returned %s", e.Status)
}

// MalformedResponseError reports a body that is not valid JSON or lacks a
// required sub-result
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed analysis response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed analysis response: %s", e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
