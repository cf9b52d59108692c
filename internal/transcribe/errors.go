package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Kind classifies a transcription failure.
type Kind string

const (
	KindInvalidCredential Kind = "invalid_credential"
	KindFileRead          Kind = "file_read_error"
	KindNetwork           Kind = "network_error"
	KindTimeout           Kind = "timeout"
	KindServer            Kind = "server_error"
	KindDecoding          Kind = "decoding_error"
)

const unknownServerMessage = "Unknown error"

// Error is a classified transcription failure. StatusCode and Message are
// set for KindServer; Message carries the detail for KindNetwork.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidCredential:
		return "Invalid API key. Please check your settings."
	case KindFileRead:
		return "Failed to read audio file"
	case KindNetwork:
		return "Network error: " + e.Message
	case KindTimeout:
		return "Request timed out. Please try again."
	case KindServer:
		return fmt.Sprintf("Server error (%d): %s", e.StatusCode, e.Message)
	case KindDecoding:
		return "Failed to decode response"
	default:
		return fmt.Sprintf("transcription failed (%s)", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of a transcription error, or "" for anything else.
func KindOf(err error) Kind {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Kind
	}
	return ""
}

func serverError(status int, message string) *Error {
	if message == "" {
		message = unknownServerMessage
	}
	return &Error{Kind: KindServer, StatusCode: status, Message: message}
}

// classifyTransport maps a failed round trip to KindTimeout or KindNetwork.
func classifyTransport(err error) *Error {
	if isTimeout(err) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	detail := err.Error()
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		detail = urlErr.Err.Error()
	}
	return &Error{Kind: KindNetwork, Message: detail, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
