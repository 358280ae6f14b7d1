package client

import (
	"fmt"
)

// The error taxonomy for the submission/polling path. Every terminal error is
// one of these types; callers switch on the concrete type to pick a
// user-facing message and never see a raw JSON-parse or transport exception.

type ErrJobNotFound struct {
	error
}

func NewErrJobNotFound(jobID string) *ErrJobNotFound {
	return &ErrJobNotFound{fmt.Errorf("job %s not found, please resubmit your citations", jobID)}
}

type ErrServerError struct {
	error
}

func NewErrServerError(statusCode int, message string) *ErrServerError {
	if message == "" {
		message = "the server returned an unexpected response"
	}
	return &ErrServerError{fmt.Errorf("server error (HTTP %d): %s", statusCode, message)}
}

type ErrNetworkError struct {
	error
}

func NewErrNetworkError(err error) *ErrNetworkError {
	return &ErrNetworkError{fmt.Errorf("connection failed, please check your network: %w", err)}
}

type ErrJobFailed struct {
	error
}

func NewErrJobFailed(message string) *ErrJobFailed {
	if message == "" {
		message = "validation failed, please try again"
	}
	return &ErrJobFailed{fmt.Errorf("validation failed: %s", message)}
}

type ErrTimeout struct {
	error
}

func NewErrTimeout() *ErrTimeout {
	return &ErrTimeout{fmt.Errorf("validation timed out after 3 minutes, please try again")}
}

type ErrMalformedResponse struct {
	error
}

func NewErrMalformedResponse(err error) *ErrMalformedResponse {
	return &ErrMalformedResponse{fmt.Errorf("the server returned a malformed response: %v", err)}
}
