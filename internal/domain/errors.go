package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput      = errors.New("prompt or action is required")
	ErrRefinement        = errors.New("refinement failed")
	ErrKickoff           = errors.New("video kickoff failed")
	ErrPoll              = errors.New("video poll failed")
	ErrUpstreamReported  = errors.New("video operation failed")
	ErrReferenceNotFound = errors.New("video reference not found")
	ErrTimeout           = errors.New("video generation timed out")
	ErrMissingCredential = errors.New("missing credential")
	ErrResolveReference  = errors.New("video reference could not be resolved")
	ErrPoolSaturated     = errors.New("job pool saturated")
)

// IsBackendFailure reports whether err belongs to the generation phase, where
// the resilient strategy substitutes a fallback result.
func IsBackendFailure(err error) bool {
	for _, target := range []error{ErrKickoff, ErrPoll, ErrUpstreamReported, ErrReferenceNotFound, ErrTimeout, ErrResolveReference, ErrMissingCredential} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// StatusError is a non-2xx answer from an upstream HTTP API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Message)
}

// ReferenceNotFoundError carries the top-level fields seen in a response that
// matched none of the known result shapes. The field list is for logs only.
type ReferenceNotFoundError struct {
	Fields []string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("%s (fields: %s)", ErrReferenceNotFound.Error(), strings.Join(e.Fields, ","))
}

func (e *ReferenceNotFoundError) Is(target error) bool {
	return target == ErrReferenceNotFound
}

// UpstreamMessage extracts the most specific human message in err, preferring
// the upstream API text when one is present.
func UpstreamMessage(err error) string {
	if err == nil {
		return ""
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	return err.Error()
}
