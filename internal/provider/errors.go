// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure classes.
var (
	// ErrNotConfigured indicates the selected provider requires a
	// credential and none is set. It is always returned before any network
	// traffic happens.
	ErrNotConfigured = errors.New("no API key configured")

	// ErrUnknownProvider indicates the provider ID is not in the registry.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrInvalidTemperature indicates a temperature outside [0, 2].
	ErrInvalidTemperature = errors.New("temperature out of range")
)

// EndpointError is a failure reported by a reachable endpoint: a structured
// error payload with an HTTP status, as opposed to a transport-level failure
// (connection refused, DNS, TLS) which surfaces as the underlying net error.
// The two classes share the user-visible error channel but stay
// distinguishable via errors.As.
type EndpointError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *EndpointError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("endpoint error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("endpoint error (HTTP %d): %s", e.Status, e.Message)
}

// Is supports errors.Is comparison against another EndpointError with the
// same status.
func (e *EndpointError) Is(target error) bool {
	t, ok := target.(*EndpointError)
	if !ok {
		return false
	}
	return e.Status == t.Status
}

// IsConfigError reports whether err is a configuration failure that should
// send the user to settings rather than to a retry.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrUnknownProvider)
}

// IsEndpointError reports whether err is an application-level failure
// returned by a reachable endpoint.
func IsEndpointError(err error) bool {
	var ep *EndpointError
	return errors.As(err, &ep)
}
