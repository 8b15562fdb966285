package tokenloader

import (
	"errors"
	"fmt"
)

// Error kind names, as reported by Kind.
const (
	KindValidation        = "ValidationError"
	KindMissingCredential = "MissingCredentialError"
	KindCredentialLoad    = "CredentialLoadError"
	KindCredentialRefresh = "CredentialRefreshError"
	KindUnknown           = "Error"
)

// missingTokenMessage tells the operator how to obtain a token file.
const missingTokenMessage = "no valid token file was provided. Please:\n" +
	"1) Generate a token file locally with \"gtoken generate\" (or any installed-app OAuth flow).\n" +
	"2) Supply that file as the token file input.\n" +
	"3) Run the component again so it can load the credentials."

// ValidationError reports malformed component inputs.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// MissingCredentialError reports that no usable token is available. The
// component has no interactive fallback.
type MissingCredentialError struct {
	// Reason is set when a token file was loaded but is still unusable.
	Reason string
}

func (e *MissingCredentialError) Error() string {
	if e.Reason == "" {
		return missingTokenMessage
	}
	return e.Reason + "; " + missingTokenMessage
}

// CredentialLoadError reports a token file that could not be read or parsed.
type CredentialLoadError struct {
	Path string
	Err  error
}

func (e *CredentialLoadError) Error() string {
	return fmt.Sprintf("failed to load token file %s: %v", e.Path, e.Err)
}

func (e *CredentialLoadError) Unwrap() error { return e.Err }

// CredentialRefreshError reports a failed refresh exchange for an expired
// token. A new token file has to be generated.
type CredentialRefreshError struct {
	Err error
}

func (e *CredentialRefreshError) Error() string {
	return fmt.Sprintf("token file is expired and could not be refreshed, generate a new one: %v", e.Err)
}

func (e *CredentialRefreshError) Unwrap() error { return e.Err }

// Kind returns the kind name of err, or KindUnknown for errors not produced
// by this package.
func Kind(err error) string {
	var (
		validation *ValidationError
		missing    *MissingCredentialError
		load       *CredentialLoadError
		refresh    *CredentialRefreshError
	)
	switch {
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &missing):
		return KindMissingCredential
	case errors.As(err, &load):
		return KindCredentialLoad
	case errors.As(err, &refresh):
		return KindCredentialRefresh
	default:
		return KindUnknown
	}
}
