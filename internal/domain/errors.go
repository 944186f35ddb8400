package domain

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError keeps backward compatibility for generic codes.
type DomainError struct {
	Code string
	Err  error
}

func (e DomainError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	if e.Code == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e DomainError) Unwrap() error {
	return e.Err
}

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// FieldError is one offending input field.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

type ValidationError struct {
	Field string
	Msg   string
	// Fields lists every offending field when more than one is reported at once.
	Fields []FieldError
	Err    error
}

func (e ValidationError) Error() string {
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Field+" "+f.Msg)
		}
		return "invalid input: " + strings.Join(parts, "; ")
	}
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

// AsInternal extracts an InternalError whose Msg is safe to show clients.
func AsInternal(err error) (InternalError, bool) {
	var target InternalError
	ok := errors.As(err, &target)
	return target, ok
}

type UnauthenticatedError struct {
	Err error
}

func (e UnauthenticatedError) Error() string { return "authentication required" }

func (e UnauthenticatedError) Unwrap() error { return e.Err }

type ForbiddenError struct {
	Action string
	Err    error
}

func (e ForbiddenError) Error() string {
	if e.Action == "" {
		return "forbidden"
	}
	return fmt.Sprintf("not allowed to %s", e.Action)
}

func (e ForbiddenError) Unwrap() error { return e.Err }

// NoEntitlementError means the owner has no unredeemed purchase to spend.
type NoEntitlementError struct {
	Entitlement string
}

func (e NoEntitlementError) Error() string {
	if e.Entitlement == "" {
		return "no active entitlement"
	}
	return fmt.Sprintf("no active %s credit", e.Entitlement)
}

type PreconditionFailedError struct {
	Reason string
	Err    error
}

func (e PreconditionFailedError) Error() string {
	if e.Reason == "" {
		return "precondition failed"
	}
	return e.Reason
}

func (e PreconditionFailedError) Unwrap() error { return e.Err }

// Vendor names used in VendorFailure.
const (
	VendorCreditBureau    = "credit_bureau"
	VendorBackgroundCheck = "background_check"
)

// Vendor failure kinds. KindAPIError is the only kind that points at the
// vendor rather than at the subject's data.
const (
	KindInvalidSSN        = "INVALID_SSN"
	KindNoCreditFile      = "NO_CREDIT_FILE"
	KindRejected          = "REJECTED"
	KindAPIError          = "API_ERROR"
	KindNotConfigured     = "CREDENTIALS_NOT_CONFIGURED"
	KindInvalidSubmission = "INVALID_SUBMISSION"
)

// VendorFailure is a structured credit-bureau or background-check failure.
// Raw carries the vendor payload for support diagnosis and is never shown to renters.
type VendorFailure struct {
	Vendor  string
	Kind    string
	Message string
	Raw     string
	Err     error
}

func (e VendorFailure) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s %s: %s", e.Vendor, strings.ToLower(e.Kind), msg)
}

func (e VendorFailure) Unwrap() error { return e.Err }

// Retryable reports whether the failure came from the vendor side rather than the submitted data.
func (e VendorFailure) Retryable() bool {
	return e.Kind == KindAPIError || e.Kind == KindNotConfigured
}

type ProcessorFailure struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e ProcessorFailure) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("payment %s failed (%s): %s", e.Op, e.Code, msg)
	}
	return fmt.Sprintf("payment %s failed: %s", e.Op, msg)
}

func (e ProcessorFailure) Unwrap() error { return e.Err }

func IsUnauthenticated(err error) bool {
	var target UnauthenticatedError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target ForbiddenError
	return errors.As(err, &target)
}

func IsNoEntitlement(err error) bool {
	var target NoEntitlementError
	return errors.As(err, &target)
}

func IsPreconditionFailed(err error) bool {
	var target PreconditionFailedError
	return errors.As(err, &target)
}

// AsVendorFailure extracts a VendorFailure from the chain.
func AsVendorFailure(err error) (VendorFailure, bool) {
	var target VendorFailure
	ok := errors.As(err, &target)
	return target, ok
}

func AsProcessorFailure(err error) (ProcessorFailure, bool) {
	var target ProcessorFailure
	ok := errors.As(err, &target)
	return target, ok
}

// AsValidation extracts a ValidationError from the chain.
func AsValidation(err error) (ValidationError, bool) {
	var target ValidationError
	ok := errors.As(err, &target)
	return target, ok
}
