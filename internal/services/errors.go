// Package services defines the business logic for customers, jobs,
// invoices, leads, team administration, and the idempotency ledger. This
// file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes is performed
// at the handler layer.
package services

import "errors"

var (
	// ErrCustomerNotFound indicates that the requested customer does not
	// exist or is not visible to the caller's company.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrJobNotFound indicates that the requested job does not exist or is
	// not visible to the caller's company.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvoiceNotFound indicates that the requested invoice does not exist
	// or is not visible to the caller's company.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrLeadNotFound indicates that the requested lead does not exist or is
	// not visible to the caller's company.
	ErrLeadNotFound = errors.New("lead not found")

	// ErrMemberNotFound indicates that the requested team member does not
	// exist in the caller's company.
	ErrMemberNotFound = errors.New("member not found")

	// ErrBadTransition is returned when a status change is not permitted
	// from the entity's current state.
	ErrBadTransition = errors.New("status transition not allowed")

	// ErrBadStatus is returned when a status value is outside the allowed
	// set for the entity.
	ErrBadStatus = errors.New("invalid status")

	// ErrDuplicateAssignment is returned when a member is already assigned
	// to the job.
	ErrDuplicateAssignment = errors.New("member already assigned to job")

	// ErrDuplicateMember is returned when a user already has a member row in
	// the company.
	ErrDuplicateMember = errors.New("member already exists")

	// ErrDuplicateInvoiceNumber is returned when an invoice number is
	// already taken within the company.
	ErrDuplicateInvoiceNumber = errors.New("invoice number already exists")

	// ErrValidation is returned for malformed business input that passed
	// transport-level binding (e.g. unknown permission flag names).
	ErrValidation = errors.New("validation failed")
)
