package domain

import "errors"

var (
	// ErrConfigurationMissing is returned when required provider credentials are absent
	ErrConfigurationMissing = errors.New("provider configuration missing")

	// ErrFetchFailed covers network errors, timeouts and non-success provider responses
	ErrFetchFailed = errors.New("failed to fetch fund details")

	// ErrInvalidRecord is returned when a provider record lacks a usable name or nav
	ErrInvalidRecord = errors.New("invalid fund details")

	// ErrInvalidQuantity is returned for non-positive quantities
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	ErrInvalidOwner      = errors.New("invalid owner identifier")
	ErrInvalidSchemeCode = errors.New("invalid scheme code")

	ErrFundNotFound    = errors.New("fund not found")
	ErrHoldingNotFound = errors.New("holding not found")
)
