package errors

import "github.com/pkg/errors"

var (
	// common errors
	ErrConnectionTimeout = errors.New("connection timeout")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")

	// ingestion errors
	ErrConnection        = errors.New("mailbox connection failed")
	ErrParse             = errors.New("message could not be parsed")
	ErrUnrecognizedToken = errors.New("no tracking token found")
	ErrUnknownReference  = errors.New("tracking token references unknown rfp or vendor")
	ErrSenderMismatch    = errors.New("sender does not match vendor email")

	// oracle errors
	ErrOracle         = errors.New("oracle request failed")
	ErrOracleResponse = errors.New("oracle response does not match schema")

	// rfp lifecycle errors
	ErrInvalidTransition = errors.New("invalid rfp status transition")
	ErrRfpNotDraft       = errors.New("rfp is no longer a draft")
	ErrNoProposals       = errors.New("no proposals received for this rfp")
)
