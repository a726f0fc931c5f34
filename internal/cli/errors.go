// Package cli implements the command-line interface.
package cli

// Error codes for structured error responses.
// These codes are stable and can be relied upon by scripts. Query errors use
// the codes reported by engine.ErrorCode.
const (
	// Config errors
	ErrConfigInvalid = "CONFIG_INVALID"

	// Schema errors
	ErrSchemaNotFound = "SCHEMA_NOT_FOUND"
	ErrSchemaInvalid  = "SCHEMA_INVALID"

	// Database errors
	ErrDatabaseError = "DATABASE_ERROR"

	// Input errors
	ErrInvalidInput    = "INVALID_INPUT"
	ErrMissingArgument = "MISSING_ARGUMENT"

	// File errors
	ErrFileExists     = "FILE_EXISTS"
	ErrFileWriteError = "FILE_WRITE_ERROR"

	// General errors
	ErrInternal = "INTERNAL_ERROR"
)

// Warning codes for non-fatal findings.
const (
	WarnIsolatedModel = "ISOLATED_MODEL"
)
