package engine

import (
	"errors"

	"github.com/aidanlsb/linkq/internal/expand"
	"github.com/aidanlsb/linkq/internal/filter"
	"github.com/aidanlsb/linkq/internal/schema"
)

// Error codes for structured error responses. These codes are stable.
const (
	CodeModelNotFound           = "MODEL_NOT_FOUND"
	CodeRelationshipNotFound    = "RELATIONSHIP_NOT_FOUND"
	CodeUnsupportedRelationship = "UNSUPPORTED_RELATIONSHIP"
	CodeQueryInvalid            = "QUERY_INVALID"
	CodeAliasCollision          = "ALIAS_COLLISION"
	CodeInternal                = "INTERNAL_ERROR"
)

// ErrorCode classifies err. It returns the suggestion carried by a
// validation error, if any.
func ErrorCode(err error) (code, suggestion string) {
	var ve *filter.ValidationError
	switch {
	case errors.As(err, &ve):
		return CodeQueryInvalid, ve.Suggestion
	case errors.Is(err, schema.ErrModelNotFound):
		return CodeModelNotFound, "Run 'linkq check' to list the models defined in models.yaml"
	case errors.Is(err, schema.ErrRelationshipNotFound):
		return CodeRelationshipNotFound, ""
	case errors.Is(err, schema.ErrUnsupportedRelationship):
		return CodeUnsupportedRelationship, "Supported kinds are belongs_to, has_one and has_many"
	case errors.Is(err, expand.ErrAliasCollision):
		return CodeAliasCollision, ""
	default:
		return CodeInternal, ""
	}
}
