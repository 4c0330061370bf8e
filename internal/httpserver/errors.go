package httpserver

const (
	ErrInvalidJSON        = "invalid json"
	ErrMissingFields      = "missing fields"
	ErrMissingEnvelopeID  = "missing envelope id"
	ErrMissingStatus      = "missing status"
	ErrMissingCorrelation = "missing correlation fields"
	ErrUnknownEntityType  = "unknown entity type"
	ErrNotFound           = "not found"
	ErrDependency         = "dependency error"
	ErrInternal           = "internal error"
)
