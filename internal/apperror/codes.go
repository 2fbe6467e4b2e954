package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// Storage
	CodeStorageError Code = "STORAGE_ERROR"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Wallet connection error codes
const (
	// No wallet provider detected in the environment.
	CodeNoProvider Code = "NO_PROVIDER"
	// The user declined the interactive account prompt.
	CodeUserRejected Code = "USER_REJECTED"
	// The provider already has an outstanding prompt from elsewhere.
	CodeRequestPending Code = "REQUEST_PENDING"
	// Any other provider-side failure.
	CodeProviderError Code = "PROVIDER_ERROR"

	// Circuit breaker errors
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
