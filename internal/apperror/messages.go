package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",
	CodeStorageError:       "Session storage error",

	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	CodeNoProvider:     "No wallet provider detected. Please install MetaMask or another Web3 wallet",
	CodeUserRejected:   "Wallet connection request was rejected",
	CodeRequestPending: "A wallet connection request is already pending. Please check your wallet and approve or reject the existing request, then try again",
	CodeProviderError:  "Failed to connect wallet",

	CodeCircuitOpen: "Wallet provider temporarily unavailable",
}
