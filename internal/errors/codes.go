package errors

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code        ErrorCode
	Retryable   bool
	Description string
	UserMessage string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	ErrTransport: {
		Code:        ErrTransport,
		Retryable:   true,
		Description: "Network or transport failure talking to the backend",
		UserMessage: "Download failed. Check your connection and try again.",
	},
	ErrForbidden: {
		Code:        ErrForbidden,
		Retryable:   false,
		Description: "The artifact is permission-gated for this account",
		UserMessage: "Your plan does not include access to this file.",
	},
	ErrNotReady: {
		Code:        ErrNotReady,
		Retryable:   false,
		Description: "The processing pipeline has not produced the artifact yet",
		UserMessage: "This file is not ready yet. Try again once processing finishes.",
	},
	ErrWrongStorage: {
		Code:        ErrWrongStorage,
		Retryable:   false,
		Description: "The artifact lives in a different storage tier than the one requested",
		UserMessage: "This file is stored elsewhere and cannot be downloaded this way.",
	},
	ErrCacheCorruption: {
		Code:        ErrCacheCorruption,
		Retryable:   true,
		Description: "Ledger entry points at a missing file",
		UserMessage: "The local copy is missing and will be downloaded again.",
	},
	ErrInvalid: {
		Code:        ErrInvalid,
		Retryable:   false,
		Description: "Invalid input",
		UserMessage: "The request was invalid.",
	},
	ErrNotFound: {
		Code:        ErrNotFound,
		Retryable:   false,
		Description: "The requested resource does not exist",
		UserMessage: "The file could not be found.",
	},
	ErrDatabase: {
		Code:        ErrDatabase,
		Retryable:   false,
		Description: "Local ledger failure",
		UserMessage: "Download failed.",
	},
	ErrStorage: {
		Code:        ErrStorage,
		Retryable:   false,
		Description: "Local file storage failure",
		UserMessage: "Download failed. Check available storage.",
	},
}

// IsRetryable reports whether retrying the same operation later may succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	info, ok := ErrorCodeRegistry[CodeOf(err)]
	return ok && info.Retryable
}

// UserMessage returns the message shown to the user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if info, ok := ErrorCodeRegistry[CodeOf(err)]; ok {
		return info.UserMessage
	}
	return "Download failed."
}
