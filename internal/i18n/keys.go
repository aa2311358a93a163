// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthTokenExpired = "auth.token_expired"
	KeyAccessDenied     = "auth.access_denied"

	// Applications
	KeyApplicationSubmitted         = "application.submitted"
	KeyApplicationNotFound          = "application.not_found"
	KeyApplicationApproved          = "application.approved"
	KeyApplicationRejected          = "application.rejected"
	KeyApplicationInvalidTransition = "application.invalid_transition"

	// Payments
	KeyPaymentSuccess     = "payment.success"
	KeyPaymentFailed      = "payment.failed"
	KeyPaymentPending     = "payment.pending"
	KeyPaymentNotFound    = "payment.not_found"
	KeyPaymentInProgress  = "payment.in_progress"
	KeyPaymentUpstream    = "payment.upstream_error"
	KeyPaymentCheckStatus = "payment.check_status"

	// Views
	KeyViewNotFound = "view.not_found"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// Errors
	KeyRateLimited   = "error.rate_limited"
	KeyInternalError = "error.internal"
)
