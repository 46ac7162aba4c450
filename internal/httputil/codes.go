package httputil

// Machine-readable error codes returned alongside human-readable messages.
// Clients branch on these, never on message text.
const (
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeInternalError      = "INTERNAL_ERROR"

	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountInactive    = "ACCOUNT_INACTIVE"
	CodeSessionExpired     = "SESSION_EXPIRED"
	CodeMissingAuth        = "MISSING_AUTH"
	CodeInvalidAuthHeader  = "INVALID_AUTH_HEADER"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidTokenUserID = "INVALID_TOKEN_USER_ID"

	CodeTooManyAttempts = "TOO_MANY_ATTEMPTS"
	CodeCooldownActive  = "COOLDOWN_ACTIVE"

	CodeEmailAlreadyExists        = "EMAIL_ALREADY_EXISTS"
	CodeEmailRequired             = "EMAIL_REQUIRED"
	CodePasswordRequired          = "PASSWORD_REQUIRED"
	CodePasswordTooShort          = "PASSWORD_TOO_SHORT"
	CodeInvalidEmailFormat        = "INVALID_EMAIL_FORMAT"
	CodeVerificationTokenRequired = "VERIFICATION_TOKEN_REQUIRED"
	CodeVerificationFailed        = "VERIFICATION_FAILED"
	CodeAlreadyVerified           = "ALREADY_VERIFIED"
	CodeInvalidResetToken         = "INVALID_RESET_TOKEN"

	CodeInvalidPhoneNumber = "INVALID_PHONE_NUMBER"
	CodeInvalidDateOfBirth = "INVALID_DATE_OF_BIRTH"
	CodeUserNotFound       = "USER_NOT_FOUND"
)
