// Package errors provides structured error handling with error codes for simple-auth.
//
// Every error a service returns to the transport is either a structured *Error
// carrying an ErrorCode, or an unstructured error that is treated as internal.
// Codes are grouped into categories, and each category maps to one HTTP status:
//
//	Validation      400  bad or missing input, invalid/expired reset link
//	Authentication  401  unknown identifier, wrong password, missing bearer header
//	Authorization   403  locked or suspended account, invalid/expired session token
//	Dependency      502  mail or cache failure (logged, usually not surfaced)
//	RateLimit       429  too many requests
//	Internal        500  storage failures and anything unexpected
//
// # Basic Usage
//
//	import "github.com/tendant/simple-auth/pkg/errors"
//
//	err := errors.New(errors.ErrCodeInvalidCredentials, "Invalid credentials")
//	err := errors.Wrap(dbErr, errors.ErrCodeInternal, "failed to load account")
//
//	if errors.IsCategory(err, errors.CategoryAuthorization) {
//	    // 403
//	}
//
// # Client Messages
//
// Message is safe to return to clients. The wrapped Err is for logs only.
// PublicMessage collapses internal and unstructured errors into a generic text
// so storage failures never leak:
//
//	status := errors.HTTPStatus(err)
//	msg := errors.PublicMessage(err)
package errors
