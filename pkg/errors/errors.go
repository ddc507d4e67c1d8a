// Package errors provides standardized error types and error handling
// utilities for the authbridge library. It defines common error categories,
// error codes, and helper functions for creating, wrapping, and inspecting
// errors across the token validation and authorization pipeline.
//
// # Error Categories
//
// The package defines several error categories that map to common failure scenarios:
//
//   - Validation errors: Invalid configuration, missing required fields
//   - Authentication errors: Missing, malformed, or rejected bearer tokens
//   - Authorization errors: Insufficient authority, missing tenant membership
//   - NotFound errors: Signing key or tenant does not exist
//   - Conflict errors: Operation conflicts with current state
//   - Internal errors: Unexpected system failures
//   - Unavailable errors: Key set endpoint or membership store unreachable
//   - Timeout errors: Operation exceeded time limit
//
// # Error Codes
//
// Each error includes a machine-readable code (e.g., "AUTH_005") that can be
// used for error tracking, alerting, and operator debugging. Error codes follow
// the pattern: CATEGORY_XXX where CATEGORY is a short identifier and XXX is a
// numeric code. The distinct AUTH_xxx codes exist for internal logging only;
// HTTP and gRPC surfaces must collapse them into a single generic rejection so
// responses never reveal which token check failed.
//
// # Usage
//
// Create a new error with context:
//
//	err := errors.New(errors.CodeAuthenticationIssuer, "token issuer mismatch")
//
// Wrap an existing error:
//
//	err := errors.Wrap(err, errors.CodeUnavailableStore, "membership lookup failed")
//
// Check error category:
//
//	if errors.IsAuthentication(err) {
//	    // reject the request, log the specific code
//	}
//
// Extract error details for logging:
//
//	if e, ok := errors.AsError(err); ok {
//	    logger.Warn("request rejected",
//	        "code", e.Code,
//	        "message", e.Message,
//	    )
//	}
package errors
