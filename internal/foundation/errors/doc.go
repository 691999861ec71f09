// Package errors provides foundational, type-safe error primitives used across assetrev.
//
// This package contains classified error types and helpers for robust error handling,
// including a fluent builder API for constructing ClassifiedError values with context.
//
// Key features:
//   - ErrorCategory: the failure taxonomy (read, transform, manifest, upload, write, ...)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - RetryStrategy: Retry behavior (never, immediate, backoff, user action)
//   - ClassifiedError: Structured error with category, severity, and context
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLI adapter for error presentation and exit codes
//
// Example usage:
//
//	err := errors.ReadError("cannot read asset").
//		WithCause(ioErr).
//		WithContext("path", "js/app.js").
//		Build()
package errors
