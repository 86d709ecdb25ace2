// Package cli holds the pieces shared by popauth commands: the progress
// spinner, the result views printed by the formatting package, and the
// error types that carry actionable guidance and map to exit codes.
//
// # Errors
//
// AuthFailedError wraps any failure reported through an OAuth error
// callback. AuthRequiredError means a command needed a cached token that
// does not exist. ConnectionError classifies network failures against the
// authorization server so the message can say what went wrong.
package cli
