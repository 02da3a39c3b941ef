// Package common contains shared constants and error kinds used across
// agrisync components.
package common

const (
	// AuthorizationHeaderName carries the bearer token on outbound requests.
	AuthorizationHeaderName = "Authorization"

	// CorrelationHeaderName carries a per-request id so client and server
	// logs can be joined.
	CorrelationHeaderName = "X-Correlation-Id"
)

// GenericErrorMessage is shown when a failure carries no usable text.
const GenericErrorMessage = "An unexpected error occurred. Please try again."
