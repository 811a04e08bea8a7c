// internal/app/system/limits/limits.go
package limits

// Request size limits for the JSON API.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxJSONBody is the maximum size of a JSON request body.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxReasonRunes bounds decision and reopen reasons, in characters.
	MaxReasonRunes = 500
)
