package headers

// Well-known header keys.
const (
	// KeyUserID carries the id of the calling user.
	KeyUserID = "x-user-id"

	// KeyRequestID correlates a request with its reply and logs.
	KeyRequestID = "x-request-id"

	// KeyEnvelopeVersion carries the semantic version of the envelope format.
	KeyEnvelopeVersion = "x-envelope-version"

	// KeyTimeoutMs carries the caller's remaining budget in milliseconds.
	KeyTimeoutMs = "x-timeout-ms"

	// KeyCodec names the codec used for the payload, e.g. "json" or "proto".
	KeyCodec = "x-codec"
)
