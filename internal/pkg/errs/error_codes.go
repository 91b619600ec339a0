/*
Package errs provides the relay's error type and application-level error codes.

Codes are shared by HTTP responses and by the directed "error" events sent to
websocket connections, so clients can branch on them regardless of transport.
*/
package errs

// 1xxx: request validation errors (ValidationError)
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates a malformed JSON body or event payload.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after a valid JSON body.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the caller exceeded its request budget.
	ErrRateLimitExceeded = 1007

	// ErrChannelRequired indicates a missing channel or room name.
	ErrChannelRequired = 1101

	// ErrChannelInvalid indicates a channel name with forbidden characters or length.
	ErrChannelInvalid = 1102

	// ErrRoleInvalid indicates an unknown credential role.
	ErrRoleInvalid = 1103

	// ErrTTLInvalid indicates a non-numeric or negative credential ttl.
	ErrTTLInvalid = 1104

	// ErrDurationInvalid indicates a negative call duration.
	ErrDurationInvalid = 1105

	// ErrUserIDRequired indicates a missing user id in a join or call event.
	ErrUserIDRequired = 1106

	// ErrUnknownEvent indicates an inbound event name the relay does not handle.
	ErrUnknownEvent = 1107
)

// 2xxx: presence and call state errors (NotFoundError, SessionConflict)
const (
	// ErrReceiverOffline indicates that the callee has no live connection.
	ErrReceiverOffline = 2001

	// ErrNoSuchSession indicates that the room has no active call session.
	ErrNoSuchSession = 2002

	// ErrCallNotRinging indicates an event that requires a ringing call on an answered one.
	ErrCallNotRinging = 2003

	// ErrSessionConflict indicates that the room already has an active call session.
	ErrSessionConflict = 2004

	// ErrRecordNotFound indicates that no call-duration record exists for the channel.
	ErrRecordNotFound = 2005
)

// 5xxx: internal and upstream errors (UpstreamError)
const (
	// ErrUnknown represents an unclassified internal error.
	ErrUnknown = 5000

	// ErrCredentialIssue indicates that the credential issuer failed to mint a token.
	ErrCredentialIssue = 5001

	// ErrHistoryUnavailable indicates that the call-duration history store failed.
	ErrHistoryUnavailable = 5002
)
