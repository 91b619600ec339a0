package errs

import "net/http"

// errorMap holds the message and HTTP status for every known error code.
var errorMap = map[int]CustomError{
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Malformed JSON.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrChannelRequired:      {Code: ErrChannelRequired, Message: "Channel name is required.", Status: http.StatusBadRequest},
	ErrChannelInvalid:       {Code: ErrChannelInvalid, Message: "Channel name is invalid.", Status: http.StatusBadRequest},
	ErrRoleInvalid:          {Code: ErrRoleInvalid, Message: "Role must be publisher or subscriber.", Status: http.StatusBadRequest},
	ErrTTLInvalid:           {Code: ErrTTLInvalid, Message: "TTL must be a non-negative number of seconds.", Status: http.StatusBadRequest},
	ErrDurationInvalid:      {Code: ErrDurationInvalid, Message: "Call duration must be a non-negative number of seconds.", Status: http.StatusBadRequest},
	ErrUserIDRequired:       {Code: ErrUserIDRequired, Message: "User id is required.", Status: http.StatusBadRequest},
	ErrUnknownEvent:         {Code: ErrUnknownEvent, Message: "Unsupported event %q.", Status: http.StatusBadRequest},

	ErrReceiverOffline: {Code: ErrReceiverOffline, Message: "The person you are calling is offline.", Status: http.StatusNotFound},
	ErrNoSuchSession:   {Code: ErrNoSuchSession, Message: "No active call in this room.", Status: http.StatusNotFound},
	ErrCallNotRinging:  {Code: ErrCallNotRinging, Message: "The call is no longer ringing.", Status: http.StatusNotFound},
	ErrSessionConflict: {Code: ErrSessionConflict, Message: "A call is already in progress in this room.", Status: http.StatusConflict},
	ErrRecordNotFound:  {Code: ErrRecordNotFound, Message: "No call duration recorded for this channel.", Status: http.StatusNotFound},

	ErrUnknown:            {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrCredentialIssue:    {Code: ErrCredentialIssue, Message: "Failed to generate token.", Status: http.StatusInternalServerError},
	ErrHistoryUnavailable: {Code: ErrHistoryUnavailable, Message: "Call history is unavailable.", Status: http.StatusInternalServerError},
}
