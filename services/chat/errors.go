package chat

// Error is a chat action failure reported to the acting connection as an error event.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrNotJoined           = &Error{Code: "not_joined", Message: "join the chat before sending messages"}
	ErrAlreadyJoined       = &Error{Code: "already_joined", Message: "this connection has already joined the chat"}
	ErrDeviceBanned        = &Error{Code: "device_banned", Message: "this device has been banned from the chat"}
	ErrDeviceCheckFailed   = &Error{Code: "device_check_failed", Message: "could not verify this device, try again later"}
	ErrRestricted          = &Error{Code: "restricted", Message: "you have been restricted from sending messages"}
	ErrRateLimited         = &Error{Code: "rate_limited", Message: "you are sending messages too quickly"}
	ErrInvalidMessage      = &Error{Code: "invalid_message", Message: "message is empty or malformed"}
	ErrMessageTooLong      = &Error{Code: "message_too_long", Message: "message is too long"}
	ErrMessageNotFound     = &Error{Code: "not_found", Message: "message not found"}
	ErrReplyNotFound       = &Error{Code: "reply_not_found", Message: "the message you replied to no longer exists"}
	ErrNotAuthorized       = &Error{Code: "not_authorized", Message: "only the author or an admin can change this message"}
	ErrEditConflict        = &Error{Code: "edit_conflict", Message: "the message changed while you were editing it, try again"}
	ErrCannotRestrictAdmin = &Error{Code: "cannot_restrict_admin", Message: "admins cannot be restricted"}
	ErrInternal            = &Error{Code: "internal", Message: "something went wrong, try again"}
)
