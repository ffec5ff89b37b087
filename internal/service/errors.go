package service

import "errors"

// Error taxonomy shared by every service in this package. Handlers map these
// to HTTP statuses; the chat gateway maps them to private error frames.
var (
	// ErrUnauthenticated indicates no resolvable actor where one is required.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden indicates the actor lacks the required group role.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrNotFound indicates the group, room, message or reply target is
	// absent or soft-deleted.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidArgument indicates a malformed request, such as an empty
	// message body or a reply target from another room.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState indicates the operation conflicts with current state,
	// such as deleting a default room or joining a group twice.
	ErrInvalidState = errors.New("operation not allowed in current state")
)
