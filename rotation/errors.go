package rotation

import "errors"

// Every precondition violation surfaces as one of these. The engine never
// recovers locally; callers map them to user-facing responses.
var (
	ErrInvalidState       = errors.New("operation not allowed in the group's current state")
	ErrUnauthorizedAction = errors.New("member is not allowed to perform this action")
	ErrAlreadyConfirmed   = errors.New("reception already confirmed for this round")
	ErrInvalidTransfer    = errors.New("turn can only be given to a member scheduled later")
	ErrInvalidInviteCode  = errors.New("invalid invite code")
	ErrAlreadyMember      = errors.New("already a member of this group")
	ErrGroupFull          = errors.New("group is already full")
)
