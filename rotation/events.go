package rotation

// Event describes a state change the calling layer should fan out to
// members. The engine fills identifier fields; display names are resolved
// by the caller before dispatch.
type Event interface {
	EventType() string
}

// GroupIsFull is emitted once, when the last seat is taken and the turn
// order has been drawn. Addressed to all members.
type GroupIsFull struct {
	GroupID string
}

func (GroupIsFull) EventType() string { return "group_full" }

// NewMemberJoined is emitted when a member joins a group that is not yet
// full. Addressed to the existing members.
type NewMemberJoined struct {
	GroupID    string
	MemberID   string
	MemberName string
}

func (NewMemberJoined) EventType() string { return "member_joined" }

// PaymentConfirmed is emitted when the current beneficiary confirms
// reception of the pot. Addressed to all members.
type PaymentConfirmed struct {
	GroupID    string
	SenderID   string
	SenderName string
}

func (PaymentConfirmed) EventType() string { return "payment_confirmed" }

// YourTurn is addressed only to the member who just became the current
// beneficiary.
type YourTurn struct {
	GroupID     string
	RecipientID string
}

func (YourTurn) EventType() string { return "your_turn" }

// TurnTransferred is emitted when a beneficiary gives their untaken turn
// to a later member. Addressed to all members.
type TurnTransferred struct {
	GroupID  string
	FromID   string
	ToID     string
	FromName string
	ToName   string
}

func (TurnTransferred) EventType() string { return "turn_transferred" }
