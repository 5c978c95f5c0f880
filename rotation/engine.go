// Package rotation holds the decision logic for a tontine cycle: drawing
// the turn order, advancing the beneficiary as receptions are confirmed,
// turn transfers and lifecycle transitions. Every operation is a pure
// function over a Group value. Nothing here touches the database or the
// notification layer; callers persist the returned state and dispatch the
// returned events.
package rotation

import (
	"math/rand/v2"
	"time"

	"tontine-backend/models"
)

// Result is the outcome of a successful transition: the new group state
// and the notification events describing what changed.
type Result struct {
	Group  *models.Group
	Events []Event
}

// shuffle is swappable in tests to pin down a known order.
var shuffle = func(order []string) {
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
}

// GenerateTurnOrder draws a uniformly random turn order once the group is
// full, and moves the group to active. Calling it on a group that is not
// full, or whose order is already drawn, fails; it never reshuffles.
func GenerateTurnOrder(group *models.Group) (*Result, error) {
	if len(group.TurnOrder) > 0 {
		return nil, ErrInvalidState
	}
	if len(group.Members) != group.MaxMembers {
		return nil, ErrInvalidState
	}

	g := group.Clone()
	order := make([]string, len(g.Members))
	copy(order, g.Members)
	shuffle(order)
	g.TurnOrder = order
	g.Status = models.StatusActive

	return &Result{
		Group:  g,
		Events: []Event{GroupIsFull{GroupID: g.ID.String()}},
	}, nil
}

// ConfirmReception records that the current beneficiary received the pot
// for this round and advances the cycle. On the final round the group
// moves to completed.
func ConfirmReception(group *models.Group, memberID string) (*Result, error) {
	if len(group.TurnOrder) == 0 || group.Status == models.StatusCompleted {
		return nil, ErrInvalidState
	}
	if group.ReceptionStatus[memberID] == models.ReceptionReceived {
		return nil, ErrAlreadyConfirmed
	}
	beneficiary, ok := CurrentBeneficiary(group)
	if !ok || beneficiary != memberID {
		return nil, ErrUnauthorizedAction
	}

	g := group.Clone()
	g.ReceptionStatus[memberID] = models.ReceptionReceived
	received := g.ReceivedCount()
	if received == g.TotalRounds {
		g.Status = models.StatusCompleted
	} else {
		g.Status = models.StatusActive
	}

	events := []Event{PaymentConfirmed{GroupID: g.ID.String(), SenderID: memberID}}
	if next, ok := CurrentBeneficiary(g); ok {
		events = append(events, YourTurn{GroupID: g.ID.String(), RecipientID: next})
	}
	return &Result{Group: g, Events: events}, nil
}

// GiveTurn lets the current beneficiary pass their untaken turn to a
// member scheduled strictly later. The two positions are swapped in
// place; everyone else keeps their slot, so no other member's reception
// date moves.
func GiveTurn(group *models.Group, fromMemberID, toMemberID string) (*Result, error) {
	if group.Status != models.StatusActive || len(group.TurnOrder) == 0 {
		return nil, ErrInvalidState
	}
	current := group.ReceivedCount()
	beneficiary, ok := CurrentBeneficiary(group)
	if !ok || beneficiary != fromMemberID {
		return nil, ErrUnauthorizedAction
	}
	if group.ReceptionStatus[fromMemberID] == models.ReceptionReceived {
		return nil, ErrInvalidTransfer
	}

	target := -1
	for i, id := range group.TurnOrder {
		if id == toMemberID {
			target = i
			break
		}
	}
	// A transfer needs a strictly later recipient; on the last round none
	// exists, so this also rejects final-round transfers.
	if target <= current {
		return nil, ErrInvalidTransfer
	}

	g := group.Clone()
	g.TurnOrder[current], g.TurnOrder[target] = g.TurnOrder[target], g.TurnOrder[current]

	return &Result{
		Group: g,
		Events: []Event{TurnTransferred{
			GroupID: g.ID.String(),
			FromID:  fromMemberID,
			ToID:    toMemberID,
		}},
	}, nil
}

// Join admits a member into a waiting group. When the last seat is taken
// the turn order is drawn in the same transition, so no reader ever sees
// a full group without an order.
func Join(group *models.Group, memberID, inviteCode string) (*Result, error) {
	if inviteCode != group.InviteCode {
		return nil, ErrInvalidInviteCode
	}
	if group.HasMember(memberID) {
		return nil, ErrAlreadyMember
	}
	if len(group.Members) >= group.MaxMembers {
		return nil, ErrGroupFull
	}

	g := group.Clone()
	g.Members = append(g.Members, memberID)

	if len(g.Members) == g.MaxMembers {
		// The "joined" notification is suppressed: members get a single
		// "group is full" instead of two back-to-back alerts.
		return GenerateTurnOrder(g)
	}

	return &Result{
		Group: g,
		Events: []Event{NewMemberJoined{
			GroupID:  g.ID.String(),
			MemberID: memberID,
		}},
	}, nil
}

// CanDelete reports whether requesterID may delete the group. Only the
// admin can, and only before the cycle starts.
func CanDelete(group *models.Group, requesterID string) error {
	if requesterID != group.AdminID.String() {
		return ErrUnauthorizedAction
	}
	if DeriveStatus(group) != models.StatusWaiting {
		return ErrInvalidState
	}
	return nil
}

// DeriveStatus recomputes the lifecycle status from the turn order and
// reception map. The stored status is a persisted copy of this value;
// reads go through here so a drifted record heals itself.
func DeriveStatus(group *models.Group) string {
	if len(group.TurnOrder) == 0 {
		return models.StatusWaiting
	}
	if group.ReceivedCount() >= group.TotalRounds {
		return models.StatusCompleted
	}
	return models.StatusActive
}

// BeneficiaryAt returns the member scheduled to receive the pot in the
// given round (0-indexed), if the order has been drawn.
func BeneficiaryAt(group *models.Group, roundIndex int) (string, bool) {
	if roundIndex < 0 || roundIndex >= len(group.TurnOrder) {
		return "", false
	}
	return group.TurnOrder[roundIndex], true
}

// CurrentBeneficiary is the member whose turn it is now: the round index
// equals the number of confirmed receptions, so the pointer can never
// drift from reality.
func CurrentBeneficiary(group *models.Group) (string, bool) {
	return BeneficiaryAt(group, group.ReceivedCount())
}

// RoundDate is the scheduled reception date for the given round
// (0-indexed from the group's start date).
func RoundDate(group *models.Group, roundIndex int) time.Time {
	switch group.Frequency {
	case models.FrequencyWeekly:
		return group.StartDate.AddDate(0, 0, 7*roundIndex)
	case models.FrequencyBiWeekly:
		return group.StartDate.AddDate(0, 0, 14*roundIndex)
	default:
		return group.StartDate.AddDate(0, roundIndex, 0)
	}
}
