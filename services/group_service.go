package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"tontine-backend/directory"
	"tontine-backend/models"
	"tontine-backend/rotation"
	"tontine-backend/store"
	"tontine-backend/utils"
)

// How many times a mutating operation is re-applied after losing an
// optimistic-concurrency race before the conflict is surfaced.
const maxWriteAttempts = 3

// GroupService coordinates the rotation engine with its collaborators:
// it reads a group record, applies a pure transition, writes the result
// back with a version check and fans out the resulting events. All
// business rules live in the rotation package.
type GroupService struct {
	groups   store.GroupStore
	alerts   store.AlertStore
	dir      directory.Directory
	notifier Notifier
}

func NewGroupService(groups store.GroupStore, alerts store.AlertStore, dir directory.Directory, notifier Notifier) *GroupService {
	return &GroupService{groups: groups, alerts: alerts, dir: dir, notifier: notifier}
}

// Create sets up a new group with the creator as admin and sole member.
func (s *GroupService) Create(ctx context.Context, adminID uuid.UUID, req models.CreateGroupRequest) (*models.Group, error) {
	startDate := time.Now().Truncate(24 * time.Hour)
	if req.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return nil, fmt.Errorf("invalid start date: %w", err)
		}
		startDate = parsed
	}

	group := &models.Group{
		Name:            req.Name,
		Contribution:    req.Contribution,
		Frequency:       req.Frequency,
		MaxMembers:      req.MaxMembers,
		TotalRounds:     req.MaxMembers, // one round per member
		Members:         []string{adminID.String()},
		AdminID:         adminID,
		InviteCode:      utils.GenerateInviteCode(),
		StartDate:       startDate,
		ReceptionStatus: models.ReceptionMap{},
		Status:          models.StatusWaiting,
		Version:         1,
	}

	// Invite codes are short, so regenerate on the rare collision.
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		if _, err := s.groups.ByInviteCode(ctx, group.InviteCode); errors.Is(err, store.ErrNotFound) {
			break
		}
		group.InviteCode = utils.GenerateInviteCode()
	}

	if err := s.groups.Create(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// Join admits the member into the group behind the invite code. When the
// join fills the last seat, the turn order is drawn in the same write, so
// no reader ever observes a full group without an order.
func (s *GroupService) Join(ctx context.Context, memberID uuid.UUID, inviteCode string) (*models.Group, error) {
	var result *rotation.Result
	err := s.withRetry(func() error {
		group, err := s.groups.ByInviteCode(ctx, inviteCode)
		if errors.Is(err, store.ErrNotFound) {
			return rotation.ErrInvalidInviteCode
		}
		if err != nil {
			return err
		}
		result, err = rotation.Join(group, memberID.String(), inviteCode)
		if err != nil {
			return err
		}
		return s.groups.WriteIfUnchanged(ctx, result.Group)
	})
	if err != nil {
		return nil, err
	}
	s.fanOut(ctx, result)
	return result.Group, nil
}

// ConfirmReception records that the caller, as current beneficiary,
// received the pot for this round.
func (s *GroupService) ConfirmReception(ctx context.Context, groupID, memberID uuid.UUID) (*models.Group, error) {
	var result *rotation.Result
	err := s.withRetry(func() error {
		group, err := s.groups.Read(ctx, groupID)
		if err != nil {
			return err
		}
		result, err = rotation.ConfirmReception(group, memberID.String())
		if err != nil {
			return err
		}
		return s.groups.WriteIfUnchanged(ctx, result.Group)
	})
	if err != nil {
		return nil, err
	}
	s.fanOut(ctx, result)
	return result.Group, nil
}

// GiveTurn passes the caller's untaken turn to a member scheduled later.
func (s *GroupService) GiveTurn(ctx context.Context, groupID, fromID uuid.UUID, toMemberID string) (*models.Group, error) {
	var result *rotation.Result
	err := s.withRetry(func() error {
		group, err := s.groups.Read(ctx, groupID)
		if err != nil {
			return err
		}
		result, err = rotation.GiveTurn(group, fromID.String(), toMemberID)
		if err != nil {
			return err
		}
		return s.groups.WriteIfUnchanged(ctx, result.Group)
	})
	if err != nil {
		return nil, err
	}
	s.fanOut(ctx, result)
	return result.Group, nil
}

// Delete removes a group permanently. Admin only, and only while the
// group is still waiting for members.
func (s *GroupService) Delete(ctx context.Context, groupID, requesterID uuid.UUID) error {
	group, err := s.groups.Read(ctx, groupID)
	if err != nil {
		return err
	}
	if err := rotation.CanDelete(group, requesterID.String()); err != nil {
		return err
	}
	return s.groups.Delete(ctx, groupID)
}

// Get returns the group if the requester is a member. The stored status
// is checked against the derived one and healed in place when it drifted.
func (s *GroupService) Get(ctx context.Context, groupID, requesterID uuid.UUID) (*models.Group, error) {
	group, err := s.groups.Read(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(requesterID.String()) {
		return nil, rotation.ErrUnauthorizedAction
	}

	if derived := rotation.DeriveStatus(group); derived != group.Status {
		healed := group.Clone()
		healed.Status = derived
		if err := s.groups.WriteIfUnchanged(ctx, healed); err != nil {
			// A concurrent writer already moved the record on; serve the
			// derived status either way.
			log.Printf("⚠️  Could not heal status for group %s: %v", group.ID, err)
		}
		group = healed
	}
	return group, nil
}

// List returns all groups the member belongs to.
func (s *GroupService) List(ctx context.Context, memberID uuid.UUID) ([]models.Group, error) {
	return s.groups.ByMember(ctx, memberID.String())
}

// Alerts returns the member's inbox: the most recent alerts across all
// their groups, newest first.
func (s *GroupService) Alerts(ctx context.Context, memberID uuid.UUID, limit int) ([]models.Alert, error) {
	groups, err := s.groups.ByMember(ctx, memberID.String())
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(groups))
	names := make(map[uuid.UUID]string, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
		names[g.ID] = g.Name
	}
	alerts, err := s.alerts.ByGroups(ctx, ids, limit)
	if err != nil {
		return nil, err
	}
	for i := range alerts {
		alerts[i].GroupName = names[alerts[i].GroupID]
	}
	return alerts, nil
}

// EmailInvite sends the group's invite code to an email address.
func (s *GroupService) EmailInvite(ctx context.Context, groupID, inviterID uuid.UUID, email string) error {
	group, err := s.groups.Read(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.HasMember(inviterID.String()) {
		return rotation.ErrUnauthorizedAction
	}
	if len(group.Members) >= group.MaxMembers {
		return rotation.ErrGroupFull
	}

	inviter := s.dir.Lookup(ctx, []string{inviterID.String()})[inviterID.String()]
	go s.notifier.Send(context.WithoutCancel(ctx), Notification{
		Title:      fmt.Sprintf("%s invited you to \"%s\"", inviter.DisplayName, group.Name),
		Body:       fmt.Sprintf("Join with invite code %s.", group.InviteCode),
		HTMLBody:   buildInviteEmailHTML(inviter.DisplayName, group.Name, group.InviteCode),
		Recipients: []directory.Profile{{Email: email}},
		SendEmail:  true,
	})
	return nil
}

// withRetry re-runs fn after an optimistic-concurrency conflict, up to
// maxWriteAttempts. fn re-reads the record on every attempt so each retry
// applies against the latest committed state.
func (s *GroupService) withRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		err = fn()
		if !errors.Is(err, store.ErrConcurrentModification) {
			return err
		}
	}
	return err
}

// fanOut resolves display names, appends inbox alerts and dispatches push
// and email notifications for each event. Delivery is best-effort: it
// never affects the committed state transition.
func (s *GroupService) fanOut(ctx context.Context, result *rotation.Result) {
	group := result.Group
	profiles := s.dir.Lookup(ctx, group.Members)

	for _, ev := range result.Events {
		ev = enrichEvent(ev, profiles)
		n := renderEvent(group, ev, profiles)

		if err := s.alerts.Append(ctx, &models.Alert{
			GroupID: group.ID,
			Type:    ev.EventType(),
			Message: n.Body,
		}); err != nil {
			log.Printf("⚠️  Failed to append alert for group %s: %v", group.ID, err)
		}

		go s.notifier.Send(context.WithoutCancel(ctx), n)
	}
}

// enrichEvent fills in the display-name fields the engine leaves empty.
func enrichEvent(ev rotation.Event, profiles map[string]directory.Profile) rotation.Event {
	name := func(id string) string {
		if p, ok := profiles[id]; ok {
			return p.DisplayName
		}
		return directory.Placeholder.DisplayName
	}
	switch e := ev.(type) {
	case rotation.NewMemberJoined:
		e.MemberName = name(e.MemberID)
		return e
	case rotation.PaymentConfirmed:
		e.SenderName = name(e.SenderID)
		return e
	case rotation.TurnTransferred:
		e.FromName = name(e.FromID)
		e.ToName = name(e.ToID)
		return e
	default:
		return ev
	}
}

// renderEvent turns a rotation event into a human-readable notification
// with its recipient list.
func renderEvent(group *models.Group, ev rotation.Event, profiles map[string]directory.Profile) Notification {
	data := map[string]string{"type": ev.EventType(), "group_id": group.ID.String()}

	all := func(exclude string) []directory.Profile {
		var out []directory.Profile
		for _, id := range group.Members {
			if id == exclude {
				continue
			}
			if p, ok := profiles[id]; ok {
				out = append(out, p)
			}
		}
		return out
	}

	switch e := ev.(type) {
	case rotation.GroupIsFull:
		return Notification{
			Title:      fmt.Sprintf("\"%s\" is complete!", group.Name),
			Body:       fmt.Sprintf("All %d members have joined. The draw is done — open the app to see the turn order.", group.MaxMembers),
			Data:       data,
			Recipients: all(""),
		}
	case rotation.NewMemberJoined:
		return Notification{
			Title:      fmt.Sprintf("New member in \"%s\"", group.Name),
			Body:       fmt.Sprintf("%s joined the group (%d/%d members).", e.MemberName, len(group.Members), group.MaxMembers),
			Data:       data,
			Recipients: all(e.MemberID),
		}
	case rotation.PaymentConfirmed:
		return Notification{
			Title:      fmt.Sprintf("Payment confirmed — %s", group.Name),
			Body:       fmt.Sprintf("%s confirmed receiving the pot for this round.", e.SenderName),
			Data:       data,
			Recipients: all(""),
		}
	case rotation.YourTurn:
		var recipients []directory.Profile
		if p, ok := profiles[e.RecipientID]; ok {
			recipients = append(recipients, p)
		}
		return Notification{
			Title:      fmt.Sprintf("It's your turn in \"%s\"!", group.Name),
			Body:       fmt.Sprintf("You are the beneficiary of this round of %s.", group.Name),
			Data:       data,
			Recipients: recipients,
			SendEmail:  true,
		}
	case rotation.TurnTransferred:
		return Notification{
			Title:      fmt.Sprintf("Turn transferred — %s", group.Name),
			Body:       fmt.Sprintf("%s gave their turn to %s.", e.FromName, e.ToName),
			Data:       data,
			Recipients: all(""),
		}
	default:
		return Notification{Title: group.Name, Data: data, Recipients: all("")}
	}
}
