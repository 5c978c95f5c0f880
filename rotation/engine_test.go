package rotation

import (
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tontine-backend/models"
)

func waitingGroup(maxMembers int, members ...string) *models.Group {
	return &models.Group{
		ID:              uuid.New(),
		Name:            "Test tontine",
		Contribution:    1000,
		Frequency:       models.FrequencyMonthly,
		MaxMembers:      maxMembers,
		TotalRounds:     maxMembers,
		Members:         members,
		InviteCode:      "ABC123",
		StartDate:       time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		ReceptionStatus: models.ReceptionMap{},
		Status:          models.StatusWaiting,
	}
}

// activeGroup builds a group whose order is already drawn, in the given
// turn order.
func activeGroup(order ...string) *models.Group {
	members := make([]string, len(order))
	copy(members, order)
	sort.Strings(members)

	g := waitingGroup(len(order), members...)
	g.TurnOrder = order
	g.Status = models.StatusActive
	return g
}

func sortedCopy(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}

func TestGenerateTurnOrder(t *testing.T) {
	g := waitingGroup(3, "alice", "bob", "carol")

	res, err := GenerateTurnOrder(g)
	require.NoError(t, err)

	assert.Equal(t, models.StatusActive, res.Group.Status)
	assert.Equal(t, sortedCopy(res.Group.Members), sortedCopy(res.Group.TurnOrder),
		"turn order must be a permutation of members")
	assert.Len(t, res.Group.ReceptionStatus, 0)

	require.Len(t, res.Events, 1)
	full, ok := res.Events[0].(GroupIsFull)
	require.True(t, ok)
	assert.Equal(t, g.ID.String(), full.GroupID)

	// The input group is untouched.
	assert.Empty(t, g.TurnOrder)
	assert.Equal(t, models.StatusWaiting, g.Status)
}

func TestGenerateTurnOrderNotFull(t *testing.T) {
	g := waitingGroup(3, "alice", "bob")

	_, err := GenerateTurnOrder(g)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestGenerateTurnOrderNeverReshuffles(t *testing.T) {
	g := waitingGroup(3, "alice", "bob", "carol")

	res, err := GenerateTurnOrder(g)
	require.NoError(t, err)

	drawn := append([]string{}, res.Group.TurnOrder...)
	_, err = GenerateTurnOrder(res.Group)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, drawn, []string(res.Group.TurnOrder), "failed call must not touch the order")
}

func TestGenerateTurnOrderUsesDraw(t *testing.T) {
	orig := shuffle
	shuffle = func(order []string) {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}
	defer func() { shuffle = orig }()

	g := waitingGroup(3, "alice", "bob", "carol")
	res, err := GenerateTurnOrder(g)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol", "bob", "alice"}, []string(res.Group.TurnOrder))
}

func TestJoinAppendsMember(t *testing.T) {
	g := waitingGroup(3, "alice")

	res, err := Join(g, "bob", "ABC123")
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob"}, []string(res.Group.Members))
	assert.Equal(t, models.StatusWaiting, res.Group.Status)
	assert.Empty(t, res.Group.TurnOrder)

	require.Len(t, res.Events, 1)
	joined, ok := res.Events[0].(NewMemberJoined)
	require.True(t, ok)
	assert.Equal(t, "bob", joined.MemberID)
}

func TestJoinLastSeatDrawsOrder(t *testing.T) {
	g := waitingGroup(3, "alice", "bob")

	res, err := Join(g, "carol", "ABC123")
	require.NoError(t, err)

	assert.Equal(t, models.StatusActive, res.Group.Status)
	assert.Equal(t, []string{"alice", "bob", "carol"}, sortedCopy(res.Group.TurnOrder))

	// Single "group is full" event, no "joined" alongside it.
	require.Len(t, res.Events, 1)
	assert.IsType(t, GroupIsFull{}, res.Events[0])
}

func TestJoinValidation(t *testing.T) {
	t.Run("wrong invite code", func(t *testing.T) {
		g := waitingGroup(3, "alice")
		_, err := Join(g, "bob", "WRONG1")
		assert.ErrorIs(t, err, ErrInvalidInviteCode)
	})

	t.Run("already a member", func(t *testing.T) {
		g := waitingGroup(3, "alice", "bob")
		_, err := Join(g, "bob", "ABC123")
		assert.ErrorIs(t, err, ErrAlreadyMember)
	})

	t.Run("group full", func(t *testing.T) {
		g := activeGroup("bob", "alice", "carol")
		_, err := Join(g, "dave", "ABC123")
		assert.ErrorIs(t, err, ErrGroupFull)
	})
}

func TestConfirmReceptionAdvancesBeneficiary(t *testing.T) {
	g := activeGroup("bob", "alice", "carol")

	res, err := ConfirmReception(g, "bob")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Group.ReceivedCount())
	assert.Equal(t, models.StatusActive, res.Group.Status)

	next, ok := CurrentBeneficiary(res.Group)
	require.True(t, ok)
	assert.Equal(t, "alice", next)

	require.Len(t, res.Events, 2)
	confirmed, ok := res.Events[0].(PaymentConfirmed)
	require.True(t, ok)
	assert.Equal(t, "bob", confirmed.SenderID)
	turn, ok := res.Events[1].(YourTurn)
	require.True(t, ok)
	assert.Equal(t, "alice", turn.RecipientID)
}

func TestConfirmReceptionOutOfTurn(t *testing.T) {
	g := activeGroup("bob", "alice", "carol")

	_, err := ConfirmReception(g, "alice")
	assert.ErrorIs(t, err, ErrUnauthorizedAction)
	assert.Equal(t, 0, g.ReceivedCount())
}

func TestConfirmReceptionTwice(t *testing.T) {
	g := activeGroup("bob", "alice", "carol")

	res, err := ConfirmReception(g, "bob")
	require.NoError(t, err)

	_, err = ConfirmReception(res.Group, "bob")
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)
}

func TestFullCycleCompletes(t *testing.T) {
	g := activeGroup("bob", "alice", "carol")

	for _, member := range []string{"bob", "alice"} {
		res, err := ConfirmReception(g, member)
		require.NoError(t, err)
		g = res.Group
		assert.Equal(t, models.StatusActive, g.Status)
	}

	res, err := ConfirmReception(g, "carol")
	require.NoError(t, err)
	g = res.Group

	assert.Equal(t, models.StatusCompleted, g.Status)
	assert.Equal(t, g.TotalRounds, g.ReceivedCount())

	// No "your turn" after the final round.
	require.Len(t, res.Events, 1)
	assert.IsType(t, PaymentConfirmed{}, res.Events[0])

	_, ok := CurrentBeneficiary(g)
	assert.False(t, ok)

	// A completed group accepts no further operations.
	_, err = ConfirmReception(g, "carol")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = GiveTurn(g, "carol", "alice")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestGiveTurnSwapsPositions(t *testing.T) {
	g := activeGroup("bob", "alice", "carol")

	res, err := GiveTurn(g, "bob", "carol")
	require.NoError(t, err)

	assert.Equal(t, []string{"carol", "alice", "bob"}, []string(res.Group.TurnOrder))
	next, _ := CurrentBeneficiary(res.Group)
	assert.Equal(t, "carol", next)

	require.Len(t, res.Events, 1)
	transferred, ok := res.Events[0].(TurnTransferred)
	require.True(t, ok)
	assert.Equal(t, "bob", transferred.FromID)
	assert.Equal(t, "carol", transferred.ToID)

	// The original order is untouched.
	assert.Equal(t, []string{"bob", "alice", "carol"}, []string(g.TurnOrder))
}

func TestGiveTurnMidCycleLeavesOthersInPlace(t *testing.T) {
	g := activeGroup("bob", "alice", "carol", "dave")

	res, err := ConfirmReception(g, "bob")
	require.NoError(t, err)
	g = res.Group

	// alice (position 1) passes to dave (position 3); carol keeps slot 2.
	res, err = GiveTurn(g, "alice", "dave")
	require.NoError(t, err)

	assert.Equal(t, []string{"bob", "dave", "carol", "alice"}, []string(res.Group.TurnOrder))
}

func TestGiveTurnByNonBeneficiary(t *testing.T) {
	g := activeGroup("bob", "alice", "carol")

	_, err := GiveTurn(g, "alice", "carol")
	assert.ErrorIs(t, err, ErrUnauthorizedAction)
}

func TestGiveTurnOrderingRule(t *testing.T) {
	g := activeGroup("bob", "alice", "carol")
	res, err := ConfirmReception(g, "bob")
	require.NoError(t, err)
	g = res.Group // alice is now the beneficiary

	t.Run("to a member who already received", func(t *testing.T) {
		_, err := GiveTurn(g, "alice", "bob")
		assert.ErrorIs(t, err, ErrInvalidTransfer)
	})

	t.Run("to self", func(t *testing.T) {
		_, err := GiveTurn(g, "alice", "alice")
		assert.ErrorIs(t, err, ErrInvalidTransfer)
	})

	t.Run("to a stranger", func(t *testing.T) {
		_, err := GiveTurn(g, "alice", "mallory")
		assert.ErrorIs(t, err, ErrInvalidTransfer)
	})
}

func TestGiveTurnFinalRound(t *testing.T) {
	g := activeGroup("bob", "alice", "carol")
	for _, member := range []string{"bob", "alice"} {
		res, err := ConfirmReception(g, member)
		require.NoError(t, err)
		g = res.Group
	}

	// carol is the last beneficiary; nobody is scheduled after her.
	_, err := GiveTurn(g, "carol", "alice")
	assert.ErrorIs(t, err, ErrInvalidTransfer)
}

func TestReceivedCountIsMonotonic(t *testing.T) {
	g := activeGroup("bob", "alice", "carol", "dave")

	last := g.ReceivedCount()
	steps := []func(*models.Group) (*Result, error){
		func(g *models.Group) (*Result, error) { return ConfirmReception(g, "bob") },
		func(g *models.Group) (*Result, error) { return GiveTurn(g, "alice", "dave") },
		func(g *models.Group) (*Result, error) { return ConfirmReception(g, "dave") },
		func(g *models.Group) (*Result, error) { return ConfirmReception(g, "carol") },
		func(g *models.Group) (*Result, error) { return ConfirmReception(g, "alice") },
	}
	for i, step := range steps {
		res, err := step(g)
		require.NoError(t, err, "step %d", i)
		g = res.Group
		assert.GreaterOrEqual(t, g.ReceivedCount(), last)
		assert.LessOrEqual(t, g.ReceivedCount(), g.TotalRounds)
		assert.Equal(t, DeriveStatus(g), g.Status, "stored status must match derived status")
		last = g.ReceivedCount()
	}
	assert.Equal(t, models.StatusCompleted, g.Status)
}

func TestDeriveStatus(t *testing.T) {
	waiting := waitingGroup(3, "alice")
	assert.Equal(t, models.StatusWaiting, DeriveStatus(waiting))

	active := activeGroup("bob", "alice", "carol")
	assert.Equal(t, models.StatusActive, DeriveStatus(active))

	res, err := ConfirmReception(active, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, DeriveStatus(res.Group))

	done := activeGroup("bob", "alice", "carol")
	for _, m := range []string{"bob", "alice", "carol"} {
		r, err := ConfirmReception(done, m)
		require.NoError(t, err)
		done = r.Group
	}
	assert.Equal(t, models.StatusCompleted, DeriveStatus(done))
}

func TestBeneficiaryAt(t *testing.T) {
	g := activeGroup("bob", "alice", "carol")

	id, ok := BeneficiaryAt(g, 0)
	assert.True(t, ok)
	assert.Equal(t, "bob", id)

	id, ok = BeneficiaryAt(g, 2)
	assert.True(t, ok)
	assert.Equal(t, "carol", id)

	_, ok = BeneficiaryAt(g, 3)
	assert.False(t, ok)
	_, ok = BeneficiaryAt(g, -1)
	assert.False(t, ok)

	_, ok = BeneficiaryAt(waitingGroup(3, "alice"), 0)
	assert.False(t, ok)
}

func TestRoundDate(t *testing.T) {
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	weekly := activeGroup("bob", "alice", "carol")
	weekly.Frequency = models.FrequencyWeekly
	weekly.StartDate = start
	assert.Equal(t, start, RoundDate(weekly, 0))
	assert.Equal(t, start.AddDate(0, 0, 14), RoundDate(weekly, 2))

	biweekly := activeGroup("bob", "alice", "carol")
	biweekly.Frequency = models.FrequencyBiWeekly
	biweekly.StartDate = start
	assert.Equal(t, start.AddDate(0, 0, 28), RoundDate(biweekly, 2))

	monthly := activeGroup("bob", "alice", "carol")
	monthly.StartDate = start
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), RoundDate(monthly, 2))
}

func TestCanDelete(t *testing.T) {
	admin := uuid.New()
	other := uuid.New()

	g := waitingGroup(3, admin.String())
	g.AdminID = admin

	assert.ErrorIs(t, CanDelete(g, other.String()), ErrUnauthorizedAction)
	assert.NoError(t, CanDelete(g, admin.String()))

	active := activeGroup(admin.String(), other.String())
	active.AdminID = admin
	assert.ErrorIs(t, CanDelete(active, admin.String()), ErrInvalidState)
}
