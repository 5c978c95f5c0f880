package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tontine-backend/directory"
	"tontine-backend/models"
	"tontine-backend/rotation"
	"tontine-backend/store"
	"tontine-backend/utils"
)

// POST /api/groups
func CreateGroup(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	group, err := groupService.Create(c.Request.Context(), userID, req)
	if err != nil {
		utils.BadRequest(c, "Failed to create group")
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Group created", buildGroupResponse(c, group))
}

// GET /api/groups
func GetGroups(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	groups, err := groupService.List(c.Request.Context(), userID)
	if err != nil {
		utils.InternalError(c, "Failed to list groups")
		return
	}

	responses := make([]models.GroupResponse, 0, len(groups))
	for i := range groups {
		responses = append(responses, buildGroupResponse(c, &groups[i]))
	}

	utils.SuccessResponse(c, http.StatusOK, "", responses)
}

// GET /api/groups/:id
func GetGroup(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	group, err := groupService.Get(c.Request.Context(), groupID, userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", buildGroupResponse(c, group))
}

// GET /api/groups/:id/schedule
func GetSchedule(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	group, err := groupService.Get(c.Request.Context(), groupID, userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	profiles := userDir.Lookup(c.Request.Context(), group.TurnOrder)
	entries := make([]models.ScheduleEntry, 0, len(group.TurnOrder))
	for i := range group.TurnOrder {
		memberID, _ := rotation.BeneficiaryAt(group, i)
		entries = append(entries, models.ScheduleEntry{
			Round:           i + 1,
			BeneficiaryID:   memberID,
			BeneficiaryName: profiles[memberID].DisplayName,
			Date:            rotation.RoundDate(group, i),
			Received:        group.ReceptionStatus[memberID] == models.ReceptionReceived,
		})
	}

	utils.SuccessResponse(c, http.StatusOK, "", entries)
}

// POST /api/groups/join
func JoinGroup(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req models.JoinGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	group, err := groupService.Join(c.Request.Context(), userID, req.InviteCode)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Joined group", buildGroupResponse(c, group))
}

// POST /api/groups/:id/confirm
func ConfirmReception(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	group, err := groupService.ConfirmReception(c.Request.Context(), groupID, userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Reception confirmed", buildGroupResponse(c, group))
}

// POST /api/groups/:id/give-turn
func GiveTurn(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	var req models.GiveTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	group, err := groupService.GiveTurn(c.Request.Context(), groupID, userID, req.ToMemberID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Turn transferred", buildGroupResponse(c, group))
}

// DELETE /api/groups/:id
func DeleteGroup(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	if err := groupService.Delete(c.Request.Context(), groupID, userID); err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Group deleted", nil)
}

// POST /api/groups/:id/invite
func InviteToGroup(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if err := groupService.EmailInvite(c.Request.Context(), groupID, userID, req.Email); err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Invitation sent", nil)
}

// respondDomainError maps engine and store errors to user-facing
// responses. Internals never leak to the client.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.NotFound(c, "Group not found")
	case errors.Is(err, rotation.ErrInvalidInviteCode):
		utils.NotFound(c, "No group found for this invite code")
	case errors.Is(err, rotation.ErrAlreadyMember):
		utils.Conflict(c, "You are already a member of this group")
	case errors.Is(err, rotation.ErrGroupFull):
		utils.Conflict(c, "This group is already full")
	case errors.Is(err, rotation.ErrUnauthorizedAction):
		utils.Forbidden(c, "You are not allowed to perform this action")
	case errors.Is(err, rotation.ErrAlreadyConfirmed):
		utils.Conflict(c, "Reception already confirmed for this round")
	case errors.Is(err, rotation.ErrInvalidTransfer):
		utils.BadRequest(c, "You can only give your turn to a member scheduled after you")
	case errors.Is(err, rotation.ErrInvalidState):
		utils.Conflict(c, "This action is not allowed in the group's current state")
	case errors.Is(err, store.ErrConcurrentModification):
		utils.Conflict(c, "The group changed while processing your request, please try again")
	default:
		utils.InternalError(c, "Something went wrong")
	}
}

// buildGroupResponse assembles the full group view: member roles,
// payment statuses, current beneficiary and the computed cycle fields.
func buildGroupResponse(c *gin.Context, group *models.Group) models.GroupResponse {
	profiles := userDir.Lookup(c.Request.Context(), group.Members)

	position := make(map[string]int, len(group.TurnOrder))
	for i, id := range group.TurnOrder {
		position[id] = i + 1
	}

	members := make([]models.GroupMemberResponse, 0, len(group.Members))
	for _, id := range group.Members {
		role := "member"
		if id == group.AdminID.String() {
			role = "admin"
		}
		status := group.ReceptionStatus[id]
		if status == "" && len(group.TurnOrder) > 0 {
			status = models.ReceptionPending
		}
		members = append(members, models.GroupMemberResponse{
			UserID:          id,
			Name:            profiles[id].DisplayName,
			Email:           profiles[id].Email,
			Role:            role,
			TurnPosition:    position[id],
			ReceptionStatus: status,
		})
	}

	resp := models.GroupResponse{
		ID:           group.ID,
		Name:         group.Name,
		Contribution: group.Contribution,
		Frequency:    group.Frequency,
		MaxMembers:   group.MaxMembers,
		TotalRounds:  group.TotalRounds,
		Status:       group.Status,
		AdminID:      group.AdminID,
		InviteCode:   group.InviteCode,
		StartDate:    group.StartDate,
		CurrentRound: group.ReceivedCount(),
		TotalPot:     group.Contribution * float64(group.TotalRounds),
		Members:      members,
		CreatedAt:    group.CreatedAt,
	}

	if group.TotalRounds > 0 {
		final := rotation.RoundDate(group, group.TotalRounds-1)
		resp.FinalReceptionDate = &final
	}

	if beneficiaryID, ok := rotation.CurrentBeneficiary(group); ok {
		profile, found := profiles[beneficiaryID]
		if !found {
			profile = directory.Placeholder // order holds an id of a deleted account
		}
		resp.CurrentBeneficiary = &models.GroupMemberResponse{
			UserID:          beneficiaryID,
			Name:            profile.DisplayName,
			Role:            memberRole(group, beneficiaryID),
			TurnPosition:    position[beneficiaryID],
			ReceptionStatus: models.ReceptionPending,
		}
	}

	return resp
}

func memberRole(group *models.Group, memberID string) string {
	if memberID == group.AdminID.String() {
		return "admin"
	}
	return "member"
}
