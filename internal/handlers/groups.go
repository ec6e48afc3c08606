package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-node/internal/models"
	"chat-node/internal/telemetry"
)

type groupService interface {
	CreateGroup(ctx context.Context, name string, members []string) (models.GroupReceipt, error)
	AddMember(ctx context.Context, groupID, member string) (models.GroupReceipt, error)
	LeaveGroup(ctx context.Context, groupID string) (models.GroupReceipt, error)
}

// GroupHandler manages group endpoints.
type GroupHandler struct {
	auditor
	groups groupService
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groups groupService, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{auditor: auditor{audit: audit}, groups: groups}
}

type groupResponse struct {
	models.GroupReceipt
	Status string `json:"status"`
}

func newGroupResponse(receipt models.GroupReceipt) groupResponse {
	return groupResponse{GroupReceipt: receipt, Status: receipt.Replication.Status()}
}

// CreateGroup handles POST /api/groups.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name    string   `json:"name"`
		Members []string `json:"members"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := h.groups.CreateGroup(c.Request.Context(), req.Name, req.Members)
	if err != nil {
		h.emitAudit(c, "ERROR", "group creation rejected")
		writeError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Group created")
	c.JSON(http.StatusCreated, newGroupResponse(receipt))
}

// AddMember handles POST /api/groups/:group_id/members.
func (h *GroupHandler) AddMember(c *gin.Context) {
	var req struct {
		Member string `json:"member" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := h.groups.AddMember(c.Request.Context(), c.Param("group_id"), req.Member)
	if err != nil {
		h.emitAudit(c, "ERROR", "add member rejected")
		writeError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Group member added")
	c.JSON(http.StatusOK, newGroupResponse(receipt))
}

// LeaveGroup handles DELETE /api/groups/:group_id/me.
func (h *GroupHandler) LeaveGroup(c *gin.Context) {
	receipt, err := h.groups.LeaveGroup(c.Request.Context(), c.Param("group_id"))
	if err != nil {
		h.emitAudit(c, "ERROR", "leave group rejected")
		writeError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Group left")
	c.JSON(http.StatusOK, newGroupResponse(receipt))
}
