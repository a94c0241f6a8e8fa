package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-core/internal/events"
	"chat-core/internal/middleware"
	"chat-core/internal/services"
	"chat-core/internal/telemetry"
)

// GroupHandler manages group-related endpoints.
type GroupHandler struct {
	groups *services.GroupService
	chat   *services.ChatService
	events *events.Dispatcher
	audit  *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groups *services.GroupService, chat *services.ChatService, dispatcher *events.Dispatcher, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{groups: groups, chat: chat, events: dispatcher, audit: audit}
}

// ListGroups handles GET /groups.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.groups.List(c.Request.Context(), middleware.CredentialsFrom(c))
	if err != nil {
		respondError(c, h.audit, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "groups": groups})
}

// JoinedGroups handles GET /groups/joined.
func (h *GroupHandler) JoinedGroups(c *gin.Context) {
	joined, err := h.chat.JoinedGroups(c.Request.Context(), middleware.CredentialsFrom(c))
	if err != nil {
		respondError(c, h.audit, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "groups": joined})
}

// CreateGroup handles POST /groups.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required"`
		Profile string `json:"profile"`
		Bio     string `json:"bio"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.audit, err)
		return
	}

	group, err := h.groups.Create(c.Request.Context(), middleware.CredentialsFrom(c), req.Name, req.Profile, req.Bio)
	if err != nil {
		respondError(c, h.audit, err)
		return
	}
	emitAudit(c, h.audit, telemetry.Record{Action: telemetry.ActionGroupCreated, Target: group.Name})
	c.JSON(http.StatusCreated, gin.H{"status": "OK", "group": group.Name})
}

// GroupInfo handles GET /groups/:name.
func (h *GroupHandler) GroupInfo(c *gin.Context) {
	info, err := h.groups.Info(c.Request.Context(), middleware.CredentialsFrom(c), c.Param("name"))
	if err != nil {
		respondError(c, h.audit, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "group": info})
}

// PostMessage handles POST /groups/:name/messages. A skipped post is reported with
// 202 and its reason; nothing is stored in that case.
func (h *GroupHandler) PostMessage(c *gin.Context) {
	var req struct {
		Text string `json:"message" binding:"required"`
		Time string `json:"time"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.audit, err)
		return
	}

	creds := middleware.CredentialsFrom(c)
	group := c.Param("name")
	res, err := h.groups.Post(c.Request.Context(), services.PostRequest{
		From:  creds.Username,
		Group: group,
		Text:  req.Text,
		Time:  req.Time,
	})
	if err != nil {
		respondError(c, h.audit, err)
		return
	}

	if res.Status == services.PostSkipped {
		h.events.GroupSkipped(c.Request.Context(), group, creds.Username, res.Reason)
		c.JSON(http.StatusAccepted, res)
		return
	}
	h.events.GroupPosted(c.Request.Context(), *res.Message)
	c.JSON(http.StatusCreated, res)
}

// History handles GET /groups/:name/messages.
func (h *GroupHandler) History(c *gin.Context) {
	msgs, err := h.groups.History(c.Request.Context(), middleware.CredentialsFrom(c), c.Param("name"))
	if err != nil {
		respondError(c, h.audit, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "messages": msgs})
}

// ListMembers handles GET /groups/:name/members.
func (h *GroupHandler) ListMembers(c *gin.Context) {
	members, err := h.groups.ListMembers(c.Request.Context(), middleware.CredentialsFrom(c), c.Param("name"))
	if err != nil {
		respondError(c, h.audit, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "members": members})
}

// AddMember handles POST /groups/:name/members.
func (h *GroupHandler) AddMember(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.audit, err)
		return
	}

	group := c.Param("name")
	if err := h.groups.AddMemberAs(c.Request.Context(), middleware.CredentialsFrom(c), group, req.Username); err != nil {
		respondError(c, h.audit, err)
		return
	}
	emitAudit(c, h.audit, telemetry.Record{Action: telemetry.ActionMemberAdded, Target: group, Detail: req.Username})
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

// RemoveMember handles DELETE /groups/:name/members/:username.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	group, username := c.Param("name"), c.Param("username")
	if err := h.groups.RemoveMemberAs(c.Request.Context(), middleware.CredentialsFrom(c), group, username); err != nil {
		respondError(c, h.audit, err)
		return
	}
	emitAudit(c, h.audit, telemetry.Record{Action: telemetry.ActionMemberRemoved, Target: group, Detail: username})
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}
