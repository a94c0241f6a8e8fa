package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-core/internal/events"
	"chat-core/internal/middleware"
	"chat-core/internal/services"
	"chat-core/internal/telemetry"
)

// ChatHandler manages private chat endpoints.
type ChatHandler struct {
	chat   *services.ChatService
	events *events.Dispatcher
	audit  *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chat *services.ChatService, dispatcher *events.Dispatcher, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{chat: chat, events: dispatcher, audit: audit}
}

// EnsureInbox handles POST /private/inbox.
func (h *ChatHandler) EnsureInbox(c *gin.Context) {
	creds := middleware.CredentialsFrom(c)
	created, err := h.chat.EnsureInbox(c.Request.Context(), creds.Username)
	if err != nil {
		respondError(c, h.audit, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"status": "OK", "created": created})
}

// SendMessage handles POST /private/messages. The sender is the authenticated caller.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req struct {
		To      string `json:"to" binding:"required"`
		Text    string `json:"message" binding:"required"`
		Time    string `json:"time"`
		ReplyTo *int64 `json:"reply_to"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.audit, err)
		return
	}

	creds := middleware.CredentialsFrom(c)
	msg, err := h.chat.Send(c.Request.Context(), services.SendRequest{
		From:    creds.Username,
		To:      req.To,
		Text:    req.Text,
		Time:    req.Time,
		ReplyTo: req.ReplyTo,
	})
	if err != nil {
		respondError(c, h.audit, err)
		return
	}

	h.events.PrivateSent(c.Request.Context(), msg)
	c.JSON(http.StatusCreated, gin.H{"status": "OK", "message": msg})
}

// EditMessage handles PATCH /private/messages/:id.
func (h *ChatHandler) EditMessage(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, h.audit, errors.New("invalid message id"))
		return
	}
	var req struct {
		Peer string `json:"peer" binding:"required"`
		Text string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.audit, err)
		return
	}

	creds := middleware.CredentialsFrom(c)
	msg, err := h.chat.Edit(c.Request.Context(), creds, id, req.Peer, req.Text)
	if err != nil {
		respondError(c, h.audit, err)
		return
	}

	h.events.PrivateEdited(c.Request.Context(), creds.Username, req.Peer, msg)
	c.JSON(http.StatusOK, gin.H{"status": "OK", "message": msg})
}

// ListConversations handles GET /private/conversations.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	convs, err := h.chat.ListConversations(c.Request.Context(), middleware.CredentialsFrom(c))
	if err != nil {
		respondError(c, h.audit, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "conversations": convs})
}

// Thread handles GET /private/conversations/:peer/messages.
func (h *ChatHandler) Thread(c *gin.Context) {
	msgs, err := h.chat.Thread(c.Request.Context(), middleware.CredentialsFrom(c), c.Param("peer"))
	if err != nil {
		respondError(c, h.audit, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "messages": msgs})
}

// MarkRead handles POST /private/conversations/:peer/read.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	if err := h.chat.MarkRead(c.Request.Context(), middleware.CredentialsFrom(c), c.Param("peer")); err != nil {
		respondError(c, h.audit, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}
