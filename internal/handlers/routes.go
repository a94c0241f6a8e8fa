package handlers

import (
	"github.com/gin-gonic/gin"

	"chat-core/internal/identity"
	"chat-core/internal/middleware"
)

// RegisterAPIRoutes wires the private and group endpoints. Routes that act in the
// caller's name without a token-checking service call are verified up front.
func RegisterAPIRoutes(api gin.IRouter, gate identity.Gate, chat *ChatHandler, groups *GroupHandler) {
	creds := middleware.Credentials()
	verified := middleware.RequireAuth(gate)

	private := api.Group("/private")
	private.POST("/inbox", verified, chat.EnsureInbox)
	private.POST("/messages", verified, chat.SendMessage)
	private.PATCH("/messages/:id", creds, chat.EditMessage)
	private.GET("/conversations", creds, chat.ListConversations)
	private.GET("/conversations/:peer/messages", creds, chat.Thread)
	private.POST("/conversations/:peer/read", creds, chat.MarkRead)

	g := api.Group("/groups")
	g.GET("", creds, groups.ListGroups)
	g.GET("/joined", creds, groups.JoinedGroups)
	g.POST("", creds, groups.CreateGroup)
	g.GET("/:name", creds, groups.GroupInfo)
	g.POST("/:name/messages", verified, groups.PostMessage)
	g.GET("/:name/messages", creds, groups.History)
	g.GET("/:name/members", creds, groups.ListMembers)
	g.POST("/:name/members", creds, groups.AddMember)
	g.DELETE("/:name/members/:username", creds, groups.RemoveMember)
}
