package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"chat-core/internal/identity"
	"chat-core/internal/logger"
	"chat-core/internal/models"
	"chat-core/internal/observability"
	"chat-core/internal/repositories"
)

var tracer = otel.Tracer("chat-core/services")

// ChatService implements private messaging on top of mirrored per-user inboxes.
type ChatService struct {
	inboxes repositories.InboxRepository
	ids     IDAllocator
	gate    identity.Gate
}

func NewChatService(inboxes repositories.InboxRepository, ids IDAllocator, gate identity.Gate) *ChatService {
	return &ChatService{inboxes: inboxes, ids: ids, gate: gate}
}

// SendRequest carries a private message. Zero Time and ID are filled in; ReplyTo is optional.
type SendRequest struct {
	From    string
	To      string
	Text    string
	Time    string
	ID      int64
	ReplyTo *int64
}

// EnsureInbox creates an empty inbox for username if none exists.
func (s *ChatService) EnsureInbox(ctx context.Context, username string) (bool, error) {
	created, err := s.inboxes.Ensure(ctx, username)
	return created, storeErr("ensure inbox", err)
}

// Send stores the message in both participants' inboxes, moves the conversation to
// the front on both sides and bumps the recipient's unread count. The recipient must
// exist; otherwise nothing is written and ErrPeerNotFound is returned.
//
// The two inbox documents are saved one after the other. If the second save fails
// the sender keeps their copy and the error is returned; it is not retried.
func (s *ChatService) Send(ctx context.Context, req SendRequest) (models.Message, error) {
	ctx, span := tracer.Start(ctx, "chat.send")
	defer span.End()
	span.SetAttributes(attribute.String("chat.from", req.From), attribute.String("chat.to", req.To))

	if req.From == "" || req.To == "" {
		return models.Message{}, ErrInvalidInput
	}
	if req.ID < 0 || (req.ReplyTo != nil && *req.ReplyTo <= 0) {
		return models.Message{}, fmt.Errorf("%w: message ids must be positive", ErrInvalidInput)
	}
	exists, err := s.gate.UserExists(ctx, req.To)
	if err != nil {
		return models.Message{}, identityErr("send", err)
	}
	if !exists {
		observability.IncPrivateMessage("send", "peer_not_found")
		logger.Info("private message not sent: peer does not exist", zap.String("from", req.From), zap.String("to", req.To))
		return models.Message{}, ErrPeerNotFound
	}

	if req.Time == "" {
		req.Time = time.Now().Format(timeLayout)
	}
	if req.ID == 0 {
		if req.ID, err = s.ids.Next(ctx); err != nil {
			return models.Message{}, storeErr("allocate id", err)
		}
	}
	span.SetAttributes(attribute.Int64("chat.message_id", req.ID))

	msg := models.Message{
		ID:      req.ID,
		From:    req.From,
		To:      req.To,
		Text:    req.Text,
		Time:    req.Time,
		ReplyTo: req.ReplyTo,
	}

	err = s.inboxes.UpdatePair(ctx, req.From, req.To, func(sender, recipient *models.PrivateInbox) (bool, bool, error) {
		sender.PutMessage(req.To, msg)
		recipient.PutMessage(req.From, msg)
		sender.Conversations.Touch(req.To, msg.Text, msg.Time)
		recipient.Conversations.Touch(req.From, msg.Text, msg.Time)
		recipient.Conversations.IncrementUnread(req.From)
		return true, true, nil
	})
	if err != nil {
		span.RecordError(err)
		return models.Message{}, storeErr("send", err)
	}

	observability.IncPrivateMessage("send", "ok")
	return msg, nil
}

// Edit rewrites message id in the caller's thread with peer and in the peer's mirrored
// copy. A missing mirror is tolerated: only the caller's copy changes.
func (s *ChatService) Edit(ctx context.Context, creds Credentials, id int64, peer, text string) (models.Message, error) {
	ctx, span := tracer.Start(ctx, "chat.edit")
	defer span.End()

	if err := Authenticate(ctx, s.gate, creds); err != nil {
		observability.IncPrivateMessage("edit", "auth_invalid")
		return models.Message{}, err
	}

	var edited models.Message
	err := s.inboxes.UpdatePair(ctx, creds.Username, peer, func(own, mirror *models.PrivateInbox) (bool, bool, error) {
		if !own.EditMessage(peer, id, text) {
			return false, false, ErrMessageNotFound
		}
		edited = own.MessagesByPeer[peer][id]
		own.Conversations.SetLastMessage(peer, text)

		mirrored := mirror.EditMessage(creds.Username, id, text)
		if !mirrored {
			logger.Warn("edited message has no mirrored copy",
				zap.String("username", creds.Username), zap.String("peer", peer), zap.Int64("message_id", id))
		}
		listed := mirror.Conversations.SetLastMessage(creds.Username, text)
		return true, mirrored || listed, nil
	})
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			observability.IncPrivateMessage("edit", "message_not_found")
		}
		return models.Message{}, storeErr("edit", err)
	}

	observability.IncPrivateMessage("edit", "ok")
	return edited, nil
}

// ListConversations returns the caller's conversation list in stored order, each
// entry enriched with the peer's current profile.
func (s *ChatService) ListConversations(ctx context.Context, creds Credentials) ([]models.ConversationView, error) {
	if err := Authenticate(ctx, s.gate, creds); err != nil {
		return nil, err
	}
	inbox, err := s.inboxes.Get(ctx, creds.Username)
	if err != nil {
		return nil, storeErr("list conversations", err)
	}

	views := make([]models.ConversationView, 0, len(inbox.Conversations))
	for _, summary := range inbox.Conversations {
		profile, err := s.gate.Profile(ctx, summary.Peer)
		if err != nil && !errors.Is(err, identity.ErrUserNotFound) {
			return nil, identityErr("list conversations", err)
		}
		views = append(views, enrichConversation(summary, profile))
	}
	return views, nil
}

func enrichConversation(summary models.ConversationSummary, profile models.Profile) models.ConversationView {
	view := models.ConversationView{
		ConversationSummary: summary,
		Profile:             profile.ProfileURL,
		Status:              profile.Status,
		Role:                profile.Role,
	}
	if view.Profile == "" {
		view.Profile = models.DefaultProfileURL
	}
	if view.Status == "" {
		view.Status = models.StatusOffline
	}
	if view.Role == "" {
		view.Role = models.RoleUser
	}
	return view
}

// Thread returns the caller's copy of the messages exchanged with peer.
func (s *ChatService) Thread(ctx context.Context, creds Credentials, peer string) (map[int64]models.Message, error) {
	if err := Authenticate(ctx, s.gate, creds); err != nil {
		return nil, err
	}
	inbox, err := s.inboxes.Get(ctx, creds.Username)
	if err != nil {
		return nil, storeErr("thread", err)
	}
	return inbox.Thread(peer), nil
}

// MarkRead resets the caller's unread counter for peer.
func (s *ChatService) MarkRead(ctx context.Context, creds Credentials, peer string) error {
	if err := Authenticate(ctx, s.gate, creds); err != nil {
		return err
	}
	err := s.inboxes.Update(ctx, creds.Username, func(in *models.PrivateInbox) (bool, error) {
		entry, ok := in.Conversations.Find(peer)
		if !ok || entry.Unread == 0 {
			return false, nil
		}
		in.Conversations.ResetUnread(peer)
		return true, nil
	})
	return storeErr("mark read", err)
}

// JoinedGroups lists the groups recorded in the caller's inbox.
func (s *ChatService) JoinedGroups(ctx context.Context, creds Credentials) ([]string, error) {
	if err := Authenticate(ctx, s.gate, creds); err != nil {
		return nil, err
	}
	inbox, err := s.inboxes.Get(ctx, creds.Username)
	if err != nil {
		return nil, storeErr("joined groups", err)
	}
	return inbox.JoinedGroups, nil
}
