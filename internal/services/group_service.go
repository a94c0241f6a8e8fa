package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"chat-core/internal/identity"
	"chat-core/internal/logger"
	"chat-core/internal/models"
	"chat-core/internal/observability"
	"chat-core/internal/repositories"
)

type PostStatus string

const (
	PostPosted  PostStatus = "posted"
	PostSkipped PostStatus = "skipped"
)

const (
	SkipGroupNotFound  = "group_not_found"
	SkipSenderNotFound = "sender_not_found"
)

// PostResult reports whether a group post was stored. Skipped posts are not errors.
type PostResult struct {
	Status  PostStatus      `json:"status"`
	Reason  string          `json:"reason,omitempty"`
	Message *models.Message `json:"message,omitempty"`
}

// PostRequest carries a group post. Zero Time and ID are filled in.
type PostRequest struct {
	From  string
	Group string
	Text  string
	Time  string
	ID    int64
}

// GroupService implements group directory, membership and posting.
type GroupService struct {
	groups     repositories.GroupRepository
	inboxes    repositories.InboxRepository
	ids        IDAllocator
	gate       identity.Gate
	autoCreate bool
}

func NewGroupService(groups repositories.GroupRepository, inboxes repositories.InboxRepository, ids IDAllocator, gate identity.Gate, autoCreate bool) *GroupService {
	return &GroupService{groups: groups, inboxes: inboxes, ids: ids, gate: gate, autoCreate: autoCreate}
}

// Create registers a new group with the caller as its first member.
func (s *GroupService) Create(ctx context.Context, creds Credentials, name, profileURL, bio string) (*models.Group, error) {
	if err := Authenticate(ctx, s.gate, creds); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}

	group := models.NewGroup(name, profileURL, bio)
	group.AddMember(creds.Username)
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, storeErr("create group", err)
	}
	logger.Info("group created", zap.String("group", name), zap.String("owner", creds.Username))
	// The group is stored at this point; a failed joined-list write leaves the
	// owner's inbox behind but the group stays created.
	if err := s.syncJoined(ctx, creds.Username, name, true); err != nil {
		logger.Warn("group created without joined-list entry", zap.String("group", name),
			zap.String("owner", creds.Username), zap.Error(err))
	}
	return group, nil
}

// Post appends a message to a group. Unknown groups (unless auto-create is on) and
// unknown senders are skipped without writing anything. Membership is not required.
func (s *GroupService) Post(ctx context.Context, req PostRequest) (PostResult, error) {
	ctx, span := tracer.Start(ctx, "group.post")
	defer span.End()
	span.SetAttributes(attribute.String("chat.group", req.Group), attribute.String("chat.from", req.From))

	if req.ID < 0 {
		return PostResult{}, fmt.Errorf("%w: message id must be positive", ErrInvalidInput)
	}
	if !s.autoCreate {
		if _, err := s.groups.Get(ctx, req.Group); err != nil {
			if errors.Is(err, ErrGroupNotFound) {
				return s.skip(req, SkipGroupNotFound), nil
			}
			return PostResult{}, storeErr("post", err)
		}
	}

	exists, err := s.gate.UserExists(ctx, req.From)
	if err != nil {
		return PostResult{}, identityErr("post", err)
	}
	if !exists {
		return s.skip(req, SkipSenderNotFound), nil
	}

	image := models.DefaultProfileURL
	profile, err := s.gate.Profile(ctx, req.From)
	switch {
	case err == nil && profile.ProfileURL != "":
		image = profile.ProfileURL
	case err != nil && !errors.Is(err, identity.ErrUserNotFound):
		return PostResult{}, identityErr("post", err)
	}

	if req.Time == "" {
		req.Time = time.Now().Format(timeLayout)
	}
	if req.ID == 0 {
		if req.ID, err = s.ids.Next(ctx); err != nil {
			return PostResult{}, storeErr("allocate id", err)
		}
	}
	msg := models.Message{
		ID:      req.ID,
		From:    req.From,
		ToGroup: req.Group,
		Text:    req.Text,
		Time:    req.Time,
		Image:   image,
	}

	var create func() *models.Group
	if s.autoCreate {
		create = func() *models.Group {
			logger.Info("group synthesized on first post", zap.String("group", req.Group))
			return models.NewGroup(req.Group, "", "")
		}
	}

	var stored models.Message
	err = s.groups.UpdateOrCreate(ctx, req.Group, create, func(g *models.Group) (bool, error) {
		stored = g.Append(msg)
		return true, nil
	})
	if errors.Is(err, ErrGroupNotFound) {
		return s.skip(req, SkipGroupNotFound), nil
	}
	if err != nil {
		span.RecordError(err)
		return PostResult{}, storeErr("post", err)
	}

	observability.IncGroupPost(string(PostPosted), "")
	return PostResult{Status: PostPosted, Message: &stored}, nil
}

func (s *GroupService) skip(req PostRequest, reason string) PostResult {
	observability.IncGroupPost(string(PostSkipped), reason)
	logger.Info("group post skipped",
		zap.String("group", req.Group), zap.String("from", req.From), zap.String("reason", reason))
	return PostResult{Status: PostSkipped, Reason: reason}
}

// AddMember appends username to the group and records the group in the user's inbox.
func (s *GroupService) AddMember(ctx context.Context, group, username string) error {
	err := s.groups.Update(ctx, group, func(g *models.Group) (bool, error) {
		if !g.AddMember(username) {
			return false, ErrAlreadyMember
		}
		return true, nil
	})
	if err != nil {
		return storeErr("add member", err)
	}
	return s.syncJoined(ctx, username, group, true)
}

// RemoveMember drops username from the group and from the user's joined list.
func (s *GroupService) RemoveMember(ctx context.Context, group, username string) error {
	err := s.groups.Update(ctx, group, func(g *models.Group) (bool, error) {
		if !g.RemoveMember(username) {
			return false, ErrNotMember
		}
		return true, nil
	})
	if err != nil {
		return storeErr("remove member", err)
	}
	return s.syncJoined(ctx, username, group, false)
}

func (s *GroupService) syncJoined(ctx context.Context, username, group string, joined bool) error {
	err := s.inboxes.Update(ctx, username, func(in *models.PrivateInbox) (bool, error) {
		if joined {
			return in.JoinGroup(group), nil
		}
		return in.LeaveGroup(group), nil
	})
	return storeErr("sync joined groups", err)
}

// AddMemberAs adds username on behalf of the caller. Callers may add themselves or,
// when already members, anyone who has an account.
func (s *GroupService) AddMemberAs(ctx context.Context, creds Credentials, group, username string) error {
	if err := s.authorizeMembership(ctx, creds, group, username); err != nil {
		return err
	}
	exists, err := s.gate.UserExists(ctx, username)
	if err != nil {
		return identityErr("add member", err)
	}
	if !exists {
		return ErrUserNotFound
	}
	return s.AddMember(ctx, group, username)
}

// RemoveMemberAs removes username on behalf of the caller under the same rule as AddMemberAs.
func (s *GroupService) RemoveMemberAs(ctx context.Context, creds Credentials, group, username string) error {
	if err := s.authorizeMembership(ctx, creds, group, username); err != nil {
		return err
	}
	return s.RemoveMember(ctx, group, username)
}

func (s *GroupService) authorizeMembership(ctx context.Context, creds Credentials, group, username string) error {
	if err := Authenticate(ctx, s.gate, creds); err != nil {
		return err
	}
	if creds.Username == username {
		return nil
	}
	g, err := s.groups.Get(ctx, group)
	if err != nil {
		return storeErr("authorize membership", err)
	}
	if !g.IsMember(creds.Username) {
		return ErrForbidden
	}
	return nil
}

// ListMembers returns the group's members with their current profile. Only members may
// list; members whose profile can no longer be found are left out.
func (s *GroupService) ListMembers(ctx context.Context, creds Credentials, group string) ([]models.MemberView, error) {
	if err := Authenticate(ctx, s.gate, creds); err != nil {
		return nil, err
	}
	g, err := s.groups.Get(ctx, group)
	if err != nil {
		return nil, storeErr("list members", err)
	}
	if !g.IsMember(creds.Username) {
		return nil, ErrNotJoined
	}

	members := make([]models.MemberView, 0, len(g.Members))
	for _, username := range g.Members {
		profile, err := s.gate.Profile(ctx, username)
		if errors.Is(err, identity.ErrUserNotFound) {
			logger.Debug("skipping member without profile", zap.String("group", group), zap.String("username", username))
			continue
		}
		if err != nil {
			return nil, identityErr("list members", err)
		}
		members = append(members, models.MemberView{
			Username: username,
			FullName: profile.FullName,
			Profile:  orDefault(profile.ProfileURL, models.DefaultProfileURL),
			Status:   orDefault(profile.Status, models.StatusOffline),
		})
	}
	return members, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Info returns the public name and profile of a group.
func (s *GroupService) Info(ctx context.Context, creds Credentials, group string) (models.GroupInfo, error) {
	if err := Authenticate(ctx, s.gate, creds); err != nil {
		return models.GroupInfo{}, err
	}
	g, err := s.groups.Get(ctx, group)
	if err != nil {
		return models.GroupInfo{}, storeErr("group info", err)
	}
	return models.GroupInfo{Name: g.Name, Profile: g.ProfileURL}, nil
}

// History returns every stored post of the group keyed by id. An unknown group has
// an empty history.
func (s *GroupService) History(ctx context.Context, creds Credentials, group string) (map[int64]models.Message, error) {
	if err := Authenticate(ctx, s.gate, creds); err != nil {
		return nil, err
	}
	g, err := s.groups.Get(ctx, group)
	if errors.Is(err, ErrGroupNotFound) {
		return map[int64]models.Message{}, nil
	}
	if err != nil {
		return nil, storeErr("group history", err)
	}
	return g.History(), nil
}

// List returns the group directory ordered by name.
func (s *GroupService) List(ctx context.Context, creds Credentials) ([]models.GroupSummary, error) {
	if err := Authenticate(ctx, s.gate, creds); err != nil {
		return nil, err
	}
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, storeErr("list groups", err)
	}
	out := make([]models.GroupSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, models.GroupSummary{
			Name:        g.Name,
			Profile:     g.ProfileURL,
			Bio:         g.Bio,
			MemberCount: len(g.Members),
			OnlineCount: len(g.OnlineMembers),
			Last:        g.Last,
		})
	}
	return out, nil
}

// IsMember reports whether username belongs to group.
func (s *GroupService) IsMember(ctx context.Context, group, username string) (bool, error) {
	g, err := s.groups.Get(ctx, group)
	if err != nil {
		return false, storeErr("is member", err)
	}
	return g.IsMember(username), nil
}

// SetOnline records presence of a member in the group's online set. Non-members are ignored.
func (s *GroupService) SetOnline(ctx context.Context, group, username string, online bool) error {
	err := s.groups.Update(ctx, group, func(g *models.Group) (bool, error) {
		if online && !g.IsMember(username) {
			return false, nil
		}
		return g.SetOnline(username, online), nil
	})
	return storeErr("set online", err)
}
