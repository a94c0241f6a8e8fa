package repositories

import (
	"context"
	"errors"

	"chat-core/internal/models"
	"chat-core/internal/store"
)

var (
	ErrGroupNotFound = errors.New("group not found")
	ErrGroupExists   = errors.New("group already exists")
)

// GroupMutator changes a group in place and reports whether it must be saved.
type GroupMutator func(g *models.Group) (bool, error)

// GroupRepository abstracts group documents.
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	Get(ctx context.Context, name string) (*models.Group, error)
	List(ctx context.Context) ([]*models.Group, error)
	Update(ctx context.Context, name string, fn GroupMutator) error
	UpdateOrCreate(ctx context.Context, name string, create func() *models.Group, fn GroupMutator) error
}

// GroupRepo stores groups in a DocumentStore with one lock per group document.
type GroupRepo struct {
	docs  store.DocumentStore
	locks *store.Locks
}

func NewGroupRepo(docs store.DocumentStore, locks *store.Locks) *GroupRepo {
	return &GroupRepo{docs: docs, locks: locks}
}

func groupLock(name string) string {
	return store.DocKey(store.KindGroup, name)
}

func (r *GroupRepo) load(ctx context.Context, name string) (*models.Group, error) {
	var g models.Group
	err := r.docs.Get(ctx, store.KindGroup, name, &g)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	g.Normalize()
	return &g, nil
}

// Create persists a new group; ErrGroupExists if the name is taken.
func (r *GroupRepo) Create(ctx context.Context, group *models.Group) error {
	unlock := r.locks.Lock(groupLock(group.Name))
	defer unlock()

	_, err := r.load(ctx, group.Name)
	switch {
	case err == nil:
		return ErrGroupExists
	case !errors.Is(err, ErrGroupNotFound):
		return err
	}
	return r.docs.Put(ctx, store.KindGroup, group.Name, group)
}

func (r *GroupRepo) Get(ctx context.Context, name string) (*models.Group, error) {
	unlock := r.locks.RLock(groupLock(name))
	defer unlock()
	return r.load(ctx, name)
}

// List returns every group ordered by name.
func (r *GroupRepo) List(ctx context.Context) ([]*models.Group, error) {
	names, err := r.docs.Keys(ctx, store.KindGroup)
	if err != nil {
		return nil, err
	}
	groups := make([]*models.Group, 0, len(names))
	for _, name := range names {
		g, err := r.Get(ctx, name)
		if errors.Is(err, ErrGroupNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func (r *GroupRepo) Update(ctx context.Context, name string, fn GroupMutator) error {
	return r.UpdateOrCreate(ctx, name, nil, fn)
}

// UpdateOrCreate behaves like Update but synthesizes the group with create when it
// does not exist yet. A nil create keeps ErrGroupNotFound.
func (r *GroupRepo) UpdateOrCreate(ctx context.Context, name string, create func() *models.Group, fn GroupMutator) error {
	unlock := r.locks.Lock(groupLock(name))
	defer unlock()

	g, err := r.load(ctx, name)
	created := false
	if errors.Is(err, ErrGroupNotFound) && create != nil {
		g, err, created = create(), nil, true
	}
	if err != nil {
		return err
	}

	dirty, err := fn(g)
	if err != nil {
		return err
	}
	if !dirty && !created {
		return nil
	}
	return r.docs.Put(ctx, store.KindGroup, name, g)
}

var _ GroupRepository = (*GroupRepo)(nil)
