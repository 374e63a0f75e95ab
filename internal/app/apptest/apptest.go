// Package apptest provides in-memory collaborators for exercising the account
// and auth services without infrastructure.
package apptest

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"myapp-api/internal/model"
	"myapp-api/internal/repository"
)

// Store is an AccountStore backed by a map. Setting Err makes every call
// fail with it.
type Store struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*model.User
	Err    error
}

func NewStore() *Store {
	return &Store{nextID: 1, users: map[uint]*model.User{}}
}

func (m *Store) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

func (m *Store) find(match func(*model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Store) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Email == email })
}

func (m *Store) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Username == username })
}

func (m *Store) GetByID(_ context.Context, id uint) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.ID == id })
}

func (m *Store) List(_ context.Context, offset, limit int) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []model.User
	for id := uint(1); id < m.nextID; id++ {
		if u, ok := m.users[id]; ok {
			out = append(out, *u)
		}
	}
	if offset >= len(out) {
		return []model.User{}, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *Store) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, u := range m.users {
		if u.Email == user.Email || u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	m.nextID++
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *Store) Update(_ context.Context, id uint, upd model.UserUpdate) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.FullName != nil {
		u.FullName = upd.FullName
	}
	if upd.ProfileImage != nil {
		u.ProfileImage = upd.ProfileImage
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	now := time.Now()
	u.UpdatedAt = &now
	cp := *u
	return &cp, nil
}

func (m *Store) Delete(_ context.Context, id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	if _, ok := m.users[id]; !ok {
		return false, nil
	}
	delete(m.users, id)
	return true, nil
}

// Cache is an AccountCache backed by a map. Invalidated records every email
// passed to Invalidate. Tombstones never expire.
type Cache struct {
	mu          sync.Mutex
	users       map[string]model.User
	tombstones  map[string]bool
	Invalidated []string
	GetErr      error
}

func NewCache() *Cache {
	return &Cache{users: map[string]model.User{}, tombstones: map[string]bool{}}
}

func (c *Cache) Get(_ context.Context, email string) (*model.User, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.GetErr != nil {
		return nil, false, c.GetErr
	}
	u, ok := c.users[email]
	if !ok {
		return nil, false, nil
	}
	return &u, true, nil
}

func (c *Cache) Set(_ context.Context, user *model.User) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.users[user.Email]; ok || c.tombstones[user.Email] {
		return false, nil
	}
	cp := *user
	cp.HashedPassword = ""
	c.users[user.Email] = cp
	return true, nil
}

func (c *Cache) Invalidate(_ context.Context, emails ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range emails {
		delete(c.users, e)
		c.tombstones[e] = true
		c.Invalidated = append(c.Invalidated, e)
	}
	return nil
}

// Publisher records published events. It also serves them back through
// ListByUserID so it can stand in for the persisted audit log.
type Publisher struct {
	mu     sync.Mutex
	events []model.AccountEvent
	Err    error
}

func (p *Publisher) Publish(_ context.Context, event model.AccountEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, event)
	return nil
}

// Types lists the types of the recorded events in publish order.
func (p *Publisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *Publisher) ListByUserID(_ context.Context, userID uint, limit int) ([]model.AccountEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.AccountEvent
	for i := len(p.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if p.events[i].UserID == userID {
			out = append(out, p.events[i])
		}
	}
	return out, nil
}

// Blobs keeps uploaded objects in memory and returns "uploads/<key>" paths.
type Blobs struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Err     error
}

func (b *Blobs) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return "", b.Err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}
	if b.Objects == nil {
		b.Objects = map[string][]byte{}
	}
	b.Objects[key] = buf.Bytes()
	return "uploads/" + key, nil
}
