package user

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidInput       = errors.New("invalid input")
)

type Repository interface {
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, u User) (User, error)
	UpdateProfile(ctx context.Context, id string, p Profile) (User, error)
	SetStatus(ctx context.Context, id string, s Status) (User, error)
	SetRole(ctx context.Context, id string, r Role) (User, error)
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu    sync.RWMutex
	users []User
	now   func() time.Time
}

func NewInMemoryRepository(seed []User) *InMemoryRepository {
	r := &InMemoryRepository{users: make([]User, 0, len(seed)), now: time.Now}
	r.users = append(r.users, seed...)
	return r
}

func (r *InMemoryRepository) List(ctx context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]User, len(r.users))
	copy(out, r.users)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *InMemoryRepository) Create(ctx context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return User{}, ErrEmailExists
		}
	}
	now := r.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.users = append(r.users, u)
	return u, nil
}

func (r *InMemoryRepository) UpdateProfile(ctx context.Context, id string, p Profile) (User, error) {
	return r.update(id, func(u *User) {
		if p.Name != nil {
			u.Name = *p.Name
		}
		if p.AvatarURL != nil {
			u.AvatarURL = p.AvatarURL
		}
		if p.Phone != nil {
			u.Phone = p.Phone
		}
	})
}

func (r *InMemoryRepository) SetStatus(ctx context.Context, id string, s Status) (User, error) {
	return r.update(id, func(u *User) { u.Status = s })
}

func (r *InMemoryRepository) SetRole(ctx context.Context, id string, role Role) (User, error) {
	return r.update(id, func(u *User) { u.Role = role })
}

func (r *InMemoryRepository) update(id string, apply func(*User)) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, u := range r.users {
		if u.ID == id {
			apply(&u)
			u.UpdatedAt = r.now().UTC()
			r.users[i] = u
			return u, nil
		}
	}
	return User{}, ErrNotFound
}
