package user

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/medportal/portal-backend/internal/store"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterInput is what a new patient submits on sign-up.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    *string
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	return users, wrap("listUsers", err)
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrNotFound
	}
	u, err := s.repo.GetByID(ctx, id)
	return u, wrap("getUser", err)
}

// Register creates a patient account. Every new account starts offline
// with the patient role; only an admin can promote it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || in.Password == "" || strings.TrimSpace(in.Name) == "" {
		return User{}, ErrInvalidInput
	}

	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return User{}, ErrEmailExists
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, wrap("getUserByEmail", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	created, err := s.repo.Create(ctx, User{
		ID:       uuid.NewString(),
		Email:    in.Email,
		Password: string(hashed),
		Name:     strings.TrimSpace(in.Name),
		Status:   StatusOffline,
		Role:     RolePatient,
		Phone:    in.Phone,
	})
	if err != nil {
		err = wrap("createUser", err)
		// lost the race against a concurrent sign-up with the same email
		if store.IsUniqueViolation(err) {
			return User{}, ErrEmailExists
		}
		return User{}, err
	}
	return created, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, wrap("getUserByEmail", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id string, p Profile) (User, error) {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return User{}, ErrInvalidInput
	}
	u, err := s.repo.UpdateProfile(ctx, id, p)
	return u, wrap("updateProfile", err)
}

func (s *Service) SetStatus(ctx context.Context, id string, status Status) (User, error) {
	if !status.Valid() {
		return User{}, ErrInvalidStatus
	}
	u, err := s.repo.SetStatus(ctx, id, status)
	return u, wrap("setStatus", err)
}

func (s *Service) SetRole(ctx context.Context, id string, role Role) (User, error) {
	if !role.Valid() {
		return User{}, ErrInvalidRole
	}
	u, err := s.repo.SetRole(ctx, id, role)
	return u, wrap("setRole", err)
}

// wrap leaves domain sentinels alone and turns everything else into a
// store error.
func wrap(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrEmailExists) {
		return err
	}
	return store.Wrap(op, err)
}
