package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/worldclock/apiserver/internal/logger"
	"github.com/worldclock/apiserver/internal/store"
	"github.com/worldclock/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context, offset, limit int) ([]types.User, int, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateRole(ctx context.Context, id int, role types.Role) (types.User, error)
	Delete(ctx context.Context, id int) error
}

// NewUser is the input for creating an account.
type NewUser struct {
	Email    string     `json:"email"`
	Name     string     `json:"name"`
	Password string     `json:"password"`
	Role     types.Role `json:"role"`
}

// UserService encapsulates user administration use-cases.
type UserService struct {
	repo       UserRepository
	bcryptCost int
	log        logger.Logger
}

func NewUserService(repo UserRepository, bcryptCost int, log logger.Logger) *UserService {
	if log == nil {
		log = logger.Nop()
	}
	return &UserService{repo: repo, bcryptCost: bcryptCost, log: log}
}

// List returns a page of users. Admin only.
func (s *UserService) List(ctx context.Context, principal types.Principal, offset, limit int) ([]types.User, int, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, 0, err
	}
	offset, limit = clampPage(offset, limit)
	return s.repo.List(ctx, offset, limit)
}

// Get returns a user. Users may read themselves; admins anyone.
func (s *UserService) Get(ctx context.Context, principal types.Principal, id int) (types.User, error) {
	if err := authorizeOwner(principal, id); err != nil {
		return types.User{}, err
	}
	return s.get(ctx, id)
}

// Create adds an account with an explicit role. Admin only.
func (s *UserService) Create(ctx context.Context, principal types.Principal, input NewUser) (types.User, error) {
	if err := requireAdmin(principal); err != nil {
		return types.User{}, err
	}
	if input.Role == "" {
		input.Role = types.RoleUser
	}
	return s.create(ctx, input)
}

// UpdateRole changes the role of another user. Admin only; admins cannot
// change their own role.
func (s *UserService) UpdateRole(ctx context.Context, principal types.Principal, id int, role types.Role) (types.User, error) {
	if err := requireAdmin(principal); err != nil {
		return types.User{}, err
	}
	if !role.Valid() {
		return types.User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	if principal.ID == id {
		return types.User{}, fmt.Errorf("%w: cannot change your own role", ErrInvalidInput)
	}

	user, err := s.repo.UpdateRole(ctx, id, role)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, fmt.Errorf("%w: %d", ErrUserNotFound, id)
		}
		return types.User{}, err
	}
	s.log.Info("user role changed", "id", id, "role", role, "by", principal.ID)
	return user, nil
}

// Delete removes a user and all of their timezone records. Users may delete
// themselves; admins may delete anyone but themselves.
func (s *UserService) Delete(ctx context.Context, principal types.Principal, id int) (types.User, error) {
	if err := authorizeOwner(principal, id); err != nil {
		return types.User{}, err
	}
	if principal.IsAdmin() && principal.ID == id {
		return types.User{}, fmt.Errorf("%w: admins cannot delete themselves", ErrInvalidInput)
	}

	user, err := s.get(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, fmt.Errorf("%w: %d", ErrUserNotFound, id)
		}
		return types.User{}, err
	}
	s.log.Info("user deleted", "id", id, "by", principal.ID)
	return user, nil
}

func (s *UserService) get(ctx context.Context, id int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, fmt.Errorf("%w: %d", ErrUserNotFound, id)
		}
		return types.User{}, err
	}
	return user, nil
}

func (s *UserService) create(ctx context.Context, input NewUser) (types.User, error) {
	user, err := newUser(input, s.bcryptCost)
	if err != nil {
		return types.User{}, err
	}
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, user.Email)
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user created", "id", created.ID, "role", created.Role)
	return created, nil
}

// newUser validates input and hashes the password.
func newUser(input NewUser, cost int) (types.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	name := strings.TrimSpace(input.Name)
	if email == "" || name == "" || input.Password == "" {
		return types.User{}, fmt.Errorf("%w: email, name, and password are required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return types.User{}, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if len(input.Password) < minPasswordLength {
		return types.User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if !input.Role.Valid() {
		return types.User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, input.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), cost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}
	return types.User{
		Email:        email,
		Name:         name,
		Role:         input.Role,
		PasswordHash: string(hash),
	}, nil
}
