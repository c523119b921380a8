package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/worldclock/apiserver/internal/store"
	"github.com/worldclock/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 24 * time.Hour

// Session is returned by a successful register or login.
type Session struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

// AuthService handles registration, login and token verification.
type AuthService struct {
	users     *UserService
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(users *UserService, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthService{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

type tokenClaims struct {
	Email string     `json:"email"`
	Role  types.Role `json:"role"`
	jwt.RegisteredClaims
}

// Register creates a regular account and signs a token for it.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (Session, error) {
	user, err := s.users.create(ctx, NewUser{
		Email:    email,
		Name:     name,
		Password: password,
		Role:     types.RoleUser,
	})
	if err != nil {
		return Session{}, err
	}
	return s.session(user)
}

// Login verifies credentials and signs a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	user, err := s.users.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(user)
}

// Authenticate verifies a token and loads the principal it names. The role
// is read from storage so that role changes apply to existing tokens.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (types.Principal, error) {
	claims := tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return types.Principal{}, ErrUnauthenticated
	}

	id, err := strconv.Atoi(strings.TrimSpace(claims.Subject))
	if err != nil || id < 1 {
		return types.Principal{}, ErrUnauthenticated
	}

	user, err := s.users.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Principal{}, ErrUnauthenticated
		}
		return types.Principal{}, fmt.Errorf("get user: %w", err)
	}
	return user.Principal(), nil
}

// EnsureAdmin makes sure an admin account exists for email, creating it or
// promoting an existing account.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.repo.GetByEmail(ctx, email)
	switch {
	case err == nil && user.Role == types.RoleAdmin:
		return user, nil
	case err == nil:
		return s.users.repo.UpdateRole(ctx, user.ID, types.RoleAdmin)
	case errors.Is(err, store.ErrNotFound):
		return s.users.create(ctx, NewUser{
			Email:    email,
			Name:     "Administrator",
			Password: password,
			Role:     types.RoleAdmin,
		})
	default:
		return types.User{}, err
	}
}

func (s *AuthService) session(user types.User) (Session, error) {
	token, err := s.issueToken(user)
	if err != nil {
		return Session{}, fmt.Errorf("generate jwt: %w", err)
	}
	return Session{Token: token, User: user}, nil
}

func (s *AuthService) issueToken(user types.User) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
