package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"social-backend/internal/clock"
	"social-backend/internal/models"
	"social-backend/internal/repository"

	"github.com/google/uuid"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthService handles account creation and credential checks
type AuthService struct {
	users  UserStore
	hasher Hasher
	tokens *TokenIssuer
	clock  clock.Clock
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, hasher Hasher, tokens *TokenIssuer, clk clock.Clock) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		clock:  clk,
	}
}

// SignupRequest is the payload of POST /api/auth/signup
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// LoginRequest is the payload of POST /api/auth/login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Session is an authenticated user with a freshly minted token
type Session struct {
	User  *models.User
	Token string
}

// Signup creates an account and opens a session for it
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*Session, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)

	if req.Username == "" || req.FullName == "" {
		return nil, invalidInput("Username and full name are required")
	}
	if !emailPattern.MatchString(req.Email) {
		return nil, invalidInput("Invalid email format")
	}

	taken, err := s.users.UsernameExists(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, invalidInput("Username is already taken")
	}

	taken, err = s.users.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, invalidInput("Email is already taken")
	}

	if len(req.Password) < minPasswordLength {
		return nil, invalidInput("Password must be at least %d characters long", minPasswordLength)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		Followers:    []string{},
		Following:    []string{},
		LikedPosts:   []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalidInput("Username or email is already taken")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.openSession(user)
}

// Login checks credentials. Unknown users and wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, invalidInput("Invalid username or password")
	}

	hash, err := s.users.PasswordHash(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get password hash: %w", err)
	}
	ok, err := s.hasher.Compare(hash, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalidInput("Invalid username or password")
	}

	return s.openSession(user)
}

// Authenticate resolves a session token to its user
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, unauthorized("Unauthorized: Invalid Token")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, unauthorized("Unauthorized: User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Me returns a fresh copy of the caller's record
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("User not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *AuthService) openSession(user *models.User) (*Session, error) {
	token, _, err := s.tokens.Mint(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &Session{User: user, Token: token}, nil
}
