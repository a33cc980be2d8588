/**
 * @description
 * This file implements registration and login. Passwords are hashed with bcrypt
 * and login issues an HS256 JWT carrying the user id and admin flag; the API
 * middleware validates that token and passes the acting user explicitly into
 * every operation, so the service itself holds no session state.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/golang-jwt/jwt/v5: Token issuance.
 * - github.com/google/uuid: User identifiers.
 * - golang.org/x/crypto/bcrypt: Password hashing.
 * - internal/domain, internal/store, pkg/rabbitmq.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/oakline/ledger-service/internal/domain"
	"github.com/oakline/ledger-service/internal/store"
	"github.com/oakline/ledger-service/pkg/rabbitmq"
)

// ErrInvalidCredentials is returned for both unknown usernames and wrong
// passwords so login failures do not leak which one was wrong.
var ErrInvalidCredentials = errors.New("invalid username or password")

const tokenTTL = 24 * time.Hour

// AuthService handles registration and login.
type AuthService struct {
	repo      store.Repository
	producer  rabbitmq.Publisher
	jwtSecret []byte
}

// NewAuthService creates a new auth service instance. producer may be nil.
func NewAuthService(repo store.Repository, producer rabbitmq.Publisher, jwtSecret string) *AuthService {
	return &AuthService{
		repo:      repo,
		producer:  producer,
		jwtSecret: []byte(jwtSecret),
	}
}

// Register validates the inputs, hashes the password and persists the user.
func (s *AuthService) Register(ctx context.Context, username, password, email, phone string, isAdmin bool) (*domain.User, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := domain.ValidatePhone(phone); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		Email:        email,
		Phone:        phone,
		IsAdmin:      isAdmin,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.auditLogin(ctx, user.ID, "REGISTER", fmt.Sprintf("username=%s", username))
	return user, nil
}

// Login verifies the credentials and returns the user with a signed token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	user, err := s.repo.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	s.auditLogin(ctx, user.ID, "LOGIN", "success")
	return user, token, nil
}

func (s *AuthService) issueToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"admin": user.IsAdmin,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) auditLogin(ctx context.Context, userID uuid.UUID, action, details string) {
	if s.producer == nil {
		return
	}
	event := rabbitmq.AuditEvent{
		UserID:    userID,
		Action:    action,
		Details:   details,
		Timestamp: time.Now(),
	}
	if err := s.producer.PublishAuditEvent(ctx, event); err != nil {
		log.Printf("level=warn component=auth_service msg=\"failed to publish audit event\" action=%s err=%v", action, err)
	}
}
