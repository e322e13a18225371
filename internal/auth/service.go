package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

// Session — результат успешного входа.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Role      domain.Role `json:"role"`
}

// Service аутентифицирует сотрудников.
type Service struct {
	users  domain.UserRepository
	tokens *TokenIssuer
	logger *log.Entry
}

// NewService создаёт сервис входа.
func NewService(users domain.UserRepository, tokens *TokenIssuer, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "auth")
	}
	return &Service{users: users, tokens: tokens, logger: logger}
}

// Login проверяет email и пароль и выдаёт токен.
// Неизвестный email и неверный пароль неразличимы для клиента.
func (s *Service) Login(email, password string) (Session, error) {
	user, err := s.users.GetByEmail(strings.TrimSpace(email))
	if errors.Is(err, domain.ErrUserNotFound) {
		s.logger.WithField("email", email).Warn("login for unknown user")
		return Session{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		s.logger.WithField("user_id", user.ID).Warn("login with wrong password")
		return Session{}, domain.ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	s.logger.WithFields(log.Fields{"user_id": user.ID, "role": user.Role}).Info("user logged in")
	return Session{Token: token, ExpiresAt: expires, Role: user.Role}, nil
}

// CreateUser регистрирует сотрудника.
func (s *Service) CreateUser(email, password string, role domain.Role) (domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if role != domain.RoleAdmin && role != domain.RoleStaff {
		return domain.User{}, fmt.Errorf("unknown role %q", role)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// EnsureAdmin создаёт администратора при первом старте. Существующий
// пользователь не трогается. Пустой email отключает bootstrap.
func (s *Service) EnsureAdmin(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	_, err := s.users.GetByEmail(email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}
	user, err := s.CreateUser(email, password, domain.RoleAdmin)
	if errors.Is(err, domain.ErrUserExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	s.logger.WithField("user_id", user.ID).Info("admin user bootstrapped")
	return nil
}
