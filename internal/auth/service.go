package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/krishi-kendra/krishi-kendra/internal/platform/validation"
	"github.com/krishi-kendra/krishi-kendra/internal/shared"
)

// Service wraps account and session rules.
type Service struct {
	repo     Repository
	sessions *shared.SessionManager
	validate *validator.Validate
	logger   *slog.Logger
	cost     int
}

// NewService constructs a new Service. sessions may be nil for callers that
// only manage accounts, such as the CLI.
func NewService(repo Repository, sessions *shared.SessionManager, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		sessions: sessions,
		validate: validation.New(),
		logger:   logger,
		cost:     bcrypt.DefaultCost,
	}
}

// CreateUser validates the input, hashes the password and stores the account.
func (s *Service) CreateUser(ctx context.Context, in RegisterInput) (User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.StoreName = strings.TrimSpace(in.StoreName)
	in.Mobile = strings.TrimSpace(in.Mobile)
	if err := validation.Struct(s.validate, in); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	user := User{
		ID:            uuid.New(),
		Name:          in.Name,
		Email:         in.Email,
		PasswordHash:  string(hash),
		StoreName:     in.StoreName,
		Mobile:        validation.NormalizeMobile(in.Mobile),
		Notifications: DefaultNotifications(),
		IsActive:      true,
	}
	if err := s.repo.Create(ctx, &user); err != nil {
		return User{}, err
	}
	s.logger.InfoContext(ctx, "user created", slog.String("user_id", user.ID.String()))
	return user, nil
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (TokenResponse, error) {
	user, err := s.CreateUser(ctx, in)
	if err != nil {
		return TokenResponse{}, err
	}
	return s.issue(ctx, user)
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if !user.IsActive {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a bearer session.
func (s *Service) Login(ctx context.Context, in LoginInput) (TokenResponse, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(s.validate, in); err != nil {
		return TokenResponse{}, err
	}
	user, err := s.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		s.logger.WarnContext(ctx, "login rejected", slog.String("email", in.Email))
		return TokenResponse{}, err
	}
	return s.issue(ctx, user)
}

// Logout destroys the session.
func (s *Service) Logout(ctx context.Context, sess *shared.Session) error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.Destroy(ctx, sess)
}

// Profile returns the account behind a session user id.
func (s *Service) Profile(ctx context.Context, userID string) (User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return User{}, shared.ErrUnauthorized
	}
	return s.repo.FindByID(ctx, id)
}

// UpdateProfile applies the fields present in the input.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (User, error) {
	for _, field := range []*string{in.Name, in.Email, in.Mobile, in.StoreName, in.GSTNumber, in.StoreAddress} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
	if in.Email != nil {
		*in.Email = normalizeEmail(*in.Email)
	}
	if in.GSTNumber != nil {
		*in.GSTNumber = strings.ToUpper(*in.GSTNumber)
	}
	if err := validation.Struct(s.validate, in); err != nil {
		return User{}, err
	}
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if in.Name != nil && *in.Name != "" {
		user.Name = *in.Name
	}
	if in.Email != nil && *in.Email != "" {
		user.Email = *in.Email
	}
	if in.Mobile != nil {
		user.Mobile = validation.NormalizeMobile(*in.Mobile)
	}
	if in.StoreName != nil {
		user.StoreName = *in.StoreName
	}
	if in.GSTNumber != nil {
		user.GSTNumber = *in.GSTNumber
	}
	if in.StoreAddress != nil {
		user.StoreAddress = *in.StoreAddress
	}
	if n := in.Notifications; n != nil {
		if n.LowStockAlerts != nil {
			user.Notifications.LowStockAlerts = *n.LowStockAlerts
		}
		if n.UdhaarReminders != nil {
			user.Notifications.UdhaarReminders = *n.UdhaarReminders
		}
		if n.DailySummary != nil {
			user.Notifications.DailySummary = *n.DailySummary
		}
	}
	if err := s.repo.Update(ctx, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// ChangePassword verifies the current password and stores the new one.
func (s *Service) ChangePassword(ctx context.Context, userID string, in PasswordInput) error {
	if err := validation.Struct(s.validate, in); err != nil {
		return err
	}
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "password changed", slog.String("user_id", user.ID.String()))
	return nil
}

func (s *Service) issue(ctx context.Context, user User) (TokenResponse, error) {
	if s.sessions == nil {
		return TokenResponse{}, errors.New("session manager not configured")
	}
	sess, err := s.sessions.Issue(ctx, user.ID.String(), user.Email)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("issue session: %w", err)
	}
	return TokenResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Token:     sess.ID,
		ExpiresAt: sess.CreatedAt.Add(s.sessions.TTL()),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
