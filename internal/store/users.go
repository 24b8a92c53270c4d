package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/openbmc-go/pldmd/internal/store/models"
)

// GetUser looks up a control-plane API account by username.
func (s *GORMStore) GetUser(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrUserNotFound)
	}
	return &u, nil
}

// CreateUser inserts a control-plane API account, generating an id if user.ID
// is empty. user.PasswordHash must already be set (bcrypt, hashed by the
// caller so plaintext passwords never reach this layer).
func (s *GORMStore) CreateUser(ctx context.Context, user *models.User) (string, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return "", models.ErrDuplicateUser
		}
		return "", err
	}
	return user.ID, nil
}

// UpdateLastLogin records the time of a successful authentication.
func (s *GORMStore) UpdateLastLogin(ctx context.Context, username string, when time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Update("last_login", when)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// ValidateCredentials checks username/password against the stored bcrypt
// hash, for internal/controlapi's login handler.
func (s *GORMStore) ValidateCredentials(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Enabled {
		return nil, models.ErrUserDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}
	return user, nil
}
