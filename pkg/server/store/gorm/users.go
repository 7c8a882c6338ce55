package gorm

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/hospitaldigital/hospital-api/pkg/model"
	"github.com/hospitaldigital/hospital-api/pkg/server/store"
)

// Ensure UsersStore implements store.UsersStore
var _ store.UsersStore = (*UsersStore)(nil)

// UsersStore implements store.UsersStore using GORM
type UsersStore struct {
	db *gorm.DB
}

// NewUsersStore creates a new UsersStore
func NewUsersStore(db *gorm.DB) *UsersStore {
	return &UsersStore{db: db}
}

// GetByID retrieves a user by primary key.
func (s *UsersStore) GetByID(id uint) (*model.User, error) {
	var user model.User
	tx := s.db.First(&user, id)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrUserNotFound
		}
		return nil, tx.Error
	}
	return &user, nil
}

// GetByEmail retrieves a user by email.
func (s *UsersStore) GetByEmail(email string) (*model.User, error) {
	var user model.User
	tx := s.db.Where("email = ?", strings.ToLower(email)).First(&user)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrUserNotFound
		}
		return nil, tx.Error
	}
	return &user, nil
}

// Create inserts a new user.
func (s *UsersStore) Create(user *model.User) error {
	user.Email = strings.ToLower(user.Email)

	var count int64
	if err := s.db.Model(&model.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return store.ErrEmailTaken
	}

	if err := s.db.Model(&model.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return store.ErrUsernameTaken
	}

	return s.db.Create(user).Error
}

// Update persists changes to an existing user.
func (s *UsersStore) Update(user *model.User) error {
	return s.db.Save(user).Error
}

// List returns users matching the filter and the total count.
func (s *UsersStore) List(filter store.UserFilter) ([]model.User, int64, error) {
	query := s.db.Model(&model.User{})

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"lower(email) LIKE ? OR lower(first_name) LIKE ? OR lower(last_name) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if filter.Active != nil {
		query = query.Where("enabled = ?", *filter.Active)
	}
	if filter.Position != "" {
		query = query.Where("professional_data->>'position' = ?", filter.Position)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var users []model.User
	if err := query.Order("id").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// SetRefreshToken stores the current refresh token for a user.
func (s *UsersStore) SetRefreshToken(userID uint, token *string) error {
	return s.db.Model(&model.User{}).Where("id = ?", userID).
		Update("refresh_token", token).Error
}

// SetPassword updates the password hash and invalidates the stored
// refresh token in the same transaction.
func (s *UsersStore) SetPassword(userID uint, passwordHash string) error {
	return s.db.Model(&model.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{
			"password":      passwordHash,
			"refresh_token": nil,
		}).Error
}

// RecordLogin updates last_login and resets failed attempts.
func (s *UsersStore) RecordLogin(userID uint) error {
	now := time.Now()
	return s.db.Model(&model.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{
			"last_login":            now,
			"failed_login_attempts": 0,
		}).Error
}

// RecordFailedLogin increments the failed login counter.
func (s *UsersStore) RecordFailedLogin(userID uint) error {
	return s.db.Model(&model.User{}).Where("id = ?", userID).
		Update("failed_login_attempts", gorm.Expr("failed_login_attempts + 1")).Error
}
