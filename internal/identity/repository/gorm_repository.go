package repository

import (
	"errors"
	"strconv"
	"time"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
	identitydomain "github.com/inboxsherpa/inboxsherpa/internal/identity/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// userRepository implements UserRepository using GORM
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new GORM-based UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *identitydomain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	// The unique indexes on email and gmail_account_email back this check,
	// but looking first lets us report which binding collided.
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&identitydomain.User{}).
			Where("email = ? OR gmail_account_email = ?", user.Email, user.GmailAccountEmail).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return digestdomain.ErrConflict
		}
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return digestdomain.ErrConflict
			}
			return err
		}
		return nil
	})
}

func (r *userRepository) FindByID(id string) (*identitydomain.User, error) {
	var user identitydomain.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(email string) (*identitydomain.User, error) {
	var user identitydomain.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByGmailAccount(email string) (*identitydomain.User, error) {
	var user identitydomain.User
	err := r.db.Where("gmail_account_email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindAll() ([]*identitydomain.User, error) {
	var users []*identitydomain.User
	err := r.db.Order("created_at ASC").Find(&users).Error
	return users, err
}

func (r *userRepository) Update(user *identitydomain.User) error {
	user.UpdatedAt = time.Now()
	return r.db.Save(user).Error
}

// Delete cascades to everything the user owns. Suggested actions and
// clusters go first so no row ever references a missing parent.
func (r *userRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&digestdomain.SuggestedAction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&digestdomain.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&digestdomain.Cluster{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&digestdomain.Thread{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&identitydomain.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&identitydomain.User{}).Error
	})
}

func (r *userRepository) GetSyncCursor(userID string) (string, error) {
	user, err := r.FindByID(userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", digestdomain.ErrNotFound
	}
	return user.LastSyncCursor, nil
}

func (r *userRepository) AdvanceSyncCursor(userID, newCursor string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var user identitydomain.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return digestdomain.ErrNotFound
			}
			return err
		}
		if !cursorAdvances(user.LastSyncCursor, newCursor) {
			log.Warn().
				Str("user_id", userID).
				Str("stored", user.LastSyncCursor).
				Str("incoming", newCursor).
				Msg("Ignoring stale sync cursor")
			return nil
		}
		return tx.Model(&identitydomain.User{}).Where("id = ?", userID).
			Updates(map[string]interface{}{
				"last_sync_cursor": newCursor,
				"updated_at":       time.Now(),
			}).Error
	})
}

// cursorAdvances reports whether incoming is strictly newer than stored.
// Gmail historyIds are decimal numbers; compare numerically when both sides
// parse, lexically otherwise.
func cursorAdvances(stored, incoming string) bool {
	if incoming == "" {
		return false
	}
	if stored == "" {
		return true
	}
	a, errA := strconv.ParseUint(stored, 10, 64)
	b, errB := strconv.ParseUint(incoming, 10, 64)
	if errA == nil && errB == nil {
		return b > a
	}
	return incoming > stored
}

func (r *userRepository) SaveRefreshToken(token *identitydomain.RefreshToken) error {
	// Expired tokens are cleaned up on the way in to keep the table small
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND expires_at < ?", token.UserID, time.Now()).
			Delete(&identitydomain.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
}

func (r *userRepository) FindRefreshToken(token string) (*identitydomain.RefreshToken, error) {
	var refreshToken identitydomain.RefreshToken
	err := r.db.Where("token = ?", token).First(&refreshToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refreshToken, nil
}

func (r *userRepository) DeleteRefreshToken(token string) error {
	return r.db.Where("token = ?", token).Delete(&identitydomain.RefreshToken{}).Error
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
