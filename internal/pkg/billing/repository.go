package billing

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MartinHaas/LokalMarkt/app/models"
)

// Repository is the persistence surface the webhook pipeline needs. It
// is deliberately narrow so the service can be tested against a fake.
type Repository interface {
	// InsertProcessedEvent records the event ID in the dedup table.
	// Returns true when this call inserted the row, false when the ID was
	// already present (duplicate delivery).
	InsertProcessedEvent(eventID, eventType string, at time.Time) (bool, error)

	// AppendBillingEvent appends one audit record. Records without a user
	// are rejected; attribution is resolved before appending.
	AppendBillingEvent(event *models.BillingEvent) error

	// HasRecentBillingEvent reports whether the user has an audit record
	// of the given type at or after the cutoff.
	HasRecentBillingEvent(userID uint, eventType string, since time.Time) (bool, error)

	// ListBillingEvents returns the newest audit records for a user.
	ListBillingEvents(userID uint, limit int) ([]models.BillingEvent, error)

	GetSubscriptionByCustomerID(customerID string) (*models.Subscription, error)
	SaveSubscription(sub *models.Subscription) error
}

// CustomerDirectory resolves provider customers to local user accounts.
type CustomerDirectory interface {
	GetUserByID(id uint) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	CreateUser(user *models.User) error
	SaveUser(user *models.User) error
}

// gormStore backs Repository and CustomerDirectory with MySQL via GORM.
type gormStore struct {
	db *gorm.DB
}

// NewStore creates the GORM-backed store used in production.
func NewStore(db *gorm.DB) *gormStore {
	return &gormStore{db: db}
}

func (s *gormStore) InsertProcessedEvent(eventID, eventType string, at time.Time) (bool, error) {
	record := models.ProcessedWebhookEvent{
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: at,
	}

	// Atomic insert-if-absent on the unique event ID. RowsAffected tells
	// duplicates apart without a racy read-then-write.
	tx := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
	if tx.Error != nil {
		return false, fmt.Errorf("failed to record webhook event %s: %w", eventID, tx.Error)
	}

	return tx.RowsAffected > 0, nil
}

func (s *gormStore) AppendBillingEvent(event *models.BillingEvent) error {
	if event.UserID == 0 {
		return errors.New("billing event requires a user")
	}
	if err := s.db.Create(event).Error; err != nil {
		return fmt.Errorf("failed to append billing event %s: %w", event.EventType, err)
	}
	return nil
}

func (s *gormStore) HasRecentBillingEvent(userID uint, eventType string, since time.Time) (bool, error) {
	var count int64
	err := s.db.Model(&models.BillingEvent{}).
		Where("user_id = ? AND event_type = ? AND timestamp >= ?", userID, eventType, since).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to query billing events: %w", err)
	}
	return count > 0, nil
}

func (s *gormStore) ListBillingEvents(userID uint, limit int) ([]models.BillingEvent, error) {
	var events []models.BillingEvent
	err := s.db.Where("user_id = ?", userID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list billing events: %w", err)
	}
	return events, nil
}

func (s *gormStore) GetSubscriptionByCustomerID(customerID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.Where("customer_id = ?", customerID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *gormStore) SaveSubscription(sub *models.Subscription) error {
	if err := s.db.Save(sub).Error; err != nil {
		return fmt.Errorf("failed to save subscription for customer %s: %w", sub.CustomerID, err)
	}
	return nil
}

func (s *gormStore) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) CreateUser(user *models.User) error {
	if err := s.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}
	return nil
}

func (s *gormStore) SaveUser(user *models.User) error {
	if err := s.db.Save(user).Error; err != nil {
		return fmt.Errorf("failed to save user %d: %w", user.ID, err)
	}
	return nil
}

// IsNotFound reports whether err is the missing-record error, so callers
// can tell absence apart from infrastructure failures.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
