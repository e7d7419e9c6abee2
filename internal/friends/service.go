package friends

import (
	"context"
	"errors"
	"fmt"

	"chatlink/backend/internal/apperror"
	"chatlink/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service applies friend-request transitions against the relational store.
// It owns the pending→accepted lifecycle and the invariant that accepted
// edges come in reciprocal pairs.
type Service struct {
	db *gorm.DB
}

// NewService creates a Service on top of the given store handle.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Request creates a Pending edge from→to.
//
// The operation is idempotent: if an edge from→to already exists, pending or
// accepted, nothing changes and no error is returned. A pending edge in the
// opposite direction (simultaneous mutual requests) is left alone — both
// edges stay pending until one side accepts.
func (s *Service) Request(ctx context.Context, from, to string) error {
	if from == to {
		return apperror.Validation("cannot send a friend request to yourself")
	}

	if err := s.checkUserExists(ctx, to); err != nil {
		return err
	}

	edge := models.Friend{
		UserID:   from,
		FriendID: to,
		Status:   models.StatusPending,
	}

	// ON CONFLICT DO NOTHING keeps the existing row (and its status) when the
	// edge already exists, which covers both the duplicate-request case and
	// the request-after-accept case in one statement.
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "friend_id"}},
			DoNothing: true,
		}).
		Create(&edge).Error
	if err != nil {
		return fmt.Errorf("friends: creating request %s -> %s: %w", from, to, err)
	}

	return nil
}

// Accept marks the from→to edge accepted and ensures the reciprocal to→from
// edge is accepted as well.
//
// Both writes are upserts forcing status=accepted, so the operation succeeds
// even when no pending request existed, and repeating it changes nothing.
// The two statements are not wrapped in one transaction; each is individually
// idempotent, so a replay after a partial failure converges to the same end
// state.
func (s *Service) Accept(ctx context.Context, from, to string) error {
	if from == to {
		return apperror.Validation("cannot accept a friend request from yourself")
	}

	// Both sides must be known users; the upserts below would otherwise
	// fabricate edges for ids that never existed.
	if err := s.checkUserExists(ctx, from); err != nil {
		return err
	}
	if err := s.checkUserExists(ctx, to); err != nil {
		return err
	}

	if err := s.upsertAccepted(ctx, from, to); err != nil {
		return err
	}
	return s.upsertAccepted(ctx, to, from)
}

func (s *Service) upsertAccepted(ctx context.Context, from, to string) error {
	edge := models.Friend{
		UserID:   from,
		FriendID: to,
		Status:   models.StatusAccepted,
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "friend_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).
		Create(&edge).Error
	if err != nil {
		return fmt.Errorf("friends: accepting %s -> %s: %w", from, to, err)
	}
	return nil
}

// AreFriends reports whether a and b have an accepted relationship. Accepted
// edges come in reciprocal pairs, so checking one direction is sufficient.
func (s *Service) AreFriends(ctx context.Context, a, b string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Friend{}).
		Where("user_id = ? AND friend_id = ? AND status = ?", a, b, models.StatusAccepted).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("friends: checking relationship %s <-> %s: %w", a, b, err)
	}
	return count > 0, nil
}

// Relations lists a user's edges, optionally filtered by status and
// direction ("incoming", "outgoing", or both when empty).
func (s *Service) Relations(ctx context.Context, userID string, status models.FriendStatus, direction string) ([]models.Friend, error) {
	query := s.db.WithContext(ctx)

	switch direction {
	case "incoming":
		query = query.Where("friend_id = ?", userID).Preload("User")
	case "outgoing":
		query = query.Where("user_id = ?", userID).Preload("FriendUser")
	default:
		query = query.Where("user_id = ? OR friend_id = ?", userID, userID).
			Preload("User").Preload("FriendUser")
	}

	if status != "" {
		query = query.Where("status = ?", status)
	}

	var relations []models.Friend
	if err := query.Find(&relations).Error; err != nil {
		return nil, fmt.Errorf("friends: listing relations for %s: %w", userID, err)
	}
	return relations, nil
}

func (s *Service) checkUserExists(ctx context.Context, userID string) error {
	var user models.User
	err := s.db.WithContext(ctx).Select("id").First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("user %s", userID)
	}
	if err != nil {
		return fmt.Errorf("friends: looking up user %s: %w", userID, err)
	}
	return nil
}
