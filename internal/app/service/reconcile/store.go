package reconcile

import (
	"context"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/crownline/pageant/internal/models"
	"github.com/crownline/pageant/internal/platform/pesapal"
	"github.com/crownline/pageant/pkg/types"
)

// VerifiedVote is the slice of a vote row needed to send a confirmation.
type VerifiedVote struct {
	PayerEmail     string
	ContestantName string
	VoteCount      int
}

// Store is the persistence surface the engine transitions state through.
// Every mutating method is conditional on current status and reports the
// number of rows it actually touched; that conditional-update property is
// what makes concurrent reconciliation of the same tracking id a no-op on
// the second pass.
type Store interface {
	UpdateLedger(ctx context.Context, trackingID string, st *pesapal.TransactionStatus) error
	LedgerByTrackingID(ctx context.Context, trackingID string) (*models.PaymentTransaction, error)

	VerifyPendingVotes(ctx context.Context, trackingID string) (int64, error)
	DeletePendingVotes(ctx context.Context, trackingID string) (int64, error)
	ConfirmPendingTickets(ctx context.Context, trackingID string) (int64, error)
	FailPendingTickets(ctx context.Context, trackingID string) (int64, error)

	VerifiedVotes(ctx context.Context, trackingID string) ([]VerifiedVote, error)
	PendingTrackingIDs(ctx context.Context) ([]string, error)
	DeleteAbandoned(ctx context.Context, before time.Time) (int64, error)
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) UpdateLedger(ctx context.Context, trackingID string, st *pesapal.TransactionStatus) error {
	updates := map[string]any{
		"status_code":        st.StatusCode,
		"status_description": st.StatusDescription,
	}
	if st.PaymentMethod != "" {
		updates["payment_method"] = st.PaymentMethod
	}
	if st.ConfirmationCode != "" {
		updates["confirmation_code"] = st.ConfirmationCode
	}
	return s.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("order_tracking_id = ?", trackingID).
		Updates(updates).Error
}

func (s *gormStore) LedgerByTrackingID(ctx context.Context, trackingID string) (*models.PaymentTransaction, error) {
	var t models.PaymentTransaction
	if err := s.db.WithContext(ctx).
		Where("order_tracking_id = ?", trackingID).
		First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *gormStore) VerifyPendingVotes(ctx context.Context, trackingID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Vote{}).
		Where("order_tracking_id = ? AND status = ?", trackingID, types.PurchaseStatusPending).
		Update("status", types.PurchaseStatusVerified)
	return res.RowsAffected, res.Error
}

func (s *gormStore) DeletePendingVotes(ctx context.Context, trackingID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("order_tracking_id = ? AND status = ?", trackingID, types.PurchaseStatusPending).
		Delete(&models.Vote{})
	return res.RowsAffected, res.Error
}

// ConfirmPendingTickets flips pending tickets and commits their inventory in
// the same transaction. The row lock pins the pending set, so only the pass
// that actually flips a ticket deducts its quantity; a repeated or concurrent
// pass finds no pending rows and deducts nothing.
func (s *gormStore) ConfirmPendingTickets(ctx context.Context, trackingID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tickets []*models.TicketPurchase
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_tracking_id = ? AND status = ?", trackingID, types.PurchaseStatusPending).
			Find(&tickets).Error; err != nil {
			return err
		}
		if len(tickets) == 0 {
			return nil
		}
		res := tx.Model(&models.TicketPurchase{}).
			Where("order_tracking_id = ? AND status = ?", trackingID, types.PurchaseStatusPending).
			Update("status", types.PurchaseStatusConfirmed)
		if res.Error != nil {
			return res.Error
		}
		n = res.RowsAffected
		for _, t := range tickets {
			if err := tx.Model(&models.TicketType{}).
				Where("id = ?", t.TicketTypeID).
				Update("quantity_available", gorm.Expr("quantity_available - ?", t.Quantity)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return n, err
}

func (s *gormStore) FailPendingTickets(ctx context.Context, trackingID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.TicketPurchase{}).
		Where("order_tracking_id = ? AND status = ?", trackingID, types.PurchaseStatusPending).
		Update("status", types.PurchaseStatusFailed)
	return res.RowsAffected, res.Error
}

func (s *gormStore) VerifiedVotes(ctx context.Context, trackingID string) ([]VerifiedVote, error) {
	var rows []VerifiedVote
	err := s.db.WithContext(ctx).
		Table("vote").
		Select("vote.payer_email, vote.vote_count, contestant.name AS contestant_name").
		Joins("JOIN contestant ON contestant.id = vote.contestant_id").
		Where("vote.order_tracking_id = ? AND vote.status = ?", trackingID, types.PurchaseStatusVerified).
		Scan(&rows).Error
	return rows, err
}

func (s *gormStore) PendingTrackingIDs(ctx context.Context) ([]string, error) {
	var voteIDs []string
	if err := s.db.WithContext(ctx).
		Model(&models.Vote{}).
		Distinct("order_tracking_id").
		Where("status = ? AND order_tracking_id IS NOT NULL", types.PurchaseStatusPending).
		Pluck("order_tracking_id", &voteIDs).Error; err != nil {
		return nil, err
	}
	var ticketIDs []string
	if err := s.db.WithContext(ctx).
		Model(&models.TicketPurchase{}).
		Distinct("order_tracking_id").
		Where("status = ? AND order_tracking_id IS NOT NULL", types.PurchaseStatusPending).
		Pluck("order_tracking_id", &ticketIDs).Error; err != nil {
		return nil, err
	}
	return lo.Uniq(append(voteIDs, ticketIDs...)), nil
}

func (s *gormStore) DeleteAbandoned(ctx context.Context, before time.Time) (int64, error) {
	votes := s.db.WithContext(ctx).
		Where("status = ? AND order_tracking_id IS NULL AND created_at < ?", types.PurchaseStatusPending, before).
		Delete(&models.Vote{})
	if votes.Error != nil {
		return 0, votes.Error
	}
	tickets := s.db.WithContext(ctx).
		Where("status = ? AND order_tracking_id IS NULL AND created_at < ?", types.PurchaseStatusPending, before).
		Delete(&models.TicketPurchase{})
	if tickets.Error != nil {
		return votes.RowsAffected, tickets.Error
	}
	return votes.RowsAffected + tickets.RowsAffected, nil
}
