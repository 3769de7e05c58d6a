package purchase

import (
	"context"

	"gorm.io/gorm"

	"github.com/crownline/pageant/internal/models"
)

// Store is the persistence surface purchase initiation writes through.
// AttachOrder is the one step that must be atomic: stamping the gateway
// tracking id on every row sharing the merchant ref and inserting the ledger
// entry land together or not at all, otherwise reconciliation ends up with
// rows it cannot correlate.
type Store interface {
	VotePackageByID(ctx context.Context, id string) (*models.VotePackage, error)
	ContestantByID(ctx context.Context, id string) (*models.Contestant, error)
	CategoryByID(ctx context.Context, id string) (*models.Category, error)
	TicketTypeByID(ctx context.Context, id string) (*models.TicketType, error)

	CreateVotes(ctx context.Context, votes []*models.Vote) error
	CreateTicket(ctx context.Context, ticket *models.TicketPurchase) error
	AttachOrder(ctx context.Context, merchantRef, trackingID string, ledger *models.PaymentTransaction) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) VotePackageByID(ctx context.Context, id string) (*models.VotePackage, error) {
	var pkg models.VotePackage
	if err := s.db.WithContext(ctx).First(&pkg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (s *gormStore) ContestantByID(ctx context.Context, id string) (*models.Contestant, error) {
	var contestant models.Contestant
	if err := s.db.WithContext(ctx).First(&contestant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &contestant, nil
}

func (s *gormStore) CategoryByID(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *gormStore) TicketTypeByID(ctx context.Context, id string) (*models.TicketType, error) {
	var tt models.TicketType
	if err := s.db.WithContext(ctx).First(&tt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tt, nil
}

func (s *gormStore) CreateVotes(ctx context.Context, votes []*models.Vote) error {
	return s.db.WithContext(ctx).Create(votes).Error
}

func (s *gormStore) CreateTicket(ctx context.Context, ticket *models.TicketPurchase) error {
	return s.db.WithContext(ctx).Create(ticket).Error
}

func (s *gormStore) AttachOrder(ctx context.Context, merchantRef, trackingID string, ledger *models.PaymentTransaction) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Vote{}).
			Where("merchant_ref = ?", merchantRef).
			Update("order_tracking_id", trackingID).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.TicketPurchase{}).
			Where("merchant_ref = ?", merchantRef).
			Update("order_tracking_id", trackingID).Error; err != nil {
			return err
		}
		return tx.Create(ledger).Error
	})
}
