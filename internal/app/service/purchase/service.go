package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/crownline/pageant/internal/models"
	"github.com/crownline/pageant/internal/platform/pesapal"
	"github.com/crownline/pageant/pkg/config"
	"github.com/crownline/pageant/pkg/logctx"
	"github.com/crownline/pageant/pkg/tool"
	"github.com/crownline/pageant/pkg/types"
)

// Validation failures surfaced to the caller as bad-request messages,
// distinct from gateway availability problems.
var (
	ErrVotingClosed   = errors.New("voting is currently closed")
	ErrUnknownTarget  = errors.New("unknown contestant, category, package or ticket type")
	ErrInactiveTarget = errors.New("target is not active")
	ErrSoldOut        = errors.New("not enough tickets available")
)

type VoteSelection struct {
	ContestantID string `json:"contestant_id" binding:"required"`
	CategoryID   string `json:"category_id" binding:"required"`
}

type VoteOrderRequest struct {
	UserID     string
	PayerEmail string          `json:"payer_email" binding:"required,email"`
	PayerPhone string          `json:"payer_phone"`
	PackageID  string          `json:"package_id" binding:"required"`
	Selections []VoteSelection `json:"selections" binding:"required,min=1"`
}

type TicketOrderRequest struct {
	UserID       string
	PayerEmail   string `json:"payer_email" binding:"required,email"`
	PayerPhone   string `json:"payer_phone"`
	TicketTypeID string `json:"ticket_type_id" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required,min=1"`
}

// InitiationResult is returned to the client. Confirmed is true only for the
// zero-amount short-circuit, where no gateway round trip happens; otherwise
// the caller redirects the payer to RedirectURL and the outcome arrives
// later through reconciliation.
type InitiationResult struct {
	MerchantRef     string  `json:"merchant_ref"`
	OrderTrackingID string  `json:"order_tracking_id,omitempty"`
	RedirectURL     string  `json:"redirect_url,omitempty"`
	Amount          float64 `json:"amount"`
	Confirmed       bool    `json:"confirmed"`
}

// Gateway is the slice of the Pesapal client initiation depends on.
type Gateway interface {
	RegisterIPN(ctx context.Context, url string) (string, error)
	SubmitOrder(ctx context.Context, req *pesapal.OrderRequest) (*pesapal.OrderResponse, error)
}

// Initiator creates pending purchase records and hands them to the gateway.
// It only ever creates pending rows; all status transitions afterwards belong
// to the reconciliation engine.
type Initiator interface {
	InitiateVotes(ctx context.Context, req *VoteOrderRequest) (*InitiationResult, error)
	InitiateTicket(ctx context.Context, req *TicketOrderRequest) (*InitiationResult, error)
}

type Service struct {
	cfg     *config.Config
	log     *zap.SugaredLogger
	store   Store
	gateway Gateway
}

func NewService(cfg *config.Config, log *zap.SugaredLogger, store Store, gateway *pesapal.Client) Initiator {
	return &Service{cfg: cfg, log: log, store: store, gateway: gateway}
}

func (s *Service) InitiateVotes(ctx context.Context, req *VoteOrderRequest) (*InitiationResult, error) {
	if !s.cfg.Voting.OpenNow(time.Now()) {
		return nil, ErrVotingClosed
	}

	pkg, err := s.store.VotePackageByID(ctx, req.PackageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: package %s", ErrUnknownTarget, req.PackageID)
		}
		return nil, fmt.Errorf("failed to load package: %w", err)
	}
	if !pkg.Active {
		return nil, fmt.Errorf("%w: package %s", ErrInactiveTarget, pkg.ID)
	}

	for _, sel := range req.Selections {
		if err := s.validateSelection(ctx, sel); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	merchantRef := tool.GenerateMerchantRef(now)
	amount := pkg.Price * float64(len(req.Selections))
	free := amount == 0

	votes := buildVoteRows(req, pkg, merchantRef, free)
	if err := s.store.CreateVotes(ctx, votes); err != nil {
		return nil, fmt.Errorf("failed to create vote records: %w", err)
	}

	result := &InitiationResult{MerchantRef: merchantRef, Amount: amount}
	if free {
		// Free packages never touch the gateway; there is nothing to
		// reconcile, so the rows are created verified outright.
		result.Confirmed = true
		return result, nil
	}

	desc := fmt.Sprintf("%d vote(s) x%d categories", pkg.VoteCount, len(req.Selections))
	order, err := s.submitToGateway(ctx, merchantRef, amount, desc, req.PayerEmail, req.PayerPhone)
	if err != nil {
		// The pending rows stay behind with a null tracking id; the
		// abandoned-attempt sweep collects them after the retention window.
		return nil, err
	}

	err = s.store.AttachOrder(ctx, merchantRef, order.OrderTrackingID, &models.PaymentTransaction{
		ID:              tool.GenerateUUIDV7(),
		MerchantRef:     merchantRef,
		OrderTrackingID: order.OrderTrackingID,
		Purpose:         types.PaymentPurposeVote,
		Amount:          amount,
		Description:     desc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record payment transaction: %w", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("vote purchase initiated",
		"merchant_ref", merchantRef, "tracking_id", order.OrderTrackingID, "amount", amount)

	result.OrderTrackingID = order.OrderTrackingID
	result.RedirectURL = order.RedirectURL
	return result, nil
}

func (s *Service) InitiateTicket(ctx context.Context, req *TicketOrderRequest) (*InitiationResult, error) {
	tt, err := s.store.TicketTypeByID(ctx, req.TicketTypeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: ticket type %s", ErrUnknownTarget, req.TicketTypeID)
		}
		return nil, fmt.Errorf("failed to load ticket type: %w", err)
	}
	if !tt.Active {
		return nil, fmt.Errorf("%w: ticket type %s", ErrInactiveTarget, tt.ID)
	}
	if tt.QuantityAvailable < req.Quantity {
		return nil, fmt.Errorf("%w: %d requested, %d left", ErrSoldOut, req.Quantity, tt.QuantityAvailable)
	}

	now := time.Now()
	merchantRef := tool.GenerateMerchantRef(now)
	amount := tt.Price * float64(req.Quantity)
	free := amount == 0

	status := types.PurchaseStatusPending
	if free {
		status = types.PurchaseStatusConfirmed
	}
	ticket := &models.TicketPurchase{
		ID:           tool.GenerateUUIDV7(),
		UserID:       req.UserID,
		PayerEmail:   req.PayerEmail,
		TicketTypeID: tt.ID,
		Quantity:     req.Quantity,
		Amount:       amount,
		MerchantRef:  merchantRef,
		Status:       status,
	}
	if err := s.store.CreateTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to create ticket record: %w", err)
	}

	result := &InitiationResult{MerchantRef: merchantRef, Amount: amount}
	if free {
		result.Confirmed = true
		return result, nil
	}

	desc := fmt.Sprintf("%d x %s ticket", req.Quantity, tt.Name)
	order, err := s.submitToGateway(ctx, merchantRef, amount, desc, req.PayerEmail, req.PayerPhone)
	if err != nil {
		return nil, err
	}

	err = s.store.AttachOrder(ctx, merchantRef, order.OrderTrackingID, &models.PaymentTransaction{
		ID:              tool.GenerateUUIDV7(),
		MerchantRef:     merchantRef,
		OrderTrackingID: order.OrderTrackingID,
		Purpose:         types.PaymentPurposeTicket,
		Amount:          amount,
		Description:     desc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record payment transaction: %w", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("ticket purchase initiated",
		"merchant_ref", merchantRef, "tracking_id", order.OrderTrackingID, "amount", amount)

	result.OrderTrackingID = order.OrderTrackingID
	result.RedirectURL = order.RedirectURL
	return result, nil
}

func (s *Service) validateSelection(ctx context.Context, sel VoteSelection) error {
	contestant, err := s.store.ContestantByID(ctx, sel.ContestantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: contestant %s", ErrUnknownTarget, sel.ContestantID)
		}
		return fmt.Errorf("failed to load contestant: %w", err)
	}
	if !contestant.Active {
		return fmt.Errorf("%w: contestant %s", ErrInactiveTarget, sel.ContestantID)
	}
	if contestant.CategoryID != sel.CategoryID {
		return fmt.Errorf("%w: contestant %s is not in category %s", ErrUnknownTarget, sel.ContestantID, sel.CategoryID)
	}

	category, err := s.store.CategoryByID(ctx, sel.CategoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: category %s", ErrUnknownTarget, sel.CategoryID)
		}
		return fmt.Errorf("failed to load category: %w", err)
	}
	if !category.Active {
		return fmt.Errorf("%w: category %s", ErrInactiveTarget, sel.CategoryID)
	}
	return nil
}

func (s *Service) submitToGateway(ctx context.Context, merchantRef string, amount float64, desc, email, phone string) (*pesapal.OrderResponse, error) {
	if !s.cfg.Pesapal.Configured() {
		return nil, fmt.Errorf("%w: payment provider not configured", pesapal.ErrConfig)
	}
	ipnID, err := s.gateway.RegisterIPN(ctx, s.cfg.Pesapal.IPNURL)
	if err != nil {
		return nil, err
	}
	return s.gateway.SubmitOrder(ctx, &pesapal.OrderRequest{
		MerchantRef:    merchantRef,
		Currency:       s.cfg.Currency,
		Amount:         amount,
		Description:    desc,
		CallbackURL:    s.cfg.Pesapal.CallbackURL,
		NotificationID: ipnID,
		Payer: pesapal.BillingAddress{
			EmailAddress: email,
			PhoneNumber:  phone,
		},
	})
}

// buildVoteRows maps one order request to its vote rows. All rows share the
// merchant ref so they can be stamped with the tracking id, and later
// transitioned, as one unit.
func buildVoteRows(req *VoteOrderRequest, pkg *models.VotePackage, merchantRef string, free bool) []*models.Vote {
	status := types.PurchaseStatusPending
	if free {
		status = types.PurchaseStatusVerified
	}
	votes := make([]*models.Vote, 0, len(req.Selections))
	for _, sel := range req.Selections {
		votes = append(votes, &models.Vote{
			ID:           tool.GenerateUUIDV7(),
			UserID:       req.UserID,
			PayerEmail:   req.PayerEmail,
			ContestantID: sel.ContestantID,
			CategoryID:   sel.CategoryID,
			PackageID:    pkg.ID,
			VoteCount:    pkg.VoteCount,
			Amount:       pkg.Price,
			MerchantRef:  merchantRef,
			Status:       status,
		})
	}
	return votes
}
