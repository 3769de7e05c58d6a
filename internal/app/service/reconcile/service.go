package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crownline/pageant/internal/app/service/notification"
	"github.com/crownline/pageant/internal/platform/pesapal"
	"github.com/crownline/pageant/pkg/logctx"
	"github.com/crownline/pageant/pkg/metrics"
	"github.com/crownline/pageant/pkg/types"
)

// StatusPoller is the slice of the gateway client the engine depends on.
type StatusPoller interface {
	GetTransactionStatus(ctx context.Context, trackingID string) (*pesapal.TransactionStatus, error)
}

// Outcome summarizes one reconciliation pass over a tracking id.
type Outcome struct {
	TrackingID        string `json:"tracking_id"`
	StatusCode        int    `json:"status_code"`
	StatusDescription string `json:"status_description"`
	VotesVerified     int64  `json:"votes_verified"`
	VotesRemoved      int64  `json:"votes_removed"`
	TicketsConfirmed  int64  `json:"tickets_confirmed"`
	TicketsFailed     int64  `json:"tickets_failed"`
	AmountMismatch    bool   `json:"amount_mismatch"`
}

// Transitions is the number of purchase records this pass actually moved.
// A repeated or concurrent pass over the same settled id reports 0.
func (o *Outcome) Transitions() int64 {
	if o == nil {
		return 0
	}
	return o.VotesVerified + o.VotesRemoved + o.TicketsConfirmed + o.TicketsFailed
}

// Reconciler turns gateway status into purchase-record state transitions.
// All three entry points (IPN push, browser callback, admin sweep) converge
// here and may race; safety comes entirely from the store's conditional
// updates, not from locking.
type Reconciler interface {
	Reconcile(ctx context.Context, trackingID string) (*Outcome, error)
	SweepAll(ctx context.Context) *SweepSummary
}

type Service struct {
	store    Store
	gateway  StatusPoller
	notifier notification.Notifier
	log      *zap.SugaredLogger
}

func NewService(store Store, gateway *pesapal.Client, notifier notification.Notifier, log *zap.SugaredLogger) Reconciler {
	return &Service{store: store, gateway: gateway, notifier: notifier, log: log}
}

// Reconcile polls the gateway for trackingID and applies the resulting state
// transitions. Safe to re-run at any time: the ledger update is repeatable
// and every purchase transition is conditioned on pending status.
func (s *Service) Reconcile(ctx context.Context, trackingID string) (*Outcome, error) {
	lg := logctx.FromCtx(ctx, s.log).With("tracking_id", trackingID)

	status, err := s.gateway.GetTransactionStatus(ctx, trackingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction status: %w", err)
	}

	// Ledger reflects the latest gateway truth even when the business-state
	// transition below is skipped.
	if err := s.store.UpdateLedger(ctx, trackingID, status); err != nil {
		return nil, fmt.Errorf("failed to update ledger: %w", err)
	}

	ledger, err := s.store.LedgerByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, fmt.Errorf("no ledger entry for tracking id: %w", err)
	}

	out := &Outcome{
		TrackingID:        trackingID,
		StatusCode:        status.StatusCode,
		StatusDescription: status.StatusDescription,
	}

	if amountShort(ledger.Amount, status.Amount) {
		// A short payment must never be credited in full. Leave every record
		// untouched and surface the signal to operators only.
		out.AmountMismatch = true
		metrics.SuspiciousPayments.Inc()
		metrics.ReconcileOutcomes.WithLabelValues("amount_mismatch").Inc()
		lg.Warnw("gateway amount short of expected, records left pending",
			"expected", ledger.Amount, "reported", status.Amount)
		return out, nil
	}

	if status.StatusCode == types.GatewayStatusCompleted {
		if err := s.applyCompleted(ctx, trackingID, out); err != nil {
			return nil, err
		}
		metrics.ReconcileOutcomes.WithLabelValues("completed").Inc()
	} else {
		if err := s.applyFailed(ctx, trackingID, out); err != nil {
			return nil, err
		}
		metrics.ReconcileOutcomes.WithLabelValues("failed").Inc()
	}

	lg.Infow("reconciled",
		"status_code", out.StatusCode,
		"votes_verified", out.VotesVerified,
		"votes_removed", out.VotesRemoved,
		"tickets_confirmed", out.TicketsConfirmed,
		"tickets_failed", out.TicketsFailed,
	)
	return out, nil
}

func (s *Service) applyCompleted(ctx context.Context, trackingID string, out *Outcome) error {
	verified, err := s.store.VerifyPendingVotes(ctx, trackingID)
	if err != nil {
		return fmt.Errorf("failed to verify votes: %w", err)
	}
	out.VotesVerified = verified

	confirmed, err := s.store.ConfirmPendingTickets(ctx, trackingID)
	if err != nil {
		return fmt.Errorf("failed to confirm tickets: %w", err)
	}
	out.TicketsConfirmed = confirmed

	// Only the pass that actually flipped rows sends confirmations, so a
	// concurrent re-run cannot double-notify.
	if verified > 0 {
		votes, err := s.store.VerifiedVotes(ctx, trackingID)
		if err != nil {
			logctx.FromCtx(ctx, s.log).Errorw("failed to load verified votes for notification", "err", err)
			return nil
		}
		for _, v := range votes {
			s.notifier.NotifyVoteConfirmed(ctx, v.PayerEmail, v.ContestantName, v.VoteCount)
		}
	}
	return nil
}

// applyFailed handles every non-completed status. Votes are deleted outright
// while tickets keep a failed row: a vote attempt never "existed" if payment
// did not complete, but a ticket order is a user-facing commitment worth a
// support trail.
func (s *Service) applyFailed(ctx context.Context, trackingID string, out *Outcome) error {
	removed, err := s.store.DeletePendingVotes(ctx, trackingID)
	if err != nil {
		return fmt.Errorf("failed to remove failed votes: %w", err)
	}
	out.VotesRemoved = removed

	failed, err := s.store.FailPendingTickets(ctx, trackingID)
	if err != nil {
		return fmt.Errorf("failed to fail tickets: %w", err)
	}
	out.TicketsFailed = failed
	return nil
}

// amountShort reports whether the gateway credited less than expected.
// Absent amounts (0) are not treated as short; comparison carries a cent of
// float tolerance.
func amountShort(expected, reported float64) bool {
	return reported > 0 && reported+0.005 < expected
}
