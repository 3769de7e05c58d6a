package reconcile

import (
	"context"
	"time"

	"github.com/crownline/pageant/pkg/logctx"
)

// RetentionWindow is how long a pending record without a tracking id may
// linger before the sweep removes it. Such records never reached the gateway,
// so there is nothing to reconcile.
const RetentionWindow = time.Hour

type SweepError struct {
	TrackingID string `json:"tracking_id"`
	Message    string `json:"message"`
}

// SweepSummary aggregates one admin-triggered batch reconciliation.
// Removed counts abandoned records only, never reconciled failures.
type SweepSummary struct {
	Checked  int          `json:"checked"`
	Verified int64        `json:"verified"`
	Removed  int64        `json:"removed"`
	Errors   []SweepError `json:"errors,omitempty"`
}

// SweepAll re-polls every locally pending tracking id and garbage-collects
// abandoned attempts. One id's failure never aborts the rest of the batch,
// and the sweep is safe to run on any cadence, concurrently with the push
// and redirect entry points.
func (s *Service) SweepAll(ctx context.Context) *SweepSummary {
	lg := logctx.FromCtx(ctx, s.log)
	summary := &SweepSummary{}

	ids, err := s.store.PendingTrackingIDs(ctx)
	if err != nil {
		lg.Errorw("sweep: failed to list pending tracking ids", "err", err)
		summary.Errors = append(summary.Errors, SweepError{Message: err.Error()})
	}

	summary.Checked = len(ids)
	for _, id := range ids {
		out, err := s.Reconcile(ctx, id)
		if err != nil {
			lg.Errorw("sweep: reconcile failed", "tracking_id", id, "err", err)
			summary.Errors = append(summary.Errors, SweepError{TrackingID: id, Message: err.Error()})
			continue
		}
		summary.Verified += out.VotesVerified + out.TicketsConfirmed
	}

	removed, err := s.store.DeleteAbandoned(ctx, time.Now().Add(-RetentionWindow))
	if err != nil {
		lg.Errorw("sweep: failed to delete abandoned records", "err", err)
		summary.Errors = append(summary.Errors, SweepError{Message: err.Error()})
	}
	summary.Removed = removed

	lg.Infow("sweep completed",
		"checked", summary.Checked,
		"verified", summary.Verified,
		"removed", summary.Removed,
		"errors", len(summary.Errors),
	)
	return summary
}
