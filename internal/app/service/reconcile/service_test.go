package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crownline/pageant/internal/models"
	"github.com/crownline/pageant/internal/platform/pesapal"
	"github.com/crownline/pageant/pkg/types"
)

// fakeStore reproduces the conditional-update semantics of the gorm store
// over in-memory rows, guarded by a mutex so concurrency tests are exact.
type fakeStore struct {
	mu          sync.Mutex
	ledgers     map[string]*models.PaymentTransaction
	votes       []*models.Vote
	tickets     []*models.TicketPurchase
	ticketTypes map[string]*models.TicketType
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		ledgers:     map[string]*models.PaymentTransaction{},
		ticketTypes: map[string]*models.TicketType{},
	}
}

func (f *fakeStore) UpdateLedger(_ context.Context, trackingID string, st *pesapal.TransactionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.ledgers[trackingID]; ok {
		l.StatusCode = st.StatusCode
		l.StatusDescription = st.StatusDescription
	}
	return nil
}

func (f *fakeStore) LedgerByTrackingID(_ context.Context, trackingID string) (*models.PaymentTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.ledgers[trackingID]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, context.Canceled
}

func (f *fakeStore) VerifyPendingVotes(_ context.Context, trackingID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, v := range f.votes {
		if v.OrderTrackingID != nil && *v.OrderTrackingID == trackingID && v.Status == types.PurchaseStatusPending {
			v.Status = types.PurchaseStatusVerified
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) DeletePendingVotes(_ context.Context, trackingID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.votes[:0]
	var n int64
	for _, v := range f.votes {
		if v.OrderTrackingID != nil && *v.OrderTrackingID == trackingID && v.Status == types.PurchaseStatusPending {
			n++
			continue
		}
		kept = append(kept, v)
	}
	f.votes = kept
	return n, nil
}

func (f *fakeStore) ConfirmPendingTickets(_ context.Context, trackingID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.tickets {
		if t.OrderTrackingID != nil && *t.OrderTrackingID == trackingID && t.Status == types.PurchaseStatusPending {
			t.Status = types.PurchaseStatusConfirmed
			n++
			// inventory committed only by the pass that flips the row
			if tt, ok := f.ticketTypes[t.TicketTypeID]; ok {
				tt.QuantityAvailable -= t.Quantity
			}
		}
	}
	return n, nil
}

func (f *fakeStore) FailPendingTickets(_ context.Context, trackingID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.tickets {
		if t.OrderTrackingID != nil && *t.OrderTrackingID == trackingID && t.Status == types.PurchaseStatusPending {
			t.Status = types.PurchaseStatusFailed
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) VerifiedVotes(_ context.Context, trackingID string) ([]VerifiedVote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []VerifiedVote
	for _, v := range f.votes {
		if v.OrderTrackingID != nil && *v.OrderTrackingID == trackingID && v.Status == types.PurchaseStatusVerified {
			out = append(out, VerifiedVote{PayerEmail: v.PayerEmail, ContestantName: v.ContestantID, VoteCount: v.VoteCount})
		}
	}
	return out, nil
}

func (f *fakeStore) PendingTrackingIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var ids []string
	for _, v := range f.votes {
		if v.Status == types.PurchaseStatusPending && v.OrderTrackingID != nil && !seen[*v.OrderTrackingID] {
			seen[*v.OrderTrackingID] = true
			ids = append(ids, *v.OrderTrackingID)
		}
	}
	for _, t := range f.tickets {
		if t.Status == types.PurchaseStatusPending && t.OrderTrackingID != nil && !seen[*t.OrderTrackingID] {
			seen[*t.OrderTrackingID] = true
			ids = append(ids, *t.OrderTrackingID)
		}
	}
	return ids, nil
}

func (f *fakeStore) DeleteAbandoned(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	kept := f.votes[:0]
	for _, v := range f.votes {
		if v.Status == types.PurchaseStatusPending && v.OrderTrackingID == nil && v.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, v)
	}
	f.votes = kept
	keptT := f.tickets[:0]
	for _, t := range f.tickets {
		if t.Status == types.PurchaseStatusPending && t.OrderTrackingID == nil && t.CreatedAt.Before(before) {
			n++
			continue
		}
		keptT = append(keptT, t)
	}
	f.tickets = keptT
	return n, nil
}

type fakePoller struct {
	statuses map[string]*pesapal.TransactionStatus
	err      error
}

func (f *fakePoller) GetTransactionStatus(_ context.Context, trackingID string) (*pesapal.TransactionStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	if st, ok := f.statuses[trackingID]; ok {
		return st, nil
	}
	return nil, pesapal.ErrUnavailable
}

type recordedNotification struct {
	email     string
	voteCount int
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []recordedNotification
}

func (f *fakeNotifier) NotifyVoteConfirmed(_ context.Context, email string, _ string, voteCount int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, recordedNotification{email: email, voteCount: voteCount})
}

func ptr(s string) *string { return &s }

func newEngine(store Store, poller StatusPoller, notifier *fakeNotifier) *Service {
	if notifier == nil {
		notifier = &fakeNotifier{}
	}
	return &Service{store: store, gateway: poller, notifier: notifier, log: zap.NewNop().Sugar()}
}

func seedVotePurchase(f *fakeStore, trackingID string, amount float64, voteCount int) {
	f.ledgers[trackingID] = &models.PaymentTransaction{
		OrderTrackingID: trackingID,
		Purpose:         types.PaymentPurposeVote,
		Amount:          amount,
	}
	f.votes = append(f.votes, &models.Vote{
		ID:              "v-" + trackingID,
		PayerEmail:      "voter@example.com",
		ContestantID:    "c-1",
		CategoryID:      "cat-1",
		VoteCount:       voteCount,
		Amount:          amount,
		OrderTrackingID: ptr(trackingID),
		Status:          types.PurchaseStatusPending,
	})
}

func TestReconcileCompletedVerifiesVotesOnce(t *testing.T) {
	store := newFakeStore()
	seedVotePurchase(store, "trk-1", 10.00, 5)
	poller := &fakePoller{statuses: map[string]*pesapal.TransactionStatus{
		"trk-1": {StatusCode: types.GatewayStatusCompleted, StatusDescription: "Completed", Amount: 10.00},
	}}
	notifier := &fakeNotifier{}
	svc := newEngine(store, poller, notifier)

	// called three times; only the first transitions anything
	out, err := svc.Reconcile(context.Background(), "trk-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), out.VotesVerified)

	for range 2 {
		out, err = svc.Reconcile(context.Background(), "trk-1")
		require.NoError(t, err)
		require.Zero(t, out.Transitions())
	}

	require.Equal(t, types.PurchaseStatusVerified, store.votes[0].Status)
	require.Len(t, notifier.sent, 1)
	require.Equal(t, 5, notifier.sent[0].voteCount)
	require.Equal(t, 1, store.ledgers["trk-1"].StatusCode)
}

func TestReconcileConcurrentCallsAreSingleTransition(t *testing.T) {
	store := newFakeStore()
	seedVotePurchase(store, "trk-c", 10.00, 5)
	poller := &fakePoller{statuses: map[string]*pesapal.TransactionStatus{
		"trk-c": {StatusCode: types.GatewayStatusCompleted, Amount: 10.00},
	}}
	notifier := &fakeNotifier{}
	svc := newEngine(store, poller, notifier)

	const callers = 8
	outcomes := make([]*Outcome, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i], _ = svc.Reconcile(context.Background(), "trk-c")
		}()
	}
	wg.Wait()

	var total int64
	for _, out := range outcomes {
		require.NotNil(t, out)
		total += out.Transitions()
	}
	require.Equal(t, int64(1), total)
	require.Len(t, notifier.sent, 1)
}

func TestReconcileAmountMismatchLeavesRecordsPending(t *testing.T) {
	store := newFakeStore()
	seedVotePurchase(store, "trk-m", 10.00, 5)
	poller := &fakePoller{statuses: map[string]*pesapal.TransactionStatus{
		"trk-m": {StatusCode: types.GatewayStatusCompleted, StatusDescription: "Completed", Amount: 5.00},
	}}
	svc := newEngine(store, poller, nil)

	out, err := svc.Reconcile(context.Background(), "trk-m")
	require.NoError(t, err)
	require.True(t, out.AmountMismatch)
	require.Zero(t, out.Transitions())
	require.Equal(t, types.PurchaseStatusPending, store.votes[0].Status)
	// ledger still reflects the latest gateway truth
	require.Equal(t, "Completed", store.ledgers["trk-m"].StatusDescription)
}

func TestReconcileFailureRemovesVotesKeepsFailedTickets(t *testing.T) {
	store := newFakeStore()
	seedVotePurchase(store, "trk-f", 10.00, 5)
	store.tickets = append(store.tickets, &models.TicketPurchase{
		ID:              "t-1",
		TicketTypeID:    "tt-1",
		Quantity:        2,
		Amount:          40.00,
		OrderTrackingID: ptr("trk-f"),
		Status:          types.PurchaseStatusPending,
	})
	store.ledgers["trk-f"].Amount = 50.00
	poller := &fakePoller{statuses: map[string]*pesapal.TransactionStatus{
		"trk-f": {StatusCode: types.GatewayStatusFailed, StatusDescription: "Failed"},
	}}
	svc := newEngine(store, poller, nil)

	out, err := svc.Reconcile(context.Background(), "trk-f")
	require.NoError(t, err)
	require.Equal(t, int64(1), out.VotesRemoved)
	require.Equal(t, int64(1), out.TicketsFailed)

	require.Empty(t, store.votes, "failed vote attempts never existed")
	require.Equal(t, types.PurchaseStatusFailed, store.tickets[0].Status)
}

func TestReconcileConfirmedTicketsDeductInventoryOnce(t *testing.T) {
	store := newFakeStore()
	store.ticketTypes["tt-1"] = &models.TicketType{ID: "tt-1", QuantityAvailable: 10}
	store.tickets = append(store.tickets, &models.TicketPurchase{
		ID:              "t-1",
		TicketTypeID:    "tt-1",
		Quantity:        2,
		Amount:          40.00,
		OrderTrackingID: ptr("trk-t"),
		Status:          types.PurchaseStatusPending,
	})
	store.ledgers["trk-t"] = &models.PaymentTransaction{
		OrderTrackingID: "trk-t",
		Purpose:         types.PaymentPurposeTicket,
		Amount:          40.00,
	}
	poller := &fakePoller{statuses: map[string]*pesapal.TransactionStatus{
		"trk-t": {StatusCode: types.GatewayStatusCompleted, Amount: 40.00},
	}}
	svc := newEngine(store, poller, nil)

	out, err := svc.Reconcile(context.Background(), "trk-t")
	require.NoError(t, err)
	require.Equal(t, int64(1), out.TicketsConfirmed)
	require.Equal(t, 8, store.ticketTypes["tt-1"].QuantityAvailable)

	// a repeated pass finds no pending rows and deducts nothing further
	out, err = svc.Reconcile(context.Background(), "trk-t")
	require.NoError(t, err)
	require.Zero(t, out.Transitions())
	require.Equal(t, 8, store.ticketTypes["tt-1"].QuantityAvailable)
}

func TestReconcileUnknownStatusTreatedAsTerminalFailure(t *testing.T) {
	store := newFakeStore()
	seedVotePurchase(store, "trk-u", 10.00, 5)
	// the gateway's code space is not closed; 7 is not in the documented set
	poller := &fakePoller{statuses: map[string]*pesapal.TransactionStatus{
		"trk-u": {StatusCode: 7, StatusDescription: "Unknown"},
	}}
	svc := newEngine(store, poller, nil)

	out, err := svc.Reconcile(context.Background(), "trk-u")
	require.NoError(t, err)
	require.Equal(t, int64(1), out.VotesRemoved)
	require.Empty(t, store.votes)
}

func TestReconcileGatewayErrorTouchesNothing(t *testing.T) {
	store := newFakeStore()
	seedVotePurchase(store, "trk-e", 10.00, 5)
	svc := newEngine(store, &fakePoller{err: pesapal.ErrUnavailable}, nil)

	_, err := svc.Reconcile(context.Background(), "trk-e")
	require.ErrorIs(t, err, pesapal.ErrUnavailable)
	require.Equal(t, types.PurchaseStatusPending, store.votes[0].Status)
}

func TestAmountShort(t *testing.T) {
	require.True(t, amountShort(10.00, 5.00))
	require.False(t, amountShort(10.00, 10.00))
	require.False(t, amountShort(10.00, 0), "absent amount is not a mismatch")
	require.False(t, amountShort(10.00, 9.999), "within cent tolerance")
	require.False(t, amountShort(10.00, 15.00))
}
