package types

// PaymentPurpose identifies what a ledger entry paid for.
type PaymentPurpose string

const (
	PaymentPurposeVote   PaymentPurpose = "vote"
	PaymentPurposeTicket PaymentPurpose = "ticket"
)

// PurchaseStatus is the tri-state outcome of a purchase attempt.
// Votes never hold StatusFailed: failed vote attempts are deleted instead.
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusVerified  PurchaseStatus = "verified"
	PurchaseStatusConfirmed PurchaseStatus = "confirmed"
	PurchaseStatusFailed    PurchaseStatus = "failed"
)

// Gateway status codes as reported by Pesapal.
// Anything other than completed is treated as terminal failure; the code
// space is not contractually closed so callers must not enumerate.
const (
	GatewayStatusCompleted = 1
	GatewayStatusFailed    = 2
	GatewayStatusReversed  = 3
	GatewayStatusCancelled = 4
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)
