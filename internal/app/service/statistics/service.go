package statistics

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/crownline/pageant/internal/models"
	"github.com/crownline/pageant/pkg/types"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// TallyItem is one contestant's verified vote total within a category.
type TallyItem struct {
	ContestantID   string `json:"contestant_id"`
	ContestantName string `json:"contestant_name"`
	CategoryID     string `json:"category_id"`
	CategoryName   string `json:"category_name"`
	TotalVotes     int64  `json:"total_votes"`
}

// Tally aggregates public vote totals. Only verified rows count, so a record
// whose payment failed or is still pending never shows up here.
func (s *Service) Tally(ctx context.Context) ([]*TallyItem, error) {
	var items []*TallyItem
	err := s.db.WithContext(ctx).
		Table("vote").
		Select(`vote.contestant_id, contestant.name AS contestant_name,
			vote.category_id, category.name AS category_name,
			COALESCE(SUM(vote.vote_count), 0) AS total_votes`).
		Joins("JOIN contestant ON contestant.id = vote.contestant_id").
		Joins("JOIN category ON category.id = vote.category_id").
		Where("vote.status = ?", types.PurchaseStatusVerified).
		Group("vote.contestant_id, contestant.name, vote.category_id, category.name").
		Order("total_votes DESC").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tally: %w", err)
	}
	return items, nil
}

// RevenueLine is one purpose's settled revenue.
type RevenueLine struct {
	Purpose types.PaymentPurpose `json:"purpose"`
	Count   int64                `json:"count"`
	Amount  float64              `json:"amount"`
}

// RevenueDay is one calendar day's settled revenue.
type RevenueDay struct {
	Day    string  `json:"day"`
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}

type RevenueSummary struct {
	Lines []*RevenueLine `json:"lines"`
	Days  []*RevenueDay  `json:"days"`
	Total float64        `json:"total"`
}

// Revenue sums completed ledger entries by purpose. Pending and failed
// attempts are excluded; the ledger's latest status code is the source of
// truth.
func (s *Service) Revenue(ctx context.Context) (*RevenueSummary, error) {
	var lines []*RevenueLine
	err := s.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Select("purpose, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Where("status_code = ?", types.GatewayStatusCompleted).
		Group("purpose").
		Scan(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue: %w", err)
	}
	var days []*RevenueDay
	err = s.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Select("to_char(created_at, 'YYYY-MM-DD') AS day, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Where("status_code = ?", types.GatewayStatusCompleted).
		Group("day").
		Order("day").
		Scan(&days).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily revenue: %w", err)
	}

	summary := &RevenueSummary{Lines: lines, Days: days}
	for _, l := range lines {
		summary.Total += l.Amount
	}
	return summary, nil
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

type ScanTransactionsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanTransactionsResponse struct {
	Items []*models.PaymentTransaction `json:"items"`
	Total int64                        `json:"total"`
}

// ScanTransactions implements paginated/admin ledger listing with filters.
func (s *Service) ScanTransactions(ctx context.Context, req *ScanTransactionsRequest) (*ScanTransactionsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.PaymentTransaction{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	var rows []*models.PaymentTransaction

	q := tx.Limit(req.Size)

	if req.From > 0 {
		q = q.Offset(req.From)
	}

	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return &ScanTransactionsResponse{Items: rows, Total: total}, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
