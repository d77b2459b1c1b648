package subscription

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hermahq/herma-backend/internal/models"
	"github.com/hermahq/herma-backend/pkg/logctx"
	"github.com/hermahq/herma-backend/pkg/types"
)

type ListRecordsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

// Store is the persistence boundary for user subscription records. The gorm
// implementation is wired in production; tests use in-memory fakes.
type Store interface {
	// GetByUserID returns gorm.ErrRecordNotFound when no record exists.
	GetByUserID(ctx context.Context, userID string) (*models.UserSubscription, error)
	// GetByCustomerID looks a record up by its provider customer id. At most
	// one record per customer id is an invariant of this collection (customer
	// ids are written once, to a single user's record).
	GetByCustomerID(ctx context.Context, customerID string) (*models.UserSubscription, error)
	Create(ctx context.Context, rec *models.UserSubscription) error
	// UpdateFields applies a partial merge-update; updated_at is refreshed by
	// the storage layer on every call.
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	List(ctx context.Context, req *ListRecordsRequest) ([]*models.UserSubscription, int64, error)
	// SaveLog persists a change log entry asynchronously. Nil input is ignored.
	SaveLog(ctx context.Context, entry *models.SubscriptionLog)
}

type gormStore struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewStore(db *gorm.DB, log *zap.SugaredLogger) Store {
	return &gormStore{db: db, log: log}
}

func (s *gormStore) GetByUserID(ctx context.Context, userID string) (*models.UserSubscription, error) {
	var rec models.UserSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *gormStore) GetByCustomerID(ctx context.Context, customerID string) (*models.UserSubscription, error) {
	var rec models.UserSubscription
	if err := s.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *gormStore) Create(ctx context.Context, rec *models.UserSubscription) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create subscription record: %w", err)
	}
	return nil
}

func (s *gormStore) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	err := s.db.WithContext(ctx).Model(&models.UserSubscription{}).
		Where("id = ?", id).Updates(fields).Error
	if err != nil {
		return fmt.Errorf("failed to update subscription record: %w", err)
	}
	return nil
}

// filtersWhere wraps a list of filters to a single clause.Expression
type filtersWhere struct{ filters []*types.CommonFilter }

func (w filtersWhere) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, f := range w.filters {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		f.Build(builder)
	}
}

var listSortColumns = map[string]bool{
	"created_at":      true,
	"updated_at":      true,
	"user_id":         true,
	"status":          true,
	"last_payment_at": true,
}

func (s *gormStore) List(ctx context.Context, req *ListRecordsRequest) ([]*models.UserSubscription, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.UserSubscription{}).
		Clauses(clause.Where{Exprs: []clause.Expression{filtersWhere{filters: req.Filters}}})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscription records: %w", err)
	}

	sortBy := req.SortBy
	if !listSortColumns[sortBy] {
		sortBy = "updated_at"
	}
	order := "desc"
	if req.SortOrder == "asc" {
		order = "asc"
	}

	size := req.Size
	if size <= 0 || size > 200 {
		size = 50
	}

	var items []*models.UserSubscription
	err := q.Order(sortBy + " " + order).Offset(req.From).Limit(size).Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscription records: %w", err)
	}
	return items, total, nil
}

func (s *gormStore) SaveLog(ctx context.Context, entry *models.SubscriptionLog) {
	go func() {
		if entry == nil {
			return
		}
		if err := s.db.Save(entry).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save subscription log: %v", err)
		}
	}()
}

// IsNotFound reports whether err is the store's record-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
