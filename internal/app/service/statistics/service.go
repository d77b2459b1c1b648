package statistics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hermahq/herma-backend/internal/models"
	"github.com/hermahq/herma-backend/pkg/tool"
	"github.com/hermahq/herma-backend/pkg/types"
)

type StatisticType string

const (
	// Daily subscriber counts from snapshots
	StatisticTypeDailySubscriberCount    StatisticType = "daily_subscriber_count"
	StatisticTypeDailyNewSubscriberCount StatisticType = "daily_new_subscriber_count"

	// Current totals from the live record table
	StatisticTypeTotalSubscriberCount    StatisticType = "total_subscriber_count"
	StatisticTypeTotalPaymentFailedCount StatisticType = "total_payment_failed_count"
)

type SubscriberStatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type SubscriberStatisticRequest struct {
	Filters   []*types.CommonFilter          `json:"filters"`
	DataItems []*SubscriberStatisticDataItem `json:"data_items"`
}

type SubscriberStatisticResponseDataItem struct {
	Date  string  `json:"date,omitempty"`
	Value float64 `json:"value"`
}

type SubscriberStatisticResponse struct {
	DataItems map[StatisticType][]SubscriberStatisticResponseDataItem `json:"data_items"`
}

type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

// SnapshotAll snapshots every current record for the given day. Re-running
// for the same day is safe; existing (user, date) rows are left in place.
func (s *Service) SnapshotAll(ctx context.Context, snapshotDate time.Time) error {
	var recs []*models.UserSubscription
	if err := s.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return fmt.Errorf("failed to load subscription records: %w", err)
	}

	snaps := make([]*models.SubscriptionDailySnapshot, 0, len(recs))
	for _, rec := range recs {
		snaps = append(snaps, &models.SubscriptionDailySnapshot{
			ID:                tool.GenerateUUIDV7(),
			UserID:            rec.UserID,
			Status:            rec.Status,
			CustomerID:        rec.CustomerID,
			SubscriptionID:    rec.SubscriptionID,
			Extra:             rec.Extra,
			CreatedAt:         rec.CreatedAt,
			UpdatedAt:         rec.UpdatedAt,
			SnapshotDate:      snapshotDate.Format(time.DateOnly),
			SnapshotCreatedAt: time.Now(),
		})
	}
	if len(snaps) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(snaps).Error
}

func (s *Service) getDailySubscriberCount(ctx context.Context, request *SubscriberStatisticRequest) ([]SubscriberStatisticResponseDataItem, error) {
	var results []SubscriberStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.SubscriptionDailySnapshot{}).TableName()).
		Select("snapshot_date as date, count(*) as value").
		Where("status = ?", types.SubscriptionStatusActive).
		Where(clause.Where{Exprs: []clause.Expression{filtersExpr(request.Filters)}}).
		Group("snapshot_date").
		Order("snapshot_date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyNewSubscriberCount(ctx context.Context, _ *SubscriberStatisticRequest) ([]SubscriberStatisticResponseDataItem, error) {
	var results []SubscriberStatisticResponseDataItem
	err := s.db.WithContext(ctx).Raw(`
SELECT TO_CHAR(DATE(created_at), 'YYYY-MM-DD') as date, COUNT(DISTINCT user_id) as value
FROM user_subscription
GROUP BY DATE(created_at)
ORDER BY date DESC
`).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getTotalSubscriberCount(ctx context.Context, request *SubscriberStatisticRequest) ([]SubscriberStatisticResponseDataItem, error) {
	var results []SubscriberStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.UserSubscription{}).TableName()).
		Select("count(*) as value").
		Where(clause.Where{Exprs: []clause.Expression{filtersExpr(request.Filters)}}).
		Where("status = ?", types.SubscriptionStatusActive)
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getTotalPaymentFailedCount(ctx context.Context, _ *SubscriberStatisticRequest) ([]SubscriberStatisticResponseDataItem, error) {
	var results []SubscriberStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.UserSubscription{}).TableName()).
		Select("count(*) as value").
		Where("status = ?", types.SubscriptionStatusPaymentFailed)
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getSubscriberStatistic(ctx context.Context, request *SubscriberStatisticRequest, dataItem *SubscriberStatisticDataItem) ([]SubscriberStatisticResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeDailySubscriberCount:
		return s.getDailySubscriberCount(ctx, request)
	case StatisticTypeDailyNewSubscriberCount:
		return s.getDailyNewSubscriberCount(ctx, request)
	case StatisticTypeTotalSubscriberCount:
		return s.getTotalSubscriberCount(ctx, request)
	case StatisticTypeTotalPaymentFailedCount:
		return s.getTotalPaymentFailedCount(ctx, request)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", dataItem.ID)
	}
}

// GetSubscriberStatistic fans the requested data items out concurrently and
// collects their series.
func (s *Service) GetSubscriberStatistic(ctx context.Context, request *SubscriberStatisticRequest) (*SubscriberStatisticResponse, error) {
	var wg sync.WaitGroup
	errChan := make(chan error, len(request.DataItems))
	resChan := make(chan *lo.Entry[StatisticType, []SubscriberStatisticResponseDataItem], len(request.DataItems))

	for _, item := range request.DataItems {
		wg.Add(1)
		go func(di *SubscriberStatisticDataItem) {
			defer wg.Done()
			res, err := s.getSubscriberStatistic(ctx, request, di)
			if err != nil {
				errChan <- err
				return
			}
			resChan <- &lo.Entry[StatisticType, []SubscriberStatisticResponseDataItem]{Key: di.ID, Value: res}
		}(item)
	}

	wg.Wait()
	close(errChan)
	close(resChan)

	if err := <-errChan; err != nil {
		return nil, err
	}

	results := make(map[StatisticType][]SubscriberStatisticResponseDataItem)
	for entry := range resChan {
		results[entry.Key] = entry.Value
	}
	return &SubscriberStatisticResponse{DataItems: results}, nil
}

// filtersExpr joins common filters into one clause expression.
type filtersExprList []*types.CommonFilter

func filtersExpr(filters []*types.CommonFilter) clause.Expression {
	return filtersExprList(filters)
}

func (w filtersExprList) Build(builder clause.Builder) {
	if len(w) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, f := range w {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		f.Build(builder)
	}
}

// Module exposes the statistics service via Fx.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(runSnapshotJob),
)
