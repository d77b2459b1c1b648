package webhookevent

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hermahq/herma-backend/internal/models"
	"github.com/hermahq/herma-backend/pkg/logctx"
	"github.com/hermahq/herma-backend/pkg/tool"
)

// LogService persists webhook delivery receipts and outcomes.
type LogService struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewLogService(db *gorm.DB, log *zap.SugaredLogger) *LogService {
	return &LogService{db: db, log: log}
}

// Save asynchronously persists a webhook event log. Nil input is ignored.
func (s *LogService) Save(ctx context.Context, entry *models.WebhookEventLog) {
	go func() {
		if entry == nil {
			return
		}
		if entry.ID == "" {
			entry.ID = tool.GenerateUUIDV7()
		}
		if err := s.db.Save(entry).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save webhook event log: %v", err)
		}
	}()
}
