package statistics

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// runSnapshotJob snapshots all subscription records once per day shortly
// after midnight UTC, feeding the daily subscriber series.
func runSnapshotJob(lc fx.Lifecycle, svc *Service, log *zap.SugaredLogger) {
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				for {
					now := time.Now().UTC()
					next := now.Truncate(24 * time.Hour).Add(24*time.Hour + 5*time.Minute)
					select {
					case <-done:
						return
					case <-time.After(next.Sub(now)):
					}

					day := time.Now().UTC().Add(-time.Hour)
					if err := svc.SnapshotAll(context.Background(), day); err != nil {
						log.Errorw("daily subscription snapshot failed", "error", err)
						continue
					}
					log.Infow("daily subscription snapshot completed", "date", day.Format(time.DateOnly))
				}
			}()
			return nil
		},
		OnStop: func(_ context.Context) error {
			close(done)
			return nil
		},
	})
}
