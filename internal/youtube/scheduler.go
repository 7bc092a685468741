package youtube

import (
	"context"
	"time"

	"mcn-dashboard/internal/logging"

	"github.com/robfig/cron/v3"
)

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logging.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

// NewScheduler registers the daily sync of yesterday's metrics. The caller
// starts and stops the returned cron.
func NewScheduler(spec string, syncer *Syncer, timeout time.Duration) (*cron.Cron, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		res, err := syncer.SyncDay(ctx, time.Time{})
		if err != nil {
			logging.Error().Err(err).Msg("scheduled metrics sync failed")
			return
		}
		logging.Info().Str("date", res.From).Int("success", res.SuccessCount).Int("errors", res.ErrorCount).Msg("scheduled metrics sync done")
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
