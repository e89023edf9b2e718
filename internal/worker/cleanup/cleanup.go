// Package cleanup は期限切れアクセストークンの一括削除ジョブを提供する。
// 期限の判定は参照時にも行われるため、このジョブはメモリ回収のためだけに動く。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hitoshi/scaffcalc/internal/metrics"
)

// ExpiredDeleter は期限切れトークンの一括削除を抽象化するインターフェース。
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// SweepJob は期限切れトークンを削除するジョブ。
// 何度実行しても結果は同じになる。
type SweepJob struct {
	repo      ExpiredDeleter
	collector metrics.MetricsCollector
	logger    *slog.Logger
	now       func() time.Time
}

// NewSweepJob は新しいSweepJobを生成する。
// nowがnilの場合はtime.Nowを使用する。
func NewSweepJob(repo ExpiredDeleter, collector metrics.MetricsCollector, logger *slog.Logger, now func() time.Time) *SweepJob {
	if collector == nil {
		collector = metrics.Nop{}
	}
	if now == nil {
		now = time.Now
	}
	return &SweepJob{
		repo:      repo,
		collector: collector,
		logger:    logger,
		now:       now,
	}
}

// Run は期限切れトークンを1回削除する。
func (j *SweepJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.repo.DeleteExpired(ctx, j.now())
	if err != nil {
		j.logger.Error("期限切れトークンの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れトークンの削除に失敗: %w", err)
	}

	j.collector.RecordTokensEvicted(deleted)

	j.logger.Info("期限切れトークンの一括削除が完了しました",
		slog.Int("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start はcron式scheduleに従ってRunを定期実行する。
// "@every 1h" などの記述子も受け付ける。
// ctxがキャンセルされるとスケジューラを停止し、実行中のジョブの完了を待ってから戻る。
func (j *SweepJob) Start(ctx context.Context, schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		// エラーはRun内でログ出力済み
		_ = j.Run(ctx)
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	c.Start()
	j.logger.Info("トークン掃除ジョブを開始しました",
		slog.String("schedule", schedule),
	)

	<-ctx.Done()
	<-c.Stop().Done()
	j.logger.Info("トークン掃除ジョブを停止しました")
	return nil
}
