package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"furniture-inventory/internal/inventory"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

const backfillTimeout = 5 * time.Minute

// Backfiller repairs products whose barcode image is missing.
type Backfiller interface {
	BackfillMissing(ctx context.Context) (inventory.BackfillReport, error)
}

type Scheduler struct {
	sched  *cron.Cron
	logger *zap.Logger
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		sched:  cron.New(cron.WithParser(cronParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger,
	}
}

// AddBarcodeBackfill registers the backfill on spec. An empty spec leaves
// the job disabled.
func (s *Scheduler) AddBarcodeBackfill(spec string, backfiller Backfiller) error {
	if spec == "" {
		s.logger.Info("barcode backfill disabled")
		return nil
	}
	_, err := s.sched.AddFunc(spec, func() { s.RunBackfill(backfiller) })
	if err != nil {
		s.logger.Error("init job error", zap.String("job", "barcode-backfill"), zap.Error(err))
		return err
	}
	s.logger.Info("barcode backfill scheduled", zap.String("schedule", spec))
	return nil
}

func (s *Scheduler) RunBackfill(backfiller Backfiller) {
	ctx, cancel := context.WithTimeout(context.Background(), backfillTimeout)
	defer cancel()

	started := time.Now()
	report, err := backfiller.BackfillMissing(ctx)
	if err != nil {
		s.logger.Error("barcode backfill failed", zap.Error(err))
		return
	}
	s.logger.Info("barcode backfill done",
		zap.Int("checked", report.Checked),
		zap.Int("rendered", report.Rendered),
		zap.Int("failed", report.Failed),
		zap.Duration("took", time.Since(started)),
	)
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.sched.Stop().Done()
}

func (s *Scheduler) Entries() int {
	return len(s.sched.Entries())
}
