package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"garden_insights/internal/logger"
	"garden_insights/internal/metrics"
	"garden_insights/internal/models"
	"garden_insights/internal/notify"
	"garden_insights/internal/repository"

	"github.com/robfig/cron/v3"
)

const DefaultCycleTimeout = 4 * time.Minute

// postCycleTimeout bounds publishing and gauge refresh after the cycle
// context has ended.
const postCycleTimeout = 10 * time.Second

// CycleReport describes one finished generate and evaluate cycle.
type CycleReport struct {
	StartedAt time.Time     `json:"startedAt"`
	Took      time.Duration `json:"took"`
	Readings  int           `json:"readings"`
	Pairs     int           `json:"pairs"`
	Created   int           `json:"created"`
	Resolved  int           `json:"resolved"`
	Err       string        `json:"error,omitempty"`
}

// CycleRunner drives simulate, persist, evaluate and resolve. At most one
// cycle runs at a time.
type CycleRunner struct {
	running sync.Mutex

	zones     repository.ZoneRepo
	metrics   repository.MetricRepo
	readings  repository.ReadingRepo
	insights  repository.InsightRepo
	simulator *SimulatorService
	rules     *RulesService
	publisher notify.Publisher
	timeout   time.Duration
	now       func() time.Time
	log       *logger.Logger

	lastMu sync.RWMutex
	last   *CycleReport
}

func NewCycleRunner(
	repos *repository.Repository,
	simulator *SimulatorService,
	rules *RulesService,
	publisher notify.Publisher,
	timeout time.Duration,
	log *logger.Logger,
) *CycleRunner {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	if timeout <= 0 {
		timeout = DefaultCycleTimeout
	}
	return &CycleRunner{
		zones:     repos.Zones,
		metrics:   repos.Metrics,
		readings:  repos.Readings,
		insights:  repos.Insights,
		simulator: simulator,
		rules:     rules,
		publisher: publisher,
		timeout:   timeout,
		now:       time.Now,
		log:       log.Named("cycle"),
	}
}

// RunCycle runs one cycle now. It returns ErrCycleInProgress without doing
// anything when another cycle holds the runner.
func (r *CycleRunner) RunCycle(ctx context.Context) (CycleReport, error) {
	if !r.running.TryLock() {
		metrics.RecordCycle(metrics.OutcomeSkipped, 0)
		return CycleReport{}, ErrCycleInProgress
	}
	defer r.running.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := r.now()
	report := CycleReport{StartedAt: started.UTC()}

	res, err := r.run(ctx, started, &report)
	report.Took = r.now().Sub(started)
	report.Pairs = res.Pairs
	report.Created = len(res.Created)
	report.Resolved = len(res.Resolved)

	// findings stored before a failure or timeout are still announced
	post, cancelPost := context.WithTimeout(context.WithoutCancel(ctx), postCycleTimeout)
	defer cancelPost()
	r.announce(post, res)

	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
		report.Err = err.Error()
	}
	metrics.RecordCycle(outcome, report.Took)
	r.refreshOpenGauge(post)

	r.lastMu.Lock()
	r.last = &report
	r.lastMu.Unlock()

	return report, err
}

func (r *CycleRunner) run(ctx context.Context, ts time.Time, report *CycleReport) (CycleResult, error) {
	zones, err := r.zones.List(ctx)
	if err != nil {
		return CycleResult{}, fmt.Errorf("list zones: %w", err)
	}
	catalog, err := r.metrics.List(ctx)
	if err != nil {
		return CycleResult{}, fmt.Errorf("list metrics: %w", err)
	}
	if len(zones) == 0 || len(catalog) == 0 {
		r.log.Infow("cycle_noop", "zones", len(zones), "metrics", len(catalog))
		return CycleResult{}, nil
	}

	readings, err := r.simulator.GenerateCycle(ctx, zones, catalog, ts)
	if err != nil {
		return CycleResult{}, err
	}
	if err := r.readings.Append(ctx, readings); err != nil {
		return CycleResult{}, fmt.Errorf("append readings: %w", err)
	}
	report.Readings = len(readings)
	metrics.RecordReadings(len(readings))

	return r.rules.EvaluateAll(ctx)
}

// announce publishes lifecycle events and counts them. Publish failures are
// logged and never fail the cycle.
func (r *CycleRunner) announce(ctx context.Context, res CycleResult) {
	if len(res.Created)+len(res.Resolved) == 0 {
		return
	}

	at := r.now().UTC()
	events := make([]notify.Event, 0, len(res.Created)+len(res.Resolved))
	for _, in := range res.Created {
		metrics.RecordInsightCreated(string(in.Rule), string(in.Severity))
		events = append(events, notify.Event{Type: notify.InsightCreated, Insight: in, OccurredAt: at})
	}
	for _, in := range res.Resolved {
		events = append(events, notify.Event{Type: notify.InsightResolved, Insight: in, OccurredAt: at})
	}
	metrics.RecordInsightsResolved(len(res.Resolved))

	if err := r.publisher.Publish(ctx, events...); err != nil {
		metrics.RecordPublishFailure()
		r.log.Errorw("publish_failed", "events", len(events), "err", err)
	}
}

func (r *CycleRunner) refreshOpenGauge(ctx context.Context) {
	open, err := r.insights.List(ctx, models.InsightFilter{Status: models.InsightStatusActive})
	if err != nil {
		r.log.Warnw("open_insights_count_failed", "err", err)
		return
	}
	metrics.SetOpenInsights(len(open))
}

// LastReport returns the most recent finished cycle, if any.
func (r *CycleRunner) LastReport() (CycleReport, bool) {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	if r.last == nil {
		return CycleReport{}, false
	}
	return *r.last, true
}

// Run runs a cycle immediately, then on every schedule tick (standard cron
// syntax) until ctx is canceled. Ticks that fire while a cycle is still
// running are skipped.
func (r *CycleRunner) Run(ctx context.Context, schedule string, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{log: r.log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(schedule, func() { r.runLogged(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}

	r.log.Infow("scheduler_started", "schedule", schedule, "timezone", loc.String())
	c.Start()
	r.runLogged(ctx)

	<-ctx.Done()
	<-c.Stop().Done()
	r.log.Infow("scheduler_stopped")
	return nil
}

func (r *CycleRunner) runLogged(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report, err := r.RunCycle(ctx)
	switch {
	case errors.Is(err, ErrCycleInProgress):
		r.log.Infow("cycle_skipped", "reason", "in_progress")
	case err != nil:
		r.log.Errorw("cycle_failed",
			"took", report.Took.String(), "readings", report.Readings,
			"created", report.Created, "resolved", report.Resolved, "err", err)
	default:
		r.log.Infow("cycle_done",
			"took", report.Took.String(), "readings", report.Readings, "pairs", report.Pairs,
			"created", report.Created, "resolved", report.Resolved)
	}
}

// cronLogger adapts the zap logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw(msg, append(keysAndValues, "err", err)...)
}
