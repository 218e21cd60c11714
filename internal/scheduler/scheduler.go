// Package scheduler запускает фоновые задачи по фиксированным каденциям
// и гарантирует не более одного одновременного выполнения на тип задачи.
//
// Вместо глобального флага "запущено" каждый тип задачи несёт собственное
// атомарное состояние в структуре планировщика: тик, заставший прошлый тик
// в полёте, пропускается, а не ставится в очередь. Накопления не происходит,
// потому что каждая задача идемпотентна и доберёт пропущенные строки на
// следующем тике.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/lib/sl"
)

// JobFunc одна итерация задачи. Возвращает число обработанных строк.
type JobFunc func(ctx context.Context) (int, error)

// Job связывает имя задачи, каденцию и функцию итерации.
type Job struct {
	Name     string
	Interval time.Duration
	Run      JobFunc

	running atomic.Bool
}

// Scheduler владеет набором задач и их метриками.
type Scheduler struct {
	jobs []*Job
	log  *slog.Logger

	runsTotal      *prometheus.CounterVec
	skipsTotal     *prometheus.CounterVec
	failuresTotal  *prometheus.CounterVec
	rowsProcessed  *prometheus.CounterVec
	tickDuration   *prometheus.HistogramVec
	registerMetric sync.Once
}

// New создает новый Scheduler с задачами jobs.
func New(log *slog.Logger, jobs ...*Job) *Scheduler {
	s := &Scheduler{
		jobs: jobs,
		log:  log,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Number of completed job ticks.",
		}, []string{"job"}),
		skipsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_job_skips_total",
			Help: "Number of ticks skipped because the previous tick was still running.",
		}, []string{"job"}),
		failuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_job_failures_total",
			Help: "Number of job ticks that returned an error.",
		}, []string{"job"}),
		rowsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_job_rows_processed_total",
			Help: "Number of rows transitioned by job ticks.",
		}, []string{"job"}),
		tickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scheduler_job_tick_duration_seconds",
			Help:    "Duration of job ticks.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
	}
	return s
}

// Register регистрирует метрики планировщика в реестре Prometheus.
func (s *Scheduler) Register(reg prometheus.Registerer) {
	s.registerMetric.Do(func() {
		reg.MustRegister(s.runsTotal, s.skipsTotal, s.failuresTotal,
			s.rowsProcessed, s.tickDuration)
	})
}

// Run запускает все задачи и блокируется до отмены контекста.
// Каждая задача выполняется сразу при старте, затем по своей каденции.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func(job *Job) {
			defer wg.Done()
			s.runJobLoop(ctx, job)
		}(job)
	}
	wg.Wait()
}

func (s *Scheduler) runJobLoop(ctx context.Context, job *Job) {
	s.log.Info("job loop started",
		slog.String("job", job.Name), slog.Duration("interval", job.Interval))

	s.tick(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("job loop stopped", slog.String("job", job.Name))
			return
		case <-ticker.C:
			s.tick(ctx, job)
		}
	}
}

// tick выполняет одну итерацию задачи, если прошлая уже завершилась.
func (s *Scheduler) tick(ctx context.Context, job *Job) {
	if !job.running.CompareAndSwap(false, true) {
		s.log.Warn("previous tick still running, skipping", slog.String("job", job.Name))
		s.skipsTotal.WithLabelValues(job.Name).Inc()
		return
	}
	defer job.running.Store(false)

	start := time.Now()
	processed, err := job.Run(ctx)
	s.tickDuration.WithLabelValues(job.Name).Observe(time.Since(start).Seconds())
	s.runsTotal.WithLabelValues(job.Name).Inc()
	if err != nil {
		// Сбой тика не повторяется немедленно: необработанные строки
		// заберёт следующая каденция.
		s.failuresTotal.WithLabelValues(job.Name).Inc()
		s.log.Error("job tick failed, rows left for next tick",
			slog.String("job", job.Name), sl.Err(err))
		return
	}
	s.rowsProcessed.WithLabelValues(job.Name).Add(float64(processed))
	if processed > 0 {
		s.log.Info("job tick finished",
			slog.String("job", job.Name), slog.Int("processed", processed))
	}
}
