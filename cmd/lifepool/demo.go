package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/lifepool/pkg/cache"
	"github.com/ajitpratap0/lifepool/pkg/config"
	"github.com/ajitpratap0/lifepool/pkg/observability"
	"github.com/ajitpratap0/lifepool/pkg/pool"
	"github.com/ajitpratap0/lifepool/pkg/registry"
)

// demoItem is a pooled game-style object cloned from a template.
type demoItem struct {
	ID       uuid.UUID
	Kind     string
	Template string
}

// templateProvider fabricates templates on demand. Names starting with
// "missing" fail to load.
type templateProvider struct {
	loads, unloads atomic.Int64
}

func (p *templateProvider) Load(_ context.Context, name string) (string, error) {
	p.loads.Add(1)
	if len(name) >= 7 && name[:7] == "missing" {
		return "", fmt.Errorf("no template called %q", name)
	}
	return "template:" + name, nil
}

func (p *templateProvider) Unload(context.Context, string, string) {
	p.unloads.Add(1)
}

type demoOptions struct {
	workers    int
	iterations int
	grace      time.Duration
	settle     time.Duration
	seed       int64
	asJSON     bool
	metrics    string
}

type demoReport struct {
	Workers    int               `json:"workers"`
	Iterations int               `json:"iterations"`
	Duration   string            `json:"duration"`
	Created    int64             `json:"created"`
	Destroyed  int64             `json:"destroyed"`
	Before     processSample     `json:"before"`
	After      processSample     `json:"after"`
	Snapshot   registry.Snapshot `json:"snapshot"`
}

type processSample struct {
	RSSBytes        uint64  `json:"rss_bytes"`
	Threads         int32   `json:"threads"`
	SystemUsedRatio float64 `json:"system_used_percent"`
}

func sampleProcess() processSample {
	var s processSample
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := proc.MemoryInfo(); err == nil {
			s.RSSBytes = mi.RSS
		}
		s.Threads, _ = proc.NumThreads()
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.SystemUsedRatio = vm.UsedPercent
	}
	return s
}

func newDemoCmd(flags *globalFlags) *cobra.Command {
	opts := &demoOptions{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a concurrent workload against a registry",
		Long: `Run worker goroutines that load, recycle and destroy pooled items while
the registry loop drives deferred teardown, then report pool state and
process memory.

Example:
  lifepool demo --workers 8 --iterations 5000 --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(flags)
			if err != nil {
				return err
			}
			return runDemo(cmd.Context(), cfg, log, opts)
		},
	}
	cmd.Flags().IntVar(&opts.workers, "workers", 4, "Number of concurrent workers")
	cmd.Flags().IntVar(&opts.iterations, "iterations", 1000, "Operations per worker")
	cmd.Flags().DurationVar(&opts.grace, "grace", 50*time.Millisecond, "Grace delay override for the demo (0 keeps the configured value)")
	cmd.Flags().DurationVar(&opts.settle, "settle", 200*time.Millisecond, "How long to keep the loop running after the workers finish")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "Random seed")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().StringVar(&opts.metrics, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides observability.metrics_addr)")
	return cmd
}

func runDemo(ctx context.Context, cfg *config.Config, log *zap.Logger, opts *demoOptions) error {
	if opts.grace > 0 {
		cfg.Pools.GraceDelay = opts.grace
	}
	if g := cfg.Pools.GraceDelay; g > 0 && g < cfg.Scheduler.TickInterval {
		cfg.Scheduler.TickInterval = cfg.Pools.GraceDelay / 2
	}

	tracer, err := observability.Init(cfg.Observability.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		if err := observability.Shutdown(context.Background()); err != nil {
			log.Warn("failed to shutdown tracing", zap.Error(err))
		}
	}()

	addr := cfg.Observability.MetricsAddr
	if opts.metrics != "" {
		addr = opts.metrics
	}
	if addr != "" {
		srv := serveMetrics(addr, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	provider := &templateProvider{}
	templates := cache.New[string]("templates", provider,
		cache.WithCapacity(cfg.Cache.Capacity),
		cache.WithLogger(log))

	var created, destroyed atomic.Int64
	clone := func(tpl string) (*demoItem, error) {
		created.Add(1)
		return &demoItem{ID: uuid.New(), Kind: tpl[len("template:"):], Template: tpl}, nil
	}
	executor := pool.DestroyFunc[*demoItem](func(*demoItem) { destroyed.Add(1) })

	reg, err := registry.New[*demoItem, string](cfg, registry.Collaborators[*demoItem, string]{
		ItemFactory: registry.TemplateFactory(templates, clone),
		ValueFactory: registry.FactoryFunc[*demoItem](func(_ context.Context, name string) (*demoItem, error) {
			created.Add(1)
			return &demoItem{ID: uuid.New(), Kind: name}, nil
		}),
		ItemExecutor:     executor,
		ValueExecutor:    executor,
		ResourceProvider: provider,
	}, registry.WithLogger(log), registry.WithTracer(tracer))
	if err != nil {
		return err
	}

	before := sampleProcess()
	start := time.Now()

	loopCtx, stopLoop := context.WithCancel(ctx)
	loopDone := make(chan error, 1)
	go func() { loopDone <- reg.Run(loopCtx) }()

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.workers; w++ {
		rng := rand.New(rand.NewSource(opts.seed + int64(w)))
		g.Go(func() error { return demoWorker(gctx, reg, rng, opts.iterations) })
	}
	werr := g.Wait()

	select {
	case <-time.After(opts.settle):
	case <-ctx.Done():
	}
	stopLoop()
	if err := <-loopDone; err != nil {
		log.Warn("registry loop failed", zap.Error(err))
	}

	report := demoReport{
		Workers:    opts.workers,
		Iterations: opts.iterations,
		Duration:   time.Since(start).String(),
		Before:     before,
		Snapshot:   reg.Snapshot(),
	}
	if err := reg.Close(ctx); err != nil {
		log.Warn("failed to close registry", zap.Error(err))
	}
	templates.Purge(ctx)
	report.Created = created.Load()
	report.Destroyed = destroyed.Load()
	report.After = sampleProcess()

	if werr != nil {
		return werr
	}
	return printReport(report, opts.asJSON, log)
}

var demoKinds = []string{"enemy", "bullet", "pickup"}

func demoWorker(ctx context.Context, reg *registry.Registry[*demoItem, string], rng *rand.Rand, iterations int) error {
	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := registry.ItemKey(demoKinds[rng.Intn(len(demoKinds))])
		if rng.Intn(4) == 0 {
			key = registry.ValueKey("buffer")
		}

		item, err := reg.Load(ctx, key)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("load %s: %w", key, err)
		}

		switch n := rng.Intn(10); {
		case n < 6:
			reg.Recycle(key, item)
		case n < 9:
			reg.RequestDestroy(key, item)
		default:
			reg.DestroyImmediately(key, item)
		}

		if i%100 == 0 {
			if _, err := reg.LoadResource(ctx, key.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func serveMetrics(addr string, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))
	return srv
}

func printReport(r demoReport, asJSON bool, log *zap.Logger) error {
	if asJSON {
		out, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	log.Info("demo finished",
		zap.Int("workers", r.Workers),
		zap.Int("iterations", r.Iterations),
		zap.String("duration", r.Duration),
		zap.Int64("created", r.Created),
		zap.Int64("destroyed", r.Destroyed),
		zap.Uint64("rss_before", r.Before.RSSBytes),
		zap.Uint64("rss_after", r.After.RSSBytes))
	for _, st := range append(r.Snapshot.Items, r.Snapshot.Values...) {
		fmt.Printf("%-8s %-10s cap=%-3d idle=%-3d in_use=%-3d pending=%-3d hits=%-6d rescues=%-6d evictions=%d\n",
			st.Category, st.Name, st.Capacity, st.Idle, st.InUse, st.Pending, st.Hits, st.Rescues, st.Evictions)
	}
	if c := r.Snapshot.Cache; c != nil {
		fmt.Printf("cache    %-10s cap=%-3d entries=%-3d hits=%d misses=%d\n", c.Name, c.Capacity, c.Entries, c.Hits, c.Misses)
	}
	return nil
}
