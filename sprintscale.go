// Package sprintscale is a scheduling engine for sprint backlogs: it turns
// raw tracker records into a dependency graph and answers critical-path,
// ETA-range and calendar questions about it. All upstream I/O lives behind
// the IssueSource interface; the engine itself is pure computation plus a
// read-mostly cache.
package sprintscale

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/errgroup"

	"github.com/quillforge/sprintscale/internal/calendar"
	"github.com/quillforge/sprintscale/internal/cpa"
	"github.com/quillforge/sprintscale/internal/eta"
	"github.com/quillforge/sprintscale/internal/eventbus"
	"github.com/quillforge/sprintscale/internal/graph"
	"github.com/quillforge/sprintscale/internal/tracker"
)

// Engine is the main entry point. It wires an IssueSource, a backlog cache
// and an optional lifecycle event bus around the pure scheduling core.
type Engine struct {
	source   IssueSource
	cache    Cache
	eventBus eventbus.EventBus

	config Config

	session      Session
	sessionMutex sync.RWMutex
}

// Config holds the configuration options for the engine.
type Config struct {
	// TTL for cached backlog snapshots.
	BacklogTTL time.Duration

	// Maximum number of concurrent ETA computations in EtaRangeBatch.
	MaxConcurrentEta int

	// Event bus configuration
	EnableEventBus      bool
	EventBusBufferSize  int
	EventBusWorkerCount int
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BacklogTTL:          60 * time.Second,
		MaxConcurrentEta:    4,
		EnableEventBus:      true,
		EventBusBufferSize:  100,
		EventBusWorkerCount: 2,
	}
}

// Option is a function that configures an Engine instance.
type Option func(*Engine)

// WithConfig sets the configuration.
func WithConfig(config Config) Option {
	return func(e *Engine) {
		e.config = config
	}
}

// WithSource sets the issue source.
func WithSource(source IssueSource) Option {
	return func(e *Engine) {
		e.source = source
	}
}

// WithCache sets the backlog cache.
func WithCache(cache Cache) Option {
	return func(e *Engine) {
		e.cache = cache
	}
}

// WithEventBus sets the lifecycle event bus.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(e *Engine) {
		e.eventBus = bus
	}
}

// New creates a new Engine with the provided options.
func New(options ...Option) (*Engine, error) {
	e := &Engine{
		config: DefaultConfig(),
	}
	for _, option := range options {
		option(e)
	}

	if e.source == nil {
		return nil, NewConfigurationError("an issue source is required", nil)
	}
	if e.cache == nil {
		e.cache = tracker.NewBacklogCache(e.config.BacklogTTL)
	}
	if e.config.EnableEventBus && e.eventBus == nil {
		e.eventBus = eventbus.NewChannelEventBus(
			eventbus.WithBufferSize(e.config.EventBusBufferSize),
			eventbus.WithWorkerCount(e.config.EventBusWorkerCount),
		)
		log.Printf("Initialized default channel-based event bus")
	}
	return e, nil
}

// Close shuts down the event bus, draining in-flight dispatches.
func (e *Engine) Close() error {
	if e.eventBus != nil {
		return e.eventBus.Close()
	}
	return nil
}

// LastSession returns the project/sprint of the most recent computation.
func (e *Engine) LastSession() Session {
	e.sessionMutex.RLock()
	defer e.sessionMutex.RUnlock()
	return e.session
}

func (e *Engine) remember(projectKey string, sprint SprintWindow) {
	e.sessionMutex.Lock()
	e.session.Remember(projectKey, sprint)
	e.sessionMutex.Unlock()
}

// publish sends a lifecycle event when the bus is enabled. Publishing never
// fails a computation.
func (e *Engine) publish(ctx context.Context, eventType eventbus.EventType, payload interface{}, source string, metadata map[string]interface{}) {
	if !e.config.EnableEventBus || e.eventBus == nil {
		return
	}
	if err := e.eventBus.Publish(ctx, eventbus.NewEvent(eventType, payload, source, metadata)); err != nil {
		log.Printf("Failed to publish event (type: %s): %v", eventType, err)
	}
}

// Sync fetches the active backlog for a project, serving from the cache when
// fresh. Every fetch publishes backlog_sync events carrying a run id.
func (e *Engine) Sync(ctx context.Context, projectKey string) ([]RawIssue, error) {
	runID := uuid.New().String()
	e.publish(ctx, eventbus.EventBacklogSyncStarted, projectKey, "Engine.Sync",
		map[string]interface{}{"run_id": runID})

	if issues, err := e.cache.Get(ctx, projectKey); err == nil {
		e.publish(ctx, eventbus.EventBacklogSyncSuccess, projectKey, "Engine.Sync",
			map[string]interface{}{"run_id": runID, "issues": len(issues), "cached": true})
		return issues, nil
	}

	issues, err := e.source.FetchBacklog(ctx, projectKey)
	if err != nil {
		e.publish(ctx, eventbus.EventBacklogSyncFailure, projectKey, "Engine.Sync",
			map[string]interface{}{"run_id": runID, "error": err.Error()})
		if IsEngineError(err) {
			return nil, err
		}
		return nil, NewProjectSyncError(projectKey, err)
	}
	if err := e.cache.Set(ctx, projectKey, issues); err != nil {
		// A cache write failure degrades freshness, not correctness.
		log.Printf("Failed to cache backlog (project: %s): %v", projectKey, err)
	}

	e.publish(ctx, eventbus.EventBacklogSyncSuccess, projectKey, "Engine.Sync",
		map[string]interface{}{"run_id": runID, "issues": len(issues), "cached": false})
	return issues, nil
}

// graphFor syncs the backlog, applies the optional filter expression and
// builds a fresh task graph. Every computation owns its own graph; graphs
// are never shared or mutated after handoff.
func (e *Engine) graphFor(ctx context.Context, projectKey, filter string) (*TaskGraph, SprintWindow, error) {
	issues, err := e.Sync(ctx, projectKey)
	if err != nil {
		return nil, SprintWindow{}, err
	}
	sprint := tracker.SprintWindow(issues)
	if filter != "" {
		issues, err = graph.Filter(issues, filter)
		if err != nil {
			return nil, sprint, err
		}
	}
	g := graph.Build(issues)
	e.remember(projectKey, sprint)
	return g, sprint, nil
}

// ValidateFilter checks a backlog filter expression without applying it.
func ValidateFilter(expr string) error {
	return graph.ValidateFilter(expr)
}

// AnalyzeCriticalPath runs the full critical-path analysis for a project's
// backlog, optionally scoped by a filter expression ("" means the whole
// backlog). Cycles degrade the result rather than failing it; the Degraded
// flag is set and results should be treated as suspect.
func (e *Engine) AnalyzeCriticalPath(ctx context.Context, projectKey, filter string) (*CpaResult, error) {
	runID := uuid.New().String()
	e.publish(ctx, eventbus.EventAnalysisStarted, projectKey, "Engine.AnalyzeCriticalPath",
		map[string]interface{}{"run_id": runID})

	g, _, err := e.graphFor(ctx, projectKey, filter)
	if err != nil {
		e.publish(ctx, eventbus.EventAnalysisFailure, projectKey, "Engine.AnalyzeCriticalPath",
			map[string]interface{}{"run_id": runID, "error": err.Error()})
		return nil, err
	}

	result := cpa.Analyze(g)
	e.publish(ctx, eventbus.EventAnalysisSuccess, projectKey, "Engine.AnalyzeCriticalPath",
		map[string]interface{}{"run_id": runID, "tasks": len(result.Tasks), "degraded": result.Degraded})
	return result, nil
}

// EtaRange computes the optimistic/pessimistic completion bounds for one
// issue. capacityHours optionally maps owners to daily working hours below
// the default 8; nil means no scaling. Cycles are a hard failure here, with
// the offending paths on the returned error.
func (e *Engine) EtaRange(ctx context.Context, projectKey, issueKey string, capacityHours map[string]float64) (*EtaResult, error) {
	runID := uuid.New().String()
	e.publish(ctx, eventbus.EventEtaStarted, issueKey, "Engine.EtaRange",
		map[string]interface{}{"run_id": runID, "project": projectKey})

	g, _, err := e.graphFor(ctx, projectKey, "")
	if err != nil {
		e.publish(ctx, eventbus.EventEtaFailure, issueKey, "Engine.EtaRange",
			map[string]interface{}{"run_id": runID, "error": err.Error()})
		return nil, err
	}

	result, err := eta.EstimateRange(g, issueKey, capacityHours)
	if err != nil {
		e.publish(ctx, eventbus.EventEtaFailure, issueKey, "Engine.EtaRange",
			map[string]interface{}{"run_id": runID, "error": err.Error()})
		return nil, err
	}
	e.publish(ctx, eventbus.EventEtaSuccess, issueKey, "Engine.EtaRange",
		map[string]interface{}{"run_id": runID, "optimistic": result.OptimisticDays, "pessimistic": result.PessimisticDays})
	return result, nil
}

// EtaRangeBatch computes ETA ranges for several issues with bounded
// concurrency. Each computation builds its own graph from the shared cached
// snapshot, so nothing is shared between goroutines. The first error cancels
// the remaining work.
func (e *Engine) EtaRangeBatch(ctx context.Context, projectKey string, issueKeys []string, capacityHours map[string]float64) (map[string]*EtaResult, error) {
	// Warm the cache once so workers do not race the first fetch.
	issues, err := e.Sync(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	sprint := tracker.SprintWindow(issues)
	e.remember(projectKey, sprint)

	results := make(map[string]*EtaResult, len(issueKeys))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(e.config.MaxConcurrentEta).WithContext(ctx).WithCancelOnError()
	for _, key := range issueKeys {
		key := key
		p.Go(func(ctx context.Context) error {
			g := graph.Build(issues)
			result, err := eta.EstimateRange(g, key, capacityHours)
			if err != nil {
				return err
			}
			mu.Lock()
			results[key] = result
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Timeline lays the whole backlog out sequentially per owner on the real
// calendar (Mon-Fri default working days).
func (e *Engine) Timeline(ctx context.Context, projectKey string, params CalendarParams) (TimelineResult, error) {
	g, sprint, err := e.graphFor(ctx, projectKey, "")
	if err != nil {
		return TimelineResult{}, err
	}
	return calendar.Timeline(projectKey, g, sprint, params, time.Now()), nil
}

// ScheduleWithDependencies produces the dependency+resource-aware calendar
// schedule (all days working by default, matching the upstream scheduler).
func (e *Engine) ScheduleWithDependencies(ctx context.Context, projectKey string, params CalendarParams) (DependencySchedule, error) {
	runID := uuid.New().String()
	e.publish(ctx, eventbus.EventScheduleStarted, projectKey, "Engine.ScheduleWithDependencies",
		map[string]interface{}{"run_id": runID})

	g, sprint, err := e.graphFor(ctx, projectKey, "")
	if err != nil {
		e.publish(ctx, eventbus.EventScheduleFailure, projectKey, "Engine.ScheduleWithDependencies",
			map[string]interface{}{"run_id": runID, "error": err.Error()})
		return DependencySchedule{}, err
	}

	sched := calendar.ScheduleWithDependencies(projectKey, g, sprint, params, time.Now())
	e.publish(ctx, eventbus.EventScheduleSuccess, projectKey, "Engine.ScheduleWithDependencies",
		map[string]interface{}{"run_id": runID, "issues": len(sched.PerIssue)})
	return sched, nil
}

// ExpectedCompletion answers "when will this one issue land" with the
// dependency-aware scheduler.
func (e *Engine) ExpectedCompletion(ctx context.Context, projectKey, issueKey string, params CalendarParams) (IssueCompletion, DependencySchedule, error) {
	g, sprint, err := e.graphFor(ctx, projectKey, "")
	if err != nil {
		return IssueCompletion{}, DependencySchedule{}, err
	}
	return calendar.ExpectedCompletion(projectKey, g, issueKey, sprint, params, time.Now())
}

// EstimateIssue is the lightweight single-issue estimate over the target
// owner's sequential queue, skipping items already done.
func (e *Engine) EstimateIssue(ctx context.Context, projectKey, issueKey string, params CalendarParams) (IssueCompletion, error) {
	g, sprint, err := e.graphFor(ctx, projectKey, "")
	if err != nil {
		return IssueCompletion{}, err
	}
	return calendar.EstimateIssue(projectKey, g, issueKey, sprint, params, time.Now())
}

// CompletionIfRemoved reports how much earlier the backlog would finish
// without one issue.
func (e *Engine) CompletionIfRemoved(ctx context.Context, projectKey, issueKey string, params CalendarParams) (RemovalImpact, error) {
	g, sprint, err := e.graphFor(ctx, projectKey, "")
	if err != nil {
		return RemovalImpact{}, err
	}
	return calendar.CompletionIfRemoved(projectKey, g, issueKey, sprint, params, time.Now())
}

// ExportGraph builds the weighted dependency graph for a backlog, optionally
// scoped by a filter expression.
func (e *Engine) ExportGraph(ctx context.Context, projectKey, filter string) (GraphExport, error) {
	g, _, err := e.graphFor(ctx, projectKey, filter)
	if err != nil {
		return GraphExport{}, err
	}
	return graph.Export(projectKey, g), nil
}

// FormatGraph renders an export as deterministic sorted text.
func FormatGraph(export GraphExport) string {
	return graph.Format(export)
}

// AncestorSubgraph restricts an export to one issue and its transitive
// blockers.
func AncestorSubgraph(export GraphExport, target string) (GraphExport, error) {
	return graph.AncestorSubgraph(export, target)
}

// SprintReport bundles one backlog's critical-path analysis, sequential
// timeline and dependency-aware schedule, computed concurrently off a single
// synced snapshot.
type SprintReport struct {
	ProjectKey  string             `json:"project_key"`
	Sprint      SprintWindow       `json:"sprint"`
	Cpa         *CpaResult         `json:"cpa"`
	Timeline    TimelineResult     `json:"timeline"`
	Schedule    DependencySchedule `json:"schedule"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Report computes a full sprint report for a project. The three component
// computations are independent and each builds its own graph, so they run
// concurrently.
func (e *Engine) Report(ctx context.Context, projectKey string, params CalendarParams) (*SprintReport, error) {
	issues, err := e.Sync(ctx, projectKey)
	if err != nil {
		return nil, err
	}
	sprint := tracker.SprintWindow(issues)
	e.remember(projectKey, sprint)
	today := time.Now()

	report := &SprintReport{
		ProjectKey:  projectKey,
		Sprint:      sprint,
		GeneratedAt: today,
	}

	grp, _ := errgroup.WithContext(ctx)
	grp.Go(func() error {
		report.Cpa = cpa.Analyze(graph.Build(issues))
		return nil
	})
	grp.Go(func() error {
		report.Timeline = calendar.Timeline(projectKey, graph.Build(issues), sprint, params, today)
		return nil
	})
	grp.Go(func() error {
		report.Schedule = calendar.ScheduleWithDependencies(projectKey, graph.Build(issues), sprint, params, today)
		return nil
	})
	if err := grp.Wait(); err != nil {
		return nil, fmt.Errorf("sprint report failed: %w", err)
	}
	return report, nil
}
