// Package pipeline runs a site scan: it loads findings, scores plugins and
// roles, correlates the profiles and hands the result to the sinks.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/coal/siterisk/internal/audit"
	"github.com/coal/siterisk/internal/correlation"
	"github.com/coal/siterisk/internal/descriptor"
	"github.com/coal/siterisk/internal/inspector"
	"github.com/coal/siterisk/internal/metadata"
	"github.com/coal/siterisk/internal/model"
	"github.com/coal/siterisk/internal/policy"
	"github.com/coal/siterisk/internal/provider"
	"github.com/coal/siterisk/internal/score"
	"github.com/coal/siterisk/internal/sink"
	"github.com/coal/siterisk/internal/site"
)

// EventObserver is a callback function that receives pipeline events.
type EventObserver func(event PipelineEvent)

// Pipeline runs scans against one findings provider.
type Pipeline struct {
	policy      *policy.Policy
	provider    provider.FindingsProvider
	inspector   *inspector.Inspector
	roleScorer  *score.RoleScorer
	engine      *correlation.Engine
	sink        sink.ResultSink
	auditLogger *audit.Logger
	logger      zerolog.Logger
	now         func() time.Time

	// serializes Run so results never interleave in sinks or observers
	runMu sync.Mutex

	observerMu sync.RWMutex
	observers  []EventObserver
}

// New creates a Pipeline. out may be nil when results are only consumed by
// observers or the caller.
func New(pol *policy.Policy, src provider.FindingsProvider, out sink.ResultSink, auditLogger *audit.Logger, logger zerolog.Logger) *Pipeline {
	if auditLogger == nil {
		auditLogger = audit.NopLogger()
	}
	return &Pipeline{
		policy:     pol,
		provider:   src,
		inspector:  inspector.New(pol.Scan.SampleSize),
		roleScorer: score.NewRoleScorer(pol.Roles.CriticalCapabilities, pol.Roles.NonAdminArchetypes),
		engine: correlation.New(correlation.Options{
			AdminRoles: pol.Roles.AdminRoles,
			AlertTable: policy.BuildAlertTable(pol),
			Threshold:  pol.Thresholds.Correlation,
		}),
		sink:        out,
		auditLogger: auditLogger,
		logger:      logger.With().Str("component", "pipeline").Logger(),
		now:         time.Now,
	}
}

// scored is the per-plugin output of the fan-out stage.
type scored struct {
	profile    model.PluginRiskProfile
	mismatches []model.Mismatch
}

// Run performs one full scan. Per-plugin provider failures are recorded as
// skipped entries; only a failure to list components or load roles aborts
// the scan. A sink error is returned together with the complete result.
func (p *Pipeline) Run(ctx context.Context) (*model.ScanResult, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	res := &model.ScanResult{
		ScanID:    uuid.NewString(),
		StartedAt: p.now().UTC(),
	}
	log := p.logger.With().Str("scan_id", res.ScanID).Logger()

	p.audit(audit.Entry{ScanID: res.ScanID, Event: audit.EventScanStarted, Message: p.policy.PolicyName})
	p.notify(PipelineEvent{Timestamp: res.StartedAt, Kind: EventScanStarted, ScanID: res.ScanID})
	log.Info().Str("policy", p.policy.PolicyName).Msg("scan started")

	components, err := p.provider.Components(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing components: %w", err)
	}
	sort.Strings(components)

	var (
		mu     sync.Mutex
		slots  = make([]*scored, len(components))
		queued []int
	)
	for i, c := range components {
		if p.policy.ShouldSkip(c) {
			p.skip(res, log, c, "core plugin")
			continue
		}
		queued = append(queued, i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.policy.Scan.Workers, 1))
	for _, i := range queued {
		i := i
		component := components[i]
		g.Go(func() error {
			bundle, err := p.provider.Plugin(gctx, component)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				mu.Lock()
				p.skip(res, log, component, err.Error())
				mu.Unlock()
				return nil
			}
			s := p.scorePlugin(log, *bundle)
			slots[i] = &s
			p.pluginScored(res.ScanID, log, s.profile)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoring plugins: %w", err)
	}
	sort.SliceStable(res.Skipped, func(i, j int) bool { return res.Skipped[i].Entity < res.Skipped[j].Entity })

	for _, s := range slots {
		if s == nil {
			continue
		}
		res.Plugins = append(res.Plugins, s.profile)
		res.Mismatches = append(res.Mismatches, s.mismatches...)
	}
	for _, m := range res.Mismatches {
		p.audit(audit.Entry{
			ScanID:    res.ScanID,
			Event:     audit.EventMismatch,
			Component: m.Component,
			Severity:  m.Severity,
			Message:   m.Field,
			Detail:    m,
		})
	}

	roles, err := p.provider.Roles(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading roles: %w", err)
	}
	for _, b := range roles {
		res.Roles = append(res.Roles, p.roleScorer.Role(b))
	}
	sort.Slice(res.Roles, func(i, j int) bool { return res.Roles[i].RoleID < res.Roles[j].RoleID })

	p.finish(res)
	log.Info().
		Int("plugins", res.Summary.PluginsScanned).
		Int("roles", res.Summary.RolesScanned).
		Int("skipped", len(res.Skipped)).
		Int("alerts", len(res.Alerts)).
		Float64("index", res.Summary.Index).
		Str("classification", string(res.Summary.Classification)).
		Msg("scan completed")

	return res, p.dispatch(ctx, log, res)
}

// Evaluate correlates already scored profiles into a complete result without
// touching the provider or sinks. Used for dry runs and built-in checks.
func (p *Pipeline) Evaluate(plugins []model.PluginRiskProfile, roles []model.RoleRiskProfile) *model.ScanResult {
	res := &model.ScanResult{
		ScanID:    uuid.NewString(),
		StartedAt: p.now().UTC(),
		Plugins:   append([]model.PluginRiskProfile(nil), plugins...),
		Roles:     append([]model.RoleRiskProfile(nil), roles...),
	}
	sort.Slice(res.Plugins, func(i, j int) bool { return res.Plugins[i].Component < res.Plugins[j].Component })
	sort.Slice(res.Roles, func(i, j int) bool { return res.Roles[i].RoleID < res.Roles[j].RoleID })
	res.Alerts = p.engine.Evaluate(res.ScanID, res.Plugins, res.Roles)
	res.Summary = site.Summarize(res.Plugins, res.Roles)
	res.Heatmap = score.Heatmap(res.Roles)
	res.FinishedAt = p.now().UTC()
	return res
}

// finish runs correlation and normalization once every profile is in.
func (p *Pipeline) finish(res *model.ScanResult) {
	res.Alerts = p.engine.Evaluate(res.ScanID, res.Plugins, res.Roles)
	res.Summary = site.Summarize(res.Plugins, res.Roles)
	res.Heatmap = score.Heatmap(res.Roles)
	res.FinishedAt = p.now().UTC()

	for _, a := range res.Alerts {
		p.audit(audit.Entry{
			ScanID:    res.ScanID,
			Event:     audit.EventAlert,
			Component: a.Component,
			RoleID:    a.RoleID,
			Rule:      a.Rule,
			Severity:  string(a.Severity),
			Message:   a.Description,
		})
	}
	p.audit(audit.Entry{
		ScanID:   res.ScanID,
		Event:    audit.EventScanCompleted,
		Severity: string(res.Summary.Classification),
		Score:    res.Summary.TotalRiskPoints,
		Detail:   res.Summary,
	})
	p.notify(PipelineEvent{
		Timestamp: res.FinishedAt,
		Kind:      EventScanCompleted,
		ScanID:    res.ScanID,
		Result:    res,
	})
}

// scorePlugin applies the policy and value sampling to a bundle, then scores
// it.
func (p *Pipeline) scorePlugin(log zerolog.Logger, b model.PluginBundle) scored {
	var out scored

	privacy := make([]model.PrivacyFinding, 0, len(b.Privacy))
	for _, f := range b.Privacy {
		if p.policy.Whitelisted(b.Component, f.Table, f.Field) {
			log.Debug().Str("plugin", b.Component).Str("field", f.Table+"."+f.Field).Msg("privacy finding whitelisted")
			continue
		}
		if len(f.Samples) > 0 {
			v := p.inspector.SampleField(f.Samples)
			if m := metadata.CompareEncryption(b.Component, f, v); m != nil {
				out.mismatches = append(out.mismatches, *m)
			}
			if v.Verified {
				enc := v.IsEncrypted
				f.IsEncrypted = &enc
			}
		}
		privacy = append(privacy, f)
	}
	b.Privacy = privacy

	if b.Descriptor != "" {
		extracted, err := descriptor.Extract(b.Descriptor)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("plugin", b.Component).Msg("descriptor not parsed")
		case b.Capability.Empty():
			b.Capability = extracted
		default:
			out.mismatches = append(out.mismatches, metadata.CompareCapabilities(b.Component, b.Capability, extracted)...)
		}
	}

	out.profile = score.Plugin(b)
	return out
}

func (p *Pipeline) pluginScored(scanID string, log zerolog.Logger, prof model.PluginRiskProfile) {
	p.audit(audit.Entry{
		ScanID:    scanID,
		Event:     audit.EventPluginScored,
		Component: prof.Component,
		Severity:  string(prof.Level),
		Score:     prof.Total,
	})
	if prof.Total < p.policy.Thresholds.HighRisk {
		return
	}
	log.Warn().Str("plugin", prof.Component).Int("total", prof.Total).Msg("high risk plugin")
	p.audit(audit.Entry{
		ScanID:    scanID,
		Event:     audit.EventHighRisk,
		Component: prof.Component,
		Severity:  string(prof.Level),
		Score:     prof.Total,
	})
	p.notify(PipelineEvent{
		Timestamp: p.now().UTC(),
		Kind:      EventHighRisk,
		ScanID:    scanID,
		Component: prof.Component,
		Score:     prof.Total,
		Level:     prof.Level,
	})
}

// skip must be called with exclusive access to res.
func (p *Pipeline) skip(res *model.ScanResult, log zerolog.Logger, component, reason string) {
	res.Skipped = append(res.Skipped, model.Skip{Entity: component, Reason: reason})
	log.Warn().Str("plugin", component).Str("reason", reason).Msg("plugin skipped")
	p.audit(audit.Entry{
		ScanID:    res.ScanID,
		Event:     audit.EventEntitySkipped,
		Component: component,
		Message:   reason,
	})
}

func (p *Pipeline) dispatch(ctx context.Context, log zerolog.Logger, res *model.ScanResult) error {
	if p.sink == nil {
		return nil
	}
	if err := p.sink.Write(ctx, res); err != nil {
		log.Error().Err(err).Str("sink", p.sink.Name()).Msg("result delivery failed")
		return fmt.Errorf("writing results: %w", err)
	}
	p.audit(audit.Entry{ScanID: res.ScanID, Event: audit.EventDispatched, Message: p.sink.Name()})
	return nil
}

func (p *Pipeline) audit(e audit.Entry) {
	if err := p.auditLogger.Log(e); err != nil {
		p.logger.Error().Err(err).Str("event", e.Event).Msg("audit write failed")
	}
}

// AddObserver registers a callback that will be invoked for every pipeline event.
func (p *Pipeline) AddObserver(fn EventObserver) {
	p.observerMu.Lock()
	defer p.observerMu.Unlock()
	p.observers = append(p.observers, fn)
}

// notify sends an event to all registered observers. It may be called from
// worker goroutines.
func (p *Pipeline) notify(event PipelineEvent) {
	p.observerMu.RLock()
	observers := p.observers
	p.observerMu.RUnlock()

	for _, fn := range observers {
		fn(event)
	}
}
