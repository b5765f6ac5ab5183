// Package a11ywatch is the accessibility audit service: it acquires pages,
// runs the rule engine over them with live rule settings, keeps the audit
// history in SQLite and publishes reports to sinks. The same operations are
// served over HTTP and as MCP tools.
package a11ywatch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hazyhaar/a11ywatch/engine"
	"github.com/hazyhaar/a11ywatch/idgen"
	"github.com/hazyhaar/a11ywatch/internal/sink"
	"github.com/hazyhaar/a11ywatch/internal/source"
	"github.com/hazyhaar/a11ywatch/internal/store"
	"github.com/hazyhaar/a11ywatch/report"
	"github.com/hazyhaar/a11ywatch/rule"
	"github.com/hazyhaar/a11ywatch/rules"
	"github.com/hazyhaar/a11ywatch/settings"
)

// Service is the audit orchestrator.
type Service struct {
	cfg     *Config
	logger  *slog.Logger
	engine  *engine.Engine
	live    *settings.Live
	store   *store.Store
	loader  *source.Loader
	browser *source.Browser
	sinks   *sink.Router
	newID   idgen.Generator
	stdout  io.Writer

	ownStore bool
	extra    []sink.Sink

	// layers feeding live: file entries under database entries.
	layerMu  sync.Mutex
	fileSet  rule.Settings
	dbSet    rule.Settings
	watchers sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithStore uses an open store instead of opening Config.DBPath.
func WithStore(st *store.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithLoader replaces the page loader built from the configuration.
func WithLoader(l *source.Loader) Option {
	return func(s *Service) { s.loader = l }
}

// WithSink adds a sink to those of the configuration.
func WithSink(k sink.Sink) Option {
	return func(s *Service) { s.extra = append(s.extra, k) }
}

// WithIDGenerator sets the audit id generator. Default: idgen.Audit.
func WithIDGenerator(g idgen.Generator) Option {
	return func(s *Service) { s.newID = g }
}

// WithStdout sets where stdout sinks write. Default: os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(s *Service) { s.stdout = w }
}

// New builds a Service. A nil cfg uses DefaultConfig.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.applyDefaults()

	s := &Service{cfg: cfg, newID: idgen.Audit, stdout: os.Stdout}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.engine = engine.New(rules.Registry(), engine.WithLogger(s.logger))

	if s.store == nil {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return nil, errors.Wrap(err, "a11ywatch: open store")
		}
		s.store, s.ownStore = st, true
	}
	if err := settings.Init(ctx, s.store.DB); err != nil {
		s.Close()
		return nil, err
	}

	if err := s.loadSettings(ctx); err != nil {
		s.Close()
		return nil, err
	}

	if s.loader == nil {
		fetcher := source.NewFetcher(
			source.WithClient(&http.Client{Timeout: cfg.Fetch.Timeout}),
			source.WithUserAgent(cfg.Fetch.UserAgent),
			source.WithFetchLogger(s.logger),
		)
		var snap source.Snapshotter
		if cfg.Browser.Enabled {
			bc := cfg.Browser.BrowserConfig
			bc.Logger = s.logger
			s.browser = source.NewBrowser(bc)
			snap = s.browser
		}
		s.loader = source.NewLoader(fetcher, snap, s.logger)
	}

	sinks := make([]sink.Sink, 0, len(cfg.Sinks)+len(s.extra))
	for _, sc := range cfg.Sinks {
		k, err := sink.New(sc, s.stdout, s.logger)
		if err != nil {
			s.Close()
			return nil, errors.Wrap(err, "a11ywatch: sinks")
		}
		sinks = append(sinks, k)
	}
	s.sinks = sink.NewRouter(s.logger, append(sinks, s.extra...)...)
	return s, nil
}

// loadSettings reads the settings file and the database table and
// publishes their merge.
func (s *Service) loadSettings(ctx context.Context) error {
	fileSet := rule.Settings{}
	if path := s.cfg.Settings.File; path != "" {
		var err error
		if fileSet, err = settings.LoadFile(path); err != nil {
			return err
		}
		if err := settings.Validate(fileSet, s.engine.Registry()); err != nil {
			return errors.Wrapf(err, "a11ywatch: settings file %s", path)
		}
	}
	dbSet, err := settings.Load(ctx, s.store.DB)
	if err != nil {
		return err
	}
	s.fileSet, s.dbSet = fileSet, dbSet
	s.live = settings.NewLive(settings.Merge(fileSet, dbSet))
	return nil
}

func (s *Service) applyFile(set rule.Settings) error {
	if err := settings.Validate(set, s.engine.Registry()); err != nil {
		return err
	}
	s.layerMu.Lock()
	defer s.layerMu.Unlock()
	s.fileSet = set
	s.live.Set(settings.Merge(s.fileSet, s.dbSet))
	return nil
}

func (s *Service) applyDB(set rule.Settings) error {
	s.layerMu.Lock()
	defer s.layerMu.Unlock()
	s.dbSet = set
	s.live.Set(settings.Merge(s.fileSet, s.dbSet))
	return nil
}

// Settings returns the current rule settings snapshot.
func (s *Service) Settings() rule.Settings { return s.live.Snapshot() }

// Store returns the audit history.
func (s *Service) Store() *store.Store { return s.store }

// Start launches the settings watchers and page schedules. They stop when
// ctx is cancelled; Close waits for them.
func (s *Service) Start(ctx context.Context) error {
	if s.cfg.Settings.Watch {
		if path := s.cfg.Settings.File; path != "" {
			fw, err := settings.NewFileWatcher(path, s.applyFile, settings.WatchOptions{Logger: s.logger})
			if err != nil {
				return err
			}
			s.goRun(func() { fw.Run(ctx) })
		}
		dw := settings.NewDBWatcher(s.store.DB, func(set rule.Settings) error { return s.applyDB(set) },
			settings.WatchOptions{Interval: s.cfg.Settings.PollInterval, Logger: s.logger})
		s.goRun(func() { dw.Run(ctx) })
	}
	for _, p := range s.cfg.Pages {
		p := p
		s.goRun(func() { s.schedule(ctx, p) })
	}
	if s.cfg.Retention > 0 {
		s.goRun(func() { s.retain(ctx) })
	}
	return nil
}

func (s *Service) goRun(fn func()) {
	s.watchers.Add(1)
	go func() {
		defer s.watchers.Done()
		fn()
	}()
}

// Close releases the browser, sinks and the store it opened. Cancel the
// context given to Start first.
func (s *Service) Close() error {
	s.watchers.Wait()
	var errs []error
	if s.browser != nil {
		errs = append(errs, s.browser.Close())
	}
	if s.sinks != nil {
		errs = append(errs, s.sinks.Close())
	}
	if s.ownStore && s.store != nil {
		errs = append(errs, s.store.Close())
	}
	var out error
	for _, err := range errs {
		if err != nil {
			out = errors.CombineErrors(out, err)
		}
	}
	return out
}

// AuditRequest asks for one audit. Exactly one of URL or HTML drives the
// acquisition; with HTML, URL only labels the report.
type AuditRequest struct {
	URL  string `json:"url,omitempty"`
	HTML string `json:"html,omitempty"`
	Mode string `json:"mode,omitempty"` // auto | http | browser
}

// Audit acquires, evaluates, stores and publishes one page.
func (s *Service) Audit(ctx context.Context, req AuditRequest) (*report.Report, error) {
	page, err := s.acquire(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.AuditPage(ctx, page)
}

// Load acquires the page of req without evaluating it.
func (s *Service) Load(ctx context.Context, req AuditRequest) (*source.Page, error) {
	return s.acquire(ctx, req)
}

func (s *Service) acquire(ctx context.Context, req AuditRequest) (*source.Page, error) {
	if strings.TrimSpace(req.HTML) != "" {
		if req.URL != "" {
			if err := validateURL(req.URL); err != nil {
				return nil, err
			}
		}
		p, err := source.Parse(req.URL, []byte(req.HTML), nil)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidRequest, err.Error())
		}
		p.Via = source.ViaInline
		return p, nil
	}
	if req.URL == "" {
		return nil, errors.Wrap(ErrInvalidRequest, "url or html is required")
	}
	if err := validateURL(req.URL); err != nil {
		return nil, err
	}
	mode, err := parseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	p, err := s.loader.Load(ctx, req.URL, mode)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "a11ywatch: load %s", req.URL), ErrUnavailable)
	}
	return p, nil
}

// AuditPage evaluates an acquired page, stores the report and publishes it.
// Sink failures are logged and do not fail the audit.
func (s *Service) AuditPage(ctx context.Context, page *source.Page) (*report.Report, error) {
	r := s.Evaluate(page)
	if err := s.store.InsertReport(ctx, r); err != nil {
		return nil, errors.Wrap(err, "a11ywatch: store report")
	}
	if err := s.sinks.Publish(ctx, r); err != nil {
		s.logger.Warn("a11ywatch: publish failed", "audit_id", r.ID, "error", err)
	}
	s.logger.Info("a11ywatch: audit complete",
		"audit_id", r.ID, "url", r.URL, "via", page.Via,
		"errors", r.Stats.Errors, "warnings", r.Stats.Warnings,
		"failures", len(r.Failures), "duration_ms", r.Stats.DurationMS)
	return r, nil
}

// Evaluate runs one pass over page with the current settings without
// storing or publishing the report.
func (s *Service) Evaluate(page *source.Page) *report.Report {
	var passOpts []engine.PassOption
	if page.Frames != nil {
		passOpts = append(passOpts, engine.WithFrames(page.Frames))
	}
	res := s.engine.Run(page.Doc, s.live.Snapshot(), passOpts...)
	return report.Build(res, report.Meta{
		ID:       s.newID(),
		URL:      page.URL,
		Title:    page.Title,
		HTMLHash: page.Hash,
	})
}

// GetAudit loads a stored report.
func (s *Service) GetAudit(ctx context.Context, id string) (*report.Report, error) {
	return s.store.GetReport(ctx, id)
}

// DeleteAudit removes a stored report.
func (s *Service) DeleteAudit(ctx context.Context, id string) error {
	return s.store.DeleteReport(ctx, id)
}

// ListAudits returns stored audit summaries, newest first.
func (s *Service) ListAudits(ctx context.Context, f store.ListFilter) ([]store.Summary, error) {
	return s.store.ListReports(ctx, f)
}

// RuleStats aggregates stored violations per rule over the whole history,
// or over one audit when auditID is set.
func (s *Service) RuleStats(ctx context.Context, auditID string) ([]report.RuleCount, error) {
	return s.store.RuleCounts(ctx, auditID)
}

// RuleInfo describes a rule with the options it currently runs with.
type RuleInfo struct {
	Name     string            `json:"name"`
	Enabled  bool              `json:"enabled"`
	Params   map[string]string `json:"params,omitempty"`
	Default  rule.Options      `json:"default"`
	Override bool              `json:"override"`
}

// Rules lists every rule in registration order.
func (s *Service) Rules() []RuleInfo {
	snap := s.live.Snapshot()
	rs := s.engine.Registry().Rules()
	out := make([]RuleInfo, 0, len(rs))
	for _, r := range rs {
		out = append(out, ruleInfo(r, snap))
	}
	return out
}

func ruleInfo(r *rule.Rule, snap rule.Settings) RuleInfo {
	o := snap.For(r)
	_, override := snap[r.Name]
	return RuleInfo{
		Name:     r.Name,
		Enabled:  o.Enabled,
		Params:   o.Params,
		Default:  r.DefaultOptions,
		Override: override,
	}
}

// SetRule stores the options of one rule and applies them to later passes.
func (s *Service) SetRule(ctx context.Context, name string, o rule.Options) (RuleInfo, error) {
	r := s.engine.Registry().Lookup(name)
	if r == nil {
		return RuleInfo{}, errors.WithHint(errors.Wrapf(ErrUnknownRule, "%q", name),
			"list rule names with GET /api/rules")
	}
	s.layerMu.Lock()
	defer s.layerMu.Unlock()
	if err := settings.Put(ctx, s.store.DB, name, o); err != nil {
		return RuleInfo{}, err
	}
	next := s.dbSet.Clone()
	next[name] = o
	s.dbSet = next
	s.live.Set(settings.Merge(s.fileSet, s.dbSet))
	return ruleInfo(r, s.live.Snapshot()), nil
}

// ResetRule drops the stored options of one rule.
func (s *Service) ResetRule(ctx context.Context, name string) (RuleInfo, error) {
	r := s.engine.Registry().Lookup(name)
	if r == nil {
		return RuleInfo{}, errors.Wrapf(ErrUnknownRule, "%q", name)
	}
	s.layerMu.Lock()
	defer s.layerMu.Unlock()
	if err := settings.Delete(ctx, s.store.DB, name); err != nil {
		return RuleInfo{}, err
	}
	next := s.dbSet.Clone()
	delete(next, name)
	s.dbSet = next
	s.live.Set(settings.Merge(s.fileSet, s.dbSet))
	return ruleInfo(r, s.live.Snapshot()), nil
}

// retain prunes expired audits every hour.
func (s *Service) retain(ctx context.Context) {
	prune := func() {
		n, err := s.store.Prune(ctx, time.Now().Add(-s.cfg.Retention))
		if err != nil {
			s.logger.Warn("a11ywatch: prune failed", "error", err)
			return
		}
		if n > 0 {
			s.logger.Info("a11ywatch: pruned audits", "count", n)
		}
	}
	prune()
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			prune()
		}
	}
}
