package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adda-Baaj/bazaar-sniper/internal/ai"
	"github.com/Adda-Baaj/bazaar-sniper/internal/browser"
	"github.com/Adda-Baaj/bazaar-sniper/internal/config"
	"github.com/Adda-Baaj/bazaar-sniper/internal/domain"
	"github.com/Adda-Baaj/bazaar-sniper/internal/fetcher"
	"github.com/Adda-Baaj/bazaar-sniper/internal/gitpub"
	"github.com/Adda-Baaj/bazaar-sniper/internal/logger"
	"github.com/Adda-Baaj/bazaar-sniper/internal/notify"
	"github.com/Adda-Baaj/bazaar-sniper/internal/planner"
	"github.com/Adda-Baaj/bazaar-sniper/internal/report"
	"github.com/Adda-Baaj/bazaar-sniper/internal/sniper"
	"github.com/Adda-Baaj/bazaar-sniper/internal/storage"
	"github.com/Adda-Baaj/bazaar-sniper/pkg/httpclient"
	"github.com/Adda-Baaj/bazaar-sniper/pkg/publishers"
)

// ErrPersist is returned by Run when the seen history could not be written.
var ErrPersist = errors.New("seen history not persisted")

// Sniper represents the bazaar sniper runtime. It owns the shared browser
// session, the history store and the notification fanout, and drives the
// orchestrator once or on an interval.
type Sniper struct {
	cfg          *config.Config
	tasks        []domain.Task
	orchestrator *sniper.Orchestrator
	session      *browser.Session
	fanout       *publishers.Fanout
	store        storage.Store
	interval     time.Duration
	log          logger.Logger
}

// NewSniper builds the runtime from config. Any error here is a setup failure.
func NewSniper(ctx context.Context, cfg *config.Config, log logger.Logger) (*Sniper, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	taskList, err := loadTasks(cfg, log)
	if err != nil {
		return nil, err
	}

	templates, fallbackDomains, err := siteOverrides(cfg, log)
	if err != nil {
		return nil, err
	}

	gemini, err := ai.NewGemini(cfg.GeminiBaseURL, cfg.GeminiAPIKey, httpclient.NewRestyClient(cfg.AITimeout))
	if err != nil {
		return nil, fmt.Errorf("init ai backend: %w", err)
	}
	policy := ai.Policy{
		Models:    cfg.GeminiModels,
		BaseDelay: cfg.AIBaseDelay,
		Step:      cfg.AIDelayStep,
		Log:       log,
	}
	classifier, err := ai.NewClassifier(gemini, policy, ai.ClassifierConfig{
		Timeout:       cfg.AITimeout,
		MinConfidence: cfg.MinConfidence,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init classifier: %w", err)
	}
	log.InfoObj("ai backend ready", "ai_meta", map[string]any{
		"models":         cfg.GeminiModels,
		"base_delay_ms":  cfg.AIBaseDelay.Milliseconds(),
		"delay_step_ms":  cfg.AIDelayStep.Milliseconds(),
		"min_confidence": cfg.MinConfidence,
	})

	pubCfgs, err := publisherConfigs(cfg)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), pubCfgs, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]string, 0, len(pubCfgs))
	for _, pubCfg := range pubCfgs {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	store, err := storage.NewStore(cfg.StorageType, cfg.HistoryFile)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type": cfg.StorageType,
		"path": cfg.HistoryFile,
	})

	session, err := browser.Open(ctx, browser.Config{
		RemoteURL: cfg.BrowserRemoteURL,
		Headless:  cfg.Headless,
		Log:       log,
	})
	if err != nil {
		_ = fanout.Close()
		_ = store.Close()
		return nil, fmt.Errorf("open browser: %w", err)
	}

	pageFetcher := fetcher.New(session, httpclient.NewRestyClient(cfg.HTTPTimeout), fetcher.Config{
		RenderTimeout:    cfg.RenderTimeout,
		HTTPTimeout:      cfg.HTTPTimeout,
		MinContentLength: cfg.MinContentLength,
		MaxContentBytes:  cfg.MaxContentBytes,
		FallbackDomains:  fallbackDomains,
		PolitenessDelay:  cfg.PolitenessDelay,
	}, log)

	presenter := report.New(report.DefaultPaths(cfg.ResultsDir, cfg.ResultsMarkdown, cfg.ResultsHTML), log)

	var vcs sniper.VCSPublisher
	if cfg.CI {
		vcs = gitpub.New(cfg.GitUserName, cfg.GitUserEmail, log)
	}

	orchestrator, err := sniper.New(sniper.Config{
		Sites:                cfg.TargetSites,
		MaxCandidatesPerPage: cfg.MaxCandidatesPerPage,
		FetchWorkers:         cfg.FetchWorkers,
		DiscoveryMode:        cfg.DiscoveryMode,
		Publish:              cfg.CI,
		PublishAlways:        cfg.GitPublishAlways,
		HistoryPath:          historyPath(cfg),
	}, sniper.Deps{
		Planner:    planner.New(templates, classifier, log),
		Fetcher:    pageFetcher,
		Classifier: classifier,
		Notifier:   notify.New(fanout, cfg.NotifyTimeout, log),
		Store:      store,
		Reporter:   presenter,
		VCS:        vcs,
		Log:        log,
	})
	if err != nil {
		_ = session.Close()
		_ = fanout.Close()
		_ = store.Close()
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}

	return &Sniper{
		cfg:          cfg,
		tasks:        taskList,
		orchestrator: orchestrator,
		session:      session,
		fanout:       fanout,
		store:        store,
		interval:     cfg.ScanInterval,
		log:          log,
	}, nil
}

// Run performs one scan, or keeps scanning every interval until ctx is
// cancelled. Resources are released before it returns. The returned error
// wraps ErrPersist when the last scan could not save the seen history.
func (s *Sniper) Run(ctx context.Context) error {
	if s == nil || s.orchestrator == nil {
		return fmt.Errorf("sniper is not initialized")
	}
	defer s.close()

	s.log.InfoObj("sniper starting", "sniper_state", map[string]any{
		"tasks":            len(s.tasks),
		"publishers_count": s.fanout.Size(),
		"scan_interval":    s.interval.String(),
		"discovery_mode":   s.cfg.DiscoveryMode,
	})

	sum := s.runOnce(ctx)
	if s.interval <= 0 || ctx.Err() != nil {
		return persistErr(sum)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.InfoObj("sniper loop exiting", "reason", ctx.Err())
			return persistErr(sum)
		case <-ticker.C:
			sum = s.runOnce(ctx)
		}
	}
}

// runOnce performs a single scan across all tasks.
func (s *Sniper) runOnce(ctx context.Context) sniper.Summary {
	start := time.Now()
	s.log.InfoObj("scan started", "scan_meta", map[string]any{
		"tasks":      len(s.tasks),
		"started_at": start.UTC(),
	})
	sum := s.orchestrator.Run(ctx, s.tasks)
	s.log.InfoObj("scan completed", "scan_meta", map[string]any{
		"tasks":      len(s.tasks),
		"matches":    sum.Matches,
		"canceled":   sum.Canceled,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return sum
}

func persistErr(sum sniper.Summary) error {
	if sum.PersistErr == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrPersist, sum.PersistErr)
}

// close releases the browser, the publishers and the store, logging failures.
func (s *Sniper) close() {
	if s.session != nil {
		if err := s.session.Close(); err != nil {
			s.log.ErrorObj("browser close failed", "error", err)
		}
	}
	if s.fanout != nil {
		if err := s.fanout.Close(); err != nil {
			s.log.ErrorObj("publishers close failed", "error", err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.log.ErrorObj("storage close failed", "error", err)
		}
	}
}
