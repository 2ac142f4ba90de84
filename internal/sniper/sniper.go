// Package sniper drives the discovery pipeline for every task of a run:
// plan search pages, harvest candidate listings, fetch them, classify the
// batch, notify on matches and persist what was seen.
package sniper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/bazaar-sniper/internal/domain"
	"github.com/Adda-Baaj/bazaar-sniper/internal/fetcher"
	"github.com/Adda-Baaj/bazaar-sniper/internal/logger"
	"github.com/Adda-Baaj/bazaar-sniper/internal/seenset"
	"github.com/Adda-Baaj/bazaar-sniper/internal/storage"
	"github.com/Adda-Baaj/bazaar-sniper/internal/tasks"
)

const publishTimeout = 2 * time.Minute

// Discovery modes for picking candidates off a search page.
const (
	DiscoveryLinks = "links"
	DiscoveryAI    = "ai"
)

// Planner produces the search pages of a task.
type Planner interface {
	Plan(ctx context.Context, query string, sites []string) []domain.SearchPageSource
}

// Fetcher retrieves page text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) fetcher.Result
}

// Classifier is the AI judge. A false bool means no answer was obtained.
type Classifier interface {
	ClassifySearchPage(ctx context.Context, pageURL, content string, task domain.Task) ([]domain.Candidate, bool)
	ClassifyBatch(ctx context.Context, task domain.Task, ads []domain.FetchedAd) ([]domain.ClassificationResult, bool)
}

// Notifier sends best-effort notifications.
type Notifier interface {
	NotifyStart(ctx context.Context, taskName string) bool
	NotifyMatch(ctx context.Context, itemName, price, url string) bool
}

// Reporter records confirmed matches.
type Reporter interface {
	Save(hits []domain.ClassificationResult, taskName string) error
	Files() []string
}

// VCSPublisher pushes updated files.
type VCSPublisher interface {
	Publish(ctx context.Context, message string, paths ...string) bool
}

// Config tunes a run.
type Config struct {
	Sites                []string
	MaxCandidatesPerPage int
	FetchWorkers         int
	DiscoveryMode        string
	// Publish enables VCS publishing; PublishAlways pushes even without matches.
	Publish       bool
	PublishAlways bool
	HistoryPath   string
}

// Deps are the collaborators of the orchestrator. Reporter and VCS are optional.
type Deps struct {
	Planner    Planner
	Fetcher    Fetcher
	Classifier Classifier
	Notifier   Notifier
	Store      storage.Store
	Reporter   Reporter
	VCS        VCSPublisher
	Log        logger.Logger
}

// Summary is the outcome of a run.
type Summary struct {
	Tasks             int
	TasksCompleted    int
	CandidatesChecked int
	Matches           int
	// PersistErr is set when the seen history could not be written.
	PersistErr error
	Canceled   bool
}

// Orchestrator owns the seen set for the duration of a run.
type Orchestrator struct {
	cfg  Config
	deps Deps
	log  logger.Logger
}

// New validates deps and builds an orchestrator.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Planner == nil:
		return nil, errors.New("sniper: planner is required")
	case deps.Fetcher == nil:
		return nil, errors.New("sniper: fetcher is required")
	case deps.Classifier == nil:
		return nil, errors.New("sniper: classifier is required")
	case deps.Store == nil:
		return nil, errors.New("sniper: store is required")
	}
	if cfg.MaxCandidatesPerPage <= 0 {
		cfg.MaxCandidatesPerPage = 5
	}
	if cfg.FetchWorkers <= 0 {
		cfg.FetchWorkers = 1
	}
	cfg.DiscoveryMode = strings.ToLower(strings.TrimSpace(cfg.DiscoveryMode))
	if cfg.DiscoveryMode == "" {
		cfg.DiscoveryMode = DiscoveryLinks
	}
	log := logger.Ensure(deps.Log)
	deps.Log = log
	return &Orchestrator{cfg: cfg, deps: deps, log: log}, nil
}

// Run processes every task in order against one shared seen set, then
// writes the set back regardless of outcome.
func (o *Orchestrator) Run(ctx context.Context, taskList []domain.Task) Summary {
	sum := Summary{Tasks: len(taskList)}
	seen := seenset.New(o.loadHistory())
	loaded := seen.Len()

	var matchedTasks []string
	for _, task := range taskList {
		if ctx.Err() != nil {
			break
		}
		res := o.runTask(ctx, task, seen)
		sum.CandidatesChecked += res.checked
		sum.Matches += res.matches
		if res.completed {
			sum.TasksCompleted++
		}
		if res.matches > 0 {
			matchedTasks = append(matchedTasks, task.Name)
		}
	}
	sum.Canceled = ctx.Err() != nil

	if err := o.deps.Store.Save(seen.URLs()); err != nil {
		sum.PersistErr = fmt.Errorf("persist seen history: %w", err)
		o.log.ErrorObj("CRITICAL: seen history not saved, next run will re-check listings", "persist_error", map[string]any{
			"error": err.Error(),
			"urls":  seen.Len(),
		})
	} else {
		o.log.InfoObj("seen history saved", "persist", map[string]any{
			"total": seen.Len(),
			"added": seen.Len() - loaded,
		})
	}

	o.publish(ctx, sum, matchedTasks, taskList)

	o.log.InfoObj("run finished", "summary", map[string]any{
		"tasks":              sum.Tasks,
		"tasks_completed":    sum.TasksCompleted,
		"candidates_checked": sum.CandidatesChecked,
		"matches":            sum.Matches,
		"persisted":          sum.PersistErr == nil,
		"canceled":           sum.Canceled,
	})
	return sum
}

// loadHistory treats a corrupt or unreadable history as empty.
func (o *Orchestrator) loadHistory() []string {
	urls, err := o.deps.Store.Load()
	if err != nil {
		key := "history_error"
		if errors.Is(err, storage.ErrCorrupt) {
			key = "history_corrupt"
		}
		o.log.WarnObj("seen history unusable, starting empty", key, map[string]any{
			"error": err.Error(),
		})
		return nil
	}
	o.log.InfoObj("seen history loaded", "history", map[string]any{"urls": len(urls)})
	return urls
}

func (o *Orchestrator) publish(ctx context.Context, sum Summary, matchedTasks []string, taskList []domain.Task) {
	if !o.cfg.Publish || o.deps.VCS == nil || sum.PersistErr != nil {
		return
	}
	if sum.Matches == 0 && !o.cfg.PublishAlways {
		return
	}

	var paths []string
	if o.cfg.HistoryPath != "" {
		paths = append(paths, o.cfg.HistoryPath)
	}
	if o.deps.Reporter != nil {
		paths = append(paths, o.deps.Reporter.Files()...)
	}

	names := matchedTasks
	if len(names) == 0 {
		for _, t := range taskList {
			names = append(names, t.Name)
		}
	}
	// Pushing may outlive an interrupt so saved history still reaches the remote.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	o.deps.VCS.Publish(pubCtx, "🤖 Update history for "+strings.Join(names, ", "), paths...)
}

func (o *Orchestrator) sitesFor(task domain.Task) []string {
	return tasks.SitesFor(task, o.cfg.Sites)
}
