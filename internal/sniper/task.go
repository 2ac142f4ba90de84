package sniper

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Adda-Baaj/bazaar-sniper/internal/domain"
	"github.com/Adda-Baaj/bazaar-sniper/internal/fetcher"
	"github.com/Adda-Baaj/bazaar-sniper/internal/links"
	"github.com/Adda-Baaj/bazaar-sniper/internal/seenset"
)

type taskResult struct {
	checked   int
	matches   int
	completed bool
}

// runTask walks one task through Start, Plan, HarvestSearchPage*,
// BatchClassify. A task is completed unless the run was interrupted.
func (o *Orchestrator) runTask(ctx context.Context, task domain.Task, seen *seenset.Set) taskResult {
	var res taskResult
	log := o.log

	if o.deps.Notifier != nil {
		o.deps.Notifier.NotifyStart(ctx, task.Name)
	}

	pages := o.deps.Planner.Plan(ctx, task.Query, o.sitesFor(task))
	if len(pages) == 0 {
		log.WarnObj("no search pages planned", "task_skip", map[string]any{"task": task.Name})
		res.completed = ctx.Err() == nil
		return res
	}

	var batch []domain.FetchedAd
	queued := make(map[string]struct{})
	for _, page := range pages {
		if ctx.Err() != nil {
			return res
		}
		ads, checked := o.harvestPage(ctx, task, page, seen, queued)
		res.checked += checked
		batch = append(batch, ads...)
	}
	if ctx.Err() != nil {
		// Un-mark the harvested ads so the next run classifies them; the
		// rest of seen is still saved on the way out.
		o.dropUnclassified(seen, batch, task, "interrupted before classification")
		return res
	}

	log.InfoObj("task harvested", "task_harvest", map[string]any{
		"task":    task.Name,
		"pages":   len(pages),
		"checked": res.checked,
		"batch":   len(batch),
	})

	if len(batch) == 0 {
		res.completed = true
		return res
	}

	results, ok := o.deps.Classifier.ClassifyBatch(ctx, task, batch)
	if !ok {
		o.dropUnclassified(seen, batch, task, "classification unavailable")
		res.completed = ctx.Err() == nil
		return res
	}

	var hits []domain.ClassificationResult
	for _, r := range results {
		seen.Add(r.URL)
		if !r.FoundItem {
			log.DebugObj("listing rejected", "verdict", map[string]any{
				"url":    r.URL,
				"reason": r.Reasoning,
			})
			continue
		}
		hits = append(hits, r)
		log.InfoObj("match found", "match", map[string]any{
			"task":  task.Name,
			"item":  r.ItemName,
			"price": r.Price,
			"url":   r.URL,
		})
		if o.deps.Notifier != nil {
			o.deps.Notifier.NotifyMatch(ctx, r.ItemName, r.Price, r.URL)
		}
	}
	res.matches = len(hits)

	if len(hits) > 0 && o.deps.Reporter != nil {
		if err := o.deps.Reporter.Save(hits, task.Name); err != nil {
			log.ErrorObj("results report not saved", "report_error", map[string]any{
				"task":  task.Name,
				"error": err.Error(),
			})
		}
	}

	res.completed = true
	return res
}

// dropUnclassified un-marks a batch that got no verdict so the next run
// checks it again.
func (o *Orchestrator) dropUnclassified(seen *seenset.Set, batch []domain.FetchedAd, task domain.Task, reason string) {
	if len(batch) == 0 {
		return
	}
	urls := make([]string, len(batch))
	for i, ad := range batch {
		urls[i] = ad.URL
	}
	removed := seen.Remove(urls...)
	o.log.WarnObj("batch left unclassified, listings will be retried", "batch_absent", map[string]any{
		"task":    task.Name,
		"reason":  reason,
		"removed": removed,
	})
}

// harvestPage fetches one search page, picks new candidates off it and
// fetches their detail pages. It returns the usable ads and how many
// candidates were fetched.
func (o *Orchestrator) harvestPage(ctx context.Context, task domain.Task, page domain.SearchPageSource, seen *seenset.Set, queued map[string]struct{}) ([]domain.FetchedAd, int) {
	res := o.deps.Fetcher.Fetch(ctx, page.SearchURL)
	if res.Status != fetcher.StatusContent {
		o.log.WarnObj("search page skipped", "page_skip", map[string]any{
			"site":   page.SiteName,
			"url":    page.SearchURL,
			"status": res.Status.String(),
		})
		return nil, 0
	}

	candidates := o.pickCandidates(ctx, task, page, res, seen, queued)
	if len(candidates) == 0 {
		return nil, 0
	}
	return o.fetchDetails(ctx, page.SiteName, candidates, seen), len(candidates)
}

// pickCandidates returns up to MaxCandidatesPerPage absolute, valid,
// not-yet-seen listing URLs in page order.
func (o *Orchestrator) pickCandidates(ctx context.Context, task domain.Task, page domain.SearchPageSource, res fetcher.Result, seen *seenset.Set, queued map[string]struct{}) []string {
	var raw []string
	if o.cfg.DiscoveryMode == DiscoveryAI {
		cands, ok := o.deps.Classifier.ClassifySearchPage(ctx, page.SearchURL, res.Content, task)
		if ok {
			for _, c := range cands {
				raw = append(raw, c.URL)
			}
		} else {
			o.log.WarnObj("ai candidate picking failed, using page links", "discovery_fallback", map[string]any{
				"url": page.SearchURL,
			})
			raw = res.Links
		}
	} else {
		raw = res.Links
	}

	var out []string
	skipped := 0
	for _, u := range links.Filter(page.SearchURL, raw) {
		if seen.Has(u) {
			skipped++
			continue
		}
		if _, dup := queued[u]; dup {
			continue
		}
		queued[u] = struct{}{}
		out = append(out, u)
		if len(out) == o.cfg.MaxCandidatesPerPage {
			break
		}
	}

	o.log.InfoObj("candidates picked", "page_candidates", map[string]any{
		"site":         page.SiteName,
		"new":          len(out),
		"already_seen": skipped,
	})
	return out
}

// fetchDetails fetches candidate pages on a bounded pool. Usable and
// non-empty-but-short pages are marked seen immediately; unreachable ones
// are left for the next run.
func (o *Orchestrator) fetchDetails(ctx context.Context, site string, urls []string, seen *seenset.Set) []domain.FetchedAd {
	slots := make([]*domain.FetchedAd, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.FetchWorkers)
	for i, u := range urls {
		g.Go(func() error {
			res := o.deps.Fetcher.Fetch(gctx, u)
			switch res.Status {
			case fetcher.StatusContent:
				seen.Add(u)
				slots[i] = &domain.FetchedAd{Site: site, URL: u, Content: res.Content}
			case fetcher.StatusInsufficient:
				seen.Add(u)
				o.log.InfoObj("listing too short, marked seen", "detail_insufficient", map[string]any{"url": u})
			default:
				o.log.WarnObj("listing unreachable, will retry next run", "detail_unreachable", map[string]any{"url": u})
			}
			return nil
		})
	}
	_ = g.Wait()

	ads := make([]domain.FetchedAd, 0, len(urls))
	for _, ad := range slots {
		if ad != nil {
			ads = append(ads, *ad)
		}
	}
	return ads
}
