package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Adda-Baaj/bazaar-sniper/internal/domain"
	"github.com/Adda-Baaj/bazaar-sniper/internal/logger"
)

const (
	// DefaultAdPromptChars bounds each ad's content inside a batch prompt.
	DefaultAdPromptChars = 2000
	// DefaultPagePromptChars bounds a search page inside a candidate prompt.
	DefaultPagePromptChars = 12000

	adDelimiter = "------"
)

// ClassifierConfig tunes prompt sizes and candidate filtering.
type ClassifierConfig struct {
	Timeout         time.Duration
	MinConfidence   int
	AdPromptChars   int
	PagePromptChars int
}

// Classifier turns prompts into schema-checked answers through the model
// fallback policy. Calls are serialized: the backend quota is global.
type Classifier struct {
	backend Backend
	policy  Policy
	cfg     ClassifierConfig
	log     logger.Logger

	mu sync.Mutex
}

// NewClassifier wires a backend to a fallback policy.
func NewClassifier(backend Backend, policy Policy, cfg ClassifierConfig, log logger.Logger) (*Classifier, error) {
	if backend == nil {
		return nil, fmt.Errorf("classifier backend is nil")
	}
	if len(policy.Models) == 0 {
		return nil, fmt.Errorf("classifier needs at least one model")
	}
	if cfg.AdPromptChars <= 0 {
		cfg.AdPromptChars = DefaultAdPromptChars
	}
	if cfg.PagePromptChars <= 0 {
		cfg.PagePromptChars = DefaultPagePromptChars
	}
	log = logger.Ensure(log)
	if policy.Log == nil {
		policy.Log = log
	}
	return &Classifier{backend: backend, policy: policy, cfg: cfg, log: log}, nil
}

// generate runs req through the policy. Each attempt decodes into a fresh
// value; decode or validation failures count as a failed attempt.
func generate[T any](ctx context.Context, c *Classifier, req Request, validate func(*T) error) (*T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out *T
	model, err := c.policy.Do(ctx, func(ctx context.Context, model string) error {
		callCtx := ctx
		if c.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()
		}

		raw, err := c.backend.Generate(callCtx, model, req)
		if err != nil {
			return err
		}

		v := new(T)
		if err := decodeStrict(raw, v); err != nil {
			return err
		}
		if validate != nil {
			if err := validate(v); err != nil {
				return fmt.Errorf("%w: %v", ErrSchema, err)
			}
		}
		out = v
		return nil
	})
	if err != nil {
		c.log.WarnObj("ai call produced no result", "ai_absent", map[string]any{
			"schema": req.SchemaName,
			"error":  err.Error(),
		})
		return nil, false
	}

	c.log.DebugObj("ai call succeeded", "ai_ok", map[string]any{
		"schema": req.SchemaName,
		"model":  model,
	})
	return out, true
}

func decodeStrict(raw []byte, v any) error {
	raw = bytes.TrimSpace(raw)
	raw = bytes.TrimPrefix(raw, []byte("```json"))
	raw = bytes.TrimPrefix(raw, []byte("```"))
	raw = bytes.TrimSuffix(raw, []byte("```"))

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after object", ErrSchema)
	}
	return nil
}

// Wire shapes use pointers so a missing required field is detectable.

type wirePlan struct {
	SearchPages *[]wirePage `json:"search_pages"`
}

type wirePage struct {
	SiteName  *string `json:"site_name"`
	SearchURL *string `json:"search_url"`
}

type wireCandidates struct {
	Candidates *[]wireCandidate `json:"candidates"`
}

type wireCandidate struct {
	URL             *string `json:"url"`
	Title           *string `json:"title"`
	Price           *string `json:"price"`
	ConfidenceScore *int    `json:"confidence_score"`
	Reasoning       *string `json:"reasoning"`
}

type wireBatch struct {
	Results *[]wireResult `json:"results"`
}

type wireResult struct {
	URL       *string `json:"url"`
	FoundItem *bool   `json:"found_item"`
	ItemName  *string `json:"item_name"`
	Price     *string `json:"price"`
	Reasoning *string `json:"reasoning"`
}

func missing(field string, i int) error {
	return fmt.Errorf("item %d: missing %s", i, field)
}

func (w *wirePlan) validate() error {
	if w.SearchPages == nil {
		return fmt.Errorf("missing search_pages")
	}
	for i, p := range *w.SearchPages {
		if p.SiteName == nil {
			return missing("site_name", i)
		}
		if p.SearchURL == nil {
			return missing("search_url", i)
		}
	}
	return nil
}

func (w *wireCandidates) validate() error {
	if w.Candidates == nil {
		return fmt.Errorf("missing candidates")
	}
	for i, c := range *w.Candidates {
		switch {
		case c.URL == nil:
			return missing("url", i)
		case c.Title == nil:
			return missing("title", i)
		case c.Price == nil:
			return missing("price", i)
		case c.ConfidenceScore == nil:
			return missing("confidence_score", i)
		case c.Reasoning == nil:
			return missing("reasoning", i)
		}
		if *c.ConfidenceScore < 0 || *c.ConfidenceScore > 100 {
			return fmt.Errorf("item %d: confidence_score %d out of range", i, *c.ConfidenceScore)
		}
	}
	return nil
}

func (w *wireBatch) validate() error {
	if w.Results == nil {
		return fmt.Errorf("missing results")
	}
	for i, r := range *w.Results {
		switch {
		case r.URL == nil:
			return missing("url", i)
		case r.FoundItem == nil:
			return missing("found_item", i)
		case r.ItemName == nil:
			return missing("item_name", i)
		case r.Price == nil:
			return missing("price", i)
		case r.Reasoning == nil:
			return missing("reasoning", i)
		}
	}
	return nil
}

// GenerateSearchURLs asks the model for search pages on sites without a
// known template. The bool is false when every model failed.
func (c *Classifier) GenerateSearchURLs(ctx context.Context, query string, sites []string) ([]domain.SearchPageSource, bool) {
	if len(sites) == 0 {
		return nil, true
	}

	cleanSites := make([]string, 0, len(sites))
	for _, s := range sites {
		if s = Sanitize(s, MaxFieldLength); s != "" {
			cleanSites = append(cleanSites, s)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I want to find second-hand listings for: %s\n", Sanitize(query, MaxFieldLength))
	fmt.Fprintf(&b, "Target marketplaces: %s\n\n", strings.Join(cleanSites, ", "))
	b.WriteString("For each marketplace, give the direct URL of its search results page for this query.\n")
	b.WriteString("Use the site's own search path and URL-encode the query. Return only sites from the list.\n")

	plan, ok := generate(ctx, c, Request{
		Prompt:     b.String(),
		SchemaName: "search_plan",
		Schema:     searchPlanSchema,
	}, (*wirePlan).validate)
	if !ok {
		return nil, false
	}

	out := make([]domain.SearchPageSource, 0, len(*plan.SearchPages))
	for _, p := range *plan.SearchPages {
		u := strings.TrimSpace(*p.SearchURL)
		if u == "" {
			continue
		}
		out = append(out, domain.SearchPageSource{
			SiteName:  strings.TrimSpace(*p.SiteName),
			SearchURL: u,
		})
	}
	return out, true
}

// ClassifySearchPage asks the model to pick listings off a rendered search
// page. Candidates below the confidence floor are dropped and the rest are
// returned most confident first. URLs are returned as written on the page.
func (c *Classifier) ClassifySearchPage(ctx context.Context, pageURL, content string, task domain.Task) ([]domain.Candidate, bool) {
	var b strings.Builder
	writeWant(&b, task)
	fmt.Fprintf(&b, "Search results page: %s\n", SanitizeURL(pageURL))
	b.WriteString(adDelimiter + "\n")
	b.WriteString(SanitizePage(content, c.cfg.PagePromptChars))
	b.WriteString("\n" + adDelimiter + "\n")
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1. List the individual listings on this page that could be the wanted item.\n")
	b.WriteString("2. Copy each listing link exactly as it appears on the page.\n")
	b.WriteString("3. Score confidence from 0 to 100. Ignore accessories, parts and wanted-to-buy posts.\n")

	res, ok := generate(ctx, c, Request{
		Prompt:     b.String(),
		SchemaName: "search_candidates",
		Schema:     candidatesSchema,
	}, (*wireCandidates).validate)
	if !ok {
		return nil, false
	}

	out := make([]domain.Candidate, 0, len(*res.Candidates))
	for _, w := range *res.Candidates {
		if *w.ConfidenceScore < c.cfg.MinConfidence {
			continue
		}
		u := strings.TrimSpace(*w.URL)
		if u == "" {
			continue
		}
		out = append(out, domain.Candidate{
			URL:             u,
			Title:           *w.Title,
			Price:           *w.Price,
			ConfidenceScore: *w.ConfidenceScore,
			Reasoning:       *w.Reasoning,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ConfidenceScore > out[j].ConfidenceScore
	})
	return out, true
}

// ClassifyBatch judges every ad of a task in one call. Results are matched
// to the submitted ads by URL; rows for unknown URLs are dropped. The bool
// is false when the backend produced no usable answer.
func (c *Classifier) ClassifyBatch(ctx context.Context, task domain.Task, ads []domain.FetchedAd) ([]domain.ClassificationResult, bool) {
	if len(ads) == 0 {
		return nil, true
	}

	submitted := make(map[string]string, len(ads))
	var b strings.Builder
	writeWant(&b, task)
	b.WriteString("\nHere are the ads to check:\n")
	for i, ad := range ads {
		promptURL := SanitizeURL(ad.URL)
		submitted[promptURL] = ad.URL
		fmt.Fprintf(&b, "\n--- AD #%d (%s) ---\n", i+1, Sanitize(ad.Site, MaxFieldLength))
		fmt.Fprintf(&b, "URL: %s\n", promptURL)
		fmt.Fprintf(&b, "CONTENT: %s\n", Sanitize(ad.Content, c.cfg.AdPromptChars))
	}
	b.WriteString("\n" + adDelimiter + "\n")
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1. Decide for each ad whether it sells the exact wanted item.\n")
	b.WriteString("2. Reject accessories, parts, similar models and wanted-to-buy posts.\n")
	b.WriteString("3. Return one result per ad and echo its URL exactly as given.\n")

	res, ok := generate(ctx, c, Request{
		Prompt:     b.String(),
		SchemaName: "batch_classification",
		Schema:     batchSchema,
	}, (*wireBatch).validate)
	if !ok {
		return nil, false
	}

	out := make([]domain.ClassificationResult, 0, len(*res.Results))
	seen := make(map[string]struct{}, len(*res.Results))
	for _, r := range *res.Results {
		orig, known := submitted[strings.TrimSpace(*r.URL)]
		if !known {
			c.log.DebugObj("dropping result for unknown url", "ai_uncorrelated", map[string]any{
				"url": *r.URL,
			})
			continue
		}
		if _, dup := seen[orig]; dup {
			continue
		}
		seen[orig] = struct{}{}
		out = append(out, domain.ClassificationResult{
			URL:       orig,
			FoundItem: *r.FoundItem,
			ItemName:  *r.ItemName,
			Price:     *r.Price,
			Reasoning: *r.Reasoning,
		})
	}
	return out, true
}

func writeWant(b *strings.Builder, task domain.Task) {
	fmt.Fprintf(b, "I am looking for: %s\n", Sanitize(task.Query, MaxFieldLength))
	if task.MaxPrice != nil {
		price := strconv.FormatFloat(*task.MaxPrice, 'f', -1, 64)
		if cur := Sanitize(task.Currency, 10); cur != "" {
			price += " " + cur
		}
		fmt.Fprintf(b, "Maximum price: %s\n", price)
	}
	if desc := Sanitize(task.Description, MaxFieldLength*2); desc != "" {
		fmt.Fprintf(b, "Details: %s\n", desc)
	}
}
