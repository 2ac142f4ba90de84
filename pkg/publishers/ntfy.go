package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Adda-Baaj/bazaar-sniper/internal/logger"
	"github.com/Adda-Baaj/bazaar-sniper/pkg/httpclient"
)

// ntfyPublisher posts the event message as plain text to an ntfy topic.
type ntfyPublisher struct {
	id     string
	url    string
	client *resty.Client
	log    logger.Logger
}

func newNtfyPublisher(_ context.Context, cfg PublisherConfig, log logger.Logger) (Publisher, error) {
	if cfg.Ntfy == nil || cfg.Ntfy.Topic == "" {
		return nil, fmt.Errorf("publisher %q missing ntfy configuration", cfg.ID)
	}
	return &ntfyPublisher{
		id:     cfg.ID,
		url:    cfg.Ntfy.BaseURL + "/" + cfg.Ntfy.Topic,
		client: httpclient.NewRestyHTTPClient(time.Duration(cfg.Ntfy.TimeoutSeconds) * time.Second),
		log:    logger.Ensure(log),
	}, nil
}

func (n *ntfyPublisher) ID() string   { return n.id }
func (n *ntfyPublisher) Type() string { return TypeNtfy }

func (n *ntfyPublisher) Publish(ctx context.Context, evt Event) error {
	req := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain; charset=utf-8").
		SetBody([]byte(evt.Message))

	if evt.Title != "" {
		req.SetHeader("Title", evt.Title)
	}
	if evt.Priority != "" {
		req.SetHeader("Priority", evt.Priority)
	}
	if len(evt.Tags) > 0 {
		req.SetHeader("Tags", strings.Join(evt.Tags, ","))
	}
	if evt.Click != "" {
		req.SetHeader("Click", evt.Click)
	}

	resp, err := req.Post(n.url)
	if err != nil {
		return fmt.Errorf("ntfy request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("ntfy response status %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
	}
	n.log.DebugObj("ntfy delivered event", "publisher_ntfy_delivery", map[string]any{
		"publisher_id": n.id,
		"kind":         evt.Kind,
	})
	return nil
}
