package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Adda-Baaj/bazaar-sniper/internal/config"
	"github.com/Adda-Baaj/bazaar-sniper/internal/domain"
	"github.com/Adda-Baaj/bazaar-sniper/internal/logger"
	"github.com/Adda-Baaj/bazaar-sniper/internal/storage"
	"github.com/Adda-Baaj/bazaar-sniper/internal/tasks"
	"github.com/Adda-Baaj/bazaar-sniper/pkg/marketplaces"
	"github.com/Adda-Baaj/bazaar-sniper/pkg/publishers"
)

// envNtfyID names the ntfy sink configured through ntfy_topic.
const envNtfyID = "ntfy-env"

// loadTasks reads the tasks file, falling back to a single task built from
// item_name when the file does not exist.
func loadTasks(cfg *config.Config, log logger.Logger) ([]domain.Task, error) {
	list, err := tasks.Load(cfg.TasksFile)
	if errors.Is(err, tasks.ErrNoFile) {
		if strings.TrimSpace(cfg.ItemName) == "" {
			return nil, fmt.Errorf("no tasks file and item_name is empty")
		}
		list = tasks.Default(cfg.ItemName, nil)
		log.InfoObj("tasks file missing, using item_name", "tasks_meta", map[string]any{
			"tasks_file": cfg.TasksFile,
			"item_name":  cfg.ItemName,
		})
		return list, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	names := make([]string, 0, len(list))
	for _, t := range list {
		names = append(names, t.Name)
	}
	log.InfoObj("tasks loaded", "tasks_meta", map[string]any{
		"count": len(names),
		"names": names,
	})
	return list, nil
}

// siteOverrides returns the search templates and HTTP-only domains from the
// optional marketplaces file, merged over the configured fallback domains.
func siteOverrides(cfg *config.Config, log logger.Logger) (map[string]string, []string, error) {
	fallback := append([]string(nil), cfg.FallbackDomains...)
	if strings.TrimSpace(cfg.MarketplacesFile) == "" {
		return nil, fallback, nil
	}
	reg, err := marketplaces.LoadRegistry(cfg.MarketplacesFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load marketplaces registry: %w", err)
	}
	templates := reg.Templates()
	fallback = append(fallback, reg.HTTPDomains()...)

	ids := make([]string, 0, len(templates))
	for _, m := range reg.Enabled() {
		ids = append(ids, m.ID)
	}
	log.InfoObj("marketplaces registry loaded", "marketplaces_meta", map[string]any{
		"count":        len(ids),
		"ids":          ids,
		"http_domains": reg.HTTPDomains(),
	})
	return templates, fallback, nil
}

// publisherConfigs merges the optional publishers file with the ntfy topic
// from the environment. An empty result is valid: notifications are optional.
func publisherConfigs(cfg *config.Config) ([]publishers.PublisherConfig, error) {
	reg, err := publishers.NewConfigRegistry(nil)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.PublishersFile) != "" {
		if reg, err = publishers.LoadRegistry(cfg.PublishersFile); err != nil {
			return nil, err
		}
	}
	if topic := strings.TrimSpace(cfg.NtfyTopic); topic != "" {
		err := reg.Add(publishers.PublisherConfig{
			ID:   envNtfyID,
			Type: publishers.TypeNtfy,
			Ntfy: &publishers.NtfyPublisherConfig{
				BaseURL:        cfg.NtfyBaseURL,
				Topic:          topic,
				TimeoutSeconds: int(cfg.NotifyTimeoutSeconds),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("ntfy_topic: %w", err)
		}
	}
	return reg.Enabled(), nil
}

// historyPath is the file committed alongside the reports, if any.
func historyPath(cfg *config.Config) string {
	switch strings.ToLower(strings.TrimSpace(cfg.StorageType)) {
	case storage.TypeNone, "disabled":
		return ""
	}
	return cfg.HistoryFile
}
