package publishers

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event kinds.
const (
	KindTaskStarted = "task_started"
	KindMatchFound  = "match_found"
)

// Event is one notification. Title, Message, Priority, Tags and Click map
// onto ntfy headers; structured sinks receive the whole value as JSON.
type Event struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Priority   string    `json:"priority,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Click      string    `json:"click,omitempty"`
	TaskName   string    `json:"task_name,omitempty"`
	ItemName   string    `json:"item_name,omitempty"`
	Price      string    `json:"price,omitempty"`
	URL        string    `json:"url,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewTaskStartedEvent announces that a scan began.
func NewTaskStartedEvent(taskName string) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       KindTaskStarted,
		Title:      "Scraper Online",
		Message:    fmt.Sprintf("Started searching for %s", taskName),
		Priority:   "1",
		TaskName:   taskName,
		OccurredAt: time.Now().UTC(),
	}
}

// NewMatchEvent announces a confirmed listing.
func NewMatchEvent(itemName, price, url string) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       KindMatchFound,
		Title:      "Deal Found!",
		Message:    fmt.Sprintf("Found: %s\n💰 %s\n🔗 %s", itemName, price, url),
		Priority:   "high",
		Tags:       []string{"loudspeaker", "moneybag"},
		Click:      url,
		ItemName:   itemName,
		Price:      price,
		URL:        url,
		OccurredAt: time.Now().UTC(),
	}
}
