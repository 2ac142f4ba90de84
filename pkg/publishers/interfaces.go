package publishers

import "context"

// Publisher delivers notification events to one sink (ntfy, SNS, etc).
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}
