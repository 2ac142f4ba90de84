package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Adda-Baaj/bazaar-sniper/pkg/publishers"
)

type fakeDispatcher struct {
	events []publishers.Event
	n      int
	err    error
	block  bool
}

func (f *fakeDispatcher) Publish(ctx context.Context, evt publishers.Event) (int, error) {
	f.events = append(f.events, evt)
	if f.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return f.n, f.err
}

func TestNotifyMatchSendsEvent(t *testing.T) {
	d := &fakeDispatcher{n: 1}
	n := New(d, time.Second, nil)

	if !n.NotifyMatch(context.Background(), "XTZ 12.17 Edge", "4000 kr", "https://x.test/item/1") {
		t.Fatalf("expected delivery")
	}
	evt := d.events[0]
	if evt.Kind != publishers.KindMatchFound || evt.Click != "https://x.test/item/1" {
		t.Fatalf("event = %+v", evt)
	}
}

func TestNotifyStartFailureIsSwallowed(t *testing.T) {
	n := New(&fakeDispatcher{err: errors.New("down")}, time.Second, nil)
	if n.NotifyStart(context.Background(), "xtz") {
		t.Fatalf("failed delivery must report false")
	}
}

func TestNotifyTimesOut(t *testing.T) {
	n := New(&fakeDispatcher{block: true}, 10*time.Millisecond, nil)

	start := time.Now()
	if n.NotifyStart(context.Background(), "xtz") {
		t.Fatalf("blocked sink must report false")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout not applied")
	}
}

func TestNilNotifier(t *testing.T) {
	var n *Notifier
	if n.NotifyStart(context.Background(), "x") {
		t.Fatalf("nil notifier must report false")
	}
	if New(nil, 0, nil).NotifyMatch(context.Background(), "a", "b", "c") {
		t.Fatalf("notifier without dispatcher must report false")
	}
}
