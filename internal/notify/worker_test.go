package notify

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/solenne-institute/booking/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type capturingEmailSender struct {
	to      string
	subject string
	body    string
}

func (c *capturingEmailSender) Send(to, subject, body string) error {
	c.to = to
	c.subject = subject
	c.body = body
	return nil
}

func TestSweepSkipsWhileAnotherSweepRuns(t *testing.T) {
	w := NewWorker(nil, nil, nil, nil, quietLogger(), WorkerConfig{})
	w.running.Store(true)

	// With the guard held, Sweep must return before touching the store
	// (a nil store would panic otherwise).
	if err := w.Sweep(context.Background()); err != nil {
		t.Fatalf("guarded sweep should be a no-op, got %v", err)
	}
	if !w.running.Load() {
		t.Fatal("skipped sweep must not release a guard it does not own")
	}
}

func TestSweepReleasesGuardAfterPanic(t *testing.T) {
	w := NewWorker(nil, nil, nil, nil, quietLogger(), WorkerConfig{})

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected sweep with nil store to panic")
			}
		}()
		_ = w.Sweep(context.Background())
	}()

	if w.running.Load() {
		t.Fatal("guard must be released even when a sweep panics")
	}
}

func TestReminderTextUsesInstituteTimezone(t *testing.T) {
	loc := time.FixedZone("institute", 2*60*60)
	email := &capturingEmailSender{}
	w := NewWorker(nil, nil, email, NewNoopSender(), quietLogger(), WorkerConfig{Location: loc})

	d := storage.DueReminder{
		AppointmentID: "a1",
		StartsAt:      time.Date(2026, 3, 2, 13, 30, 0, 0, time.UTC),
		ClientName:    "Mia Laurent",
		Email:         "mia@example.com",
	}
	if err := w.send(context.Background(), d, ChannelEmail); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if !strings.Contains(email.body, "15:30") {
		t.Fatalf("body shows wrong wall-clock time:\n%s", email.body)
	}
	if strings.Contains(email.body, "13:30") {
		t.Fatalf("body leaked the UTC instant:\n%s", email.body)
	}
}
