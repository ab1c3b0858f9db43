package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/solenne-institute/booking/internal/outbox"
	"github.com/solenne-institute/booking/internal/storage"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"

	KindReminder = "reminder"
)

// Worker sweeps for confirmed appointments entering the reminder window and
// sends at most one reminder per (appointment, channel). The reservation
// table is the idempotency gate, so multiple worker replicas can run the
// same sweep concurrently without duplicate sends.
type Worker struct {
	store  *storage.Store
	outbox *outbox.Repository
	email  EmailSender
	sms    SMSSender
	logger *slog.Logger

	interval time.Duration
	lead     time.Duration
	loc      *time.Location
	now      func() time.Time

	// running rejects overlapping sweeps when one takes longer than the
	// tick interval. Skipped ticks are fine; the next sweep catches up.
	running atomic.Bool
}

type WorkerConfig struct {
	Interval time.Duration
	// Lead is how far before the start instant reminders go out.
	Lead time.Duration
	// Location is the institute civil timezone reminder text is written in.
	Location *time.Location
	Now      func() time.Time
}

func NewWorker(store *storage.Store, outboxRepo *outbox.Repository, email EmailSender, sms SMSSender, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 1 * time.Minute
	}
	if cfg.Lead <= 0 {
		cfg.Lead = 24 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Worker{
		store:    store,
		outbox:   outboxRepo,
		email:    email,
		sms:      sms,
		logger:   logger,
		interval: cfg.Interval,
		lead:     cfg.Lead,
		loc:      cfg.Location,
		now:      cfg.Now,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				w.logger.Error("reminder sweep failed", "err", err)
			}
		}
	}
}

// Sweep processes one reminder window. Exported so an operator endpoint or a
// test can trigger it outside the ticker; the guard lives here so every entry
// point honors it, and the deferred release survives a panicking sweep.
func (w *Worker) Sweep(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		w.logger.Warn("reminder sweep already running, skipping")
		return nil
	}
	defer w.running.Store(false)

	now := w.now()
	due, err := w.store.DueReminders(ctx, now, now.Add(w.lead))
	if err != nil {
		return err
	}

	pool := w.store.Pool()
	for _, d := range due {
		if d.Email != "" {
			w.deliver(ctx, pool, d, ChannelEmail)
		}
		if d.Phone != "" {
			w.deliver(ctx, pool, d, ChannelSMS)
		}
	}
	return nil
}

// deliver claims the channel's reservation and sends. Send failures release
// the claim so the next sweep retries; delivery problems never abort the
// whole sweep.
func (w *Worker) deliver(ctx context.Context, q storage.Querier, d storage.DueReminder, channel string) {
	if err := w.store.EnsureReservationRow(ctx, q, d.AppointmentID, channel, KindReminder); err != nil {
		w.logger.Error("reservation row insert failed", "appointment_id", d.AppointmentID, "channel", channel, "err", err)
		return
	}
	claimed, err := w.store.ClaimReservation(ctx, q, d.AppointmentID, channel, KindReminder, w.now())
	if err != nil {
		w.logger.Error("reservation claim failed", "appointment_id", d.AppointmentID, "channel", channel, "err", err)
		return
	}
	if !claimed {
		return
	}

	sendErr := w.send(ctx, d, channel)
	if sendErr != nil {
		w.logger.Error("reminder send failed", "appointment_id", d.AppointmentID, "channel", channel, "err", sendErr)
		if err := w.store.ReleaseReservation(ctx, q, d.AppointmentID, channel, KindReminder); err != nil {
			w.logger.Error("reservation release failed", "appointment_id", d.AppointmentID, "channel", channel, "err", err)
		}
	}
	if err := w.recordOutcome(ctx, d, channel, sendErr); err != nil {
		w.logger.Error("reminder outcome event failed", "appointment_id", d.AppointmentID, "channel", channel, "err", err)
	}
}

func (w *Worker) send(ctx context.Context, d storage.DueReminder, channel string) error {
	local := d.StartsAt.In(w.loc).Format("Mon 2 Jan 15:04")
	switch channel {
	case ChannelEmail:
		subject := "Your appointment at Solenne Institute"
		body := fmt.Sprintf("Hello %s,\n\nThis is a reminder of your appointment on %s.\n\nSee you soon,\nSolenne Institute", d.ClientName, local)
		return w.email.Send(d.Email, subject, body)
	case ChannelSMS:
		body := fmt.Sprintf("Solenne Institute: reminder of your appointment on %s.", local)
		return w.sms.Send(ctx, d.Phone, body)
	default:
		return fmt.Errorf("unknown channel %s", channel)
	}
}

// recordOutcome writes a sent/failed event through the outbox in its own
// short transaction.
func (w *Worker) recordOutcome(ctx context.Context, d storage.DueReminder, channel string, sendErr error) error {
	eventType := "booking.reminder.sent.v1"
	fields := map[string]any{
		"appointment_id": d.AppointmentID,
		"channel":        channel,
		"starts_at":      d.StartsAt.UTC().Format(time.RFC3339),
	}
	if sendErr != nil {
		eventType = "booking.reminder.failed.v1"
		fields["error"] = sendErr.Error()
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	tx, err := w.store.Pool().Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := w.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   d.AppointmentID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
