package history

import (
	"context"
	"log/slog"

	"github.com/alkime/screenrec/internal/session"
)

// Inserter persists history entries.
type Inserter interface {
	Insert(ctx context.Context, e Entry) (int64, error)
}

// Recorder turns controller events into history entries.
type Recorder struct {
	store  Inserter
	logger *slog.Logger
	open   map[string]*Entry
}

func NewRecorder(store Inserter, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}

	return &Recorder{
		store:  store,
		logger: logger,
		open:   make(map[string]*Entry),
	}
}

// Consume records every session that finishes until events is closed.
// Insert failures are logged and never stop consumption.
func (r *Recorder) Consume(ctx context.Context, events <-chan session.Event) {
	for ev := range events {
		r.Handle(ctx, ev)
	}
}

// Handle applies a single event.
func (r *Recorder) Handle(ctx context.Context, ev session.Event) {
	switch ev.Kind {
	case session.KindStarted:
		r.open[ev.SessionID] = &Entry{
			SessionID:  ev.SessionID,
			StartedAt:  ev.Time,
			OutputPath: ev.OutputPath,
			Command:    ev.Command,
		}

	case session.KindError:
		if e, ok := r.open[ev.SessionID]; ok && ev.Severity == session.SeverityError {
			e.Error = ev.Message
		}

	case session.KindStopped:
		e, ok := r.open[ev.SessionID]
		if !ok {
			return
		}
		delete(r.open, ev.SessionID)

		e.EndedAt = ev.Time
		e.Duration = ev.Duration
		e.Clean = ev.Clean
		e.Forced = ev.Forced
		e.Warning = ev.Warning

		if _, err := r.store.Insert(ctx, *e); err != nil {
			r.logger.Error("failed to record history", "session", e.SessionID, "error", err)
			return
		}

		r.logger.Debug("recording added to history", "session", e.SessionID, "output", e.OutputPath)

	case session.KindPaused, session.KindTick:
	}
}
