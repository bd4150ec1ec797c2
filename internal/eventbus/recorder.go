package eventbus

import (
	"context"
	"time"

	"sleeptimer/internal/storage"
	"sleeptimer/pkg/logx"
)

// Recorder copies bus events into the store's event journal.
type Recorder struct {
	bus   Bus
	store storage.Store
	log   logx.Logger
	// Timeout bounds each append (default 2s).
	Timeout time.Duration
}

func NewRecorder(bus Bus, store storage.Store, log logx.Logger) *Recorder {
	return &Recorder{bus: bus, store: store, log: log, Timeout: 2 * time.Second}
}

// Run subscribes to the journal topics and records until ctx is done.
func (r *Recorder) Run(ctx context.Context) {
	ch, unsub := r.bus.Subscribe(64, JournalPrefixes...)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			r.record(ctx, e)
		}
	}
}

func (r *Recorder) record(ctx context.Context, e Event) {
	rec := ToRecord(e)
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.Timeout)
	defer cancel()
	if err := r.store.AppendEvent(actx, rec); err != nil {
		r.log.Warn("journal append failed", logx.String("kind", rec.Kind), logx.Err(err))
	}
}

// ToRecord flattens a bus event into a journal record.
func ToRecord(e Event) storage.Event {
	rec := storage.Event{At: e.Time, Kind: e.Type}
	switch d := e.Data.(type) {
	case TimerEvent:
		rec.Episode, rec.Target, rec.Detail = d.Episode, d.Target, d.Detail
	case ScheduleEvent:
		rec.Detail = d.Detail
	}
	return rec
}
