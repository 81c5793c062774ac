// Package notify hands engine notifications to other local processes, such as
// a sticky note UI, through event files in a shared directory.
package notify

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/engine"
)

// Event types
const (
	EventStickiesGenerated = "stickies_generated"
	EventMemoryStored      = "memory_stored"
)

// Event is the payload written to an event file. Subject is the memory id for
// memory events and "source_type/source_id" for sticky batches.
type Event struct {
	Type      string   `json:"type"`
	Subject   string   `json:"subject"`
	Category  string   `json:"category,omitempty"`
	Count     int      `json:"count,omitempty"`
	StickyIDs []string `json:"sticky_ids,omitempty"`
	Time      int64    `json:"time"`
}

// EventWriter writes notification event files to a shared directory.
type EventWriter struct {
	dir string
}

// NewEventWriter creates a writer that emits events to {dataPath}/events/.
func NewEventWriter(dataPath string) *EventWriter {
	return &EventWriter{dir: filepath.Join(dataPath, "events")}
}

// Dir returns the events directory.
func (w *EventWriter) Dir() string {
	return w.dir
}

// Write stores evt as a new event file. The file is renamed into place so
// watchers never observe a partial write. Safe to call concurrently.
func (w *EventWriter) Write(evt Event) error {
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return fmt.Errorf("notify: mkdir %s: %w", w.dir, err)
	}
	if evt.Time == 0 {
		evt.Time = time.Now().UnixNano()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}

	name := fmt.Sprintf("%d-%s-%s", evt.Time, sanitizeID(evt.Subject), uuid.NewString()[:8])
	tmp := filepath.Join(w.dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("notify: write event: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(w.dir, name+".event")); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("notify: publish event: %w", err)
	}
	return nil
}

// Observer returns an engine observer that writes one event per
// notification. Write failures are logged and never reach the engine.
func (w *EventWriter) Observer() engine.Observer {
	return engine.Observer{
		OnStickiesGenerated: func(ev engine.StickiesGenerated) {
			ids := make([]string, 0, len(ev.Stickies))
			for _, n := range ev.Stickies {
				ids = append(ids, n.ID)
			}
			w.emit(Event{
				Type:      EventStickiesGenerated,
				Subject:   ev.SourceType + "/" + ev.SourceID,
				Count:     ev.StickyCount,
				StickyIDs: ids,
			})
		},
		OnMemoryStored: func(ev engine.MemoryStored) {
			w.emit(Event{
				Type:     EventMemoryStored,
				Subject:  ev.ID,
				Category: ev.Category,
			})
		},
	}
}

func (w *EventWriter) emit(evt Event) {
	if err := w.Write(evt); err != nil {
		log.Printf("notify: %v", err)
	}
}

// sanitizeID replaces characters unsafe for filenames.
func sanitizeID(id string) string {
	out := make([]byte, len(id))
	for i := 0; i < len(id); i++ {
		switch id[i] {
		case '/', ':', '\\', ' ':
			out[i] = '_'
		default:
			out[i] = id[i]
		}
	}
	return string(out)
}
