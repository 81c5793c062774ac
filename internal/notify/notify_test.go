package notify

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/engine"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage/sqlite"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

func TestEventWriterCreatesFile(t *testing.T) {
	dir := t.TempDir()
	w := NewEventWriter(dir)

	if err := w.Write(Event{Type: EventMemoryStored, Subject: "mem_abc123", Category: "business"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "events"))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 event file, got %d", len(entries))
	}
	if filepath.Ext(entries[0].Name()) != ".event" {
		t.Errorf("expected .event extension, got %s", entries[0].Name())
	}

	data, err := os.ReadFile(filepath.Join(dir, "events", entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("invalid event JSON: %v", err)
	}
	if evt.Time == 0 {
		t.Error("expected Time to be stamped")
	}
}

func TestWatcherRunReceivesEvent(t *testing.T) {
	dir := t.TempDir()

	received := make(chan Event, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewWatcher(dir, func(evt Event) { received <- evt }).Run(ctx)
	}()

	writer := NewEventWriter(dir)
	if err := writer.Write(Event{Type: EventStickiesGenerated, Subject: "chat/msg-42", Count: 2}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	select {
	case evt := <-received:
		if evt.Type != EventStickiesGenerated {
			t.Errorf("expected event type %s, got %s", EventStickiesGenerated, evt.Type)
		}
		if evt.Subject != "chat/msg-42" || evt.Count != 2 {
			t.Errorf("unexpected event: %+v", evt)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for event")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcherDrainConsumesOnce(t *testing.T) {
	dir := t.TempDir()

	writer := NewEventWriter(dir)
	_ = writer.Write(Event{Type: EventMemoryStored, Subject: "mem_drain1"})
	_ = writer.Write(Event{Type: EventMemoryStored, Subject: "mem_drain2"})
	if err := os.WriteFile(filepath.Join(writer.Dir(), "999-bad-0000.event"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	var subjects []string
	watcher := NewWatcher(dir, func(evt Event) { subjects = append(subjects, evt.Subject) })

	n, err := watcher.Drain()
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if n != 2 || len(subjects) != 2 {
		t.Fatalf("expected 2 drained events, got %d (%v)", n, subjects)
	}
	if subjects[0] != "mem_drain1" || subjects[1] != "mem_drain2" {
		t.Errorf("expected events in write order, got %v", subjects)
	}

	entries, _ := os.ReadDir(writer.Dir())
	if len(entries) != 0 {
		t.Errorf("expected drained files to be removed, %d remain", len(entries))
	}

	n, err = watcher.Drain()
	if err != nil || n != 0 {
		t.Errorf("expected nothing left to drain, got %d, %v", n, err)
	}
}

func TestWatcherDrainMissingDir(t *testing.T) {
	n, err := NewWatcher(t.TempDir(), nil).Drain()
	if err != nil || n != 0 {
		t.Errorf("expected empty drain, got %d, %v", n, err)
	}
}

func TestEngineObserverWritesEvents(t *testing.T) {
	dir := t.TempDir()

	store, err := sqlite.NewStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	eng, err := engine.New(store, engine.DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer eng.Close()

	writer := NewEventWriter(dir)
	eng.Subscribe(writer.Observer())

	res, err := eng.ProcessInput(context.Background(), engine.Input{
		SourceType: "chat",
		SourceID:   "msg-1",
		Content:    "We are raising $6M",
	})
	if err != nil {
		t.Fatalf("ProcessInput failed: %v", err)
	}
	if res.StickyCount != 1 {
		t.Fatalf("expected 1 sticky, got %d", res.StickyCount)
	}

	got := map[string]int{}
	var batch Event
	watcher := NewWatcher(dir, func(evt Event) {
		got[evt.Type]++
		if evt.Type == EventStickiesGenerated {
			batch = evt
		}
	})
	if _, err := watcher.Drain(); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	if got[EventMemoryStored] != 2 {
		t.Errorf("expected 2 memory events, got %d", got[EventMemoryStored])
	}
	if got[EventStickiesGenerated] != 1 {
		t.Fatalf("expected 1 sticky event, got %d", got[EventStickiesGenerated])
	}
	if batch.Subject != "chat/msg-1" || len(batch.StickyIDs) != 1 || batch.StickyIDs[0] != res.Stickies[0].ID {
		t.Errorf("unexpected sticky event: %+v", batch)
	}
	if res.Stickies[0].Category != types.CategoryOpportunity {
		t.Errorf("expected opportunity category, got %s", res.Stickies[0].Category)
	}
}

func TestIgnoresTempFiles(t *testing.T) {
	if isEventFile("/x/.123-mem.tmp") || isEventFile("/x/.hidden.event") {
		t.Error("temp files must not be treated as events")
	}
	if !isEventFile("/x/123-mem_1-abcd.event") {
		t.Error("expected event file to match")
	}
}

func TestSanitizeID(t *testing.T) {
	got := sanitizeID("chat/msg:abc def")
	if got != "chat_msg_abc_def" {
		t.Errorf("expected chat_msg_abc_def, got %s", got)
	}
}
