package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/allenac86/spooky-days-twitter/internal/ledger"
)

const calendarKey = "config/national-days.json"

// jan15 pins the run date to a day the test calendars populate
var jan15 = time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC)

type fakeImages struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *fakeImages) Generate(_ context.Context, prompt string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, prompt)
	for occasion := range f.fail {
		if strings.Contains(prompt, occasion) {
			return nil, errors.New("provider error")
		}
	}
	return []byte("image:" + prompt), nil
}

type fakeStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failPuts bool
}

func newFakeStore(calendarJSON string) *fakeStore {
	return &fakeStore{objects: map[string][]byte{calendarKey: []byte(calendarJSON)}}
}

func (f *fakeStore) GetObject(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", key)
	}
	return data, nil
}

func (f *fakeStore) PutObject(_ context.Context, key string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPuts {
		return errors.New("upload failed")
	}
	f.objects[key] = data
	return nil
}

type fakeLedger struct {
	mu      sync.Mutex
	entries []*ledger.Entry
}

func (f *fakeLedger) Put(_ context.Context, entry *ledger.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func newTestGenerator(t *testing.T, cfg Config) *Generator {
	t.Helper()
	cfg.CalendarKey = calendarKey
	cfg.ScratchDir = t.TempDir()
	cfg.Log = slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	cfg.Now = func() time.Time { return jan15 }
	gen, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return gen
}

func TestRunSingleOccasion(t *testing.T) {
	images := &fakeImages{}
	store := newFakeStore(`{"january": {"15": ["Hat"]}}`)
	led := &fakeLedger{}

	gen := newTestGenerator(t, Config{Store: store, Images: images, Ledger: led})
	result := gen.Run(context.Background(), jan15)

	if result.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %q", result.StatusCode, result.Body)
	}
	if len(images.calls) != 1 {
		t.Errorf("generation called %d times, want 1", len(images.calls))
	}
	if _, ok := store.objects["images/january_15_0_Hat.jpg"]; !ok {
		t.Errorf("expected uploaded object, have %v", keysOf(store.objects))
	}
	if len(led.entries) != 1 {
		t.Fatalf("ledger has %d entries, want 1", len(led.entries))
	}
	entry := led.entries[0]
	if entry.JobID != "january_15_0_Hat.jpg" {
		t.Errorf("job_id = %q", entry.JobID)
	}
	if entry.Status != ledger.StatusUploaded {
		t.Errorf("status = %q, want %q", entry.Status, ledger.StatusUploaded)
	}
	if entry.Timestamp != jan15.Unix() {
		t.Errorf("timestamp = %d, want %d", entry.Timestamp, jan15.Unix())
	}
}

func TestRunMultipleOccasionsIndexed(t *testing.T) {
	images := &fakeImages{}
	store := newFakeStore(`{"january": {"15": ["Hat", "Bagel", "Cheese Pizza"]}}`)
	led := &fakeLedger{}

	gen := newTestGenerator(t, Config{Store: store, Images: images, Ledger: led})
	result := gen.Run(context.Background(), jan15)

	if result.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %q", result.StatusCode, result.Body)
	}
	for _, key := range []string{
		"images/january_15_0_Hat.jpg",
		"images/january_15_1_Bagel.jpg",
		"images/january_15_2_CheesePizza.jpg",
	} {
		if _, ok := store.objects[key]; !ok {
			t.Errorf("missing uploaded object %s", key)
		}
	}
	if len(led.entries) != 3 {
		t.Errorf("ledger has %d entries, want 3", len(led.entries))
	}
}

func TestRunCalendarMissSkipsGeneration(t *testing.T) {
	images := &fakeImages{}
	store := newFakeStore(`{"march": {"9": ["Bagel"]}}`)
	led := &fakeLedger{}

	gen := newTestGenerator(t, Config{Store: store, Images: images, Ledger: led})
	result := gen.Run(context.Background(), jan15)

	if result.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", result.StatusCode)
	}
	if len(images.calls) != 0 {
		t.Errorf("generation service called %d times on calendar miss", len(images.calls))
	}
	if len(led.entries) != 0 {
		t.Errorf("ledger written on calendar miss")
	}
}

func TestRunGenerationFailureAbortsBeforeUpload(t *testing.T) {
	images := &fakeImages{fail: map[string]bool{"Bagel": true}}
	store := newFakeStore(`{"january": {"15": ["Hat", "Bagel"]}}`)
	led := &fakeLedger{}

	gen := newTestGenerator(t, Config{Store: store, Images: images, Ledger: led})
	result := gen.Run(context.Background(), jan15)

	if result.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", result.StatusCode)
	}
	// All-or-nothing: the generation phase failed, so nothing was uploaded
	if len(store.objects) != 1 { // calendar object only
		t.Errorf("objects uploaded despite aborted generation phase: %v", keysOf(store.objects))
	}
	if len(led.entries) != 0 {
		t.Errorf("ledger written despite aborted run")
	}
}

func TestRunUploadFailureReports500(t *testing.T) {
	images := &fakeImages{}
	store := newFakeStore(`{"january": {"15": ["Hat"]}}`)
	store.failPuts = true
	led := &fakeLedger{}

	gen := newTestGenerator(t, Config{Store: store, Images: images, Ledger: led})
	result := gen.Run(context.Background(), jan15)

	if result.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", result.StatusCode)
	}
	if len(led.entries) != 0 {
		t.Errorf("ledger written despite upload failure")
	}
}

func TestRunContinueOnErrorReportsPartial(t *testing.T) {
	images := &fakeImages{fail: map[string]bool{"Bagel": true}}
	store := newFakeStore(`{"january": {"15": ["Hat", "Bagel"]}}`)
	led := &fakeLedger{}

	gen := newTestGenerator(t, Config{Store: store, Images: images, Ledger: led, ContinueOnError: true})
	result := gen.Run(context.Background(), jan15)

	if result.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %q", result.StatusCode, result.Body)
	}
	if !strings.Contains(result.Body, "1 of 2") {
		t.Errorf("body = %q, want partial report", result.Body)
	}
	if _, ok := store.objects["images/january_15_0_Hat.jpg"]; !ok {
		t.Error("surviving occasion was not uploaded")
	}
	if len(led.entries) != 1 {
		t.Errorf("ledger has %d entries, want 1", len(led.entries))
	}
}

func TestRunContinueOnErrorAllFailed(t *testing.T) {
	images := &fakeImages{fail: map[string]bool{"Hat": true, "Bagel": true}}
	store := newFakeStore(`{"january": {"15": ["Hat", "Bagel"]}}`)
	led := &fakeLedger{}

	gen := newTestGenerator(t, Config{Store: store, Images: images, Ledger: led, ContinueOnError: true})
	result := gen.Run(context.Background(), jan15)

	if result.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 when every item failed", result.StatusCode)
	}
}

func TestRunConcurrent(t *testing.T) {
	images := &fakeImages{}
	store := newFakeStore(`{"january": {"15": ["Hat", "Bagel", "Cheese Pizza", "VideoGames"]}}`)
	led := &fakeLedger{}

	gen := newTestGenerator(t, Config{Store: store, Images: images, Ledger: led, Concurrency: 3})
	result := gen.Run(context.Background(), jan15)

	if result.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %q", result.StatusCode, result.Body)
	}
	if len(led.entries) != 4 {
		t.Errorf("ledger has %d entries, want 4", len(led.entries))
	}
	// Keys must stay index-stable regardless of completion order
	for _, key := range []string{
		"images/january_15_0_Hat.jpg",
		"images/january_15_1_Bagel.jpg",
		"images/january_15_2_CheesePizza.jpg",
		"images/january_15_3_VideoGames.jpg",
	} {
		if _, ok := store.objects[key]; !ok {
			t.Errorf("missing uploaded object %s", key)
		}
	}
}

func keysOf(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
