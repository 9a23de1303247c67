package history

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"sentryguard/internal/model"
	"sentryguard/internal/storage"
)

func alertN(n int) model.SentryAlert {
	return model.SentryAlert{
		ID:        fmt.Sprintf("alert-%03d", n),
		EventID:   fmt.Sprintf("event-%03d", n),
		Timestamp: time.Now().UTC(),
		Level:     model.LevelHigh,
		Type:      "Identity Theft Attempt",
		Status:    model.StatusSent,
	}
}

func TestNewestFirstOrder(t *testing.T) {
	s := NewStore(50, nil, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.Append(ctx, alertN(i))
	}
	list := s.List(0)
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	if list[0].ID != "alert-002" || list[2].ID != "alert-000" {
		t.Fatalf("order wrong: %s .. %s", list[0].ID, list[2].ID)
	}
	latest, ok := s.Latest()
	if !ok || latest.ID != "alert-002" {
		t.Fatalf("latest = %v %v", latest.ID, ok)
	}
}

func TestCapEvictsOldest(t *testing.T) {
	s := NewStore(50, nil, nil)
	ctx := context.Background()
	for i := 0; i < 55; i++ {
		s.Append(ctx, alertN(i))
	}
	if s.Len() != 50 {
		t.Fatalf("len = %d, want 50", s.Len())
	}
	list := s.List(0)
	if list[0].ID != "alert-054" {
		t.Fatalf("head = %s, want alert-054", list[0].ID)
	}
	if list[49].ID != "alert-005" {
		t.Fatalf("tail = %s, want alert-005", list[49].ID)
	}
	// The five oldest are gone.
	for i := 0; i < 5; i++ {
		if _, ok := s.Get(fmt.Sprintf("alert-%03d", i)); ok {
			t.Fatalf("alert-%03d should be evicted", i)
		}
	}
}

func TestListLimit(t *testing.T) {
	s := NewStore(50, nil, nil)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		s.Append(ctx, alertN(i))
	}
	list := s.List(3)
	if len(list) != 3 || list[0].ID != "alert-009" {
		t.Fatalf("limited list wrong: %v", list)
	}
}

func TestUpdateOnlyWhileSent(t *testing.T) {
	s := NewStore(50, nil, nil)
	ctx := context.Background()
	s.Append(ctx, alertN(0))

	transition := func(a *model.SentryAlert) bool {
		if a.Status != model.StatusSent {
			return false
		}
		a.Status = model.StatusAcknowledged
		return true
	}

	if _, ok := s.Update(ctx, "alert-000", transition); !ok {
		t.Fatalf("first update should apply")
	}
	if _, ok := s.Update(ctx, "alert-000", transition); ok {
		t.Fatalf("second update should be a no-op")
	}
	got, _ := s.Get("alert-000")
	if got.Status != model.StatusAcknowledged {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	s := NewStore(50, nil, nil)
	if _, ok := s.Update(context.Background(), "missing", func(*model.SentryAlert) bool { return true }); ok {
		t.Fatalf("update of unknown id should report false")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	db := storage.NewMemory()
	ctx := context.Background()

	s := NewStore(50, db, nil)
	for i := 0; i < 3; i++ {
		s.Append(ctx, alertN(i))
	}

	reloaded := NewStore(50, db, nil)
	reloaded.Load(ctx)
	if !reflect.DeepEqual(reloaded.List(0), s.List(0)) {
		t.Fatalf("reloaded list differs:\n got %v\nwant %v", reloaded.List(0), s.List(0))
	}
	if latest, ok := reloaded.Latest(); !ok || latest.ID != "alert-002" {
		t.Fatalf("latest after reload = %v %v", latest.ID, ok)
	}
}

// setOrderStore records the decoded length of every full-list write so
// the test can assert writes commit in mutation order.
type setOrderStore struct {
	storage.Store
	mu   sync.Mutex
	lens []int
}

func (r *setOrderStore) Set(ctx context.Context, key string, value []byte) error {
	var list []model.SentryAlert
	if err := json.Unmarshal(value, &list); err != nil {
		return err
	}
	r.mu.Lock()
	r.lens = append(r.lens, len(list))
	r.mu.Unlock()
	return r.Store.Set(ctx, key, value)
}

func TestConcurrentAppendsPersistInOrder(t *testing.T) {
	db := &setOrderStore{Store: storage.NewMemory()}
	s := NewStore(50, db, nil)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Append(ctx, alertN(n))
		}(i)
	}
	wg.Wait()

	// Each write must carry at least as many alerts as the one before
	// it; an older snapshot overwriting a newer one shows up as a dip.
	db.mu.Lock()
	lens := append([]int(nil), db.lens...)
	db.mu.Unlock()
	if len(lens) != writers {
		t.Fatalf("persist count = %d, want %d", len(lens), writers)
	}
	for i := 1; i < len(lens); i++ {
		if lens[i] < lens[i-1] {
			t.Fatalf("persist order regressed at write %d: %v", i, lens)
		}
	}

	// Durable state matches memory: nothing evaporated.
	data, err := db.Get(ctx, storage.KeyAlerts)
	if err != nil {
		t.Fatalf("get persisted history: %v", err)
	}
	var persisted []model.SentryAlert
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("decode persisted history: %v", err)
	}
	if !reflect.DeepEqual(persisted, s.List(0)) {
		t.Fatalf("persisted history diverged from memory:\n got %d entries\nwant %d", len(persisted), s.Len())
	}
}
