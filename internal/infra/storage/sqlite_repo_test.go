package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

var epoch = time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *SQLiteEventRepository {
	t.Helper()
	db, err := InitSQLite(filepath.Join(t.TempDir(), "nested", "journal.db"), 2, 1)
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteEventRepository(db)
}

func journalEvent(id, session, typ, actor, phase string, at time.Duration, payload string) JournalEvent {
	return JournalEvent{
		ID:        id,
		SessionID: session,
		Timestamp: epoch.Add(at),
		EventType: typ,
		ActorID:   actor,
		Phase:     phase,
		Payload:   json.RawMessage(payload),
	}
}

func TestAppendAndQueryInJournalOrder(t *testing.T) {
	// Setup
	repo := openTestDB(t)
	ctx := context.Background()
	evs := []JournalEvent{
		journalEvent("e1", "s1", "SESSION_STARTED", "SYSTEM_SPRITE", "AWAKE", 0, `{}`),
		journalEvent("e2", "s1", "INGREDIENT_ADDED", "mathilda", "SELECTING", 2*time.Second, `{"label":"Happy"}`),
		// Same timestamp as e2: order must follow insertion.
		journalEvent("e3", "s1", "INGREDIENT_ADDED", "you", "SELECTING", 2*time.Second, `{"label":"Tired"}`),
		journalEvent("e4", "s2", "SESSION_STARTED", "SYSTEM_SPRITE", "AWAKE", 0, `{}`),
	}

	// Act
	for _, e := range evs {
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("append %s: %v", e.ID, err)
		}
	}
	got, err := repo.GetBySessionID(ctx, "s1")

	// Assert
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 events for s1, got %d", len(got))
	}
	for i, id := range []string{"e1", "e2", "e3"} {
		if got[i].ID != id {
			t.Errorf("Expected event %d to be %s, got %s", i, id, got[i].ID)
		}
	}
	if !got[1].Timestamp.Equal(epoch.Add(2 * time.Second)) {
		t.Errorf("Expected timestamp %v, got %v", epoch.Add(2*time.Second), got[1].Timestamp)
	}
	var p struct{ Label string }
	if err := json.Unmarshal(got[2].Payload, &p); err != nil || p.Label != "Tired" {
		t.Errorf("Expected payload label Tired, got %q (err %v)", p.Label, err)
	}
}

func TestFilterByActorAndType(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	for _, e := range []JournalEvent{
		journalEvent("a", "s", "INGREDIENT_ADDED", "ada", "SELECTING", time.Second, `{}`),
		journalEvent("b", "s", "INGREDIENT_ADDED", "mathilda", "SELECTING", 2*time.Second, `{}`),
		journalEvent("c", "s", "PHASE_CHANGED", "SYSTEM_SPRITE", "BREWING", 3*time.Second, `{}`),
	} {
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	byActor, err := repo.GetByActorID(ctx, "s", "ada")
	if err != nil || len(byActor) != 1 || byActor[0].ID != "a" {
		t.Errorf("Expected only event a for ada, got %v (err %v)", byActor, err)
	}
	byType, err := repo.GetByEventType(ctx, "s", "INGREDIENT_ADDED")
	if err != nil || len(byType) != 2 {
		t.Errorf("Expected 2 INGREDIENT_ADDED events, got %d (err %v)", len(byType), err)
	}

	counts, err := repo.CountByType(ctx, "s")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts["INGREDIENT_ADDED"] != 2 || counts["PHASE_CHANGED"] != 1 {
		t.Errorf("Unexpected counts %v", counts)
	}
}

func TestAppendRejectsDuplicateAndInvalidPayload(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	e := journalEvent("dup", "s", "NARRATION", "SYSTEM_SPRITE", "BREWING", 0, `{"text":"hi"}`)
	if err := repo.Append(ctx, e); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.Append(ctx, e); err == nil {
		t.Error("Expected duplicate event id to fail")
	}

	bad := journalEvent("bad", "s", "NARRATION", "SYSTEM_SPRITE", "BREWING", 0, `{not json`)
	if err := repo.Append(ctx, bad); err == nil {
		t.Error("Expected invalid payload to fail")
	}

	empty := journalEvent("empty", "s", "NARRATION", "SYSTEM_SPRITE", "BREWING", 0, ``)
	if err := repo.Append(ctx, empty); err != nil {
		t.Errorf("Expected empty payload to be stored as null, got %v", err)
	}
}

func TestInMemoryDatabase(t *testing.T) {
	db, err := InitSQLite(MemoryPath, 8, 8)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	defer db.Close()

	repo := NewSQLiteEventRepository(db)
	ctx := context.Background()
	if err := repo.Append(ctx, journalEvent("m", "s", "SESSION_STARTED", "SYSTEM_SPRITE", "AWAKE", 0, `{}`)); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := repo.GetBySessionID(ctx, "s")
	if err != nil || len(got) != 1 {
		t.Errorf("Expected the event on the same in-memory database, got %d (err %v)", len(got), err)
	}
}

func TestSummarize(t *testing.T) {
	evs := []JournalEvent{
		journalEvent("1", "s", "SESSION_STARTED", "SYSTEM_SPRITE", "AWAKE", 0, `{}`),
		journalEvent("2", "s", "PHASE_CHANGED", "SYSTEM_SPRITE", "SELECTING", time.Second, `{}`),
		journalEvent("3", "s", "INGREDIENT_ADDED", "you", "SELECTING", 2*time.Second, `{}`),
		journalEvent("4", "s", "INGREDIENT_ADDED", "you", "SELECTING", 3*time.Second, `{}`),
		journalEvent("5", "s", "INGREDIENT_REMOVED", "you", "SELECTING", 4*time.Second, `{}`),
		journalEvent("6", "s", "ACTION_REJECTED", "you", "SELECTING", 5*time.Second, `{}`),
		journalEvent("7", "s", "PHASE_CHANGED", "SYSTEM_SPRITE", "BREWING", 6*time.Second, `{}`),
		journalEvent("8", "s", "SLEEP_EXTENDED", "you", "SLEEPING", 7*time.Second, `{}`),
		journalEvent("9", "s", "DREAM_OPENED", "you", "AWAKE", 8*time.Second, `[]`),
	}

	s := Summarize("s", evs)

	if s.Brews != 1 || s.Ingredients != 1 || s.Rejections != 1 || s.Extensions != 1 || s.Dreams != 1 {
		t.Errorf("Unexpected summary %+v", s)
	}
	if s.LastPhase != "AWAKE" {
		t.Errorf("Expected last phase AWAKE, got %s", s.LastPhase)
	}
	if !s.StartedAt.Equal(epoch) || !s.LastEventAt.Equal(epoch.Add(8*time.Second)) {
		t.Errorf("Unexpected bounds %v..%v", s.StartedAt, s.LastEventAt)
	}
}

func TestSummaryRebuildAndUpsert(t *testing.T) {
	events := openTestDB(t)
	summaries := NewSQLiteSummaryRepository(events.db)
	ctx := context.Background()

	missing, err := summaries.GetBySessionID(ctx, "s")
	if err != nil || missing != nil {
		t.Fatalf("Expected no summary yet, got %v (err %v)", missing, err)
	}

	evs := []JournalEvent{
		journalEvent("1", "s", "SESSION_STARTED", "SYSTEM_SPRITE", "AWAKE", 0, `{}`),
		journalEvent("2", "s", "PHASE_CHANGED", "SYSTEM_SPRITE", "BREWING", time.Second, `{}`),
	}
	if err := summaries.RebuildFromEvents(ctx, "s", evs); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	evs = append(evs, journalEvent("3", "s", "PHASE_CHANGED", "SYSTEM_SPRITE", "BREWING", 2*time.Second, `{}`))
	if err := summaries.RebuildFromEvents(ctx, "s", evs); err != nil {
		t.Fatalf("rebuild again: %v", err)
	}

	got, err := summaries.GetBySessionID(ctx, "s")
	if err != nil || got == nil {
		t.Fatalf("get: %v", err)
	}
	if got.Brews != 2 || got.LastPhase != "BREWING" {
		t.Errorf("Expected 2 brews ending in BREWING, got %+v", got)
	}

	all, err := summaries.List(ctx)
	if err != nil || len(all) != 1 {
		t.Errorf("Expected one listed summary, got %d (err %v)", len(all), err)
	}
}
