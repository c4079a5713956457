package store

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"fleetwatch/pkg/domain"
)

func TestMemoryStoreDuplicateUsername(t *testing.T) {
	s := NewMemoryStore()
	first, err := s.CreateUser(domain.User{Username: "alice", Role: domain.RoleDoctor})
	if err != nil {
		t.Fatalf("create first user: %v", err)
	}
	if _, err := s.CreateUser(domain.User{Username: "alice", Role: domain.RolePolice}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("duplicate username: got %v, want ErrUsernameTaken", err)
	}
	// The first account must be unaffected.
	got, ok, err := s.GetUserByUsername("alice")
	if err != nil || !ok {
		t.Fatalf("lookup first user: ok=%v err=%v", ok, err)
	}
	if got.ID != first.ID || got.Role != domain.RoleDoctor {
		t.Fatalf("first user changed after failed duplicate: %+v", got)
	}
}

func TestMemoryStoreInsertReadingAssignsServerTime(t *testing.T) {
	s := NewMemoryStore()
	before := time.Now().UTC()
	id, err := s.InsertReading("amb01", json.RawMessage(`{"latitude":1,"longitude":2}`))
	if err != nil {
		t.Fatalf("insert reading: %v", err)
	}
	after := time.Now().UTC()
	readings, err := s.ListRecentReadings(10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(readings) != 1 || readings[0].ID != id {
		t.Fatalf("unexpected readings: %+v", readings)
	}
	got := readings[0].RecordedAt
	if got.Before(before) || got.After(after) {
		t.Fatalf("recorded_at %v outside insert window [%v, %v]", got, before, after)
	}
}

func TestMemoryStoreListRecentReadingsNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	for i := 0; i < 60; i++ {
		if _, err := s.InsertReading("amb01", json.RawMessage(`{"n":1}`)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	readings, err := s.ListRecentReadings(50)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(readings) != 50 {
		t.Fatalf("got %d readings, want 50", len(readings))
	}
	for i := 1; i < len(readings); i++ {
		if readings[i-1].ID <= readings[i].ID {
			t.Fatalf("readings not newest-first at index %d: %d then %d", i, readings[i-1].ID, readings[i].ID)
		}
	}
	if readings[0].ID != 60 {
		t.Fatalf("newest reading ID = %d, want 60", readings[0].ID)
	}
}

func TestMemoryStoreLatestReadingPerVehicleMaxID(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.InsertReading("A", json.RawMessage(`{"seq":1}`)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	id2, err := s.InsertReading("A", json.RawMessage(`{"seq":2}`))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	id3, err := s.InsertReading("B", json.RawMessage(`{"seq":3}`))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	latest, err := s.ListLatestReadingPerVehicle()
	if err != nil {
		t.Fatalf("list latest: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("got %d vehicles, want 2", len(latest))
	}
	byVehicle := make(map[string]domain.Reading, len(latest))
	for _, r := range latest {
		byVehicle[r.VehicleID] = r
	}
	if byVehicle["A"].ID != id2 {
		t.Fatalf("vehicle A latest ID = %d, want %d", byVehicle["A"].ID, id2)
	}
	if byVehicle["B"].ID != id3 {
		t.Fatalf("vehicle B latest ID = %d, want %d", byVehicle["B"].ID, id3)
	}
}
