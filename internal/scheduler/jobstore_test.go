package scheduler

import (
	"testing"
	"time"
)

func TestJobStorePutReplacesSameID(t *testing.T) {
	s := NewJobStore()
	base := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	s.Put(Job{ID: "hw:1h:1", Kind: KindHomeworkReminder, FireAt: base})
	s.Put(Job{ID: "hw:1h:1", Kind: KindHomeworkReminder, FireAt: base.Add(time.Hour)})

	if s.Len() != 1 {
		t.Fatalf("same ID must replace, got %d jobs", s.Len())
	}
	j, ok := s.Get("hw:1h:1")
	if !ok || !j.FireAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("want the later registration to win, got %v", j)
	}
}

func TestJobStoreDueConsumes(t *testing.T) {
	s := NewJobStore()
	base := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	s.Put(Job{ID: "hw:1h:1", Kind: KindHomeworkReminder, FireAt: base.Add(-time.Minute)})
	s.Put(Job{ID: "hw:24h:1", Kind: KindHomeworkReminder, FireAt: base}) // due exactly now
	s.Put(Job{ID: "lesson:1h:2", Kind: KindLessonReminder, FireAt: base.Add(time.Minute)})

	due := s.Due(base)
	if len(due) != 2 {
		t.Fatalf("want 2 due jobs, got %d: %v", len(due), due)
	}
	if due[0].ID != "hw:1h:1" || due[1].ID != "hw:24h:1" {
		t.Fatalf("due jobs not ordered by fire time: %v", due)
	}
	if s.Len() != 1 {
		t.Fatalf("due jobs must be consumed, %d left", s.Len())
	}
	if again := s.Due(base); len(again) != 0 {
		t.Fatalf("second Due at the same instant must be empty, got %v", again)
	}
}

func TestReplaceDerivedKeepsSingletons(t *testing.T) {
	s := NewJobStore()
	base := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	s.Put(Job{ID: LateSweepJobID, Kind: KindLateSweep, FireAt: base.Add(6 * time.Hour)})
	s.Put(Job{ID: LivesSweepJobID, Kind: KindLivesSweep, FireAt: base.Add(24 * time.Hour)})
	s.Put(Job{ID: "hw:1h:1", Kind: KindHomeworkReminder, FireAt: base.Add(time.Hour)})
	s.Put(Job{ID: "lesson:1h:2", Kind: KindLessonReminder, FireAt: base.Add(2 * time.Hour)})

	s.ReplaceDerived([]Job{
		{ID: "hw:24h:9", Kind: KindHomeworkReminder, FireAt: base.Add(3 * time.Hour)},
	})

	if s.Len() != 3 {
		t.Fatalf("want 2 singletons + 1 derived, got %d", s.Len())
	}
	if _, ok := s.Get(LateSweepJobID); !ok {
		t.Fatal("late sweep singleton lost on recompute")
	}
	if _, ok := s.Get(LivesSweepJobID); !ok {
		t.Fatal("lives sweep singleton lost on recompute")
	}
	if _, ok := s.Get("hw:1h:1"); ok {
		t.Fatal("old derived job survived recompute")
	}
	if _, ok := s.Get("hw:24h:9"); !ok {
		t.Fatal("new derived job missing after recompute")
	}

	// An empty recompute cancels every reminder but never a sweep.
	s.ReplaceDerived(nil)
	if s.Len() != 2 {
		t.Fatalf("want only the singletons, got %d", s.Len())
	}
}

func TestSnapshotOrder(t *testing.T) {
	s := NewJobStore()
	base := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	s.Put(Job{ID: "hw:1h:2", Kind: KindHomeworkReminder, FireAt: base.Add(time.Hour)})
	s.Put(Job{ID: "hw:1h:1", Kind: KindHomeworkReminder, FireAt: base.Add(time.Hour)})
	s.Put(Job{ID: "lesson:1h:3", Kind: KindLessonReminder, FireAt: base})

	snap := s.Snapshot()
	want := []string{"lesson:1h:3", "hw:1h:1", "hw:1h:2"}
	if len(snap) != len(want) {
		t.Fatalf("want %d jobs, got %d", len(want), len(snap))
	}
	for i, id := range want {
		if snap[i].ID != id {
			t.Fatalf("position %d: want %s, got %s", i, id, snap[i].ID)
		}
	}
}
