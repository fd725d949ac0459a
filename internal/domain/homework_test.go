package domain

import (
	"testing"
	"time"
)

func TestHomeworkIsLate(t *testing.T) {
	deadline := time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC)
	hw := Homework{Deadline: deadline}

	if hw.IsLate(deadline.Add(-time.Minute)) {
		t.Fatal("not late before the deadline")
	}
	if hw.IsLate(deadline) {
		t.Fatal("not late exactly at the deadline")
	}
	if !hw.IsLate(deadline.Add(time.Minute)) {
		t.Fatal("late after the deadline")
	}

	hw.IsCompleted = true
	if hw.IsLate(deadline.Add(time.Hour)) {
		t.Fatal("completed homework is never late")
	}
}

func TestLivesPolicyClamp(t *testing.T) {
	p := LivesPolicy{MaxLives: 5}
	cases := []struct{ in, want int }{
		{-3, 0}, {0, 0}, {3, 3}, {5, 5}, {9, 5},
	}
	for _, c := range cases {
		if got := p.Clamp(c.in); got != c.want {
			t.Fatalf("Clamp(%d): want %d, got %d", c.in, c.want, got)
		}
	}
}
