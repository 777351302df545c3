package domain

import (
	"math/rand"
	"testing"
	"time"
)

func TestOverlapsBoundaries(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	at := func(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd int
		want                       bool
	}{
		{"identical", 0, 30, 0, 30, true},
		{"partial", 0, 30, 15, 45, true},
		{"contained", 0, 60, 15, 45, true},
		{"end touches start", 0, 30, 30, 60, false},
		{"start touches end", 30, 60, 0, 30, false},
		{"disjoint", 0, 30, 120, 150, false},
	}

	for _, tc := range cases {
		if got := Overlaps(at(tc.aStart), at(tc.aEnd), at(tc.bStart), at(tc.bEnd)); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

// Every pair of random 30 minute meetings on a 5 minute grid is flagged
// exactly when the two minute-sets intersect.
func TestOverlapsMatchesMinuteSets(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 5000; i++ {
		a := rng.Intn(96) * 5
		b := rng.Intn(96) * 5
		aStart, bStart := base.Add(time.Duration(a)*time.Minute), base.Add(time.Duration(b)*time.Minute)

		shared := false
		for m := a; m < a+30; m++ {
			if m >= b && m < b+30 {
				shared = true
				break
			}
		}

		got := Overlaps(aStart, MeetingEnd(aStart), bStart, MeetingEnd(bStart))
		if got != shared {
			t.Fatalf("a=%d b=%d: Overlaps=%v, minute sets intersect=%v", a, b, got, shared)
		}
		if got != Overlaps(bStart, MeetingEnd(bStart), aStart, MeetingEnd(aStart)) {
			t.Fatalf("a=%d b=%d: Overlaps is not symmetric", a, b)
		}
	}
}

func TestFreeSlots(t *testing.T) {
	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	busy := []Interval{{Start: day.Add(30 * time.Minute), End: day.Add(60 * time.Minute)}}

	slots := FreeSlots(day, day.Add(2*time.Hour), MeetingDuration, busy)
	if len(slots) != 3 {
		t.Fatalf("expected 3 free slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(day) || !slots[1].Start.Equal(day.Add(time.Hour)) {
		t.Fatalf("unexpected slots %+v", slots)
	}
	if FreeSlots(day, day.Add(time.Hour), 0, nil) != nil {
		t.Fatal("zero slot size must yield no slots")
	}
}
