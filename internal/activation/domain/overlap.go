package domain

import "time"

// MeetingDuration is the fixed length of every activation meeting.
const MeetingDuration = 30 * time.Minute

// MeetingEnd returns the end of a meeting starting at start.
func MeetingEnd(start time.Time) time.Time {
	return start.Add(MeetingDuration)
}

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) intersect.
// Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Interval is a half-open time window.
type Interval struct {
	Start time.Time
	End   time.Time
}

// FreeSlots splits [windowStart, windowEnd) into consecutive slots of length
// size and drops every slot overlapping a busy interval.
func FreeSlots(windowStart, windowEnd time.Time, size time.Duration, busy []Interval) []Interval {
	if size <= 0 {
		return nil
	}
	var slots []Interval
	for start := windowStart; !start.Add(size).After(windowEnd); start = start.Add(size) {
		end := start.Add(size)
		free := true
		for _, b := range busy {
			if Overlaps(start, end, b.Start, b.End) {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, Interval{Start: start, End: end})
		}
	}
	return slots
}
