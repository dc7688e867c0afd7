package coordinator

import "time"

const (
	// windowLag keeps windows clear of writes still being propagated
	windowLag = 10 * time.Minute
	// minorWindowLength is the span reconciled by a minor pass
	minorWindowLength = time.Hour
	// majorWindowLag is how far behind the minor window end a major pass starts
	majorWindowLag = 2 * time.Hour
)

// MinorWindow returns the [start, end) window reconciled by a minor pass
// started at t: the hour before t's hour, shifted back by ten minutes.
func MinorWindow(t time.Time) (start, end time.Time) {
	hour := t.UTC().Truncate(time.Hour)
	end = hour.Add(-windowLag)
	start = end.Add(-minorWindowLength)
	return start, end
}

// MajorWindowStart returns the cutoff of a major pass started at t. The pass
// reconciles every note modified strictly before it.
func MajorWindowStart(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour).Add(-windowLag).Add(-majorWindowLag)
}
