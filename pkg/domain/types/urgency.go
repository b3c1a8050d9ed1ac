package types

// Urgency is the classification of a task's time-to-deadline
type Urgency string

const (
	UrgencyNone     Urgency = "none"
	UrgencyOverdue  Urgency = "overdue"
	UrgencyCritical Urgency = "critical"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyNormal   Urgency = "normal"
)

// Rank orders buckets from most to least pressing. Lower is more urgent.
// UrgencyNone sorts last because completed tasks need no attention.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyOverdue:
		return 0
	case UrgencyCritical:
		return 1
	case UrgencyUrgent:
		return 2
	case UrgencyNormal:
		return 3
	default:
		return 4
	}
}

// IsPressing reports whether the bucket belongs on the urgent-task widget
func (u Urgency) IsPressing() bool {
	return u == UrgencyOverdue || u == UrgencyCritical || u == UrgencyUrgent
}

func (u Urgency) String() string {
	return string(u)
}
