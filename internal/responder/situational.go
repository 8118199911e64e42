package responder

import "time"

// Situation is the environmental context handed to the composer. The
// composed instructions allow quoting these facts but forbid
// volunteering them.
type Situation struct {
	TimeOfDay string // morning, afternoon, evening, night
	Season    string
	Location  string
	LocalTime time.Time
}

// CurrentSituation buckets the local time and season for a location.
// tz may be nil for UTC.
func CurrentSituation(now time.Time, location string, tz *time.Location) Situation {
	if tz != nil {
		now = now.In(tz)
	}
	return Situation{
		TimeOfDay: timeOfDayBucket(now.Hour()),
		Season:    seasonOf(now.Month()),
		Location:  location,
		LocalTime: now,
	}
}

func timeOfDayBucket(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 18:
		return "afternoon"
	case hour >= 18 && hour < 23:
		return "evening"
	default:
		return "night"
	}
}

func seasonOf(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "winter"
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	default:
		return "autumn"
	}
}
