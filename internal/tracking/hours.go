package tracking

// DaysOfWeek lists the two letter day abbreviations used in opening hours.
var DaysOfWeek = [7]string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

// DayIndex returns the position of abbr in DaysOfWeek, or -1.
func DayIndex(abbr string) int {
	for i, d := range DaysOfWeek {
		if d == abbr {
			return i
		}
	}
	return -1
}
