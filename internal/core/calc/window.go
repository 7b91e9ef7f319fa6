package calc

// HourWindow builds the ordered list of hours in the half-open window
// [start, end). A window whose end precedes its start wraps past midnight.
// start == end is an empty window, not a full day.
func HourWindow(start, end int) []int {
	start = normalizeHour(start)
	end = normalizeHour(end)
	if start == end {
		return nil
	}
	var hours []int
	if start < end {
		for h := start; h < end; h++ {
			hours = append(hours, h)
		}
		return hours
	}
	for h := start; h < 24; h++ {
		hours = append(hours, h)
	}
	for h := 0; h < end; h++ {
		hours = append(hours, h)
	}
	return hours
}

// InWindow reports whether hour falls inside the half-open window
// [start, end), with the same wrap semantics as HourWindow.
func InWindow(hour, start, end int) bool {
	hour = normalizeHour(hour)
	start = normalizeHour(start)
	end = normalizeHour(end)
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

func normalizeHour(h int) int {
	h %= 24
	if h < 0 {
		h += 24
	}
	return h
}
