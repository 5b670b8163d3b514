package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/umstimetable/timetable-api/internal/models"
)

// DefaultAttendanceTime is used when an event carries no usable time
const DefaultAttendanceTime = "09-10 AM"

var clockRangeRe = regexp.MustCompile(`"(\d{2}:\d{2}-\d{2}:\d{2})"`)

// ExtractClockRange finds the quoted HH:MM-HH:MM token in an inline handler
func ExtractClockRange(handler string) string {
	if m := clockRangeRe.FindStringSubmatch(handler); m != nil {
		return m[1]
	}
	return ""
}

// FormatAttendanceTime converts "13:00-14:00" to the 12 hour label "1-2 PM"
func FormatAttendanceTime(clockRange string) string {
	startTime, endTime, ok := strings.Cut(clockRange, "-")
	if !ok {
		return DefaultAttendanceTime
	}

	startHour, err1 := leadingHour(startTime)
	endHour, err2 := leadingHour(endTime)
	if err1 != nil || err2 != nil {
		return DefaultAttendanceTime
	}

	switch {
	case startHour < 12:
		return fmt.Sprintf("%d-%d AM", startHour, endHour)
	case startHour == 12:
		return fmt.Sprintf("%d-%d PM", startHour, endHour)
	default:
		return fmt.Sprintf("%d-%d PM", startHour-12, endHour-12)
	}
}

func leadingHour(clock string) (int, error) {
	hour, _, _ := strings.Cut(strings.TrimSpace(clock), ":")
	return strconv.Atoi(hour)
}

// ParseTimeRange converts a label like "09-10 AM" to minutes since midnight.
//
// A PM range whose end does not come after its start is stretched to one
// hour; upstream occasionally sends such ranges.
func ParseTimeRange(label string) (models.TimeRange, error) {
	hours, period, _ := strings.Cut(strings.TrimSpace(label), " ")
	startStr, endStr, ok := strings.Cut(hours, "-")
	if !ok {
		return models.TimeRange{}, fmt.Errorf("invalid time range %q", label)
	}

	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return models.TimeRange{}, fmt.Errorf("invalid start hour in %q: %w", label, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(endStr))
	if err != nil {
		return models.TimeRange{}, fmt.Errorf("invalid end hour in %q: %w", label, err)
	}

	switch strings.ToUpper(strings.TrimSpace(period)) {
	case "PM":
		if start != 12 {
			start += 12
		}
		if end != 12 {
			end += 12
		}
		if end <= start {
			end = start + 1
		}
	case "AM":
		if start == 12 {
			start = 0
		}
		if end != 12 && end < start {
			end += 12
		}
	}

	return models.TimeRange{Start: start * 60, End: end * 60}, nil
}
