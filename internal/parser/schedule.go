// Package parser turns the portal's timetable markup into class records.
package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/umstimetable/timetable-api/internal/models"
)

const (
	daySelector   = ".w-schedule__day"
	labelSelector = ".w-schedule__col-label"
	eventSelector = ".w-schedule__event-wrapper"
)

// ParseSchedule returns one record per event that has both a title and a
// time handler, in document order grouped by day.
func ParseSchedule(markup string) ([]models.ClassRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse timetable markup: %w", err)
	}

	records := []models.ClassRecord{}

	doc.Find(daySelector).Each(func(_ int, day *goquery.Selection) {
		dayName := strings.TrimSpace(day.Find(labelSelector).Text())

		day.Find(eventSelector).Each(func(_ int, event *goquery.Selection) {
			title, _ := event.Attr("title")
			handler, _ := event.Find("a").First().Attr("onclick")
			if title == "" || handler == "" {
				return
			}

			records = append(records, NewRecord(dayName, title, FormatAttendanceTime(ExtractClockRange(handler))))
		})
	})

	return records, nil
}

// NewRecord builds a fully populated record from the raw event fields
func NewRecord(day, description, attendanceTime string) models.ClassRecord {
	info := ParseDescription(description)

	timeRange, err := ParseTimeRange(attendanceTime)
	if err != nil {
		attendanceTime = DefaultAttendanceTime
		timeRange, _ = ParseTimeRange(DefaultAttendanceTime)
	}

	return models.ClassRecord{
		Description:    description,
		AttendanceTime: attendanceTime,
		Day:            day,
		CourseCode:     info.Course,
		CourseName:     info.CourseName,
		Room:           info.Room,
		Building:       info.Building,
		RoomNumber:     info.RoomNumber,
		Group:          info.Group,
		Section:        info.Section,
		Type:           info.Type,
		ParsedInfo:     info,
		TimeRange:      timeRange,
	}
}
