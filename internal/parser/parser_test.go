package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umstimetable/timetable-api/internal/models"
)

func TestParseDescription(t *testing.T) {
	info := ParseDescription("C:CAP455 R:26-602D G:All S:A1")

	assert.Equal(t, models.ClassLecture, info.Type)
	assert.Equal(t, "CAP455", info.Course)
	assert.Equal(t, "OBJECT ORIENTED PROGRAMMING USING C++", info.CourseName)
	assert.Equal(t, "26", info.Building)
	assert.Equal(t, "602D", info.RoomNumber)
	assert.Equal(t, "All", info.Group)
	assert.Equal(t, "A1", info.Section)
}

func TestParseDescription_Variants(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        models.ClassInfo
	}{
		{
			name:        "practical with slash separated fields",
			description: "Practical / G:2 C:CAP443 / R: 34-301b / S:D2312",
			want: models.ClassInfo{
				Type:       models.ClassPractical,
				Course:     "CAP443",
				CourseName: "LINUX AND SHELL SCRIPTING - LAB",
				Room:       "34-301b",
				Building:   "34",
				RoomNumber: "301B",
				Group:      "2",
				Section:    "D2312",
			},
		},
		{
			name:        "tutorial with unknown course",
			description: "Tutorial C:XYZ999 R:MainHall\r\nG:all",
			want: models.ClassInfo{
				Type:       models.ClassTutorial,
				Course:     "XYZ999",
				CourseName: "XYZ999",
				Room:       "MainHall",
				Building:   "",
				RoomNumber: "MainHall",
				Group:      "all",
			},
		},
		{
			name:        "no markers",
			description: "Seminar",
			want: models.ClassInfo{
				Type:       models.ClassLecture,
				Course:     "Unknown",
				CourseName: "Unknown Course",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDescription(tt.description))
		})
	}
}

func TestSplitRoom(t *testing.T) {
	tests := []struct {
		room         string
		wantBuilding string
		wantNumber   string
	}{
		{room: "26-602D", wantBuilding: "26", wantNumber: "602D"},
		{room: "26-602 d", wantBuilding: "26", wantNumber: "602D"},
		{room: "38-710", wantBuilding: "38", wantNumber: "710"},
		{room: "BLK-A 12", wantBuilding: "BLK", wantNumber: "A12"},
		{room: "Auditorium", wantBuilding: "", wantNumber: "Auditorium"},
	}

	for _, tt := range tests {
		t.Run(tt.room, func(t *testing.T) {
			building, number := SplitRoom(tt.room)
			assert.Equal(t, tt.wantBuilding, building)
			assert.Equal(t, tt.wantNumber, number)
		})
	}
}

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		label string
		want  models.TimeRange
	}{
		{label: "09-10 AM", want: models.TimeRange{Start: 540, End: 600}},
		{label: "12-01 PM", want: models.TimeRange{Start: 720, End: 780}},
		// end not after start is stretched to one hour
		{label: "11-12 PM", want: models.TimeRange{Start: 1380, End: 1440}},
		{label: "1-2 PM", want: models.TimeRange{Start: 780, End: 840}},
		{label: "11-12 AM", want: models.TimeRange{Start: 660, End: 720}},
		{label: "12-1 AM", want: models.TimeRange{Start: 0, End: 60}},
		{label: "11-1 AM", want: models.TimeRange{Start: 660, End: 780}},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseTimeRange(tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimeRange_Invalid(t *testing.T) {
	for _, label := range []string{"", "soon", "a-b PM", "9-x AM"} {
		_, err := ParseTimeRange(label)
		assert.Error(t, err, label)
	}
}

func TestFormatAttendanceTime(t *testing.T) {
	tests := []struct {
		clock string
		want  string
	}{
		{clock: "09:00-10:00", want: "9-10 AM"},
		{clock: "11:00-12:00", want: "11-12 AM"},
		{clock: "12:00-13:00", want: "12-13 PM"},
		{clock: "15:00-16:00", want: "3-4 PM"},
		{clock: "", want: DefaultAttendanceTime},
		{clock: "xx:00-10:00", want: DefaultAttendanceTime},
	}

	for _, tt := range tests {
		t.Run(tt.clock, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAttendanceTime(tt.clock))
		})
	}
}

func TestExtractClockRange(t *testing.T) {
	assert.Equal(t, "13:00-14:00", ExtractClockRange(`ShowDetail("CAP455","13:00-14:00","Monday")`))
	assert.Equal(t, "", ExtractClockRange(`ShowDetail("CAP455")`))
}

const scheduleFragment = `
<div class="w-schedule">
  <div class="w-schedule__day">
    <div class="w-schedule__col-label"> Monday </div>
    <div class="w-schedule__event-wrapper" title="Lecture / C:CAP455 / R: 26-602D / G:All / S:A1">
      <a onclick='ShowDetail("CAP455","09:00-10:00")'>CAP455</a>
    </div>
    <div class="w-schedule__event-wrapper" title="Practical / C:CAP443 / R: 34-301 / G:1 / S:A1">
      <a onclick='ShowDetail("CAP443","13:00-14:00")'>CAP443</a>
    </div>
    <div class="w-schedule__event-wrapper" title="">
      <a onclick='ShowDetail("X","10:00-11:00")'>empty title</a>
    </div>
  </div>
  <div class="w-schedule__day">
    <div class="w-schedule__col-label">Tuesday</div>
    <div class="w-schedule__event-wrapper" title="Tutorial / C:PEA515 / R: 57-101">
      <a onclick="noTime()">PEA515</a>
    </div>
    <div class="w-schedule__event-wrapper" title="Lecture / C:PEL544">
      <span>no link</span>
    </div>
  </div>
</div>`

func TestParseSchedule(t *testing.T) {
	records, err := ParseSchedule(scheduleFragment)
	require.NoError(t, err)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, "Monday", first.Day)
	assert.Equal(t, "CAP455", first.CourseCode)
	assert.Equal(t, "9-10 AM", first.AttendanceTime)
	assert.Equal(t, models.TimeRange{Start: 540, End: 600}, first.TimeRange)
	assert.Equal(t, "26", first.Building)
	assert.Equal(t, "602D", first.RoomNumber)
	assert.Equal(t, "All", first.Group)
	assert.Equal(t, "A1", first.Section)
	assert.Equal(t, first.ParsedInfo.Room, first.Room)

	second := records[1]
	assert.Equal(t, models.ClassPractical, second.Type)
	assert.Equal(t, "1-2 PM", second.AttendanceTime)
	assert.Equal(t, models.TimeRange{Start: 780, End: 840}, second.TimeRange)

	third := records[2]
	assert.Equal(t, "Tuesday", third.Day)
	assert.Equal(t, models.ClassTutorial, third.Type)
	assert.Equal(t, DefaultAttendanceTime, third.AttendanceTime)
	assert.Equal(t, "ANALYTICAL SKILLS-I", third.CourseName)
}

func TestParseSchedule_Empty(t *testing.T) {
	records, err := ParseSchedule("")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestParseSchedule_StartBeforeEnd(t *testing.T) {
	records, err := ParseSchedule(scheduleFragment)
	require.NoError(t, err)
	for _, r := range records {
		assert.Less(t, r.TimeRange.Start, r.TimeRange.End, r.Description)
	}
}
