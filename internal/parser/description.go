package parser

import (
	"regexp"
	"strings"

	"github.com/umstimetable/timetable-api/internal/models"
)

const (
	unknownCourse     = "Unknown"
	unknownCourseName = "Unknown Course"
)

var (
	courseRe       = regexp.MustCompile(`C:([A-Z0-9]+)`)
	roomRe         = regexp.MustCompile(`R:\s*([^\r\n\\/]+)`)
	buildingRoomRe = regexp.MustCompile(`(\d+)-(\d+)\s*([A-Za-z])?`)
	groupRe        = regexp.MustCompile(`(?i)G:(\d+|All)`)
	sectionRe      = regexp.MustCompile(`S:([A-Z0-9]+)`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// courseNames are the programme's known course titles
var courseNames = map[string]string{
	"CAP100M": "PROGRAMME ORIENTATION",
	"CAP443":  "LINUX AND SHELL SCRIPTING - LAB",
	"CAP455":  "OBJECT ORIENTED PROGRAMMING USING C++",
	"CAP476":  "DATA COMMUNICATION AND NETWORKING",
	"CAP478":  "DATA COMMUNICATION AND NETWORKING-LABORATORY",
	"CAP570":  "ADVANCED DATABASE TECHNIQUES",
	"CAP598":  "SOFTWARE ENGINEERING AND PROJECT MANAGEMENT",
	"PEA515":  "ANALYTICAL SKILLS-I",
	"PEL544":  "CORPORATE COMMUNICATION SKILLS",
	"PETV67":  "BUILDING WEALTH",
}

// CourseName resolves a course code, falling back to the code itself
func CourseName(code string) string {
	if name, ok := courseNames[code]; ok {
		return name
	}
	return code
}

// ParseDescription decodes an event title such as
// "Lecture / C:CAP455 / R: 26-602D / G:All / S:A1"
func ParseDescription(description string) models.ClassInfo {
	info := models.ClassInfo{
		Type:       models.ClassLecture,
		Course:     unknownCourse,
		CourseName: unknownCourseName,
	}

	switch {
	case strings.Contains(description, "Practical"):
		info.Type = models.ClassPractical
	case strings.Contains(description, "Tutorial"):
		info.Type = models.ClassTutorial
	}

	if m := courseRe.FindStringSubmatch(description); m != nil {
		info.Course = m[1]
		info.CourseName = CourseName(m[1])
	}

	if m := roomRe.FindStringSubmatch(description); m != nil {
		info.Room = strings.TrimSpace(m[1])
		info.Building, info.RoomNumber = SplitRoom(info.Room)
	}

	if m := groupRe.FindStringSubmatch(description); m != nil {
		info.Group = m[1]
	}

	if m := sectionRe.FindStringSubmatch(description); m != nil {
		info.Section = m[1]
	}

	return info
}

// SplitRoom breaks a room token like "26-602D" into building and room number
func SplitRoom(room string) (building, roomNumber string) {
	if m := buildingRoomRe.FindStringSubmatch(room); m != nil {
		return m[1], m[2] + strings.ToUpper(m[3])
	}
	if before, after, ok := strings.Cut(room, "-"); ok {
		return before, whitespaceRe.ReplaceAllString(after, "")
	}
	return "", room
}
