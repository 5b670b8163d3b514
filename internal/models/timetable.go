package models

import "time"

// ClassType is the kind of session a schedule event describes
type ClassType string

const (
	ClassLecture   ClassType = "Lecture"
	ClassPractical ClassType = "Practical"
	ClassTutorial  ClassType = "Tutorial"
)

// TimeRange is a class slot in minutes since midnight
type TimeRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ClassInfo is what the encoded event description decodes to
type ClassInfo struct {
	Type       ClassType `json:"type"`
	Course     string    `json:"course"`
	CourseName string    `json:"courseName"`
	Room       string    `json:"room"`
	Building   string    `json:"building"`
	RoomNumber string    `json:"roomNumber"`
	Group      string    `json:"group"`
	Section    string    `json:"section"`
}

// ClassRecord is one weekly class slot of the timetable.
// Field names follow what the web client already consumes.
type ClassRecord struct {
	Description    string    `json:"Description"`
	AttendanceTime string    `json:"AttendanceTime"`
	Day            string    `json:"Day"`
	CourseCode     string    `json:"CourseCode"`
	CourseName     string    `json:"CourseName"`
	Room           string    `json:"Room"`
	Building       string    `json:"Building"`
	RoomNumber     string    `json:"RoomNumber"`
	Group          string    `json:"Group"`
	Section        string    `json:"Section"`
	Type           ClassType `json:"Type"`
	ParsedInfo     ClassInfo `json:"parsedInfo"`
	TimeRange      TimeRange `json:"timeRange"`
}

// Timetable is one successful fetch
type Timetable struct {
	Records   []ClassRecord
	FetchedAt time.Time
}

// TimetableStatus describes the cache slot without returning its records
type TimetableStatus struct {
	HasCache           bool
	ClassCount         int
	FetchedAt          time.Time
	MinutesAgo         int
	NextRefreshAllowed bool
}

// TimetableResponse is returned by the read and refresh endpoints
type TimetableResponse struct {
	Success    bool          `json:"success"`
	Data       []ClassRecord `json:"data"`
	Cached     bool          `json:"cached"`
	Timestamp  string        `json:"timestamp"`
	ClassCount int           `json:"classCount"`
}

// RemainingTime is the wait hint of a rate limited refresh
type RemainingTime struct {
	Minutes      int `json:"minutes"`
	Seconds      int `json:"seconds"`
	TotalSeconds int `json:"totalSeconds"`
}

// RateLimitedResponse is returned when a refresh comes too early
type RateLimitedResponse struct {
	Success       bool          `json:"success"`
	RateLimited   bool          `json:"rateLimited"`
	Message       string        `json:"message"`
	RemainingTime RemainingTime `json:"remainingTime"`
}

// TimetableStatusResponse is returned by the status endpoint
type TimetableStatusResponse struct {
	Success            bool   `json:"success"`
	Cached             bool   `json:"cached"`
	ClassCount         int    `json:"classCount,omitempty"`
	Timestamp          string `json:"timestamp,omitempty"`
	MinutesAgo         *int   `json:"minutesAgo,omitempty"`
	NextRefreshAllowed *bool  `json:"nextRefreshAllowed,omitempty"`
	Message            string `json:"message,omitempty"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success   bool   `json:"success"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error"`
	Hint      string `json:"hint,omitempty"`
}
