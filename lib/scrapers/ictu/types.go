package ictu

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrorKind labels every failure a portal operation can surface. Callers
// switch on the kind; Status carries the closest HTTP hint for the upstream
// condition.
type ErrorKind string

const (
	KindAuthenticationFailed ErrorKind = "authentication_failed"
	KindNotAuthenticated     ErrorKind = "not_authenticated"
	KindSessionExpired       ErrorKind = "session_expired"
	KindUpstreamUnavailable  ErrorKind = "upstream_unavailable"
	KindParseFailure         ErrorKind = "parse_failure"
	KindTimeout              ErrorKind = "timeout"
	KindConnection           ErrorKind = "connection_error"
	KindExportUnavailable    ErrorKind = "export_unavailable"
)

type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Status  int       `json:"status"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
}

func newError(kind ErrorKind, status int, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Status:  status,
	}
}

// AsError gives the structured form of any error returned by this package.
// Unclassified errors are reported as upstream failures.
func AsError(err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	return &Error{
		Kind:    KindUpstreamUnavailable,
		Message: err.Error(),
		Status:  500,
	}
}

// transportError distinguishes timeouts from connection failures, every
// other transport problem stays a connection error.
func transportError(err error, operation string) *Error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return newError(KindTimeout, 408, "timeout while %s", operation)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return newError(KindTimeout, 408, "timeout while %s", operation)
	}
	return newError(KindConnection, 503, "connection failed while %s: %v", operation, err)
}

// Profile is what a successful login resolves about the student.
type Profile struct {
	Name            string `json:"name"`
	StudentID       string `json:"studentId"`
	StudentDuration string `json:"studentDuration"`
	Major           string `json:"major"`
	Email           string `json:"email"`
}

// ExamRecord is one row of the exam-schedule table. Field tags keep the
// upstream portal's Vietnamese payload contract.
type ExamRecord struct {
	SequenceNo      string `json:"stt"`
	CourseCode      string `json:"maHP"`
	CourseName      string `json:"tenHP"`
	Credits         string `json:"soTC"`
	ExamDate        string `json:"ngayThi"`
	ExamSlot        string `json:"caThi"`
	ExamFormat      string `json:"hinhThucThi"`
	CandidateNumber string `json:"soBaoDanh"`
	Room            string `json:"phongThi"`
	Note            string `json:"ghiChu"`
}

// ScoreRecord is one graded course in a term.
type ScoreRecord struct {
	SequenceNo      string `json:"stt"`
	CourseCode      string `json:"maHP"`
	CourseName      string `json:"tenHP"`
	Credits         string `json:"soTC"`
	EvaluationText  string `json:"danhGia"`
	AttendanceScore string `json:"chuyenCan"`
	ExamScore       string `json:"thi"`
	FinalScore      string `json:"tongKet"`
	LetterGrade     string `json:"diemChu"`
}

// TermSummary aggregates GPA per academic term.
type TermSummary struct {
	AcademicYear string `json:"namHoc"`
	Term         string `json:"hocKy"`
	GPA10        string `json:"TBTL10"`
	GPA4         string `json:"TBTL4"`
	TotalCredits string `json:"TC"`
	TermGPA10    string `json:"TBC10"`
	TermGPA4     string `json:"TBC4"`
}

// TimetableEntry is one lesson occurrence. HTML-sourced entries leave the
// derived fields blank; spreadsheet-sourced entries are fully populated.
type TimetableEntry struct {
	SequenceNo      string `json:"stt"`
	ClassSection    string `json:"lopHocPhan"`
	CourseCode      string `json:"maHP"`
	CourseName      string `json:"tenHP"`
	Credits         string `json:"soTC"`
	Weekday         string `json:"thu"`
	PeriodRange     string `json:"tiet"`
	Room            string `json:"phong"`
	Instructor      string `json:"giangVien"`
	MeetLink        string `json:"meetLink"`
	ClassSize       string `json:"siSo"`
	RegisteredCount string `json:"soDK"`
	TuitionFee      string `json:"hocPhi"`
	Note            string `json:"ghiChu"`
	StartDate       string `json:"from_date"`
	EndDate         string `json:"to_date"`
	WeekNumber      string `json:"week_number"`
	LessonType      string `json:"lesson_type"`
	WeekdayText     string `json:"thoiGian"`
	SessionTime     string `json:"buoiHoc"`
}

// Timetable bundles the normalized entries with extraction metadata.
type Timetable struct {
	Entries []TimetableEntry `json:"timetableData"`
	Columns []string         `json:"originalColumns"`
	Source  string           `json:"source"`
	Major   string           `json:"major"`
}

type CourseOption struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// Registration is the study-registration page payload.
type Registration struct {
	StudentDuration string         `json:"studentDuration"`
	Courses         []CourseOption `json:"courses"`
}

// TimetableOptions select the export filters; empty fields keep the
// server-side defaults.
type TimetableOptions struct {
	Semester     string
	AcademicYear string
	Week         string
}
