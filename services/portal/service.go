// Package portal is the operation boundary over the ICTU scraping client:
// every error is recovered here and rendered as a structured result the
// routing layer can serialize directly.
package portal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ictu-backend/lib/scrapers/ictu"
)

// Status is the shared envelope of every operation result.
type Status struct {
	Error   bool           `json:"error"`
	Kind    ictu.ErrorKind `json:"kind,omitempty"`
	Message string         `json:"message,omitempty"`
	Code    int            `json:"status,omitempty"`
}

func failure(err error) Status {
	e := ictu.AsError(err)
	return Status{
		Error:   true,
		Kind:    e.Kind,
		Message: e.Message,
		Code:    e.Status,
	}
}

type Service struct {
	client *ictu.Client
}

func NewService(client *ictu.Client) Service {
	return Service{client: client}
}

type LoginResult struct {
	Status
	Profile ictu.Profile `json:"profile"`
}

func (s Service) Login(ctx context.Context, username, password string) LoginResult {
	profile, err := s.client.Login(ctx, username, password)
	if err != nil {
		slog.WarnContext(ctx, "login failed", "username", username, "err", err)
		return LoginResult{Status: failure(err)}
	}
	return LoginResult{
		Status:  Status{Message: "Đăng nhập thành công!"},
		Profile: profile,
	}
}

func (s Service) Logout() Status {
	s.client.Logout()
	return Status{Message: "Đã đăng xuất"}
}

type ExamScheduleResult struct {
	Status
	Exams []ictu.ExamRecord `json:"lichthiData"`
}

func (s Service) GetExamSchedule(ctx context.Context) ExamScheduleResult {
	exams, err := s.client.GetExamSchedule(ctx)
	if err != nil {
		return ExamScheduleResult{Status: failure(err)}
	}
	return ExamScheduleResult{Exams: exams}
}

type ScoresResult struct {
	Status
	Scores []ictu.ScoreRecord `json:"diemSoData"`
	Terms  []ictu.TermSummary `json:"tongKetData"`
}

func (s Service) GetScores(ctx context.Context) ScoresResult {
	scores, terms, err := s.client.GetScores(ctx)
	if err != nil {
		return ScoresResult{Status: failure(err)}
	}
	return ScoresResult{Scores: scores, Terms: terms}
}

type RegistrationResult struct {
	Status
	StudentDuration string              `json:"studentDuration"`
	Courses         []ictu.CourseOption `json:"courses"`
}

func (s Service) GetStudyRegistration(ctx context.Context) RegistrationResult {
	reg, err := s.client.GetStudyRegistration(ctx)
	if err != nil {
		return RegistrationResult{Status: failure(err)}
	}
	return RegistrationResult{
		StudentDuration: reg.StudentDuration,
		Courses:         reg.Courses,
	}
}

type TimetableResult struct {
	Status
	ictu.Timetable
	TotalRows int `json:"totalRows"`
}

func (s Service) GetTimetable(ctx context.Context, opts ictu.TimetableOptions) TimetableResult {
	timetable, err := s.client.GetTimetable(ctx, opts)
	if err != nil {
		return TimetableResult{Status: failure(err)}
	}
	return TimetableResult{
		Timetable: timetable,
		TotalRows: len(timetable.Entries),
	}
}

type SearchResult struct {
	Status
	Keyword string            `json:"keyword,omitempty"`
	Exams   []ictu.ExamRecord `json:"lichthiData"`
}

// SearchSchedule filters the exam schedule by a case-insensitive keyword
// over course name, course code, exam date and room. An empty keyword
// returns everything.
func (s Service) SearchSchedule(ctx context.Context, keyword string) SearchResult {
	exams, err := s.client.GetExamSchedule(ctx)
	if err != nil {
		return SearchResult{Status: failure(err)}
	}
	if keyword == "" {
		return SearchResult{
			Status: Status{Message: fmt.Sprintf("Tất cả lịch thi (%d kết quả)", len(exams))},
			Exams:  exams,
		}
	}

	needle := strings.ToLower(keyword)
	var filtered []ictu.ExamRecord
	for _, exam := range exams {
		haystacks := []string{exam.CourseName, exam.CourseCode, exam.ExamDate, exam.Room}
		for _, h := range haystacks {
			if strings.Contains(strings.ToLower(h), needle) {
				filtered = append(filtered, exam)
				break
			}
		}
	}
	return SearchResult{
		Status:  Status{Message: fmt.Sprintf("Tìm thấy %d kết quả", len(filtered))},
		Keyword: keyword,
		Exams:   filtered,
	}
}
