package ictu

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var sheetHeaders = []string{
	"STT", "Lớp học phần", "Số TC", "Thứ", "Tiết học", "Địa điểm",
	"Giảng viên/ link meet", "Sĩ số", "Số ĐK", "Học phí", "Ghi chú", "Thời gian",
}

func TestLocateHeaderRow(t *testing.T) {
	rows := [][]string{
		{"TRƯỜNG ĐẠI HỌC CÔNG NGHỆ THÔNG TIN VÀ TRUYỀN THÔNG"},
		{"Ngành: Công nghệ thông tin"},
		sheetHeaders,
		{"1", "Cơ sở dữ liệu-1-25 (DB101)"},
	}
	idx, ok := locateHeaderRow(rows)
	require.True(t, ok)
	require.Equal(t, 2, idx)

	// nothing scores high enough: degrade to row 0
	idx, ok = locateHeaderRow([][]string{
		{"chỉ là một tiêu đề"},
		{"1", "không phải header"},
	})
	require.False(t, ok)
	require.Equal(t, 0, idx)
}

func TestParseTimetableSheet(t *testing.T) {
	rows := [][]string{
		{"TRƯỜNG ĐẠI HỌC CÔNG NGHỆ THÔNG TIN VÀ TRUYỀN THÔNG"},
		{"Ngành: Công nghệ thông tin"},
		sheetHeaders,
		{"", "Tuần 2 (01/09/2025 đến 07/09/2025)"},
		{
			"1", "Cơ sở dữ liệu-1-25 (DB101)", "3", "2", "1 --> 3", "A101",
			"Nguyễn Văn A\nmeet.google.com/abc-defg-hij", "60", "55", "1500000", "", "Sáng (LT)",
		},
		{
			// weekday cell empty: merged with the row above
			"2", "Lập trình Web-3-25 (WEB202)", "3", "", "6 --> 8", "B202",
			"Trần Thị B", "50", "48", "1500000", "(TH)", "",
		},
		{"", "Ghi chú: lịch có thể thay đổi"},
		{"", "Tuần 3 (08/09/2025 đến 14/09/2025)"},
		{"3", "Seminar chuyên đề", "2", "6", "9", "C303", "", "40", "40", "", "", ""},
	}

	result := parseTimetableSheet(context.Background(), rows)

	require.Equal(t, sheetHeaders, result.Columns)
	require.Equal(t, "excel", result.Source)
	require.Equal(t, "Công nghệ thông tin", result.Major)
	require.Len(t, result.Entries, 3)

	first := TimetableEntry{
		SequenceNo:      "1",
		ClassSection:    "Cơ sở dữ liệu-1-25 (DB101)",
		CourseCode:      "DB101",
		CourseName:      "Cơ sở dữ liệu",
		Credits:         "3",
		Weekday:         "Thứ 2",
		PeriodRange:     "1-3",
		Room:            "A101",
		Instructor:      "Nguyễn Văn A",
		MeetLink:        "https://meet.google.com/abc-defg-hij",
		ClassSize:       "60",
		RegisteredCount: "55",
		TuitionFee:      "1500000",
		WeekNumber:      "2",
		LessonType:      "LT",
		WeekdayText:     "Thứ 2",
		SessionTime:     "6:45 - 9:30",
		StartDate:       "01/09/2025",
		EndDate:         "01/09/2025",
	}
	if diff := cmp.Diff(first, result.Entries[0]); diff != "" {
		t.Fatalf("first entry mismatch (-want +got):\n%s", diff)
	}

	second := result.Entries[1]
	// inherits the weekday of the merged cell above
	require.Equal(t, "Thứ 2", second.Weekday)
	require.Equal(t, "01/09/2025", second.StartDate)
	require.Equal(t, "6-8", second.PeriodRange)
	require.Equal(t, "13:00 - 15:45", second.SessionTime)
	require.Equal(t, "TH", second.LessonType)
	require.Equal(t, "", second.MeetLink)

	third := result.Entries[2]
	// new week separator supersedes the old context
	require.Equal(t, "3", third.WeekNumber)
	require.Equal(t, "Thứ 6", third.Weekday)
	require.Equal(t, "12/09/2025", third.StartDate)
	require.Equal(t, "15:55 - 16:45", third.SessionTime)
	require.Equal(t, "Seminar chuyên đề", third.CourseName)
	require.Equal(t, "", third.CourseCode)
}

func TestParseTimetableSheetWeekdayCarryForward(t *testing.T) {
	rows := [][]string{
		sheetHeaders,
		{"1", "Môn A (A1)", "2", "3", "1", "P1", "", "", "", "", "", ""},
		{"2", "Môn B (B1)", "2", "", "2", "P2", "", "", "", "", "", ""},
		{"3", "Môn C (C1)", "2", "", "3", "P3", "", "", "", "", "", ""},
	}
	result := parseTimetableSheet(context.Background(), rows)
	require.Len(t, result.Entries, 3)
	for _, entry := range result.Entries {
		require.Equal(t, "Thứ 3", entry.Weekday)
	}
	// no week separator seen: dates stay empty
	require.Equal(t, "", result.Entries[0].StartDate)
	require.Equal(t, "", result.Entries[0].WeekNumber)
}

func TestParseTimetableSheetSkipsInvalidRows(t *testing.T) {
	rows := [][]string{
		sheetHeaders,
		{"x", "Môn A (A1)", "2", "2", "1", "", "", "", "", "", "", ""},
		{"1", "", "2", "2", "1", "", "", "", "", "", "", ""},
		{"2.0", "Môn B (B1)", "2", "2", "1", "", "", "", "", "", "", ""},
	}
	result := parseTimetableSheet(context.Background(), rows)
	require.Len(t, result.Entries, 1)
	require.Equal(t, "2.0", result.Entries[0].SequenceNo)
	require.Equal(t, MajorUnknown, result.Major)
}

func TestHTMLTimetable(t *testing.T) {
	headers := []string{"STT", "Lớp học phần", "Mã HP", "Tên HP", "Số TC", "Thứ", "Tiết học", "Phòng", "Giảng viên"}
	rows := []map[string]string{
		{
			"STT": "1", "Lớp học phần": "Cơ sở dữ liệu-1-25 (DB101)",
			"Mã HP": "DB101", "Tên HP": "Cơ sở dữ liệu", "Số TC": "3",
			"Thứ": "Thứ 2", "Tiết học": "1-3", "Phòng": "A101", "Giảng viên": "Nguyễn Văn A",
		},
	}
	result := htmlTimetable(headers, rows)
	require.Equal(t, "html", result.Source)
	require.Equal(t, headers, result.Columns)
	require.Len(t, result.Entries, 1)

	entry := result.Entries[0]
	require.Equal(t, "DB101", entry.CourseCode)
	require.Equal(t, "Thứ 2", entry.Weekday)
	// derived fields are unavailable on the html path
	require.Equal(t, "", entry.StartDate)
	require.Equal(t, "", entry.MeetLink)
	require.Equal(t, "", entry.WeekNumber)
}
