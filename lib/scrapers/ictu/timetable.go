package ictu

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"ictu-backend/lib/textutil"
)

// timetableKeywords identify the export's real header row, which floats
// below a variable-length preamble of title and student-info rows.
var timetableKeywords = []string{
	"STT",
	"Lớp học phần",
	"Học phần",
	"Thời gian",
	"Địa điểm",
	"Giảng viên",
	"Thứ",
	"Tiết học",
}

const (
	headerScanLimit = 15
	headerScoreMin  = 3
)

// locateHeaderRow scans the leading rows and returns the first one where at
// least headerScoreMin keywords appear. Reports false when nothing
// qualifies, in which case extraction degrades to row 0.
func locateHeaderRow(rows [][]string) (int, bool) {
	limit := len(rows)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}
	for i := 0; i < limit; i++ {
		joined := strings.Join(rows[i], " ")
		if textutil.CountMatches(joined, timetableKeywords) >= headerScoreMin {
			return i, true
		}
	}
	return 0, false
}

// sheetColumns holds the resolved column positions of a timetable sheet; -1
// marks a column the export did not include.
type sheetColumns struct {
	seq        int
	section    int
	credits    int
	weekday    int
	period     int
	room       int
	instructor int
	classSize  int
	regCount   int
	fee        int
	note       int
	time       int
}

func resolveColumns(headers []string) sheetColumns {
	find := func(matchers ...string) int {
		for i, h := range headers {
			if textutil.MatchName(h, matchers) {
				return i
			}
		}
		return -1
	}
	return sheetColumns{
		seq:        find("stt"),
		section:    find("lớphọcphần"),
		credits:    find("sốtc"),
		weekday:    find("thứ"),
		period:     find("tiếthọc"),
		room:       find("phòng", "địađiểm"),
		instructor: find("giảngviên"),
		classSize:  find("sĩsố"),
		regCount:   find("sốđk"),
		fee:        find("họcphí"),
		note:       find("ghichú"),
		time:       find("thờigian"),
	}
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

var majorLabelRegex = regexp.MustCompile(`(?i)Ngành\s*:?\s*(.+)`)

// sheetMajor hunts for the "Ngành:" label in the preamble rows, then the
// first data rows, then the class-section column.
func sheetMajor(rows [][]string, headerIdx int, cols sheetColumns) string {
	scanLimit := len(rows)
	if scanLimit > headerScanLimit {
		scanLimit = headerScanLimit
	}
	for i := 0; i < scanLimit; i++ {
		joined := strings.TrimSpace(strings.Join(rows[i], " "))
		if m := majorLabelRegex.FindStringSubmatch(joined); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	checked := 0
	for i := headerIdx + 1; i < len(rows) && checked < 5; i++ {
		checked++
		section := cellAt(rows[i], cols.section)
		if !strings.Contains(strings.ToLower(section), "ngành") {
			continue
		}
		if m := majorLabelRegex.FindStringSubmatch(section); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// parseTimetableSheet runs the full extraction over a decoded sheet: header
// localization, then a single forward pass that threads the active week and
// last-seen weekday through the lesson rows.
func parseTimetableSheet(ctx context.Context, rows [][]string) Timetable {
	headerIdx, located := locateHeaderRow(rows)
	if !located {
		slog.WarnContext(ctx, "timetable header row not found, using row 0; columns may be misaligned")
	}

	var headers []string
	if headerIdx < len(rows) {
		for _, h := range rows[headerIdx] {
			headers = append(headers, strings.TrimSpace(h))
		}
	}
	cols := resolveColumns(headers)
	if cols.weekday < 0 {
		slog.WarnContext(ctx, "timetable has no weekday column, date derivation disabled")
	}

	major := sheetMajor(rows, headerIdx, cols)
	if major == "" {
		major = MajorUnknown
	}

	result := Timetable{
		Entries: []TimetableEntry{},
		Columns: headers,
		Source:  "excel",
		Major:   major,
	}

	var week weekContext
	lastWeekday := ""

	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]

		weekday := cellAt(row, cols.weekday)
		if weekday != "" {
			lastWeekday = weekday
		} else {
			// merged weekday cells span every lesson of the same
			// day, only the first row carries the value
			weekday = lastWeekday
		}

		section := cellAt(row, cols.section)
		if isWeekSeparator(section) {
			if next, ok := parseWeekSeparator(section); ok {
				week = next
				slog.DebugContext(
					ctx, "timetable week separator",
					"week", week.number,
					"from", week.fromDate,
					"to", week.toDate,
				)
			} else {
				slog.DebugContext(ctx, "unparseable week separator", "text", section)
			}
			continue
		}

		seq := cellAt(row, cols.seq)
		if _, err := strconv.ParseFloat(seq, 64); err != nil || section == "" {
			continue
		}

		entry := TimetableEntry{
			SequenceNo:      seq,
			ClassSection:    section,
			Credits:         cellAt(row, cols.credits),
			Weekday:         normalizeWeekday(weekday),
			PeriodRange:     normalizePeriodRange(cellAt(row, cols.period)),
			Room:            cellAt(row, cols.room),
			ClassSize:       cellAt(row, cols.classSize),
			RegisteredCount: cellAt(row, cols.regCount),
			TuitionFee:      cellAt(row, cols.fee),
			Note:            cellAt(row, cols.note),
			WeekNumber:      week.number,
		}
		entry.CourseName, entry.CourseCode = splitClassSection(section)
		entry.Instructor, entry.MeetLink = splitInstructor(cellAt(row, cols.instructor))
		entry.WeekdayText = entry.Weekday
		entry.SessionTime = sessionTimeRange(entry.PeriodRange)
		entry.LessonType = lessonTypeCode(cellAt(row, cols.time), entry.Note)

		if date, ok := deriveDate(week, entry.Weekday); ok {
			entry.StartDate = date
			entry.EndDate = date
		}

		result.Entries = append(result.Entries, entry)
	}

	return result
}

// htmlTimetable maps the HTML timetable grid into the spreadsheet record
// shape; derived fields stay blank since the page carries no week rows.
func htmlTimetable(headers []string, rows []map[string]string) Timetable {
	result := Timetable{
		Entries: []TimetableEntry{},
		Columns: headers,
		Source:  "html",
		Major:   "",
	}
	for _, row := range rows {
		result.Entries = append(result.Entries, TimetableEntry{
			SequenceNo:      row["STT"],
			ClassSection:    row["Lớp học phần"],
			CourseCode:      row["Mã HP"],
			CourseName:      row["Tên HP"],
			Credits:         row["Số TC"],
			Weekday:         row["Thứ"],
			PeriodRange:     row["Tiết học"],
			Room:            row["Phòng"],
			Instructor:      row["Giảng viên"],
			ClassSize:       row["Sĩ số"],
			RegisteredCount: row["Số ĐK"],
			TuitionFee:      row["Học phí"],
			Note:            row["Ghi chú"],
		})
	}
	return result
}
