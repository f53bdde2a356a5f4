package ictu

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ictu-backend/lib/timezone"
)

// courseTokenRegex finds parenthesized or bracketed tokens inside a
// class-section label; the last one is the course code.
var courseTokenRegex = regexp.MustCompile(`\(([^)]+)\)|\[([^\]]+)\]`)

// sectionSuffixRegex strips the "-<group>-<year>" tail a class-section
// carries after the course name, e.g. "Cơ sở dữ liệu-1-25".
var sectionSuffixRegex = regexp.MustCompile(`-\d+-\d+.*$`)

// splitClassSection splits a class-section label into course name and course
// code.
//
//	"Cơ sở dữ liệu-1-25 (DB101)" -> ("Cơ sở dữ liệu", "DB101")
//	"Triết học [ML101]"          -> ("Triết học", "ML101")
//	"Seminar chuyên đề"          -> ("Seminar chuyên đề", "")
func splitClassSection(section string) (name, code string) {
	section = strings.TrimSpace(section)
	matches := courseTokenRegex.FindAllStringSubmatchIndex(section, -1)
	if len(matches) == 0 {
		return section, ""
	}

	last := matches[len(matches)-1]
	// group 1 is the parenthesized form, group 2 the bracketed one
	if last[2] >= 0 {
		code = section[last[2]:last[3]]
	} else {
		code = section[last[4]:last[5]]
	}
	code = strings.TrimSpace(code)

	name = strings.TrimSpace(section[:last[0]])
	name = strings.TrimSpace(sectionSuffixRegex.ReplaceAllString(name, ""))
	return name, code
}

var meetLinkRegex = regexp.MustCompile(`(https?://)?(?:www\.)?meet\.google\.com/[^\s]+`)

// splitInstructor separates an instructor cell into the instructor's name
// and a meeting link. When the cell has a line break the link is expected in
// the trailing part; otherwise the whole cell is searched.
func splitInstructor(raw string) (instructor, link string) {
	if idx := strings.IndexByte(raw, '\n'); idx >= 0 {
		tail := strings.TrimSpace(raw[idx+1:])
		if m := meetLinkRegex.FindString(tail); m != "" {
			return strings.TrimSpace(raw[:idx]), ensureScheme(m)
		}
	}
	if m := meetLinkRegex.FindString(raw); m != "" {
		instructor = strings.TrimSpace(strings.Replace(raw, m, "", 1))
		return instructor, ensureScheme(m)
	}
	return strings.TrimSpace(raw), ""
}

func ensureScheme(link string) string {
	if strings.HasPrefix(link, "http") {
		return link
	}
	return "https://" + link
}

// normalizeWeekday renders purely numeric weekday cells ("2", "2.0") in the
// portal's "Thứ N" form; anything else passes through unchanged.
func normalizeWeekday(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return fmt.Sprintf("Thứ %d", int(n))
	}
	return value
}

// normalizePeriodRange collapses the export's arrow notation into a plain
// hyphen range: "1 --> 3" -> "1-3".
func normalizePeriodRange(value string) string {
	value = strings.ReplaceAll(value, " --> ", "-")
	value = strings.ReplaceAll(value, "-->", "-")
	return strings.TrimSpace(value)
}

type periodTime struct {
	start string
	end   string
}

// periodTimes maps a lesson period to its wall-clock slot. Periods 1-5 are
// the morning block, 6-10 afternoon, 11-15 evening.
var periodTimes = map[int]periodTime{
	1:  {"6:45", "7:35"},
	2:  {"7:40", "8:30"},
	3:  {"8:40", "9:30"},
	4:  {"9:40", "10:30"},
	5:  {"10:35", "11:25"},
	6:  {"13:00", "13:50"},
	7:  {"13:55", "14:45"},
	8:  {"14:55", "15:45"},
	9:  {"15:55", "16:45"},
	10: {"16:50", "17:40"},
	11: {"18:15", "19:05"},
	12: {"19:10", "20:00"},
	13: {"20:05", "20:55"},
	14: {"20:20", "21:10"},
	15: {"21:20", "22:10"},
}

// SessionUnknown is reported when a period range maps to no known slot.
const SessionUnknown = "Không xác định"

var digitsRegex = regexp.MustCompile(`\d+`)

// sessionTimeRange maps the lowest and highest period numbers in a period
// range onto wall-clock start/end times: "1-3" -> "6:45 - 9:30".
func sessionTimeRange(periodRange string) string {
	numbers := digitsRegex.FindAllString(periodRange, -1)
	if len(numbers) == 0 {
		return SessionUnknown
	}

	minPeriod, maxPeriod := 0, 0
	for _, s := range numbers {
		n, err := strconv.Atoi(s)
		if err != nil {
			continue
		}
		if minPeriod == 0 || n < minPeriod {
			minPeriod = n
		}
		if n > maxPeriod {
			maxPeriod = n
		}
	}

	start := periodTimes[minPeriod].start
	end := periodTimes[maxPeriod].end
	if start == "" || end == "" {
		return SessionUnknown
	}
	return fmt.Sprintf("%s - %s", start, end)
}

var lessonTypeRegex = regexp.MustCompile(`\(([A-Z]{2,3})\)`)

// lessonTypeCode finds a 2-3 letter uppercase code in parentheses, checking
// the time column first and the note column as a fallback.
func lessonTypeCode(timeText, noteText string) string {
	if m := lessonTypeRegex.FindStringSubmatch(timeText); m != nil {
		return m[1]
	}
	if m := lessonTypeRegex.FindStringSubmatch(noteText); m != nil {
		return m[1]
	}
	return ""
}

// weekContext tracks the week-separator row most recently seen while
// walking spreadsheet rows; subsequent lesson rows inherit it until the next
// separator replaces it.
type weekContext struct {
	number   string
	fromDate string
	toDate   string
	start    time.Time
	hasStart bool
}

var weekSeparatorRegex = regexp.MustCompile(`Tuần (\d+) \((\d{2}/\d{2}/\d{4}) đến (\d{2}/\d{2}/\d{4})\)`)

// isWeekSeparator detects week rows cheaply before the full pattern runs.
func isWeekSeparator(section string) bool {
	lower := strings.ToLower(section)
	return strings.Contains(lower, "tuần") && strings.Contains(lower, "đến")
}

// parseWeekSeparator extracts the week number and date range from a
// separator row: "Tuần 3 (02/09/2025 đến 08/09/2025)".
func parseWeekSeparator(section string) (weekContext, bool) {
	m := weekSeparatorRegex.FindStringSubmatch(section)
	if m == nil {
		return weekContext{}, false
	}
	wc := weekContext{
		number:   m[1],
		fromDate: m[2],
		toDate:   m[3],
	}
	start, err := timezone.ParseDate(wc.fromDate)
	if err == nil {
		wc.start = start
		wc.hasStart = true
	}
	return wc, true
}

// deriveDate computes the calendar date of a lesson from the active week and
// its normalized weekday. Weekday indices follow the portal convention: "Thứ
// 2" is Monday (index 0) through "Chủ nhật" as Sunday (index 6).
func deriveDate(week weekContext, weekday string) (string, bool) {
	if !week.hasStart {
		return "", false
	}
	digit := digitsRegex.FindString(weekday)
	dayIndex := -1
	if digit != "" {
		n, err := strconv.Atoi(digit)
		if err == nil {
			dayIndex = n - 2
		}
	}
	if strings.Contains(strings.ToLower(weekday), "chủ nhật") {
		dayIndex = 6
	}
	if dayIndex < 0 || dayIndex > 6 {
		return "", false
	}

	startIndex := timezone.MondayIndex(week.start.Weekday())
	offset := (dayIndex - startIndex + 7) % 7
	return timezone.FormatDate(week.start.AddDate(0, 0, offset)), true
}
