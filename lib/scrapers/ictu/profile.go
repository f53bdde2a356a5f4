package ictu

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ictu-backend/lib/htmlutil"
)

// MajorUnknown is reported when no resolution strategy finds a program.
const MajorUnknown = "Chưa cập nhật"

// splitDisplayName parses the portal's "Name (ID)" header text. Without a
// parenthesis pair the whole text is the name and the ID is unknown.
func splitDisplayName(display string) (name, id string) {
	display = strings.TrimSpace(display)
	open := strings.Index(display, "(")
	close := strings.Index(display, ")")
	if open == -1 || close == -1 || close < open {
		return display, "N/A"
	}
	return strings.TrimSpace(display[:open]), display[open+1 : close]
}

// majorStrategy extracts a program/major from a page, returning "" when the
// page lacks the location this strategy looks at.
type majorStrategy func(doc *goquery.Document) string

var majorClassRegex = regexp.MustCompile(`(?i)nganh|major`)

// homeMajorStrategies is the ranked chain applied to the home page; the
// portal has rendered the program in each of these shapes across versions.
var homeMajorStrategies = []majorStrategy{
	func(doc *goquery.Document) string {
		return htmlutil.CleanText(doc.Find("span#lblNganh").First())
	},
	func(doc *goquery.Document) string {
		return findLabeledText(doc, "span, div, td")
	},
	func(doc *goquery.Document) string {
		var major string
		doc.Find("[class]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if !majorClassRegex.MatchString(el.AttrOr("class", "")) {
				return true
			}
			if text := htmlutil.CleanText(el); text != "" {
				major = text
				return false
			}
			return true
		})
		return major
	},
	majorFromLabelCell,
	func(doc *goquery.Document) string {
		return colonSplit(findContainingText(doc, "span, div"))
	},
}

// resolveMajor walks the strategy chain in order and returns the first hit.
func resolveMajor(doc *goquery.Document) string {
	for _, strategy := range homeMajorStrategies {
		if major := strategy(doc); major != "" {
			return major
		}
	}
	return ""
}

// resolveMajorFromTimetable is the secondary source: the timetable report
// header repeats the program, usually as
// "DTC245200672 - Nguyễn Anh Tuấn - Chuyên ngành Công nghệ thông tin".
func resolveMajorFromTimetable(doc *goquery.Document) string {
	major := colonSplit(findContainingText(doc, "span, div"))
	if major == "" {
		major = majorFromLabelCell(doc)
	}
	if major == "" {
		return ""
	}

	if idx := strings.LastIndex(major, "-"); idx >= 0 {
		major = strings.TrimSpace(major[idx+1:])
	}
	lower := strings.ToLower(major)
	if strings.HasPrefix(lower, "chuyên ngành") {
		major = strings.TrimSpace(major[len("chuyên ngành"):])
	}
	return major
}

// findLabeledText locates an element whose text starts with the "Ngành:"
// label and returns the remainder.
func findLabeledText(doc *goquery.Document, selector string) string {
	var major string
	doc.Find(selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := htmlutil.CleanText(el)
		if strings.HasPrefix(text, "Ngành:") {
			major = strings.TrimSpace(strings.TrimPrefix(text, "Ngành:"))
			return false
		}
		return true
	})
	return major
}

// findContainingText locates the first element mentioning the program label
// anywhere in its text.
func findContainingText(doc *goquery.Document, selector string) string {
	var found string
	doc.Find(selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := htmlutil.CleanText(el)
		if strings.Contains(strings.ToLower(text), "ngành") {
			found = text
			return false
		}
		return true
	})
	return found
}

// majorFromLabelCell matches a td/th label cell mentioning the program and
// takes the adjacent value cell.
func majorFromLabelCell(doc *goquery.Document) string {
	var major string
	doc.Find("td, th").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := strings.ToLower(htmlutil.CleanText(el))
		if !strings.Contains(text, "ngành") {
			return true
		}
		sibling := el.Next().Filter("td, th")
		if sibling.Length() == 0 {
			return true
		}
		if value := htmlutil.CleanText(sibling.First()); value != "" {
			major = value
			return false
		}
		return true
	})
	return major
}

func colonSplit(text string) string {
	if text == "" {
		return ""
	}
	if idx := strings.Index(text, ":"); idx >= 0 {
		return strings.TrimSpace(text[idx+1:])
	}
	return strings.TrimSpace(text)
}
