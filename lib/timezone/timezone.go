package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		panic(err)
	}
}

// force the portal's timezone regardless of where the process runs,
// date arithmetic on <time.Time>.Year()/Month()/Day() assumes it
func Now() time.Time {
	return time.Now().In(Location)
}

// DateLayout is the dd/mm/yyyy format the portal renders everywhere.
const DateLayout = "02/01/2006"

func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, Location)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// MondayIndex maps a weekday onto the portal's week shape:
// 0 = Monday ... 6 = Sunday.
func MondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
