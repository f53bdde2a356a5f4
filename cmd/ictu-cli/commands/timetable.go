package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"ictu-backend/lib/scrapers/ictu"
)

var (
	timetableSemester *string
	timetableYear     *string
	timetableWeek     *string
)

func init() {
	timetableSemester = timetableCmd.Flags().String("semester", "", "Semester filter (server default when empty).")
	timetableYear = timetableCmd.Flags().String("year", "", "Academic year filter.")
	timetableWeek = timetableCmd.Flags().String("week", "", "Week filter.")
	rootCmd.AddCommand(timetableCmd)
}

var timetableCmd = &cobra.Command{
	Use:   "timetable [--semester <s>] [--year <y>] [--week <w>]",
	Short: "Prints the weekly timetable (spreadsheet export, HTML fallback).",
	Run: func(cmd *cobra.Command, args []string) {
		svc := loginService(cmd.Context())
		res := svc.GetTimetable(cmd.Context(), ictu.TimetableOptions{
			Semester:     *timetableSemester,
			AcademicYear: *timetableYear,
			Week:         *timetableWeek,
		})
		if res.Error {
			fmt.Fprintln(os.Stderr, res.Message)
			os.Exit(1)
		}

		fmt.Printf("source: %s, major: %s, rows: %d\n", res.Source, res.Major, res.TotalRows)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"#", "Course", "Code", "Day", "Date", "Periods", "Session", "Room", "Instructor"})
		for _, entry := range res.Entries {
			t.AppendRow(table.Row{
				entry.SequenceNo,
				entry.CourseName,
				entry.CourseCode,
				entry.Weekday,
				entry.StartDate,
				entry.PeriodRange,
				entry.SessionTime,
				entry.Room,
				entry.Instructor,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
