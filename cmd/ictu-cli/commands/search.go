package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Searches the exam schedule by course name, code, date or room.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		keyword := ""
		if len(args) > 0 {
			keyword = args[0]
		}

		svc := loginService(cmd.Context())
		res := svc.SearchSchedule(cmd.Context(), keyword)
		if res.Error {
			fmt.Fprintln(os.Stderr, res.Message)
			os.Exit(1)
		}

		fmt.Println(res.Message)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"#", "Code", "Course", "Date", "Room"})
		for _, exam := range res.Exams {
			t.AppendRow(table.Row{
				exam.SequenceNo,
				exam.CourseCode,
				exam.CourseName,
				exam.ExamDate,
				exam.Room,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
