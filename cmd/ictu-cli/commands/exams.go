package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(examsCmd)
}

var examsCmd = &cobra.Command{
	Use:   "exams",
	Short: "Prints the exam schedule.",
	Run: func(cmd *cobra.Command, args []string) {
		svc := loginService(cmd.Context())
		res := svc.GetExamSchedule(cmd.Context())
		if res.Error {
			fmt.Fprintln(os.Stderr, res.Message)
			os.Exit(1)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"#", "Code", "Course", "Date", "Slot", "Format", "Room"})
		for _, exam := range res.Exams {
			t.AppendRow(table.Row{
				exam.SequenceNo,
				exam.CourseCode,
				exam.CourseName,
				exam.ExamDate,
				exam.ExamSlot,
				exam.ExamFormat,
				exam.Room,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
