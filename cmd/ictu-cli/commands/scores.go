package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scoresCmd)
}

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Prints course scores and term GPA summaries.",
	Run: func(cmd *cobra.Command, args []string) {
		svc := loginService(cmd.Context())
		res := svc.GetScores(cmd.Context())
		if res.Error {
			fmt.Fprintln(os.Stderr, res.Message)
			os.Exit(1)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"#", "Code", "Course", "Credits", "Attendance", "Exam", "Final", "Grade"})
		for _, s := range res.Scores {
			t.AppendRow(table.Row{
				s.SequenceNo,
				s.CourseCode,
				s.CourseName,
				s.Credits,
				s.AttendanceScore,
				s.ExamScore,
				s.FinalScore,
				s.LetterGrade,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		sum := table.NewWriter()
		sum.SetOutputMirror(os.Stdout)
		sum.AppendHeader(table.Row{"Year", "Term", "GPA10", "GPA4", "Credits", "Term GPA10", "Term GPA4"})
		for _, term := range res.Terms {
			sum.AppendRow(table.Row{
				term.AcademicYear,
				term.Term,
				term.GPA10,
				term.GPA4,
				term.TotalCredits,
				term.TermGPA10,
				term.TermGPA4,
			})
		}
		sum.SetStyle(table.StyleRounded)
		sum.Render()
	},
}
