package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(registrationCmd)
}

var registrationCmd = &cobra.Command{
	Use:   "registration",
	Short: "Prints study-registration info and the course dropdown.",
	Run: func(cmd *cobra.Command, args []string) {
		svc := loginService(cmd.Context())
		res := svc.GetStudyRegistration(cmd.Context())
		if res.Error {
			fmt.Fprintln(os.Stderr, res.Message)
			os.Exit(1)
		}

		fmt.Printf("duration: %s\n", res.StudentDuration)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Value", "Course"})
		for _, course := range res.Courses {
			t.AppendRow(table.Row{course.Value, course.Text})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
