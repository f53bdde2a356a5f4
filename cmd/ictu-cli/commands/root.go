package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ictu-backend/lib/configutil"
	"ictu-backend/lib/scrapers/ictu"
	"ictu-backend/lib/serviceutil"
	"ictu-backend/services/portal"
)

var rootCmd = &cobra.Command{
	Use:   "ictu-cli",
	Short: "ictu-cli fetches schedules, grades and timetables from the ICTU portal.",
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type Config struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

const defaultBaseUrl = "http://220.231.119.171/kcntt"

// loginService builds a client from config.json5 and logs it in.
func loginService(ctx context.Context) portal.Service {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if cfg.BaseUrl == "" {
		cfg.BaseUrl = defaultBaseUrl
	}

	client, err := ictu.NewClient(ictu.ClientOptions{BaseUrl: cfg.BaseUrl})
	if err != nil {
		serviceutil.Fatal("failed to create portal client", err)
	}

	svc := portal.NewService(client)
	res := svc.Login(ctx, cfg.Username, cfg.Password)
	if res.Error {
		serviceutil.Fatal("failed to login", errors.New(res.Message))
	}

	slog.Info(
		"logged in",
		"name", res.Profile.Name,
		"student_id", res.Profile.StudentID,
		"major", res.Profile.Major,
	)
	return svc
}
