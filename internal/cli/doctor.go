package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/n0roo/trail-trekker/internal/config"
	"github.com/n0roo/trail-trekker/internal/db"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "입력 파일과 DB 상태 확인",
	Long:  `CSV 입력 파일과 DuckDB 파일 상태를 확인합니다.`,
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// CheckResult represents a single check result
type CheckResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // ok, warning, error
	Message string `json:"message"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	var checks []CheckResult

	// 1. 시스템 정보
	checks = append(checks, CheckResult{
		Name:    "System",
		Status:  "ok",
		Message: fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	})

	// 2. 설정
	cfg, err := loadConfig()
	if err != nil {
		checks = append(checks, CheckResult{Name: "Config", Status: "error", Message: err.Error()})
		cfg = config.Default()
	} else {
		checks = append(checks, CheckResult{Name: "Config", Status: "ok", Message: fmt.Sprintf("db=%s data=%s", cfg.DBPath, cfg.DataDir)})
	}

	// 3. CSV 입력 파일
	for _, table := range config.Tables() {
		path := cfg.FilePath(table)
		info, err := os.Stat(path)
		switch {
		case err != nil:
			checks = append(checks, CheckResult{Name: table, Status: "error", Message: fmt.Sprintf("%s 없음", path)})
		case info.IsDir():
			checks = append(checks, CheckResult{Name: table, Status: "error", Message: fmt.Sprintf("%s 는 디렉토리", path)})
		case info.Size() == 0:
			checks = append(checks, CheckResult{Name: table, Status: "warning", Message: fmt.Sprintf("%s 빈 파일", path)})
		default:
			checks = append(checks, CheckResult{Name: table, Status: "ok", Message: fmt.Sprintf("%s (%d bytes)", path, info.Size())})
		}
	}

	// 4. DB 파일
	if _, err := os.Stat(cfg.DBPath); err != nil {
		checks = append(checks, CheckResult{Name: "Database", Status: "warning", Message: "DB 파일 없음 (첫 실행 시 생성)"})
	} else if db.IsDuckDB(cfg.DBPath) {
		checks = append(checks, CheckResult{Name: "Database", Status: "ok", Message: cfg.DBPath})
	} else {
		checks = append(checks, CheckResult{Name: "Database", Status: "error", Message: fmt.Sprintf("%s 는 DuckDB 파일이 아님", cfg.DBPath)})
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return json.NewEncoder(out).Encode(checks)
	}

	fmt.Fprintln(out, "🩺 Trail Trekker Doctor")
	fmt.Fprintln(out)

	hasError := false
	for _, c := range checks {
		var icon string
		switch c.Status {
		case "ok":
			icon = "✅"
		case "warning":
			icon = "⚠️"
		case "error":
			icon = "❌"
			hasError = true
		}
		fmt.Fprintf(out, "%s %s: %s\n", icon, c.Name, c.Message)
	}

	fmt.Fprintln(out)
	if hasError {
		fmt.Fprintln(out, "❌ 문제가 발견되었습니다. 위 메시지를 확인하세요.")
		return fmt.Errorf("check failed")
	}
	fmt.Fprintln(out, "✨ 모든 검사를 통과했습니다.")

	return nil
}
