package cli

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/n0roo/trail-trekker/internal/config"
	"github.com/n0roo/trail-trekker/internal/db"
	"github.com/n0roo/trail-trekker/internal/ingest"
	"github.com/n0roo/trail-trekker/internal/report"
)

var (
	dbPath     string
	dataDir    string
	configPath string
	dryRun     bool
	verbose    bool
	jsonOut    bool
)

var rootCmd = &cobra.Command{
	Use:   "trailtrekker",
	Short: "Trail Trekker CSV → DuckDB 적재",
	Long: `Trail Trekker 데이터 파이프라인

data/ 아래 CSV 다섯 개를 trail_trekker.db 에 테이블로 적재합니다.
매 실행마다 테이블을 새로 만들며 적재 후 검증 결과를 출력합니다.

적재 순서:
  features → plans → customers → plan_features → subscriptions

plans 는 plan_id 가 '000000' 이거나 비어 있는 행을 제외합니다.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runIngest,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "DuckDB 파일 경로 (기본: trail_trekker.db)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "CSV 디렉토리 (기본: data)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "설정 파일 (기본: trail_trekker.yaml, 없으면 무시)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "상세 로그 (stderr)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "JSON 출력")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "실행할 SQL만 출력")
}

// loadConfig merges defaults, the config file and flags (flags win)
func loadConfig() (*config.Config, error) {
	path, explicit := config.DefaultConfigFile, false
	if configPath != "" {
		path, explicit = configPath, true
	}

	cfg, err := config.Load(path, explicit)
	if err != nil {
		return nil, err
	}

	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, cfg.Validate()
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	schemas, err := cfg.Schemas()
	if err != nil {
		return err
	}

	logger := newLogger()
	defer logger.Sync()

	// dry-run 은 DB 파일을 만들지 않음
	openDB := db.OpenDuckDB
	if _, statErr := os.Stat(cfg.DBPath); dryRun && os.IsNotExist(statErr) {
		openDB = db.OpenInMemory
	}

	database, err := openDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()
	database.SetLogger(logger)

	runner := ingest.NewRunner(database, cfg.FilePath).
		SetSchemas(schemas).
		SetDryRun(dryRun).
		SetLogger(logger)

	out := cmd.OutOrStdout()
	var printer *report.Printer
	if !jsonOut {
		printer = report.NewPrinter(out)
		runner.SetObserver(printer)
	}

	run, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOut {
		return report.WriteJSON(out, run)
	}
	printer.Finish(run)
	return nil
}
