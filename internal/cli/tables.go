package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/n0roo/trail-trekker/internal/db"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "테이블 목록과 행 수",
	Long:  `이미 적재된 DB 파일의 테이블과 행 수를 출력합니다.`,
	Args:  cobra.NoArgs,
	RunE:  runTables,
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}

// TableCount is one row of the tables listing
type TableCount struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

func runTables(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		return fmt.Errorf("DB 파일이 없습니다: %s", cfg.DBPath)
	}

	database, err := db.OpenDuckDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := cmd.Context()
	names, err := db.ShowTables(ctx, database)
	if err != nil {
		return err
	}

	counts := []TableCount{}
	for _, name := range names {
		n, err := db.CountRows(ctx, database, name)
		if err != nil {
			return err
		}
		counts = append(counts, TableCount{Name: name, Rows: n})
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return json.NewEncoder(out).Encode(counts)
	}

	fmt.Fprintf(out, "📦 %s (%d개 테이블)\n", cfg.DBPath, len(counts))
	for _, c := range counts {
		fmt.Fprintf(out, "  %-16s %8d\n", c.Name, c.Rows)
	}
	return nil
}
