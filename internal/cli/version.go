package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build information, set with -ldflags "-X"
var (
	Version = "0.1.0"
	Commit  = "none"
	Date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "버전 정보 출력",
	Long:  `Trail Trekker 버전 및 빌드 정보를 출력합니다.`,
	Args:  cobra.NoArgs,
	Run:   runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = Version
}

func runVersion(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	info := map[string]interface{}{
		"version": Version,
		"commit":  Commit,
		"date":    Date,
		"go":      runtime.Version(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}

	if jsonOut {
		json.NewEncoder(out).Encode(info)
		return
	}

	fmt.Fprintf(out, "Trail Trekker %s\n", Version)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Commit:    %s\n", Commit)
	fmt.Fprintf(out, "  Built:     %s\n", Date)
	fmt.Fprintf(out, "  Go:        %s\n", runtime.Version())
	fmt.Fprintf(out, "  OS/Arch:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
