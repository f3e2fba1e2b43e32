package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "futures",
	Short: "중국 선물 일봉 수집 및 주력 연속 시계열",
	Long: `Futures Main-Contract CLI

SHFE, DCE, CZCE, CFFEX 일일 시세표를 수집해 계약별 일봉을 저장하고
상품별 주력 계약을 선정해 백어저스트 연속 시계열을 유지합니다.

Usage:
  go run ./cmd/futures [command]

Examples:
  go run ./cmd/futures migrate
  go run ./cmd/futures fetch --from 2024-03-01 --to 2024-03-08
  go run ./cmd/futures rebuild --exchange SHFE --product cu
  go run ./cmd/futures scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Ctrl+C or SIGTERM cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
