package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/futures/backend/internal/contracts"
)

// rebuildCmd represents the rebuild command
var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "연속 시계열 재구성",
	Long: `상품의 주력 상태와 연속 시계열을 지우고 저장된 모든 거래일을
처음부터 다시 선정합니다. 누락된 날을 나중에 채운 뒤 사용합니다.

Example:
  go run ./cmd/futures rebuild
  go run ./cmd/futures rebuild --exchange SHFE
  go run ./cmd/futures rebuild --exchange CZCE --product CF`,
	RunE: runRebuild,
}

var (
	rebuildExchange string
	rebuildProduct  string
	rebuildWorkers  int
)

func init() {
	rootCmd.AddCommand(rebuildCmd)

	rebuildCmd.Flags().StringVar(&rebuildExchange, "exchange", "", "거래소 (기본: 전체)")
	rebuildCmd.Flags().StringVar(&rebuildProduct, "product", "", "상품 코드 (기본: 전체)")
	rebuildCmd.Flags().IntVar(&rebuildWorkers, "workers", 0, "선정 워커 수 (기본: SELECT_WORKERS)")
}

func runRebuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var exchange contracts.Exchange
	if rebuildExchange != "" {
		ex, err := contracts.ParseExchange(rebuildExchange)
		if err != nil {
			return err
		}
		exchange = ex
	}
	if rebuildProduct != "" && exchange == "" {
		return fmt.Errorf("--product requires --exchange")
	}

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	workers := rebuildWorkers
	if workers <= 0 {
		workers = a.cfg.Collector.SelectWorkers
	}

	title := "Rebuild Continuous Series"
	if exchange != "" {
		title += " · " + string(exchange)
	}
	if rebuildProduct != "" {
		title += " " + rebuildProduct
	}
	PrintHeader(title, nil)

	stats, err := a.collector.Rebuild(ctx, exchange, rebuildProduct, workers)
	printSelectStats(stats)
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}

	fmt.Println()
	PrintSuccess("Rebuild completed")
	return nil
}
