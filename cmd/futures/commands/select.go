package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// selectCmd represents the select command
var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "저장된 일봉으로 주력 계약 선정",
	Long: `이미 저장된 거래일에 대해 주력 계약 선정만 실행합니다.
이미 처리된 날짜는 상품별로 건너뜁니다.

Example:
  go run ./cmd/futures select --from 2024-03-01 --to 2024-03-08`,
	RunE: runSelect,
}

var (
	selectFrom    string
	selectTo      string
	selectWorkers int
)

func init() {
	rootCmd.AddCommand(selectCmd)

	selectCmd.Flags().StringVar(&selectFrom, "from", "", "시작일 YYYY-MM-DD (기본: --to)")
	selectCmd.Flags().StringVar(&selectTo, "to", "", "종료일 YYYY-MM-DD (기본: 오늘)")
	selectCmd.Flags().IntVar(&selectWorkers, "workers", 0, "선정 워커 수 (기본: SELECT_WORKERS)")
}

func runSelect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	from, to, err := a.parseRange(selectFrom, selectTo)
	if err != nil {
		return err
	}

	workers := selectWorkers
	if workers <= 0 {
		workers = a.cfg.Collector.SelectWorkers
	}

	PrintHeader("Main Contract Selection", &Period{StartDate: from.Format(dayLayout), EndDate: to.Format(dayLayout)})

	stats, err := a.collector.SelectDays(ctx, from, to, workers)
	printSelectStats(stats)
	if err != nil {
		return fmt.Errorf("select: %w", err)
	}

	fmt.Println()
	PrintSuccess("Selection completed")
	return nil
}
