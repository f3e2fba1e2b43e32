package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/futures/backend/internal/collector"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "일일 시세표 수집",
	Long: `거래소 일일 시세표를 수집해 계약별 일봉으로 저장하고
주력 계약 선정을 진행합니다.

이 명령어는:
- 기간 내 각 날짜의 거래일 여부 확인 (CFFEX)
- 거래소별 시세표 다운로드 및 정규화
- 일봉 upsert (재실행해도 안전)
- 상품별 주력 계약 선정 및 롤오버 조정 (--no-select로 생략)

Example:
  go run ./cmd/futures fetch
  go run ./cmd/futures fetch --from 2024-03-01 --to 2024-03-08
  go run ./cmd/futures fetch --from 2024-03-08 --exchange SHFE,DCE --dry-run`,
	RunE: runFetch,
}

var (
	fetchFrom      string
	fetchTo        string
	fetchExchanges string
	fetchDryRun    bool
	fetchNoSelect  bool
	fetchWorkers   int
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "시작일 YYYY-MM-DD (기본: --to)")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "종료일 YYYY-MM-DD (기본: 오늘)")
	fetchCmd.Flags().StringVar(&fetchExchanges, "exchange", "", "거래소 목록 (예: SHFE,DCE; 기본: 전체)")
	fetchCmd.Flags().BoolVar(&fetchDryRun, "dry-run", false, "DB 없이 메모리에만 저장")
	fetchCmd.Flags().BoolVar(&fetchNoSelect, "no-select", false, "주력 계약 선정 생략")
	fetchCmd.Flags().IntVar(&fetchWorkers, "workers", 0, "선정 워커 수 (기본: SELECT_WORKERS)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	exchanges, err := parseExchanges(fetchExchanges)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, appOptions{dryRun: fetchDryRun, exchanges: exchanges})
	if err != nil {
		return err
	}
	defer a.Close()

	from, to, err := a.parseRange(fetchFrom, fetchTo)
	if err != nil {
		return err
	}

	workers := fetchWorkers
	if workers <= 0 {
		workers = a.cfg.Collector.SelectWorkers
	}

	PrintHeader("Daily Bulletin Fetch", &Period{StartDate: from.Format(dayLayout), EndDate: to.Format(dayLayout)})

	start := time.Now()
	report, err := a.collector.Run(ctx, from, to, collector.Options{Workers: workers, SkipSelect: fetchNoSelect})
	if report != nil {
		printReport(report)
	}
	if err != nil {
		PrintError(err.Error())
		return fmt.Errorf("collect: %w", err)
	}

	fmt.Println()
	if n := report.FetchFailures(); n > 0 {
		PrintWarning(fmt.Sprintf("%d bulletin fetches failed; rerun the range or use rebuild", n))
	}
	PrintSuccess(fmt.Sprintf("Fetch completed in %.2fs", time.Since(start).Seconds()))
	return nil
}
