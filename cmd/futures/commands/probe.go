package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/futures/backend/internal/collector"
)

// probeCmd represents the probe command
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "거래일 확인",
	Long: `CFFEX 시세표 주소로 거래일 여부를 확인합니다.
장 마감 전에는 당일도 휴장으로 보일 수 있습니다.

Example:
  go run ./cmd/futures probe --day 2024-10-01
  go run ./cmd/futures probe --day 2024-09-30 --to 2024-10-08`,
	RunE: runProbe,
}

var (
	probeDay string
	probeTo  string
)

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().StringVar(&probeDay, "day", "", "확인할 날짜 YYYY-MM-DD (기본: 오늘)")
	probeCmd.Flags().StringVar(&probeTo, "to", "", "범위 종료일 YYYY-MM-DD")
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// probing needs neither the database nor stored bars
	a, err := newApp(ctx, appOptions{dryRun: true})
	if err != nil {
		return err
	}
	defer a.Close()

	to := probeTo
	if to == "" {
		to = probeDay
	}
	from, end, err := a.parseRange(probeDay, to)
	if err != nil {
		return err
	}

	widths := []int{10, 4, 8}
	PrintTableHeader([]string{"Day", "Dow", "Status"}, widths)

	for _, day := range collector.Days(from, end) {
		status := "closed"
		open, err := a.calendar.IsTradingDay(ctx, day)
		switch {
		case err != nil:
			status = "error: " + err.Error()
		case open:
			status = "trading"
		}
		PrintTableRow([]string{day.Format(dayLayout), day.Format("Mon"), status}, widths)
	}

	return nil
}
