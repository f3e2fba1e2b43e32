package commands

import (
	"fmt"
	"strconv"

	"github.com/wonny/futures/backend/internal/collector"
	"github.com/wonny/futures/backend/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// Period represents a date range
type Period struct {
	StartDate string
	EndDate   string
}

// PrintHeader prints a formatted command header
func PrintHeader(title string, period *Period) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	if period != nil {
		PrintSeparator()
		fmt.Printf("  Period    : %s ~ %s\n", period.StartDate, period.EndDate)
	}
	PrintDoubleSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	for i := 0; i < totalWidth; i++ {
		fmt.Print("─")
	}
	fmt.Println()
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// printReport prints a collection report
func printReport(report *collector.Report) {
	fmt.Println()
	PrintKeyValue("Days probed", strconv.Itoa(report.DaysProbed), 14)
	PrintKeyValue("Trading days", strconv.Itoa(len(report.TradingDays)), 14)
	if report.ProbeFailures > 0 {
		PrintKeyValue("Probe errors", strconv.Itoa(report.ProbeFailures), 14)
	}
	fmt.Println()

	widths := []int{8, 8, 8, 8, 8, 10}
	PrintTableHeader([]string{"Exchange", "Fetched", "Failed", "Stored", "Dropped", "Misordered"}, widths)
	for _, ex := range contracts.Exchanges {
		er, ok := report.Exchanges[ex]
		if !ok {
			continue
		}
		PrintTableRow([]string{
			string(ex),
			strconv.Itoa(er.Fetched),
			strconv.Itoa(er.Failed),
			strconv.Itoa(er.Stored),
			strconv.Itoa(er.Dropped),
			strconv.Itoa(er.Misordered),
		}, widths)
	}

	printSelectStats(report.Selection)
}

// printSelectStats prints selector counters and every switch
func printSelectStats(stats collector.SelectStats) {
	fmt.Println()
	PrintKeyValue("Days selected", strconv.Itoa(stats.Days), 14)
	PrintKeyValue("Processed", strconv.Itoa(stats.Processed), 14)
	PrintKeyValue("Skipped", strconv.Itoa(stats.Skipped), 14)
	PrintKeyValue("Failed", strconv.Itoa(stats.Failed), 14)
	PrintKeyValue("Seeded", strconv.Itoa(stats.Seeded), 14)
	PrintKeyValue("Switched", fmt.Sprintf("%d (forced %d)", stats.Switched, stats.Forced), 14)

	if len(stats.Switches) == 0 {
		return
	}

	fmt.Println()
	widths := []int{10, 8, 8, 10, 10, 10}
	PrintTableHeader([]string{"Day", "Exchange", "Product", "From", "To", "Basis"}, widths)
	for _, d := range stats.Switches {
		PrintTableRow([]string{
			d.Day.Format(dayLayout),
			string(d.Exchange),
			d.Product,
			d.PrevCode,
			d.MainCode,
			d.Basis.String(),
		}, widths)
	}
}
