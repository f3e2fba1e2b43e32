package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/futures/backend/internal/api"
	"github.com/wonny/futures/backend/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                                  - Health check
  GET  /api/instruments                         - 상품별 주력 상태
  GET  /api/instruments/{exchange}/{product}    - 단일 상품 상태
  GET  /api/main-bars/{exchange}/{product}      - 연속 시계열 (?from&to)
  GET  /api/daily-bars/{exchange}/{product}     - 계약별 일봉 (?day)
  POST /api/collect                             - 수집 트리거 {from,to}

Example:
  go run ./cmd/futures api
  go run ./cmd/futures api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	log := a.log
	seriesHandler := handlers.NewSeriesHandler(a.bars, a.series, log)
	dataHandler := handlers.NewDataHandler(a.collector, a.cfg.Collector.SelectWorkers, a.cfg.Location(), log)
	router := api.NewRouter(seriesHandler, dataHandler, log)
	server := api.New(a.cfg, log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
