package mainseries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wonny/futures/backend/internal/contracts"
	"github.com/wonny/futures/backend/pkg/database"
)

// Repository implements contracts.MainSeriesStore on PostgreSQL
// ⭐ SSOT: 연속선물/주력계약 상태 저장소는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new main series repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const upsertMainBarSQL = `
	INSERT INTO data.main_bars (
		exchange, product_code, trade_date, cur_code,
		open, high, low, close, settlement,
		volume, open_interest, basis
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (exchange, product_code, trade_date) DO UPDATE SET
		cur_code = EXCLUDED.cur_code,
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		settlement = EXCLUDED.settlement,
		volume = EXCLUDED.volume,
		open_interest = EXCLUDED.open_interest,
		basis = EXCLUDED.basis
`

func mainBarArgs(bar contracts.MainBar) []any {
	return []any{
		string(bar.Exchange), bar.ProductCode, contracts.Day(bar.Day), bar.CurCode,
		bar.Open, bar.High, bar.Low, bar.Close, bar.Settlement,
		bar.Volume, bar.OpenInterest, bar.Basis,
	}
}

// UpsertMainBar writes one continuous-series row
func (r *Repository) UpsertMainBar(ctx context.Context, bar contracts.MainBar) error {
	if _, err := r.pool.Exec(ctx, upsertMainBarSQL, mainBarArgs(bar)...); err != nil {
		return fmt.Errorf("upsert main bar: %w", err)
	}
	return nil
}

// ShiftRange writes row, then adds delta to every row <= row.Day and records
// it as that day's basis. Lock, write and shift share one transaction so
// readers see all or nothing.
func (r *Repository) ShiftRange(ctx context.Context, row contracts.MainBar, delta decimal.Decimal) error {
	upTo := contracts.Day(row.Day)
	exchange, product := string(row.Exchange), row.ProductCode

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		lock := `
			SELECT 1 FROM data.main_bars
			WHERE exchange = $1 AND product_code = $2 AND trade_date <= $3
			FOR UPDATE
		`
		if _, err := tx.Exec(ctx, lock, exchange, product, upTo); err != nil {
			return fmt.Errorf("lock main bars: %w", err)
		}

		if _, err := tx.Exec(ctx, upsertMainBarSQL, mainBarArgs(row)...); err != nil {
			return fmt.Errorf("upsert main bar: %w", err)
		}

		shift := `
			UPDATE data.main_bars SET
				open = open + $4,
				high = high + $4,
				low = low + $4,
				close = close + $4,
				settlement = settlement + $4,
				basis = CASE WHEN trade_date = $3 THEN $4 ELSE basis END
			WHERE exchange = $1 AND product_code = $2 AND trade_date <= $3
		`
		if _, err := tx.Exec(ctx, shift, exchange, product, upTo, delta); err != nil {
			return fmt.Errorf("shift main bars: %w", err)
		}
		return nil
	})
}

// MainBars returns rows in [from, to] ascending; zero bounds are open
func (r *Repository) MainBars(ctx context.Context, exchange contracts.Exchange, product string, from, to time.Time) ([]contracts.MainBar, error) {
	query := `
		SELECT exchange, product_code, trade_date, cur_code,
			open, high, low, close, settlement,
			volume, open_interest, basis
		FROM data.main_bars
		WHERE exchange = $1 AND product_code = $2
		  AND ($3::date IS NULL OR trade_date >= $3)
		  AND ($4::date IS NULL OR trade_date <= $4)
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, string(exchange), product, nullableDay(from), nullableDay(to))
	if err != nil {
		return nil, fmt.Errorf("query main bars: %w", err)
	}
	defer rows.Close()

	var out []contracts.MainBar
	for rows.Next() {
		var b contracts.MainBar
		var ex string
		if err := rows.Scan(
			&ex, &b.ProductCode, &b.Day, &b.CurCode,
			&b.Open, &b.High, &b.Low, &b.Close, &b.Settlement,
			&b.Volume, &b.OpenInterest, &b.Basis,
		); err != nil {
			return nil, fmt.Errorf("scan main bar: %w", err)
		}
		b.Exchange = contracts.Exchange(ex)
		out = append(out, b)
	}
	return out, rows.Err()
}

// LatestMainDay returns the newest row's day, or the zero time
func (r *Repository) LatestMainDay(ctx context.Context, exchange contracts.Exchange, product string) (time.Time, error) {
	query := `SELECT MAX(trade_date) FROM data.main_bars WHERE exchange = $1 AND product_code = $2`

	var latest *time.Time
	if err := r.pool.QueryRow(ctx, query, string(exchange), product).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("query latest main day: %w", err)
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return contracts.Day(*latest), nil
}

const instrumentColumns = `exchange, product_code, main_code, last_main, change_time, night_trade`

func scanInstrument(row pgx.Row) (contracts.Instrument, error) {
	var (
		inst       contracts.Instrument
		ex         string
		mainCode   *string
		lastMain   *string
		changeTime *time.Time
	)
	if err := row.Scan(&ex, &inst.ProductCode, &mainCode, &lastMain, &changeTime, &inst.NightTrade); err != nil {
		return inst, err
	}
	inst.Exchange = contracts.Exchange(ex)
	if mainCode != nil {
		inst.MainCode = *mainCode
	}
	if lastMain != nil {
		inst.LastMain = *lastMain
	}
	if changeTime != nil {
		inst.ChangeTime = contracts.Day(*changeTime)
	}
	return inst, nil
}

// GetInstrument returns stored state or contracts.ErrNotFound
func (r *Repository) GetInstrument(ctx context.Context, exchange contracts.Exchange, product string) (*contracts.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM data.instruments WHERE exchange = $1 AND product_code = $2`

	inst, err := scanInstrument(r.pool.QueryRow(ctx, query, string(exchange), product))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query instrument: %w", err)
	}
	return &inst, nil
}

// SaveInstrument upserts inst
func (r *Repository) SaveInstrument(ctx context.Context, inst *contracts.Instrument) error {
	query := `
		INSERT INTO data.instruments (` + instrumentColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (exchange, product_code) DO UPDATE SET
			main_code = EXCLUDED.main_code,
			last_main = EXCLUDED.last_main,
			change_time = EXCLUDED.change_time,
			night_trade = EXCLUDED.night_trade,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		string(inst.Exchange), inst.ProductCode,
		nullableString(inst.MainCode), nullableString(inst.LastMain),
		nullableDay(inst.ChangeTime), inst.NightTrade,
	)
	if err != nil {
		return fmt.Errorf("save instrument: %w", err)
	}
	return nil
}

// ListInstruments returns every instrument ordered by exchange and product
func (r *Repository) ListInstruments(ctx context.Context) ([]contracts.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM data.instruments ORDER BY exchange, product_code`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query instruments: %w", err)
	}
	defer rows.Close()

	var out []contracts.Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// EnsureInstruments registers unseeded rows for new products and reports
// how many were created
func (r *Repository) EnsureInstruments(ctx context.Context, exchange contracts.Exchange, products []string) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO data.instruments (exchange, product_code)
		SELECT $1, p FROM unnest($2::text[]) AS p
		ON CONFLICT (exchange, product_code) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query, string(exchange), products)
	if err != nil {
		return 0, fmt.Errorf("ensure instruments: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ResetInstrument clears main-contract state and the continuous series
func (r *Repository) ResetInstrument(ctx context.Context, exchange contracts.Exchange, product string) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM data.main_bars WHERE exchange = $1 AND product_code = $2`,
			string(exchange), product,
		); err != nil {
			return fmt.Errorf("delete main bars: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE data.instruments
			SET main_code = NULL, last_main = NULL, change_time = NULL, updated_at = NOW()
			WHERE exchange = $1 AND product_code = $2
		`, string(exchange), product); err != nil {
			return fmt.Errorf("reset instrument: %w", err)
		}
		return nil
	})
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableDay(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	d := contracts.Day(t)
	return &d
}

var _ contracts.MainSeriesStore = (*Repository)(nil)
