package bars

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/futures/backend/internal/contracts"
	"github.com/wonny/futures/backend/pkg/database"
)

// Repository implements contracts.DailyBarStore on PostgreSQL
// ⭐ SSOT: 계약별 일봉 저장소는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new daily bar repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const barColumns = `exchange, code, trade_date, expire_date, open, high, low, close, settlement, volume, open_interest`

func scanBar(row pgx.Row) (contracts.DailyBar, error) {
	var b contracts.DailyBar
	var exchange string
	err := row.Scan(
		&exchange, &b.Code, &b.Day, &b.ExpiryCode,
		&b.Open, &b.High, &b.Low, &b.Close, &b.Settlement,
		&b.Volume, &b.OpenInterest,
	)
	b.Exchange = contracts.Exchange(exchange)
	return b, err
}

func collectBars(rows pgx.Rows) ([]contracts.DailyBar, error) {
	defer rows.Close()

	var out []contracts.DailyBar
	for rows.Next() {
		b, err := scanBar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily bar: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpsertBars writes every bar in one transaction. Each row is a single
// INSERT ... ON CONFLICT statement so concurrent writers to the same key
// never interleave partial fields.
func (r *Repository) UpsertBars(ctx context.Context, bars []contracts.DailyBar) error {
	if len(bars) == 0 {
		return nil
	}

	query := `
		INSERT INTO data.daily_bars (` + barColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (exchange, code, trade_date) DO UPDATE SET
			expire_date = EXCLUDED.expire_date,
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			settlement = EXCLUDED.settlement,
			volume = EXCLUDED.volume,
			open_interest = EXCLUDED.open_interest,
			updated_at = NOW()
	`

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, b := range bars {
			batch.Queue(query,
				string(b.Exchange), b.Code, contracts.Day(b.Day), b.ExpiryCode,
				b.Open, b.High, b.Low, b.Close, b.Settlement,
				b.Volume, b.OpenInterest,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for _, b := range bars {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("upsert %s %s: %w", b.Exchange, b.Code, err)
			}
		}
		return results.Close()
	})
}

// GetBar returns one contract's bar, or contracts.ErrNotFound
func (r *Repository) GetBar(ctx context.Context, exchange contracts.Exchange, code string, day time.Time) (*contracts.DailyBar, error) {
	query := `
		SELECT ` + barColumns + `
		FROM data.daily_bars
		WHERE exchange = $1 AND code = $2 AND trade_date = $3
	`

	b, err := scanBar(r.pool.QueryRow(ctx, query, string(exchange), code, contracts.Day(day)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query daily bar: %w", err)
	}
	return &b, nil
}

// QueryBars builds the filter from the non-zero fields of q
func (r *Repository) QueryBars(ctx context.Context, q contracts.BarQuery) ([]contracts.DailyBar, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if q.Exchange != "" {
		add("exchange = $%d", string(q.Exchange))
	}
	if q.Product != "" {
		add("code ~ ('^' || $%d::text || '[0-9]+$')", q.Product)
	}
	if !q.From.IsZero() {
		add("trade_date >= $%d", contracts.Day(q.From))
	}
	if !q.To.IsZero() {
		add("trade_date <= $%d", contracts.Day(q.To))
	}
	if q.MinExpiry > 0 {
		add("expire_date >= $%d", q.MinExpiry)
	}
	if q.MinVolume > 0 {
		add("volume >= $%d", q.MinVolume)
	}
	if q.MinOpenInterest > 0 {
		add("open_interest >= $%d", q.MinOpenInterest)
	}

	query := `SELECT ` + barColumns + ` FROM data.daily_bars`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}

	switch q.OrderBy {
	case contracts.OrderByDay:
		query += ` ORDER BY trade_date ASC, code ASC`
	default:
		query += ` ORDER BY volume DESC, open_interest DESC, code ASC`
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query daily bars: %w", err)
	}
	return collectBars(rows)
}

// DailyLeaders picks each day's most liquid contract with DISTINCT ON
func (r *Repository) DailyLeaders(ctx context.Context, exchange contracts.Exchange, product string, upTo time.Time, n int) ([]contracts.DailyBar, error) {
	query := `
		SELECT DISTINCT ON (trade_date) ` + barColumns + `
		FROM data.daily_bars
		WHERE exchange = $1
		  AND code ~ ('^' || $2::text || '[0-9]+$')
		  AND trade_date <= $3
		ORDER BY trade_date DESC, volume DESC, open_interest DESC, code ASC
		LIMIT $4
	`

	rows, err := r.pool.Query(ctx, query, string(exchange), product, contracts.Day(upTo), n)
	if err != nil {
		return nil, fmt.Errorf("query daily leaders: %w", err)
	}
	return collectBars(rows)
}

// TradingDays lists the distinct stored days in [from, to], ascending
func (r *Repository) TradingDays(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT DISTINCT trade_date
		FROM data.daily_bars
		WHERE trade_date BETWEEN $1 AND $2
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, contracts.Day(from), contracts.Day(to))
	if err != nil {
		return nil, fmt.Errorf("query trading days: %w", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan trading day: %w", err)
		}
		days = append(days, contracts.Day(d))
	}
	return days, rows.Err()
}

// Products lists the product codes with at least one bar on day
func (r *Repository) Products(ctx context.Context, exchange contracts.Exchange, day time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT substring(code from '^[A-Za-z]+') AS product
		FROM data.daily_bars
		WHERE exchange = $1 AND trade_date = $2
		ORDER BY product
	`

	rows, err := r.pool.Query(ctx, query, string(exchange), contracts.Day(day))
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

var _ contracts.DailyBarStore = (*Repository)(nil)
