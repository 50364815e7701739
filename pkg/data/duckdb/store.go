package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peter-kozarec/strategytester/pkg/account"
	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/order"
	"github.com/peter-kozarec/strategytester/pkg/simulation"
	"github.com/peter-kozarec/strategytester/pkg/tools/metrics"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

const insertBatchSize = 500

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id            VARCHAR PRIMARY KEY,
		account_id        VARCHAR,
		account_name      VARCHAR,
		initial_balance   DOUBLE,
		leverage          DOUBLE,
		margin_call_level DOUBLE,
		digits            INTEGER,
		final_balance     DOUBLE,
		final_equity      DOUBLE,
		ticks             BIGINT,
		blown             BOOLEAN,
		first_tick        TIMESTAMP,
		last_tick         TIMESTAMP,
		started_at        TIMESTAMP,
		finished_at       TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS ledger (
		run_id      VARCHAR,
		seq         BIGINT,
		ts          TIMESTAMP,
		balance     DOUBLE,
		free_margin DOUBLE,
		equity      DOUBLE,
		nav         DOUBLE
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		run_id        VARCHAR,
		order_id      BIGINT,
		strategy_id   VARCHAR,
		strategy_name VARCHAR,
		asset_id      VARCHAR,
		direction     VARCHAR,
		mode          VARCHAR,
		size          DOUBLE,
		strike        DOUBLE,
		entry_cost    DOUBLE,
		pips          DOUBLE,
		profit        DOUBLE,
		margin        DOUBLE,
		was_opened    BOOLEAN,
		activated_at  TIMESTAMP,
		opened_at     TIMESTAMP,
		closed_at     TIMESTAMP,
		close_reason  VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS samples (
		run_id VARCHAR,
		idx    BIGINT,
		ts     TIMESTAMP,
		name   VARCHAR,
		value  DOUBLE
	)`,
}

// Store persists finished runs keyed by run id.
type Store struct {
	logger  *zap.Logger
	db      *sql.DB
	builder squirrel.StatementBuilderType
}

func Open(logger *zap.Logger, dataSourceName string) (*Store, error) {
	db, err := sql.Open("duckdb", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("unable to open duckdb %q: %w", dataSourceName, err)
	}
	return NewStore(logger, db), nil
}

func NewStore(logger *zap.Logger, db *sql.DB) *Store {
	return &Store{
		logger:  logger,
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("unable to create schema: %w", err)
		}
	}
	return nil
}

// SaveRun writes the run, its ledger, its terminated orders and its samples in
// one transaction.
func (s *Store) SaveRun(ctx context.Context, result simulation.Result, acc *account.Account) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Warn("unable to rollback", zap.Stringer("run_id", result.RunID), zap.Error(rbErr))
			}
		}
	}()

	runID := result.RunID.String()

	if err = s.insertRun(tx, runID, result, acc); err != nil {
		return err
	}
	if err = s.insertLedger(tx, runID, acc.History()); err != nil {
		return err
	}
	if err = s.insertOrders(tx, runID, acc.InactiveOrders()); err != nil {
		return err
	}
	if err = s.insertSamples(tx, runID, result.Samples); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("run %s: unable to commit: %w", runID, err)
	}

	s.logger.Info("run saved",
		zap.String("run_id", runID),
		zap.Int("ledger_points", len(acc.History())),
		zap.Int("orders", acc.InactiveCount()),
		zap.Int("samples", len(result.Samples)))

	return nil
}

func (s *Store) insertRun(tx *sql.Tx, runID string, result simulation.Result, acc *account.Account) error {
	cfg := acc.Config()
	info := acc.RunInfo()

	_, err := s.builder.Insert("runs").
		Columns("run_id", "account_id", "account_name", "initial_balance", "leverage", "margin_call_level", "digits",
			"final_balance", "final_equity", "ticks", "blown", "first_tick", "last_tick", "started_at", "finished_at").
		Values(runID, cfg.ID, cfg.Name, toFloat(cfg.InitialBalance), toFloat(cfg.Leverage), toFloat(cfg.MarginCallLevel), cfg.Digits,
			toFloat(acc.Balance()), toFloat(acc.Equity()), result.Ticks, result.Blown,
			nullTime(info.FirstTick), nullTime(info.LastTick), nullTime(result.StartedAt), nullTime(result.FinishedAt)).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("run %s: unable to insert run: %w", runID, err)
	}
	return nil
}

func (s *Store) insertLedger(tx *sql.Tx, runID string, history []account.LedgerPoint) error {
	for start := 0; start < len(history); start += insertBatchSize {
		end := min(start+insertBatchSize, len(history))

		q := s.builder.Insert("ledger").Columns("run_id", "seq", "ts", "balance", "free_margin", "equity", "nav")
		for i := start; i < end; i++ {
			p := history[i]
			q = q.Values(runID, i, p.TimeStamp.UTC(), toFloat(p.Balance), toFloat(p.FreeMargin), toFloat(p.Equity), toFloat(p.NAV))
		}
		if _, err := q.RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("run %s: unable to insert ledger: %w", runID, err)
		}
	}
	return nil
}

func (s *Store) insertOrders(tx *sql.Tx, runID string, orders []*order.Order) error {
	for start := 0; start < len(orders); start += insertBatchSize {
		end := min(start+insertBatchSize, len(orders))

		q := s.builder.Insert("orders").
			Columns("run_id", "order_id", "strategy_id", "strategy_name", "asset_id", "direction", "mode",
				"size", "strike", "entry_cost", "pips", "profit", "margin", "was_opened",
				"activated_at", "opened_at", "closed_at", "close_reason")
		for _, o := range orders[start:end] {
			q = q.Values(runID, int64(o.ID()), o.StrategyID(), o.StrategyName(), o.AssetID(), o.Direction().String(), string(o.Mode()),
				toFloat(o.Size()), toFloat(o.Strike()), toFloat(o.EntryCost()), toFloat(o.Pips()), toFloat(o.Profit()), toFloat(o.Margin()),
				o.WasOpened(), nullTime(o.Activated().Tick), nullTime(o.Opened().Tick), nullTime(o.Closed().Tick),
				string(o.CloseReason()))
		}
		if _, err := q.RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("run %s: unable to insert orders: %w", runID, err)
		}
	}
	return nil
}

func (s *Store) insertSamples(tx *sql.Tx, runID string, samples []metrics.Sample) error {
	var rows int
	q := s.builder.Insert("samples").Columns("run_id", "idx", "ts", "name", "value")
	flush := func() error {
		if rows == 0 {
			return nil
		}
		if _, err := q.RunWith(tx).Exec(); err != nil {
			return fmt.Errorf("run %s: unable to insert samples: %w", runID, err)
		}
		q = s.builder.Insert("samples").Columns("run_id", "idx", "ts", "name", "value")
		rows = 0
		return nil
	}

	for _, sample := range samples {
		for _, v := range sample.Values {
			q = q.Values(runID, sample.Index, sample.TimeStamp.UTC(), v.Name, toFloat(v.Value))
			if rows++; rows == insertBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	return flush()
}

func (s *Store) LedgerPoints(ctx context.Context, runID uuid.UUID) ([]account.LedgerPoint, error) {
	query, args, err := s.builder.
		Select("ts", "balance", "free_margin", "equity", "nav").
		From("ledger").
		Where(squirrel.Eq{"run_id": runID.String()}).
		OrderBy("seq").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("run %s: error querying ledger: %w", runID, err)
	}
	defer s.closeRows(rows)

	var points []account.LedgerPoint
	for rows.Next() {
		var (
			ts                              time.Time
			balance, freeMargin, equity, nav float64
		)
		if err := rows.Scan(&ts, &balance, &freeMargin, &equity, &nav); err != nil {
			return nil, fmt.Errorf("run %s: error scanning ledger row: %w", runID, err)
		}
		points = append(points, account.LedgerPoint{
			TimeStamp:  ts.UTC(),
			Balance:    fixed.FromFloat64(balance),
			FreeMargin: fixed.FromFloat64(freeMargin),
			Equity:     fixed.FromFloat64(equity),
			NAV:        fixed.FromFloat64(nav),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("run %s: error scanning ledger: %w", runID, err)
	}
	return points, nil
}

func (s *Store) Orders(ctx context.Context, runID uuid.UUID) ([]order.Snapshot, error) {
	query, args, err := s.builder.
		Select("order_id", "strategy_id", "strategy_name", "asset_id", "direction", "mode",
			"size", "strike", "entry_cost", "pips", "profit", "margin", "was_opened",
			"activated_at", "opened_at", "closed_at", "close_reason").
		From("orders").
		Where(squirrel.Eq{"run_id": runID.String()}).
		OrderBy("order_id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("run %s: error querying orders: %w", runID, err)
	}
	defer s.closeRows(rows)

	var snapshots []order.Snapshot
	for rows.Next() {
		var (
			id                                           int64
			direction, mode, closeReason                 string
			size, strike, entryCost, pips, profit, margin float64
			activated, opened, closed                    sql.NullTime
			snap                                         order.Snapshot
		)
		if err := rows.Scan(&id, &snap.StrategyID, &snap.StrategyName, &snap.AssetID, &direction, &mode,
			&size, &strike, &entryCost, &pips, &profit, &margin, &snap.WasOpened,
			&activated, &opened, &closed, &closeReason); err != nil {
			return nil, fmt.Errorf("run %s: error scanning order row: %w", runID, err)
		}

		d, err := common.ParseDirection(direction)
		if err != nil {
			return nil, fmt.Errorf("run %s order %d: %w", runID, id, err)
		}

		snap.ID = order.ID(id)
		snap.Direction = d
		snap.Mode = common.Mode(mode)
		snap.Size = fixed.FromFloat64(size)
		snap.Strike = fixed.FromFloat64(strike)
		snap.EntryCost = fixed.FromFloat64(entryCost)
		snap.Pips = fixed.FromFloat64(pips)
		snap.Profit = fixed.FromFloat64(profit)
		snap.Margin = fixed.FromFloat64(margin)
		snap.Activated = timestamps(activated)
		snap.Opened = timestamps(opened)
		snap.Closed = timestamps(closed)
		snap.CloseReason = order.CloseReason(closeReason)
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("run %s: error scanning orders: %w", runID, err)
	}
	return snapshots, nil
}

func (s *Store) RunExists(ctx context.Context, runID uuid.UUID) (bool, error) {
	query, args, err := s.builder.Select("count(*)").From("runs").Where(squirrel.Eq{"run_id": runID.String()}).ToSql()
	if err != nil {
		return false, err
	}
	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("run %s: %w", runID, err)
	}
	return count > 0, nil
}

func (s *Store) closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		s.logger.Warn("unable to close rows", zap.Error(err))
	}
}

func toFloat(p fixed.Point) float64 {
	f, _ := p.Float64()
	return f
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timestamps(t sql.NullTime) order.Timestamps {
	if !t.Valid {
		return order.Timestamps{}
	}
	return order.Timestamps{Tick: t.Time.UTC()}
}
