package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/datasource"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

var (
	ErrNonNumericPrice = errors.New("price column holds a non numeric value")
	ErrUnknownKind     = errors.New("unknown source kind")
	ErrMissingPath     = errors.New("source path is empty")
)

type SourceKind string

const (
	KindCSV     SourceKind = "csv"
	KindParquet SourceKind = "parquet"
	KindTable   SourceKind = "table"
)

const (
	defaultTimeColumn  = "ts"
	defaultPriceColumn = "price"
)

// Source describes where the ticks of one asset live. Path is a file for csv
// and parquet sources and a table name for table sources.
type Source struct {
	Kind        SourceKind
	Path        string
	TimeColumn  string
	PriceColumn string
	From        optional.Option[time.Time]
	To          optional.Option[time.Time]

	Spread     fixed.Point
	Commission fixed.Point
	Slippage   fixed.Point
}

type Loader struct {
	logger         *zap.Logger
	dataSourceName string
	db             *sql.DB
	ownsDB         bool
	builder        squirrel.StatementBuilderType
}

func NewLoader(logger *zap.Logger, dataSourceName string) *Loader {
	return &Loader{
		logger:         logger,
		dataSourceName: dataSourceName,
		builder:        squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

// NewLoaderFromDB reuses an already open connection, Close leaves it open.
func NewLoaderFromDB(logger *zap.Logger, db *sql.DB) *Loader {
	l := NewLoader(logger, "")
	l.db = db
	return l
}

func (l *Loader) Connect() error {
	db, err := sql.Open("duckdb", l.dataSourceName)
	if err != nil {
		return fmt.Errorf("unable to open duckdb %q: %w", l.dataSourceName, err)
	}
	l.db = db
	l.ownsDB = true
	return nil
}

func (l *Loader) Close() {
	if l.db == nil || !l.ownsDB {
		return
	}
	if err := l.db.Close(); err != nil {
		l.logger.Warn("unable to close duckdb", zap.String("dsn", l.dataSourceName), zap.Error(err))
	}
}

// LoadSeries reads the ticks of one asset ordered by time. Every tick carries
// the cost terms of the source.
func (l *Loader) LoadSeries(ctx context.Context, asset common.Asset, src Source) (datasource.Series, error) {
	if l.db == nil {
		if err := l.Connect(); err != nil {
			return datasource.Series{}, err
		}
	}

	query, args, err := l.buildQuery(src)
	if err != nil {
		return datasource.Series{}, fmt.Errorf("asset %q: %w", asset.ID, err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return datasource.Series{}, fmt.Errorf("asset %q: error querying %s source %q: %w", asset.ID, src.Kind, src.Path, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			l.logger.Warn("unable to close rows", zap.String("asset", asset.ID), zap.Error(err))
		}
	}()

	series := datasource.Series{Asset: asset}
	for row := 0; rows.Next(); row++ {
		var (
			timeStamp time.Time
			price     sql.NullFloat64
			raw       sql.NullString
		)
		if err := rows.Scan(&timeStamp, &price, &raw); err != nil {
			return datasource.Series{}, fmt.Errorf("asset %q row %d: error scanning row: %w", asset.ID, row, err)
		}
		if !price.Valid {
			return datasource.Series{}, fmt.Errorf("asset %q row %d value %q: %w", asset.ID, row, raw.String, ErrNonNumericPrice)
		}

		p := fixed.FromFloat64(price.Float64)
		series.Ticks = append(series.Ticks, common.Tick{
			TimeStamp:  timeStamp.UTC(),
			Price:      p,
			Spread:     src.Spread,
			Commission: src.Commission,
			Slippage:   src.Slippage,
			Settlement: p,
		})
	}
	if err := rows.Err(); err != nil {
		return datasource.Series{}, fmt.Errorf("asset %q: error scanning rows: %w", asset.ID, err)
	}

	l.logger.Debug("series loaded",
		zap.String("asset", asset.ID),
		zap.String("kind", string(src.Kind)),
		zap.String("path", src.Path),
		zap.Int("ticks", len(series.Ticks)))

	return series, nil
}

func (l *Loader) buildQuery(src Source) (string, []any, error) {
	if src.Path == "" {
		return "", nil, ErrMissingPath
	}

	var from string
	switch src.Kind {
	case KindCSV:
		from = fmt.Sprintf("read_csv_auto(%s)", quoteLiteral(src.Path))
	case KindParquet:
		from = fmt.Sprintf("read_parquet(%s)", quoteLiteral(src.Path))
	case KindTable:
		from = quoteIdent(src.Path)
	default:
		return "", nil, fmt.Errorf("%w %q", ErrUnknownKind, src.Kind)
	}

	timeColumn := quoteIdent(orDefault(src.TimeColumn, defaultTimeColumn))
	priceColumn := quoteIdent(orDefault(src.PriceColumn, defaultPriceColumn))
	timeExpr := fmt.Sprintf("CAST(%s AS TIMESTAMP)", timeColumn)

	q := l.builder.
		Select(
			timeExpr+" AS ts",
			fmt.Sprintf("TRY_CAST(%s AS DOUBLE) AS price", priceColumn),
			fmt.Sprintf("CAST(%s AS VARCHAR) AS raw", priceColumn),
		).
		From(from).
		OrderBy("ts")

	if src.From.IsSome() {
		q = q.Where(squirrel.GtOrEq{timeExpr: src.From.Unwrap().UTC()})
	}
	if src.To.IsSome() {
		q = q.Where(squirrel.LtOrEq{timeExpr: src.To.Unwrap().UTC()})
	}

	return q.ToSql()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}
