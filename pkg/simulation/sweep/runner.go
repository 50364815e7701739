package sweep

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/peter-kozarec/strategytester/pkg/account"
	"github.com/peter-kozarec/strategytester/pkg/bus"
	"github.com/peter-kozarec/strategytester/pkg/datasource"
	"github.com/peter-kozarec/strategytester/pkg/simulation"
	"github.com/peter-kozarec/strategytester/pkg/tools/metrics"
	"github.com/peter-kozarec/strategytester/pkg/utility/fixed"
)

var ErrNoTrials = errors.New("sweep has no trials")

// AccountFactory builds the fresh account every trial runs on.
type AccountFactory func() (*account.Account, error)

// StrategyFactory binds the strategies of one trial to its parameters.
type StrategyFactory func(params Params) ([]simulation.Strategy, error)

type Trial struct {
	Params  Params            `json:"params"`
	Result  simulation.Result `json:"result"`
	Balance fixed.Point       `json:"balance"`
	Score   fixed.Point       `json:"score"`
}

type Option func(*Runner)

// WithRank orders trials by the metric, highest first unless ascending.
func WithRank(m metrics.Metric, ascending bool) Option {
	return func(r *Runner) {
		r.rank = m
		r.ascending = ascending
	}
}

func WithEngineOptions(opts ...simulation.Option) Option {
	return func(r *Runner) {
		r.engineOpts = append(r.engineOpts, opts...)
	}
}

// WithRouter gives every trial a router from the factory, trials run without
// events otherwise.
func WithRouter(factory func() *bus.Router) Option {
	return func(r *Runner) {
		r.router = factory
	}
}

// Runner executes trials one after another on the same feed.
type Runner struct {
	logger     *zap.Logger
	feed       *datasource.Feed
	strategies StrategyFactory

	rank       metrics.Metric
	ascending  bool
	engineOpts []simulation.Option
	router     func() *bus.Router
}

func NewRunner(logger *zap.Logger, feed *datasource.Feed, strategies StrategyFactory, opts ...Option) *Runner {
	r := &Runner{
		logger:     logger,
		feed:       feed,
		strategies: strategies,
		rank:       metrics.ROI(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Run(ctx context.Context, trials []Params, accounts AccountFactory) ([]Trial, error) {
	if len(trials) == 0 {
		return nil, ErrNoTrials
	}

	r.logger.Info("sweep started",
		zap.Int("trials", len(trials)),
		zap.String("rank", r.rank.Name))

	out := make([]Trial, 0, len(trials))
	for i, params := range trials {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		trial, err := r.runTrial(params, accounts)
		if err != nil {
			return nil, fmt.Errorf("trial %d (%s): %w", i, params, err)
		}

		r.logger.Debug("trial finished",
			zap.Int("trial", i),
			zap.Stringer("params", params),
			zap.Stringer("run_id", trial.Result.RunID),
			zap.String("balance", trial.Balance.String()),
			zap.String(r.rank.Name, trial.Score.String()))

		out = append(out, trial)
	}

	slices.SortStableFunc(out, func(a, b Trial) int {
		switch {
		case a.Score.Eq(b.Score):
			return 0
		case a.Score.Lt(b.Score) != r.ascending:
			return 1
		default:
			return -1
		}
	})

	r.logger.Info("sweep finished",
		zap.Int("trials", len(out)),
		zap.Stringer("best", out[0].Params),
		zap.String(r.rank.Name, out[0].Score.String()))

	return out, nil
}

func (r *Runner) runTrial(params Params, accounts AccountFactory) (Trial, error) {
	acc, err := accounts()
	if err != nil {
		return Trial{}, err
	}
	strategies, err := r.strategies(params)
	if err != nil {
		return Trial{}, err
	}

	var router *bus.Router
	if r.router != nil {
		router = r.router()
	}

	engine, err := simulation.NewEngine(r.logger, router, acc, strategies, r.engineOpts...)
	if err != nil {
		return Trial{}, err
	}

	result, err := engine.Run(r.feed)
	if err != nil {
		return Trial{}, err
	}

	return Trial{
		Params:  params,
		Result:  result,
		Balance: acc.Balance(),
		Score:   r.rank.Fn(acc),
	}, nil
}
