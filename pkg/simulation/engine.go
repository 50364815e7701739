package simulation

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peter-kozarec/strategytester/pkg/account"
	"github.com/peter-kozarec/strategytester/pkg/bus"
	"github.com/peter-kozarec/strategytester/pkg/common"
	"github.com/peter-kozarec/strategytester/pkg/datasource"
	"github.com/peter-kozarec/strategytester/pkg/order"
	"github.com/peter-kozarec/strategytester/pkg/tools/metrics"
	"github.com/peter-kozarec/strategytester/pkg/utility"
)

var (
	ErrNoRegisteredAssets = errors.New("strategy has no registered assets")
	ErrUnknownAsset       = errors.New("asset is not part of the feed")
	ErrAssetNotRegistered = errors.New("asset is not registered by the strategy")
	ErrExogLengthMismatch = errors.New("exogenous rows do not match the feed length")
	ErrDuplicateStrategy  = errors.New("strategy id is registered twice")
	ErrNilPolicy          = errors.New("strategy has no policy")
)

var now = time.Now

type Option func(*Engine)

func WithMetrics(m ...metrics.Metric) Option {
	return func(e *Engine) {
		e.metrics = append(e.metrics, m...)
	}
}

// WithSampleInterval samples every n ticks, 0 keeps only the final sample.
func WithSampleInterval(n int) Option {
	return func(e *Engine) {
		e.sampleInterval = n
	}
}

func WithExog(rows []common.Exog) Option {
	return func(e *Engine) {
		e.exog = rows
	}
}

func WithRunID(id uuid.UUID) Option {
	return func(e *Engine) {
		e.runID = id
	}
}

// Engine replays a feed against one account. It is single threaded and every
// event is dispatched inline.
type Engine struct {
	logger     *zap.Logger
	router     *bus.Router
	acc        *account.Account
	strategies []Strategy
	owners     map[string]*Strategy

	metrics        []metrics.Metric
	sampleInterval int
	exog           []common.Exog
	runID          uuid.UUID

	feed         *datasource.Feed
	samples      []metrics.Sample
	ledgerPosted int
}

func NewEngine(logger *zap.Logger, router *bus.Router, acc *account.Account, strategies []Strategy, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:     logger,
		router:     router,
		acc:        acc,
		strategies: strategies,
		owners:     make(map[string]*Strategy, len(strategies)),
	}

	for i := range e.strategies {
		s := &e.strategies[i]
		if _, ok := e.owners[s.ID]; ok {
			return nil, fmt.Errorf("strategy %q: %w", s.ID, ErrDuplicateStrategy)
		}
		if len(s.Assets) == 0 {
			return nil, fmt.Errorf("strategy %q: %w", s.ID, ErrNoRegisteredAssets)
		}
		if s.Policy == nil {
			return nil, fmt.Errorf("strategy %q: %w", s.ID, ErrNilPolicy)
		}
		e.owners[s.ID] = s
	}

	for _, opt := range opts {
		opt(e)
	}
	if e.runID == uuid.Nil {
		e.runID = utility.NewRunID()
	}

	return e, nil
}

func (e *Engine) RunID() uuid.UUID { return e.runID }

func (e *Engine) Run(feed *datasource.Feed) (Result, error) {
	if err := e.validate(feed); err != nil {
		return Result{}, err
	}

	e.feed = feed
	e.samples = nil
	e.ledgerPosted = len(e.acc.History())

	startedAt := now()
	result := Result{RunID: e.runID, StartedAt: startedAt}

	e.logger.Info("run started",
		zap.Stringer("run_id", e.runID),
		zap.Int("strategies", len(e.strategies)),
		zap.Int("assets", len(feed.Assets())),
		zap.Int("ticks", feed.Len()))

	lastTick := feed.FirstTime()
	lastIndex := 0

	for i := 0; i < feed.Len(); i++ {
		obs := feed.At(i)

		if e.acc.IsBlown() {
			e.logger.Warn("account blown, halting run",
				zap.Stringer("run_id", e.runID),
				zap.Int("index", i),
				zap.String("balance", e.acc.Balance().String()))
			result.Blown = true
			break
		}

		e.post(bus.TickEvent, obs)

		if err := e.step(obs); err != nil {
			return result, err
		}

		e.postLedger()

		if e.sampleInterval > 0 && (i+1)%e.sampleInterval == 0 {
			e.sample(i, obs.TimeStamp)
		}

		result.Ticks++
		lastTick = obs.TimeStamp
		lastIndex = i
	}

	closed, err := e.acc.TearDown(feed.FirstTime(), lastTick, startedAt)
	if err != nil {
		return result, fmt.Errorf("run %s: %w", e.runID, err)
	}
	e.postClosed(closed)
	e.postLedger()
	e.sample(lastIndex, lastTick)

	result.Blown = result.Blown || e.acc.IsBlown()
	result.Samples = e.samples
	result.FinishedAt = e.acc.RunInfo().FinishedAt

	e.post(bus.RunFinishedEvent, bus.RunFinished{
		RunID:   e.runID,
		Ticks:   result.Ticks,
		Blown:   result.Blown,
		Balance: e.acc.Balance(),
		Equity:  e.acc.Equity(),
	})

	e.logger.Info("run finished",
		zap.Stringer("run_id", e.runID),
		zap.Int("ticks", result.Ticks),
		zap.Bool("blown", result.Blown),
		zap.String("balance", e.acc.Balance().String()),
		zap.String("equity", e.acc.Equity().String()),
		zap.Duration("elapsed", result.FinishedAt.Sub(startedAt)))

	return result, nil
}

func (e *Engine) validate(feed *datasource.Feed) error {
	if e.acc.IsTornDown() {
		return fmt.Errorf("account %q: %w", e.acc.ID(), account.ErrTornDown)
	}
	for _, s := range e.strategies {
		for _, assetID := range s.Assets {
			if _, ok := feed.Asset(assetID); !ok {
				return fmt.Errorf("strategy %q asset %q: %w", s.ID, assetID, ErrUnknownAsset)
			}
		}
	}
	if e.exog != nil && len(e.exog) != feed.Len() {
		return fmt.Errorf("%d exogenous rows for %d ticks: %w", len(e.exog), feed.Len(), ErrExogLengthMismatch)
	}
	return nil
}

func (e *Engine) step(obs common.Observation) error {
	closed, err := e.acc.Update(obs)
	if err != nil {
		return fmt.Errorf("run %s at index %d: %w", e.runID, obs.Index, err)
	}
	e.postClosed(closed)

	v := e.view(obs)

	if err := e.closeDecisions(v); err != nil {
		return err
	}
	for i := range e.strategies {
		if err := e.openDecisions(&e.strategies[i], v); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) closeDecisions(v View) error {
	var ids []order.ID

	for _, o := range e.acc.ActiveOrders() {
		s, ok := e.owners[o.StrategyID()]
		if !ok {
			continue
		}

		if m, ok := s.Policy.(Modifier); ok {
			var err error
			if o.Direction() == common.Long {
				err = m.LongModify(o, v)
			} else {
				err = m.ShortModify(o, v)
			}
			if err != nil {
				return fmt.Errorf("strategy %q order %d: %w", s.ID, o.ID(), err)
			}
		}

		var shouldClose bool
		if o.Direction() == common.Long {
			shouldClose = s.Policy.LongClose(o, v)
		} else {
			shouldClose = s.Policy.ShortClose(o, v)
		}
		if shouldClose {
			ids = append(ids, o.ID())
		}
	}

	if len(ids) == 0 {
		return nil
	}

	closed, err := e.acc.CloseAllOrders(ids, v.Observation.TimeStamp)
	if err != nil {
		return fmt.Errorf("run %s at index %d: %w", e.runID, v.Observation.Index, err)
	}
	e.postClosed(closed)
	return nil
}

func (e *Engine) openDecisions(s *Strategy, v View) error {
	var batch []*order.Order

	for _, side := range []struct {
		direction common.Direction
		open      func(View) map[string]common.OrderParams
	}{
		{common.Long, s.Policy.LongOpen},
		{common.Short, s.Policy.ShortOpen},
	} {
		params := side.open(v)
		for _, assetID := range slices.Sorted(maps.Keys(params)) {
			o, err := e.newOrder(s, side.direction, assetID, params[assetID], v.Observation)
			if err != nil {
				return err
			}
			batch = append(batch, o)
		}
	}

	if len(batch) == 0 {
		return nil
	}

	if _, err := e.acc.PlaceOrders(batch, v.Observation.TimeStamp); err != nil {
		return fmt.Errorf("strategy %q at index %d: %w", s.ID, v.Observation.Index, err)
	}

	for _, o := range batch {
		if o.ID() != 0 {
			e.post(bus.OrderPlacedEvent, o.Snapshot())
			continue
		}
		reason := e.rejectionReason(o)
		e.logger.Debug("order rejected",
			zap.String("strategy", s.ID),
			zap.String("asset", o.AssetID()),
			zap.String("reason", reason))
		e.post(bus.OrderRejectedEvent, bus.OrderRejected{Order: o.Snapshot(), Reason: reason})
	}
	return nil
}

func (e *Engine) newOrder(s *Strategy, direction common.Direction, assetID string, p common.OrderParams, obs common.Observation) (*order.Order, error) {
	if !s.registered(assetID) {
		return nil, fmt.Errorf("strategy %q asset %q: %w", s.ID, assetID, ErrAssetNotRegistered)
	}

	tick, _ := obs.Tick(assetID)
	asset, _ := e.feed.Asset(assetID)

	o, err := order.New(direction, p.Mode, p.Size, p.Strike, obs.TimeStamp, order.Terms{
		StrategyID:   s.ID,
		StrategyName: s.Name,
		AssetID:      assetID,
		LotUnits:     asset.LotUnits,
		Leverage:     e.acc.Leverage(),
		Spread:       tick.Spread,
		Commission:   tick.Commission,
		Slippage:     tick.Slippage,
		Digits:       e.acc.Digits(),
		StopLoss:     p.StopLoss,
		TakeProfit:   p.TakeProfit,
		TrailingStop: p.TrailingStop,
		Expiration:   p.Expiration,
	})
	if err != nil {
		return nil, fmt.Errorf("strategy %q asset %q: %w", s.ID, assetID, err)
	}
	return o, nil
}

// rejectionReason reconstructs the failed admission check from the state
// after the batch.
func (e *Engine) rejectionReason(o *order.Order) string {
	cfg := e.acc.Config()
	switch {
	case e.acc.IsBlown() || !e.acc.Balance().IsPos():
		return "account blown"
	case e.acc.FreeMargin().Lt(o.Margin()):
		return "insufficient free margin"
	case cfg.MaxRisk.IsSome() && e.acc.NAV().Div(e.acc.Balance()).Gt(cfg.MaxRisk.Unwrap()):
		return "max risk exceeded"
	default:
		return "max orders reached"
	}
}

func (e *Engine) view(obs common.Observation) View {
	v := View{Observation: obs, Account: e.acc}
	if e.exog != nil {
		v.Exog = e.exog[obs.Index]
	}
	return v
}

func (e *Engine) sample(index int, ts time.Time) {
	if len(e.metrics) == 0 {
		return
	}
	s := metrics.Take(index, ts, e.acc, e.metrics)
	e.samples = append(e.samples, s)
	e.post(bus.SampleEvent, s)
}

func (e *Engine) postClosed(ids []order.ID) {
	for _, id := range ids {
		if o, ok := e.acc.Order(id); ok {
			e.post(bus.OrderClosedEvent, o.Snapshot())
		}
	}
}

func (e *Engine) postLedger() {
	history := e.acc.History()
	for ; e.ledgerPosted < len(history); e.ledgerPosted++ {
		e.post(bus.LedgerEvent, history[e.ledgerPosted])
	}
}

func (e *Engine) post(id bus.EventId, data any) {
	if e.router == nil {
		return
	}
	if err := e.router.Post(id, data); err != nil {
		e.logger.Error("unable to post event", zap.Stringer("event", id), zap.Error(err))
	}
}
