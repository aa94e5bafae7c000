package sim

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"agora/internal/common"
	"agora/internal/ledger"
	"agora/internal/market"
	"agora/internal/optimize"
)

// Runner composes one simulation run: it owns the market registry and
// the ledger, and drives every agent sequentially within a tick. All
// engine mutation happens on the runner's single goroutine, which is
// the serialization the core packages require.
type Runner struct {
	cfg      *Config
	currency common.Currency
	registry *market.Registry
	ledger   *ledger.Ledger
}

func NewRunner(cfg *Config) *Runner {
	led := ledger.New()
	reg := market.NewRegistry(led, market.WithFallbackPrice(cfg.FallbackPrice))
	r := &Runner{
		cfg:      cfg,
		currency: common.Currency(cfg.Currency),
		registry: reg,
		ledger:   led,
	}
	for _, p := range cfg.Producers {
		led.OpenAccount(p.Name, r.currency, p.Cash)
	}
	for _, c := range cfg.Consumers {
		led.OpenAccount(c.Name, r.currency, c.Cash)
	}
	return r
}

// Registry exposes the run's market registry, mainly to tests.
func (r *Runner) Registry() *market.Registry {
	return r.registry
}

// Ledger exposes the run's ledger, mainly to tests.
func (r *Runner) Ledger() *ledger.Ledger {
	return r.ledger
}

// Run executes the configured number of ticks, stopping early when the
// context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	t, _ := tomb.WithContext(ctx)
	t.Go(func() error {
		for tick := 1; tick <= r.cfg.Ticks; tick++ {
			select {
			case <-t.Dying():
				return tomb.ErrDying
			default:
			}
			r.tick(tick)
		}
		return nil
	})
	err := t.Wait()
	if errors.Is(err, tomb.ErrDying) || errors.Is(err, context.Canceled) {
		// A cancelled run is an orderly stop, not a failure.
		return nil
	}
	return err
}

// tick runs one period: producers restock and repost offers, then
// consumers allocate their income and buy.
func (r *Runner) tick(tick int) {
	for _, p := range r.cfg.Producers {
		r.produce(p)
	}
	for _, c := range r.cfg.Consumers {
		r.consume(tick, c)
	}
	for _, g := range r.cfg.Goods {
		good := common.Good(g.Name)
		log.Info().
			Int("tick", tick).
			Stringer("good", good).
			Float64("marginal", r.registry.MarginalPrice(r.currency, good)).
			Float64("last", r.registry.LastPrice(r.currency, good)).
			Msg("market state")
	}
}

// produce adds the tick's output to the producer's holding and reposts
// its standing offer over the full unsold stock.
func (r *Runner) produce(p ProducerConfig) {
	good := common.Good(p.Good)
	r.ledger.Credit(p.Name, good, p.Output)
	r.registry.CancelAllFor(p.Name, r.currency, good)

	stock := r.ledger.Holding(p.Name, good)
	if stock <= 0 {
		return
	}
	if _, err := r.registry.Place(market.OfferSpec{
		Instrument: good,
		Currency:   r.currency,
		Side:       market.Sell,
		Owner:      p.Name,
		Account:    p.Name,
		Price:      p.AskPrice,
		Amount:     stock,
	}); err != nil {
		log.Error().Err(err).Str("producer", p.Name).Msg("offer rejected")
	}
}

// consume allocates the consumer's income across goods with the
// Cobb-Douglas optimizer, then buys each allocated quantity.
func (r *Runner) consume(tick int, c ConsumerConfig) {
	utility := optimize.CobbDouglas{
		Scale:     1,
		Exponents: make(map[common.Instrument]float64, len(c.Preferences)),
	}
	prices := make(map[common.Instrument]market.PriceFunction, len(c.Preferences))
	for name, exp := range c.Preferences {
		good := common.Good(name)
		utility.Exponents[good] = exp
		prices[good] = r.registry.PriceFunction(r.currency, good)
	}

	budget := c.Income
	if bal := r.ledger.Balance(c.Name, r.currency); bal < budget {
		budget = bal
	}
	result := utility.OptimalInputs(prices, budget, nil)
	log.Debug().
		Int("tick", tick).
		Str("consumer", c.Name).
		Float64("budget", budget).
		Stringer("cause", result.Cause).
		Msg("allocation planned")

	for _, good := range sortedGoods(result.Inputs) {
		amount := result.Inputs[good]
		if amount <= 0 {
			continue
		}
		fill, err := r.registry.Buy(
			good, r.currency,
			amount, budget, -1,
			c.Name, c.Name,
		)
		if err != nil {
			log.Warn().Err(err).
				Str("consumer", c.Name).
				Stringer("good", good).
				Msg("buy aborted")
			continue
		}
		budget -= fill.TotalPrice
	}
}

func sortedGoods(inputs optimize.Bundle) []common.Instrument {
	out := make([]common.Instrument, 0, len(inputs))
	for ins := range inputs {
		out = append(out, ins)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
