// Package quote prices a single marketing package over a campaign period and provides the
// bounded counter used by quantity steppers.
package quote

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	// BasePeriodDays is the campaign length a package's list price covers.
	BasePeriodDays = 10
	// DefaultCounterMax caps a counter built without an explicit max.
	DefaultCounterMax = 999
	MaxPeriodDays     = 365
)

var (
	// ErrInvalidQuote is returned for negative prices, out-of-range quantities or periods,
	// and totals that do not fit in int64 won.
	ErrInvalidQuote = errors.New("quote: invalid input")
	ErrOutOfRange   = fmt.Errorf("%w: value out of range", ErrInvalidQuote)
)

var (
	quantityRange = Counter{Min: 1, Max: DefaultCounterMax}
	periodRange   = Counter{Min: 1, Max: MaxPeriodDays}
	maxWon        = decimal.NewFromInt(math.MaxInt64)
)

// Option is a priced add-on with its own quantity.
type Option struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// Package accumulates a package choice and its add-ons. New gives the default 10-day
// period and quantity 1.
type Package struct {
	BasePrice int64
	Period    int
	Quantity  int
	Options   []Option
}

// New returns a Package with the default period and quantity.
func New() *Package {
	return &Package{Period: BasePeriodDays, Quantity: 1}
}

// SelectPackage sets the base price.
func (p *Package) SelectPackage(price int64) {
	p.BasePrice = price
}

// ToggleOption removes an option with the same ID, or appends it with quantity 1.
func (p *Package) ToggleOption(opt Option) {
	for i, existing := range p.Options {
		if existing.ID == opt.ID {
			p.Options = append(p.Options[:i], p.Options[i+1:]...)
			return
		}
	}
	opt.Quantity = 1
	p.Options = append(p.Options, opt)
}

// OptionsPrice sums price × quantity over the add-ons.
func (p *Package) OptionsPrice() (int64, error) {
	sum, err := p.optionsSum()
	if err != nil {
		return 0, err
	}
	return toWon(sum)
}

func (p *Package) optionsSum() (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, o := range p.Options {
		if o.Price < 0 {
			return decimal.Zero, fmt.Errorf("%w: option %q has a negative price", ErrInvalidQuote, o.ID)
		}
		if err := quantityRange.Check(o.Quantity); err != nil {
			return decimal.Zero, fmt.Errorf("option %q quantity: %w", o.ID, err)
		}
		sum = sum.Add(decimal.NewFromInt(o.Price).Mul(decimal.NewFromInt(int64(o.Quantity))))
	}
	return sum, nil
}

// Total is basePrice × quantity × period/10 plus the add-ons, rounded half-up to the won.
func (p *Package) Total() (int64, error) {
	if p.BasePrice < 0 {
		return 0, fmt.Errorf("%w: negative base price", ErrInvalidQuote)
	}
	if err := quantityRange.Check(p.Quantity); err != nil {
		return 0, fmt.Errorf("quantity: %w", err)
	}
	if err := periodRange.Check(p.Period); err != nil {
		return 0, fmt.Errorf("period: %w", err)
	}
	options, err := p.optionsSum()
	if err != nil {
		return 0, err
	}
	packageTotal := decimal.NewFromInt(p.BasePrice).
		Mul(decimal.NewFromInt(int64(p.Quantity))).
		Mul(decimal.NewFromInt(int64(p.Period))).
		Div(decimal.NewFromInt(BasePeriodDays))
	return toWon(packageTotal.Add(options).Round(0))
}

// toWon converts d to int64, refusing values IntPart would truncate.
func toWon(d decimal.Decimal) (int64, error) {
	if d.GreaterThan(maxWon) {
		return 0, fmt.Errorf("%w: %s exceeds the largest representable amount", ErrInvalidQuote, d.String())
	}
	return d.IntPart(), nil
}

// Counter is an integer clamped to [Min, Max].
type Counter struct {
	Value int
	Min   int
	Max   int
}

// NewCounter builds a Counter. A zero max means DefaultCounterMax and the initial value is
// clamped.
func NewCounter(initial, min, max int) *Counter {
	if max == 0 {
		max = DefaultCounterMax
	}
	if max < min {
		max = min
	}
	c := &Counter{Min: min, Max: max}
	c.Set(initial)
	return c
}

// Increment adds one unless already at Max.
func (c *Counter) Increment() {
	if c.Value < c.Max {
		c.Value++
	}
}

// Decrement subtracts one unless already at Min.
func (c *Counter) Decrement() {
	if c.Value > c.Min {
		c.Value--
	}
}

// Set clamps v into range.
func (c *Counter) Set(v int) {
	c.Value = max(c.Min, min(c.Max, v))
}

// Adjust moves the value by delta and clamps it into range. A delta wider than the whole
// range is rejected and leaves the value unchanged.
func (c *Counter) Adjust(delta int) (int, error) {
	span := c.Max - c.Min
	if delta > span || delta < -span {
		return c.Value, fmt.Errorf("%w: step %d exceeds range [%d, %d]", ErrOutOfRange, delta, c.Min, c.Max)
	}
	c.Set(c.Value + delta)
	return c.Value, nil
}

// Check reports whether v lies in [Min, Max] without changing the counter.
func (c *Counter) Check(v int) error {
	if v < c.Min || v > c.Max {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrOutOfRange, v, c.Min, c.Max)
	}
	return nil
}
