package discounts

import (
	"fmt"

	"github.com/angelmondragon/assettrack-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/assettrack-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Discounts may only be granted in the first half of the month.
const (
	firstDay = 1
	lastDay  = 15
)

var hundred = decimal.NewFromInt(100)

// Policy maps the day of month to a default percent: days 1-5 get Early,
// 6-10 Mid and 11-15 Late.
type Policy struct {
	Early int
	Mid   int
	Late  int
}

// DefaultPolicy is the 20/15/10 tier table.
var DefaultPolicy = Policy{Early: 20, Mid: 15, Late: 10}

// PolicyFromConfig builds the tier table from configuration.
func PolicyFromConfig(cfg config.DiscountConfig) Policy {
	return Policy{Early: cfg.EarlyPercent, Mid: cfg.MidPercent, Late: cfg.LatePercent}
}

// QuoteResult is a priced discount.
type QuoteResult struct {
	Day             int             `json:"day"`
	Percent         int             `json:"percent"`
	OriginalPrice   decimal.Decimal `json:"originalPrice"`
	DiscountedPrice decimal.Decimal `json:"discountedPrice"`
}

// PercentForDay returns the tier percent for day.
func (p Policy) PercentForDay(day int) (int, error) {
	switch {
	case day < firstDay || day > lastDay:
		return 0, invalidDay(day)
	case day <= 5:
		return p.Early, nil
	case day <= 10:
		return p.Mid, nil
	default:
		return p.Late, nil
	}
}

// Quote prices a discount. A zero percent means the tier default for day.
// The discounted price is rounded half away from zero to whole units.
func (p Policy) Quote(day, percent int, price decimal.Decimal) (*QuoteResult, error) {
	tier, err := p.PercentForDay(day)
	if err != nil {
		return nil, err
	}
	if percent == 0 {
		percent = tier
	}
	if percent < 1 || percent > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("percent must be between 1 and 100, got %d", percent))
	}
	if price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	remaining := hundred.Sub(decimal.NewFromInt(int64(percent)))
	discounted := price.Mul(remaining).Div(hundred).Round(0)
	return &QuoteResult{
		Day:             day,
		Percent:         percent,
		OriginalPrice:   price,
		DiscountedPrice: discounted,
	}, nil
}

// Quote prices a discount with the default tier table.
func Quote(day, percent int, price decimal.Decimal) (*QuoteResult, error) {
	return DefaultPolicy.Quote(day, percent, price)
}

func invalidDay(day int) error {
	return pkgerrors.New(pkgerrors.CodeInvalidDate, "discounts can only be set for days 1-15 of the month").
		WithDetails(map[string]any{"day": day})
}
