package order

import "github.com/shopspring/decimal"

func init() {
	// Prices go over the wire and into JSONB as numbers, not quoted strings.
	// Every package that serializes prices depends on this one.
	decimal.MarshalJSONWithoutQuotes = true
}

// Prices holds the four monetary components of an order.
type Prices struct {
	Items    decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Round2 rounds an amount to the cent, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ItemsTotal is the sum of price*quantity over the lines, rounded to the cent.
func ItemsTotal(items []OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return Round2(sum)
}

// normalize validates client-supplied prices against the lines and returns
// the amounts to persist. Total is always recomputed from the components.
// In strict mode a non-zero itemsPrice must match the lines; a zero one is
// filled in from them.
func (p Prices) normalize(items []OrderItem, strict bool) (Prices, error) {
	if p.Items.IsNegative() || p.Shipping.IsNegative() || p.Tax.IsNegative() {
		return Prices{}, ErrNegativePrice
	}

	out := Prices{
		Items:    Round2(p.Items),
		Shipping: Round2(p.Shipping),
		Tax:      Round2(p.Tax),
	}

	if strict {
		computed := ItemsTotal(items)
		switch {
		case out.Items.IsZero():
			out.Items = computed
		case !out.Items.Equal(computed):
			return Prices{}, ErrPriceMismatch
		}
	}

	out.Total = out.Items.Add(out.Shipping).Add(out.Tax)
	return out, nil
}
