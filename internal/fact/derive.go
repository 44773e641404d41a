package fact

import (
	"math"
	"sort"
	"time"

	"github.com/bendy2509/etl-projet-1/internal/table"
)

// Derived column names of the item fact.
const (
	ItemTotal    = "item_total"
	YearMonth    = "year_month"
	DeliveryDays = "delivery_days"
)

// MonthLayout renders a year_month key.
const MonthLayout = "2006-01"

// Derive adds item_total, year_month and delivery_days to an item fact. A
// null or absent operand yields a null result.
func Derive(t *table.Table) error {
	totals := make([]table.Value, t.Len())
	months := make([]table.Value, t.Len())
	days := make([]table.Value, t.Len())
	for i := range t.Rows {
		totals[i] = AddMoney(t.Get(i, "price"), t.Get(i, "freight_value"))
		purchased := t.Get(i, "order_purchase_timestamp")
		months[i] = MonthKey(purchased)
		days[i] = WholeDays(purchased, t.Get(i, "order_delivered_customer_date"))
	}
	for _, c := range []struct {
		name string
		vals []table.Value
	}{{ItemTotal, totals}, {YearMonth, months}, {DeliveryDays, days}} {
		if err := t.SetColumn(c.name, c.vals); err != nil {
			return err
		}
	}
	return nil
}

// AddMoney returns a + b as a float sum, or null when either is missing.
// Exact decimal arithmetic is left to the aggregates.
func AddMoney(a, b table.Value) table.Value {
	x, ok1 := a.Float()
	y, ok2 := b.Float()
	if !ok1 || !ok2 {
		return table.Null()
	}
	return table.Num(x + y)
}

// MonthKey returns the YYYY-MM key of a timestamp, or null.
func MonthKey(v table.Value) table.Value {
	ts, ok := v.Time()
	if !ok {
		return table.Null()
	}
	return table.Str(ts.Format(MonthLayout))
}

// WholeDays returns the whole days from start to end, floored like a
// timedelta's day component, or null when either side is missing.
func WholeDays(start, end table.Value) table.Value {
	s, ok1 := start.Time()
	e, ok2 := end.Time()
	if !ok1 || !ok2 {
		return table.Null()
	}
	return table.Num(math.Floor(float64(e.Sub(s)) / float64(24*time.Hour)))
}

// DeliveryStats summarizes the delivery_days column.
type DeliveryStats struct {
	Count  int
	Mean   float64
	Median float64
	Min    float64
	Max    float64
}

// Delivery computes DeliveryStats over the non-null delivery_days of t. ok
// is false when there is none.
func Delivery(t *table.Table) (DeliveryStats, bool) {
	c, ok := t.Col(DeliveryDays)
	if !ok {
		return DeliveryStats{}, false
	}
	var vals []float64
	for _, r := range t.Rows {
		if f, ok := r[c].Float(); ok {
			vals = append(vals, f)
		}
	}
	if len(vals) == 0 {
		return DeliveryStats{}, false
	}
	sort.Float64s(vals)

	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	n := len(vals)
	median := vals[n/2]
	if n%2 == 0 {
		median = (vals[n/2-1] + vals[n/2]) / 2
	}
	return DeliveryStats{
		Count:  n,
		Mean:   sum / float64(n),
		Median: median,
		Min:    vals[0],
		Max:    vals[n-1],
	}, true
}
