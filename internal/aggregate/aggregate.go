// Package aggregate derives the monthly business metric tables from the
// item fact. Money is summed in decimal so that monthly parts add up to the
// whole exactly.
package aggregate

import (
	"context"
	"log/slog"
	"sort"

	"github.com/bendy2509/etl-projet-1/internal/fact"
	"github.com/bendy2509/etl-projet-1/internal/join"
	"github.com/bendy2509/etl-projet-1/internal/schema"
	"github.com/bendy2509/etl-projet-1/internal/table"

	"github.com/shopspring/decimal"
)

// Metric table names.
const (
	MonthlyRevenue  = "monthly_revenue"
	TopCategories   = "top_categories"
	DeliveryMetrics = "delivery_metrics"
	ReviewsMonthly  = "reviews_monthly"
)

// DefaultTopN is the number of categories kept by TopCategories.
const DefaultTopN = 10

// Aggregator is the stage computing the metric tables.
type Aggregator struct {
	TopN int
	Log  *slog.Logger
}

func (a Aggregator) Name() string { return "aggregate_metrics" }

// Apply stores the metric tables. Without the item fact it logs and returns
// the store unchanged.
func (a Aggregator) Apply(ctx context.Context, s *table.Store) (*table.Store, error) {
	log := a.Log
	if log == nil {
		log = slog.Default()
	}
	f, ok := s.Get(fact.OrderItems)
	if !ok {
		log.Warn("item fact missing, metrics skipped", "table", fact.OrderItems)
		return s, nil
	}

	monthly, unbucketed := Monthly(f)
	s.Put(MonthlyRevenue, monthly)
	log.Info("metric built", "table", MonthlyRevenue, "rows", monthly.Len(), "revenue_without_month", unbucketed.InexactFloat64())

	n := a.TopN
	if n <= 0 {
		n = DefaultTopN
	}
	top := Top(f, n)
	s.Put(TopCategories, top)
	log.Info("metric built", "table", TopCategories, "rows", top.Len())

	if f.Has(fact.DeliveryDays) {
		d := Delivery(f)
		s.Put(DeliveryMetrics, d)
		log.Info("metric built", "table", DeliveryMetrics, "rows", d.Len())
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reviews, rok := s.Get(schema.OrderReviews)
	orders, ook := s.Get(schema.Orders)
	if !rok || !ook {
		log.Warn("reviews or orders missing, review metric skipped")
		return s, nil
	}
	rm, orphans, err := Reviews(reviews, orders)
	if err != nil {
		return nil, err
	}
	if orphans > 0 {
		log.Warn("orphaned reviews excluded", "rows", orphans)
	}
	s.Put(ReviewsMonthly, rm)
	log.Info("metric built", "table", ReviewsMonthly, "rows", rm.Len())
	return s, nil
}

// group accumulates one bucket.
type group struct {
	key   string
	sum   decimal.Decimal
	count int64 // non-null values
	rows  int64
}

// groupBy buckets the rows of t by the text key in keyCol, skipping null
// keys, and sums valCol. Groups are returned in ascending key order.
func groupBy(t *table.Table, keyCol, valCol string) []*group {
	kc, kok := t.Col(keyCol)
	vc, vok := t.Col(valCol)
	if !kok || !vok {
		return nil
	}
	byKey := map[string]*group{}
	for _, r := range t.Rows {
		k, ok := r[kc].Key()
		if !ok {
			continue
		}
		g := byKey[k]
		if g == nil {
			g = &group{key: k}
			byKey[k] = g
		}
		g.rows++
		if f, ok := r[vc].Float(); ok {
			g.sum = g.sum.Add(decimal.NewFromFloat(f))
			g.count++
		}
	}
	out := make([]*group, 0, len(byKey))
	for _, g := range byKey {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

func (g *group) mean() table.Value {
	if g.count == 0 {
		return table.Null()
	}
	return table.Num(g.sum.Div(decimal.NewFromInt(g.count)).InexactFloat64())
}

// Monthly returns monthly_revenue(year_month, revenue) and the revenue of
// rows without a month, which no bucket holds.
func Monthly(f *table.Table) (*table.Table, decimal.Decimal) {
	out := table.New(MonthlyRevenue, []string{"year_month", "revenue"})
	for _, g := range groupBy(f, fact.YearMonth, fact.ItemTotal) {
		out.Rows = append(out.Rows, []table.Value{table.Str(g.key), table.Num(g.sum.InexactFloat64())})
	}

	unbucketed := decimal.Zero
	for i := range f.Rows {
		if !f.Get(i, fact.YearMonth).IsNull() {
			continue
		}
		if v, ok := f.Get(i, fact.ItemTotal).Float(); ok {
			unbucketed = unbucketed.Add(decimal.NewFromFloat(v))
		}
	}
	return out, unbucketed
}

// Top returns top_categories(product_category, revenue): the n categories
// with the highest item revenue, ties kept in category order.
func Top(f *table.Table, n int) *table.Table {
	groups := groupBy(f, "product_category_name", fact.ItemTotal)
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].sum.GreaterThan(groups[j].sum) })
	if len(groups) > n {
		groups = groups[:n]
	}
	out := table.New(TopCategories, []string{"product_category", "revenue"})
	for _, g := range groups {
		out.Rows = append(out.Rows, []table.Value{table.Str(g.key), table.Num(g.sum.InexactFloat64())})
	}
	return out
}

// Delivery returns delivery_metrics(year_month, avg_delivery_days) over the
// rows with a known delivery time.
func Delivery(f *table.Table) *table.Table {
	out := table.New(DeliveryMetrics, []string{"year_month", "avg_delivery_days"})
	for _, g := range groupBy(f, fact.YearMonth, fact.DeliveryDays) {
		if g.count == 0 {
			continue
		}
		out.Rows = append(out.Rows, []table.Value{table.Str(g.key), g.mean()})
	}
	return out
}

// Reviews returns reviews_monthly(year_month, avg_review_score,
// review_count), bucketed by the purchase month of the reviewed order, and
// the number of reviews whose order is unknown. Reviews of orders without
// a purchase date fall in no bucket.
func Reviews(reviews, orders *table.Table) (*table.Table, int, error) {
	dates, err := orders.Select("order_id", "order_purchase_timestamp")
	if err != nil {
		return nil, 0, err
	}
	res, err := join.Join(reviews, dates, join.Spec{LeftKey: "order_id", RightKey: "order_id", How: join.Inner})
	if err != nil {
		return nil, 0, err
	}
	joined := res.Table

	months := make([]table.Value, joined.Len())
	for i := range joined.Rows {
		months[i] = fact.MonthKey(joined.Get(i, "order_purchase_timestamp"))
	}
	if err := joined.SetColumn(fact.YearMonth, months); err != nil {
		return nil, 0, err
	}

	out := table.New(ReviewsMonthly, []string{"year_month", "avg_review_score", "review_count"})
	for _, g := range groupBy(joined, fact.YearMonth, "review_score") {
		out.Rows = append(out.Rows, []table.Value{table.Str(g.key), g.mean(), table.Num(float64(g.rows))})
	}
	return out, res.Partition.LeftOnly, nil
}
