// Package fact assembles the denormalized fact tables from the cleaned
// source tables. A Plan is a base table followed by a sequence of join
// steps; every step reports its key partition so row loss and fan-out are
// visible in the run log.
package fact

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bendy2509/etl-projet-1/internal/join"
	"github.com/bendy2509/etl-projet-1/internal/schema"
	"github.com/bendy2509/etl-projet-1/internal/table"
)

// Fact table names.
const (
	OrderItems      = "fact_order_items"
	CustomersGeoloc = "fact_customers_geoloc"
)

// ErrMissingTables is returned when a plan's required tables are absent
// from the store.
var ErrMissingTables = errors.New("missing source tables")

// Step joins the current table with one source table.
type Step struct {
	Table    string
	LeftKey  string
	RightKey string
	How      join.How
	// FirstByKey reduces the right table to its first row per key before
	// joining, so the step cannot fan out.
	FirstByKey bool
	// Optional steps are skipped when their table is absent.
	Optional bool
}

// Plan builds one fact table.
type Plan struct {
	Name  string
	Base  string
	Steps []Step
}

// StepReport describes the outcome of one step.
type StepReport struct {
	Table     string
	How       join.How
	Rows      int
	Partition join.Partition
	// Collapsed is the number of right rows removed by FirstByKey.
	Collapsed int
	Skipped   bool
}

// OrderItemsPlan is the item-grain plan: items, then their order, the
// order's customer, the seller and the product, plus the optional category
// translation. hows overrides the join type per table; absent entries are
// left joins.
func OrderItemsPlan(hows map[string]join.How) Plan {
	how := func(t string) join.How {
		if h, ok := hows[t]; ok && h != "" {
			return h
		}
		return join.Left
	}
	return Plan{
		Name: OrderItems,
		Base: schema.OrderItems,
		Steps: []Step{
			{Table: schema.Orders, LeftKey: "order_id", RightKey: "order_id", How: how(schema.Orders)},
			{Table: schema.Customers, LeftKey: "customer_id", RightKey: "customer_id", How: how(schema.Customers)},
			{Table: schema.Sellers, LeftKey: "seller_id", RightKey: "seller_id", How: how(schema.Sellers)},
			{Table: schema.Products, LeftKey: "product_id", RightKey: "product_id", How: how(schema.Products)},
			{
				Table: schema.Translation, LeftKey: "product_category_name", RightKey: "product_category_name",
				How: join.Left, FirstByKey: true, Optional: true,
			},
		},
	}
}

// CustomersGeolocPlan attaches one geolocation row per zip prefix to every
// customer.
func CustomersGeolocPlan() Plan {
	return Plan{
		Name: CustomersGeoloc,
		Base: schema.Customers,
		Steps: []Step{{
			Table:      schema.Geolocation,
			LeftKey:    "customer_zip_code_prefix",
			RightKey:   "geolocation_zip_code_prefix",
			How:        join.Left,
			FirstByKey: true,
		}},
	}
}

// Required returns the tables the plan cannot run without.
func (p Plan) Required() []string {
	out := []string{p.Base}
	for _, st := range p.Steps {
		if !st.Optional {
			out = append(out, st.Table)
		}
	}
	return out
}

// Build runs the plan against s without modifying it. Missing required
// tables abort the plan with ErrMissingTables before any join runs.
func (p Plan) Build(s *table.Store) (*table.Table, []StepReport, error) {
	if missing := s.Missing(p.Required()...); len(missing) > 0 {
		return nil, nil, fmt.Errorf("%s: %w: %s", p.Name, ErrMissingTables, strings.Join(missing, ", "))
	}

	cur, _ := s.Get(p.Base)
	joined := false
	reports := make([]StepReport, 0, len(p.Steps))
	for _, st := range p.Steps {
		right, ok := s.Get(st.Table)
		if !ok {
			reports = append(reports, StepReport{Table: st.Table, How: st.How, Rows: cur.Len(), Skipped: true})
			continue
		}
		rep := StepReport{Table: st.Table, How: st.How}
		if st.FirstByKey {
			var err error
			right, rep.Collapsed, err = join.FirstByKey(right, st.RightKey)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", p.Name, err)
			}
		}
		res, err := join.Join(cur, right, join.Spec{LeftKey: st.LeftKey, RightKey: st.RightKey, How: st.How})
		if err != nil {
			return nil, nil, fmt.Errorf("%s: step %s: %w", p.Name, st.Table, err)
		}
		rep.Rows = res.Table.Len()
		rep.Partition = res.Partition
		reports = append(reports, rep)
		cur = res.Table
		joined = true
	}

	if !joined {
		cur = cur.Clone()
	}
	cur.Name = p.Name
	return cur, reports, nil
}
