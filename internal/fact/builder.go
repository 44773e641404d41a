package fact

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bendy2509/etl-projet-1/internal/join"
	"github.com/bendy2509/etl-projet-1/internal/schema"
	"github.com/bendy2509/etl-projet-1/internal/table"
)

// Diagnostic is the key partition of an outer join that is reported but not
// persisted, e.g. orders against payments.
type Diagnostic struct {
	Left, Right string
	Key         string
	Partition   join.Partition
}

// Report collects what one Builder run observed.
type Report struct {
	Steps         []StepReport
	OrphanItems   int
	Delivery      DeliveryStats
	Diagnostics   []Diagnostic
	MissingGeoloc int
	// Aborted lists plans skipped for missing tables.
	Aborted []string
}

// Builder is the stage producing the fact tables.
type Builder struct {
	Items  Plan
	Geoloc Plan
	// Diagnose runs the outer-join diagnostics.
	Diagnose bool
	Log      *slog.Logger
}

// NewBuilder returns a builder with the standard plans; hows overrides the
// join type of the item plan per table.
func NewBuilder(hows map[string]join.How, log *slog.Logger) Builder {
	return Builder{
		Items:    OrderItemsPlan(hows),
		Geoloc:   CustomersGeolocPlan(),
		Diagnose: true,
		Log:      log,
	}
}

func (b Builder) Name() string { return "build_facts" }

func (b Builder) Apply(ctx context.Context, s *table.Store) (*table.Store, error) {
	if _, err := b.Build(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Build runs every plan, storing the fact tables it manages to build.
func (b Builder) Build(ctx context.Context, s *table.Store) (Report, error) {
	log := b.Log
	if log == nil {
		log = slog.Default()
	}
	var rep Report

	items, steps, err := b.Items.Build(s)
	switch {
	case errors.Is(err, ErrMissingTables):
		log.Warn("fact plan aborted", "plan", b.Items.Name, "err", err)
		rep.Aborted = append(rep.Aborted, b.Items.Name)
	case err != nil:
		return rep, err
	default:
		if err := Derive(items); err != nil {
			return rep, err
		}
		rep.Steps = steps
		logSteps(log, b.Items.Name, steps)
		for _, st := range steps {
			if st.Table == schema.Customers {
				rep.OrphanItems = st.Partition.LeftOnly
			}
		}
		if rep.OrphanItems > 0 {
			log.Warn("items without customer", "rows", rep.OrphanItems)
		}
		if d, ok := Delivery(items); ok {
			rep.Delivery = d
			log.Info("delivery days",
				"orders", d.Count, "mean", d.Mean, "median", d.Median, "min", d.Min, "max", d.Max)
		}
		s.Put(OrderItems, items)
		log.Info("fact built", "table", OrderItems, "rows", items.Len(), "columns", len(items.Columns))
	}

	if err := ctx.Err(); err != nil {
		return rep, err
	}
	if b.Diagnose {
		rep.Diagnostics = Diagnose(s, log)
	}

	geo, steps, err := b.Geoloc.Build(s)
	switch {
	case errors.Is(err, ErrMissingTables):
		log.Warn("fact plan aborted", "plan", b.Geoloc.Name, "err", err)
		rep.Aborted = append(rep.Aborted, b.Geoloc.Name)
	case err != nil:
		return rep, err
	default:
		logSteps(log, b.Geoloc.Name, steps)
		if len(steps) > 0 {
			rep.MissingGeoloc = steps[0].Partition.LeftOnly
		}
		log.Info("customers without geolocation", "rows", rep.MissingGeoloc)
		s.Put(CustomersGeoloc, geo)
		log.Info("fact built", "table", CustomersGeoloc, "rows", geo.Len(), "columns", len(geo.Columns))
	}
	return rep, nil
}

// Diagnose outer-joins orders with customers and with payments and logs the
// partitions. Pairs with a missing table are skipped.
func Diagnose(s *table.Store, log *slog.Logger) []Diagnostic {
	pairs := []Diagnostic{
		{Left: schema.Orders, Right: schema.Customers, Key: "customer_id"},
		{Left: schema.Orders, Right: schema.Payments, Key: "order_id"},
	}
	var out []Diagnostic
	for _, d := range pairs {
		l, lok := s.Get(d.Left)
		r, rok := s.Get(d.Right)
		if !lok || !rok {
			log.Debug("diagnostic skipped", "left", d.Left, "right", d.Right)
			continue
		}
		res, err := join.Join(l, r, join.Spec{LeftKey: d.Key, RightKey: d.Key, How: join.Outer})
		if err != nil {
			log.Warn("diagnostic failed", "left", d.Left, "right", d.Right, "err", err)
			continue
		}
		d.Partition = res.Partition
		log.Info("outer join diagnostic",
			"left", d.Left, "right", d.Right, "key", d.Key,
			"matched", d.Partition.Matched,
			"left_only", d.Partition.LeftOnly,
			"right_only", d.Partition.RightOnly,
		)
		out = append(out, d)
	}
	return out
}

func logSteps(log *slog.Logger, plan string, steps []StepReport) {
	for _, st := range steps {
		if st.Skipped {
			log.Debug("optional join skipped", "plan", plan, "table", st.Table)
			continue
		}
		log.Info("join step",
			"plan", plan,
			"table", st.Table,
			"how", string(st.How),
			"rows", st.Rows,
			"matched", st.Partition.Matched,
			"left_only", st.Partition.LeftOnly,
			"collapsed", st.Collapsed,
		)
		if st.Partition.FanOut > 0 {
			log.Warn("join fan-out",
				"plan", plan,
				"table", st.Table,
				"extra_rows", st.Partition.FanOut,
				"duplicate_keys", st.Partition.DuplicateKeys,
			)
		}
	}
}
