package tenant

import (
	"fmt"

	"storedesk/internal/domain/stores"
)

type Plan struct {
	Name         stores.Plan `json:"name"`
	DurationDays int         `json:"duration_days"`
	Price        float64     `json:"price"`
}

// Catalog is the per-plan price and duration table, fixed at startup.
type Catalog struct {
	plans map[stores.Plan]Plan
}

type PlanPrices struct {
	FreeTrialDays int
	Monthly       float64
	SixMonths     float64
	Yearly        float64
}

func NewCatalog(p PlanPrices) *Catalog {
	trial := p.FreeTrialDays
	if trial <= 0 {
		trial = 30
	}
	return &Catalog{plans: map[stores.Plan]Plan{
		stores.PlanFree:     {Name: stores.PlanFree, DurationDays: trial, Price: 0},
		stores.PlanMonthly:  {Name: stores.PlanMonthly, DurationDays: 30, Price: p.Monthly},
		stores.PlanSixMonth: {Name: stores.PlanSixMonth, DurationDays: 180, Price: p.SixMonths},
		stores.PlanYearly:   {Name: stores.PlanYearly, DurationDays: 365, Price: p.Yearly},
	}}
}

func DefaultCatalog() *Catalog {
	return NewCatalog(PlanPrices{FreeTrialDays: 30, Monthly: 5, SixMonths: 30, Yearly: 40})
}

func (c *Catalog) Lookup(name stores.Plan) (Plan, error) {
	p, ok := c.plans[name]
	if !ok {
		return Plan{}, fmt.Errorf("unknown subscription plan %q", name)
	}
	return p, nil
}

func (c *Catalog) All() []Plan {
	order := []stores.Plan{stores.PlanFree, stores.PlanMonthly, stores.PlanSixMonth, stores.PlanYearly}
	out := make([]Plan, 0, len(order))
	for _, name := range order {
		out = append(out, c.plans[name])
	}
	return out
}
