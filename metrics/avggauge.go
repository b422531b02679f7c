package metrics

// avggauge implements a gauge whose reported samples are averaged by the
// reporter backend. Each update carries a count of 1 so downstream
// aggregation can compute sum/count.
type avggauge struct {
	name  string
	group string
}

// Name returns the metric name.
func (g *avggauge) Name() string {
	return g.name
}

// Group returns the metric group.
func (g *avggauge) Group() string {
	return g.group
}

// Policy returns the aggregation policy for this gauge (Policy_Avg).
func (g *avggauge) Policy() Policy {
	return Policy_Avg
}

// Update records a sample without dimensions.
func (g *avggauge) Update(v Value) {
	g.UpdateWithDim(v, nil)
}

// UpdateWithDim records a sample with specified dimensions and reports it
// to all registered reporters.
func (g *avggauge) UpdateWithDim(v Value, dimensions Dimension) {
	report(Record{
		metrics:    g,
		value:      v,
		cnt:        1,
		dimensions: dimensions,
	})
}
