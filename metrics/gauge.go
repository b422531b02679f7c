package metrics

// Gauge interface for metrics that represent a point-in-time value.
// Gauges are typically used for measurements that can go up or down,
// such as queue depth or current buffer length.
type Gauge interface {
	Metrics
	// Update sets the gauge's absolute value.
	Update(value Value)
	// UpdateWithDim sets the gauge's absolute value with specified dimensions.
	UpdateWithDim(value Value, dimensions Dimension)
}

// gauge implements the Gauge interface with a set aggregation policy:
// the last reported value wins.
type gauge struct {
	name  string
	group string
}

// Name returns the metric name.
func (g *gauge) Name() string {
	return g.name
}

// Group returns the metric group.
func (g *gauge) Group() string {
	return g.group
}

// Policy returns the aggregation policy for this gauge (Policy_Set).
func (g *gauge) Policy() Policy {
	return Policy_Set
}

// Update updates the gauge value without dimensions.
func (g *gauge) Update(v Value) {
	g.UpdateWithDim(v, nil)
}

// UpdateWithDim updates the gauge value with specified dimensions and
// reports it to all registered reporters.
func (g *gauge) UpdateWithDim(v Value, dimensions Dimension) {
	report(Record{
		metrics:    g,
		value:      v,
		dimensions: dimensions,
	})
}
