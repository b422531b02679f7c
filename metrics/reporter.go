package metrics

var _Reporters []Reporter

// Reporter defines the interface for metric reporting implementations.
// Different reporters can be used to send metrics to various backends
// such as Prometheus, StatsD, InfluxDB, etc.
//
// Reporters run inside the metric call path and therefore must never log
// through the framework: a logging appender that reports metrics would
// otherwise feed its own failures back into itself.
type Reporter interface {
	Report(r Record)
}

// report fans a record out to every registered reporter.
func report(r Record) {
	for _, reporter := range _Reporters {
		reporter.Report(r)
	}
}
