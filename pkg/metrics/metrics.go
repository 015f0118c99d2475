package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PositionWrites counts successful position report upserts.
	PositionWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opswatch_position_writes_total",
		Help: "Number of position reports written.",
	})

	// PositionWriteErrors counts failed position report upserts.
	PositionWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opswatch_position_write_errors_total",
		Help: "Number of position report writes that failed.",
	})

	// MessagesSent counts messages inserted through the channel.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opswatch_messages_sent_total",
		Help: "Number of messages sent.",
	})

	// LostSignalAlerts counts lost-signal transitions observed by
	// monitors. Two open consoles watching the same stale unit both
	// count, matching the alert fan-out they produce.
	LostSignalAlerts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opswatch_lost_signal_alerts_total",
		Help: "Number of lost-signal alerts raised by monitors.",
	})

	// SSESessions tracks currently open event-stream connections.
	SSESessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opswatch_sse_sessions",
		Help: "Open server-sent-event sessions.",
	})
)
