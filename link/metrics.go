package link

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labserial",
			Subsystem: "link",
			Name:      "frames_total",
			Help:      "Frames read from instruments.",
		},
		[]string{"kind"},
	)
	writesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labserial",
			Subsystem: "link",
			Name:      "writes_total",
			Help:      "Write attempts by outcome.",
		},
		[]string{"result"},
	)
	detectTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labserial",
			Subsystem: "link",
			Name:      "detect_total",
			Help:      "Detect and verify exchanges by outcome.",
		},
		[]string{"result"},
	)
	faultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "labserial",
			Subsystem: "link",
			Name:      "faults_total",
			Help:      "Links that entered the fault state.",
		},
	)
	droppedFrames = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "labserial",
			Subsystem: "link",
			Name:      "dropped_frames_total",
			Help:      "Frames not delivered to a full subscriber.",
		},
	)
)

// RegisterMetrics registers the link collectors with reg, or with the
// default registerer when reg is nil. Only the first call registers.
func RegisterMetrics(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(framesTotal, writesTotal, detectTotal, faultsTotal, droppedFrames)
	})
}
