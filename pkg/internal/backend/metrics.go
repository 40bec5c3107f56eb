package backend

import (
	"time"

	"github.com/khaznati/chunkvault/pkg/metrics"
)

// observe 记录一次分块操作的指标.
func observe(op, name string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"

		if _, throttled := RetryAfterOf(err); throttled {
			result = "throttled"

			metrics.ThrottleEvents.WithLabelValues(name).Inc()
		}
	}

	metrics.ChunkOpCounter.WithLabelValues(op, name, result).Inc()
	metrics.ChunkOpDuration.WithLabelValues(op, name).Observe(time.Since(start).Seconds())
}
