package util

import (
	"sync/atomic"

	"github.com/influxdata/influxdb-client-go/api/write"
)

// MockWriteAPI stands in for the InfluxDB write API when no host is
// configured. Points are dropped but counted.
type MockWriteAPI struct {
	points int64
}

func (m *MockWriteAPI) WriteRecord(line string) {}

func (m *MockWriteAPI) WritePoint(point *write.Point) {
	atomic.AddInt64(&m.points, 1)
}

func (m *MockWriteAPI) Flush() {}

func (m *MockWriteAPI) Close() {}

// Errors returns nil; nothing is ever sent.
func (m *MockWriteAPI) Errors() <-chan error { return nil }

// Points is the number of points dropped so far.
func (m *MockWriteAPI) Points() int64 {
	return atomic.LoadInt64(&m.points)
}
