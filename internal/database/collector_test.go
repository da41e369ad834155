package database

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeStats struct{}

func (fakeStats) AcquiredConns() int32     { return 3 }
func (fakeStats) IdleConns() int32         { return 2 }
func (fakeStats) TotalConns() int32        { return 5 }
func (fakeStats) MaxConns() int32          { return 25 }
func (fakeStats) AcquireCount() int64      { return 40 }
func (fakeStats) EmptyAcquireCount() int64 { return 1 }

func TestPoolCollector(t *testing.T) {
	collector := newPoolCollector(func() PoolStats { return fakeStats{} })

	registry := prometheus.NewPedanticRegistry()
	if err := registry.Register(collector); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	expected := `
# HELP db_pool_acquired_connections Connections currently checked out
# TYPE db_pool_acquired_connections gauge
db_pool_acquired_connections 3
# HELP db_pool_max_connections Configured maximum pool size
# TYPE db_pool_max_connections gauge
db_pool_max_connections 25
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"db_pool_acquired_connections", "db_pool_max_connections"); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}

	if count := testutil.CollectAndCount(collector); count != 6 {
		t.Errorf("expected 6 series, got %d", count)
	}
}
