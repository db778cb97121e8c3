package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"GridAdvisor/internal/domain/models"
	pkgch "GridAdvisor/pkg/clickhouse"
)

func TestNewCHLoadStore_RejectsBadTable(t *testing.T) {
	for _, name := range []string{"", "grid.readings; DROP TABLE x", "a.b.c", "1table"} {
		_, err := NewCHLoadStore(pkgch.NewClientFromDB(nil), name)
		assert.Error(t, err, name)
	}
	_, err := NewCHLoadStore(pkgch.NewClientFromDB(nil), "grid.meter_readings")
	assert.NoError(t, err)
}

func TestLatestReadingsQuery(t *testing.T) {
	q := latestReadingsQuery("grid.meter_readings")
	assert.Contains(t, q, "FROM grid.meter_readings")
	assert.Contains(t, q, "ORDER BY ts DESC")
	assert.Equal(t, 3, strings.Count(q, "?"))
}

func TestReverseReadings(t *testing.T) {
	rs := []models.Reading{{LoadKW: 3}, {LoadKW: 2}, {LoadKW: 1}}
	reverseReadings(rs)
	assert.Equal(t, []float64{1, 2, 3}, []float64{rs[0].LoadKW, rs[1].LoadKW, rs[2].LoadKW})
}
