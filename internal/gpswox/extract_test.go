package gpswox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFirst_Devices(t *testing.T) {
	items, ok := ExtractFirst([]byte(`[{"items":[{"id":"a"},"garbage",{"id":"b"}]}]`), DeviceExtractors)
	assert.True(t, ok)
	assert.Len(t, items, 2)

	_, ok = ExtractFirst([]byte(`{"status":1}`), DeviceExtractors)
	assert.False(t, ok)
}

func TestExtractFirst_HistoryDoesNotTreatGroupsAsSamples(t *testing.T) {
	body := []byte(`{"items":[{"status":2,"items":[{"lat":1,"lng":2},{"lat":3,"lng":4}]}]}`)
	items, ok := ExtractFirst(body, HistoryExtractors)
	assert.True(t, ok)
	assert.Len(t, items, 2)
	assert.Equal(t, 3.0, items[1].Lat.Value)
}

func TestExtractFirst_HistoryNestedData(t *testing.T) {
	items, ok := ExtractFirst([]byte(`{"data":{"items":[{"lat":1,"lng":2}]}}`), HistoryExtractors)
	assert.True(t, ok)
	assert.Len(t, items, 1)
}

func TestExtractFirst_NoMatch(t *testing.T) {
	_, ok := ExtractFirst([]byte(`"just a string"`), DriverExtractors)
	assert.False(t, ok)
}
