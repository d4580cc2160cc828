package fleet

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-tracking/internal/gpswox"
)

func decodeDevice(t *testing.T, body string) gpswox.RawDevice {
	t.Helper()
	var d gpswox.RawDevice
	require.NoError(t, json.Unmarshal([]byte(body), &d))
	return d
}

func decodeDevices(t *testing.T, body string) []gpswox.RawDevice {
	t.Helper()
	var d []gpswox.RawDevice
	require.NoError(t, json.Unmarshal([]byte(body), &d))
	return d
}

func decodeSamples(t *testing.T, body string) []gpswox.HistorySample {
	t.Helper()
	var s []gpswox.HistorySample
	require.NoError(t, json.Unmarshal([]byte(body), &s))
	return s
}

func ptr(v float64) *float64 { return &v }
