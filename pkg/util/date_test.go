package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	require.True(t, ok)
	assert.Equal(t, s, got.Format(time.RFC3339))
}

func TestParseTimeOffsetIsConvertedToUTC(t *testing.T) {
	got, ok := ParseTime("2024-10-10T12:10:10+02:00")
	require.True(t, ok)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 10, got.Hour())
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	require.True(t, ok)
	assert.Equal(t, ts, got.Unix())
}

func TestParseTimeDateOnly(t *testing.T) {
	got, ok := ParseTime("2024-10-10")
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)))
}

func TestClampIntAndNormalizeTicker(t *testing.T) {
	assert.Equal(t, 500, ClampInt(9000, 1, 500))
	assert.Equal(t, 1, ClampInt(-3, 1, 500))
	assert.Equal(t, "BRK.B", NormalizeTicker("  brk.b "))
}
