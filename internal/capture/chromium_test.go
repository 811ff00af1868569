package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsNormalizeDefaults(t *testing.T) {
	o := Options{URL: "http://127.0.0.1:8080/", OutputPath: "out.png", Settle: -time.Second}
	require.NoError(t, o.normalize())

	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, DefaultReadySelector, o.ReadySelector)
	assert.Equal(t, time.Duration(0), o.Settle)
	assert.Equal(t, DefaultTimeout, o.Timeout)
}

func TestOptionsNormalizeKeepsExplicitValues(t *testing.T) {
	o := Options{
		URL:           "http://x/",
		OutputPath:    "o.png",
		Width:         800,
		Height:        600,
		ReadySelector: "#grid",
		Timeout:       time.Second,
	}
	require.NoError(t, o.normalize())
	assert.Equal(t, 800, o.Width)
	assert.Equal(t, "#grid", o.ReadySelector)
	assert.Equal(t, time.Second, o.Timeout)
}

func TestSnapshotPNGRequiresURLAndOutput(t *testing.T) {
	err := SnapshotPNG(context.Background(), Options{OutputPath: "o.png"})
	assert.ErrorContains(t, err, "URL is required")

	err = SnapshotPNG(context.Background(), Options{URL: "http://x/"})
	assert.ErrorContains(t, err, "OutputPath is required")
}
