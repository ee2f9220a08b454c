package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("SHOP_TIMEZONE", "Asia/Kolkata")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.InDelta(t, 0.18, cfg.GSTRate, 1e-9)
	require.Equal(t, 5*time.Minute, cfg.ReportCacheTTL)
	require.False(t, cfg.PurchasesCreditStock)
	require.Equal(t, "0 8 * * *", cfg.LowStockScanCron)

	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("SHOP_TIMEZONE", "Mars/Olympus")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("SHOP_TIMEZONE", "UTC")
	t.Setenv("GST_RATE", "1.5")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigAcceptsZeroGSTRate(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("SHOP_TIMEZONE", "UTC")
	t.Setenv("GST_RATE", "0")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Zero(t, cfg.GSTRate)
}
