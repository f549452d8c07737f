package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	name, ok := c.PlatformName("naver_place")
	require.True(t, ok)
	require.Equal(t, "네이버 플레이스", name)

	viral, ok := c.Viral("smartblock")
	require.True(t, ok)
	require.EqualValues(t, 500000, viral.Price)

	traffic, ok := c.Metric("traffic")
	require.True(t, ok)
	require.EqualValues(t, 65, traffic.UnitPrice)
	require.Equal(t, 100, traffic.MinDaily)
	require.Equal(t, 3000, traffic.MaxDaily)
	require.Equal(t, 10, c.Restaurant.CampaignDays)

	_, ok = c.Product("unknown")
	require.False(t, ok)
}

func TestParseRejectsDuplicatesAndUnknownKeys(t *testing.T) {
	_, err := Parse([]byte(`
platforms: []
general:
  products:
    - {id: a, name: A, price: 1}
    - {id: a, name: B, price: 1}
restaurant:
  campaign_days: 10
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate id")

	_, err = Parse([]byte("bogus: true\n"))
	require.Error(t, err)
}

func TestYAMLRoundTripsThroughLoad(t *testing.T) {
	out, err := Default().YAML()
	require.NoError(t, err)

	again, err := Load(strings.NewReader(string(out)))
	require.NoError(t, err)
	require.Equal(t, Default(), again)
}

func TestParseRejectsMaxDailyBelowMinimum(t *testing.T) {
	_, err := Parse([]byte(`
platforms: []
restaurant:
  campaign_days: 10
  metrics:
    - {id: traffic, label: T, unit_price: 65, min_daily: 100, max_daily: 50}
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "max_daily")
}
