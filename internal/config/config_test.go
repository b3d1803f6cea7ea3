package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.MaxCandidates)
	assert.Equal(t, 0.7, cfg.MinScore)
	assert.Equal(t, 5, cfg.RangeYearDiff)
	assert.Equal(t, SelectorFiltered, cfg.Selector)
	assert.Equal(t, 0.7, cfg.SettleTolerance)
	assert.Equal(t, "paperlink-papers", cfg.PapersQueue)
	assert.Equal(t, "paperlink-sources", cfg.SourcesQueue)
	assert.Equal(t, "paperlink-links", cfg.LinksQueue)
	assert.Equal(t, "mock", cfg.CompareProvider)
}

func TestLoadRejectsUnknownSelector(t *testing.T) {
	t.Setenv("PAPERLINK_SELECTOR", "bogus")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadClampsOutOfRangeValues(t *testing.T) {
	t.Setenv("PAPERLINK_MAX_CANDIDATES", "-3")
	t.Setenv("PAPERLINK_SETTLE_TOLERANCE", "1.5")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.MaxCandidates)
	assert.Equal(t, 0.7, cfg.SettleTolerance)
}
