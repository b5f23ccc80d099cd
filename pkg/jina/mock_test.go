package jina

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_Deterministic(t *testing.T) {
	t.Parallel()

	m := NewMock(8)
	first, err := m.Embed(context.Background(), []string{"retained earnings"})
	require.NoError(t, err)
	second, err := m.Embed(context.Background(), []string{"retained earnings"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMock_DistinctTexts(t *testing.T) {
	t.Parallel()

	m := NewMock(8)
	got, err := m.Embed(context.Background(), []string{"CET1 capital", "Tier 2 capital"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.NotEqual(t, got[0], got[1])
}

func TestMock_UnitNorm(t *testing.T) {
	t.Parallel()

	m := NewMock(32)
	got, err := m.Embed(context.Background(), []string{"own funds disclosure"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	var sum float64
	for _, v := range got[0] {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMock_Dimensions(t *testing.T) {
	t.Parallel()

	got, err := NewMock(16).Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Len(t, got[0], 16)

	// Zero or negative falls back to the provider default.
	got, err = NewMock(0).Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Len(t, got[0], DefaultDimensions)
}

func TestMock_EmptyInput(t *testing.T) {
	t.Parallel()

	got, err := NewMock(8).Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMock_Model(t *testing.T) {
	t.Parallel()

	assert.Equal(t, MockModel, NewMock(8).Model())
}

func TestMock_BillsNothing(t *testing.T) {
	t.Parallel()

	m := NewMock(8)
	_, err := m.Embed(context.Background(), []string{"deductions"})
	require.NoError(t, err)
	assert.Zero(t, m.TokensUsed())
}
