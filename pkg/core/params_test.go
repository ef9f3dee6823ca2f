package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_IntCoercesWholeFloats(t *testing.T) {
	p := Params{"period": float64(14)}

	v, err := p.Int("period", 0)
	require.NoError(t, err)
	assert.Equal(t, 14, v)
}

func TestParams_IntRejectsFractional(t *testing.T) {
	p := Params{"period": 14.5}

	_, err := p.Int("period", 0)
	var invalid *InvalidParameterError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "period", invalid.Name)
}

func TestParams_Defaults(t *testing.T) {
	p := Params{}

	i, err := p.Int("missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, i)

	f, err := p.Float("missing", 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.5, f)

	b, err := p.Bool("missing", true)
	require.NoError(t, err)
	assert.True(t, b)

	s, err := p.String("missing", "1h")
	require.NoError(t, err)
	assert.Equal(t, "1h", s)
}

func TestParams_FloatAcceptsInt(t *testing.T) {
	p := Params{"threshold": 3}

	v, err := p.Float("threshold", 0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}

func TestParams_TypeMismatch(t *testing.T) {
	p := Params{"name": 42}

	_, err := p.String("name", "")
	var invalid *InvalidParameterError
	require.ErrorAs(t, err, &invalid)
}
