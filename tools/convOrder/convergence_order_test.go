package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	studies, err := readCSV(strings.NewReader(`title, order, h, error
AdvectionSine, 2, 0.125, 8.e-4
AdvectionSine, 2, 0.25, 6.4e-3
AdvectionSine, 2, 0.0625, 1.e-4
AdvectionSine, 1, 0.25, 1.e-2
AdvectionSine, 1, 0.125, 2.5e-3
`))
	require.NoError(t, err)
	require.Len(t, studies, 2)
	cs := studies["AdvectionSine2"]
	require.NotNil(t, cs)
	rates := cs.Rates()
	require.Len(t, rates, 2)
	for _, r := range rates {
		assert.InDelta(t, 3, r, 1.e-12)
	}
	assert.Equal(t, []float64{0.25, 0.125, 0.0625}, cs.h)
	assert.InDelta(t, 2, studies["AdvectionSine1"].Rates()[0], 1.e-12)

	_, err = readCSV(strings.NewReader("title, order, h, error\nA, two, 0.1, 0.2\n"))
	assert.Error(t, err)
}
