package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownsample_NoDownsampling(t *testing.T) {
	src := []float64{1.0, 1.1, 1.2}

	result := Downsample(nil, src, 10)
	assert.Equal(t, src, result)

	dst := make([]float64, 0, 10)
	result = Downsample(dst, src, 10)
	assert.Equal(t, src, result)
	// Should reuse dst
	assert.Equal(t, cap(dst), cap(result))
}

func TestDownsample_WithDownsampling(t *testing.T) {
	src := make([]int, 100)
	for i := range src {
		src[i] = i
	}

	dst := make([]int, 0, 20)
	result := Downsample(dst, src, 10)
	require.Len(t, result, 10)
	assert.Equal(t, []int{0, 10, 20, 30, 40, 50, 60, 70, 80, 90}, result)
	assert.Equal(t, cap(dst), cap(result))

	result = Downsample(nil, src, 3)
	assert.Equal(t, []int{0, 33, 66}, result)
}

func TestDownsample_Samples(t *testing.T) {
	src := make([]Sample, 50)
	for i := range src {
		src[i] = Sample{Volts: []float64{float64(i)}}
	}

	result := Downsample(nil, src, 5)
	require.Len(t, result, 5)
	assert.Equal(t, src[0], result[0])
	assert.Equal(t, src[40], result[4])
}

func TestDownsample_Empty(t *testing.T) {
	assert.Empty(t, Downsample[float64](nil, nil, 10))
	assert.Empty(t, Downsample(nil, []float64{1, 2}, 0))
}
