package artnet

import "math"

// TemporalMode smooths a physical channel's value across successive
// packets before it reaches the strip.
type TemporalMode int

const (
	TemporalNone TemporalMode = iota
	TemporalAverage
	TemporalLerp
)

// temporalFilter holds per-channel history. A channel is one color
// component of one physical LED (LED index * channelsPerLED + c), so
// red, green, blue, and white each get their own independent history.
type temporalFilter struct {
	mode    TemporalMode
	size    int
	history [][]float64
}

func newTemporalFilter(mode TemporalMode, size, channels int) *temporalFilter {
	if size < 1 {
		size = 1
	}
	return &temporalFilter{mode: mode, size: size, history: make([][]float64, channels)}
}

// apply folds value into channel's running history and returns the
// filtered result. Both modes are linear in value: filtering a sum of
// two input sequences from fresh state equals the sum of filtering
// each separately.
func (f *temporalFilter) apply(channel int, value float64) float64 {
	switch f.mode {
	case TemporalAverage:
		h := append(f.history[channel], value)
		if len(h) > f.size {
			h = h[len(h)-f.size:]
		}
		f.history[channel] = h
		sum := 0.0
		for _, v := range h {
			sum += v
		}
		return sum / float64(len(h))

	case TemporalLerp:
		h := f.history[channel]
		if len(h) == 0 {
			f.history[channel] = []float64{value}
			return value
		}
		prev := h[len(h)-1]
		alpha := 1.0 / float64(f.size)
		out := prev + alpha*(value-prev)
		h = append(h, value)
		if len(h) > 2 {
			h = h[len(h)-2:]
		}
		f.history[channel] = h
		return out

	default:
		return value
	}
}

// SpatialMode blurs values across neighboring physical LEDs within one
// color channel.
type SpatialMode int

const (
	SpatialNone SpatialMode = iota
	SpatialAverage
	SpatialLerp
	SpatialGaussian
)

// forceOdd rounds a window size up to the next odd number, so every
// kernel has a well-defined center tap.
func forceOdd(n int) int {
	if n < 1 {
		n = 1
	}
	if n%2 == 0 {
		n++
	}
	return n
}

func boxKernel(size int) []float64 {
	size = forceOdd(size)
	k := make([]float64, size)
	w := 1.0 / float64(size)
	for i := range k {
		k[i] = w
	}
	return k
}

func triangularKernel(size int) []float64 {
	size = forceOdd(size)
	center := size / 2
	k := make([]float64, size)
	sum := 0.0
	for i := range k {
		dist := math.Abs(float64(i - center))
		k[i] = float64(center+1) - dist
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

func gaussianKernel(size int) []float64 {
	size = forceOdd(size)
	center := size / 2
	sigma := math.Max(1, float64(size)/4.0)
	k := make([]float64, size)
	sum := 0.0
	for i := range k {
		d := float64(i - center)
		k[i] = math.Exp(-0.5 * d * d / (sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

func kernelFor(mode SpatialMode, size int) []float64 {
	switch mode {
	case SpatialAverage:
		return boxKernel(size)
	case SpatialLerp:
		return triangularKernel(size)
	case SpatialGaussian:
		return gaussianKernel(size)
	default:
		return nil
	}
}

// convolve1D applies kernel along values, one color channel at a time.
// Taps that fall outside the array contribute zero rather than being
// dropped-and-renormalized, so a flat input darkens slightly near the
// strip's physical ends — the same tradeoff the reference smoothing
// pass makes in exchange for not special-casing every edge.
func convolve1D(values []float64, kernel []float64) []float64 {
	n := len(values)
	out := make([]float64, n)
	half := len(kernel) / 2
	for i := 0; i < n; i++ {
		sum := 0.0
		for k, w := range kernel {
			j := i + k - half
			if j < 0 || j >= n {
				continue
			}
			sum += values[j] * w
		}
		out[i] = sum
	}
	return out
}

// spatialSmooth runs convolve1D independently for each of
// channelsPerLED interleaved channels in a flat LED-major buffer.
func spatialSmooth(values []float64, channelsPerLED int, mode SpatialMode, size int) []float64 {
	kernel := kernelFor(mode, size)
	if kernel == nil {
		return values
	}
	n := len(values) / channelsPerLED
	out := make([]float64, len(values))
	plane := make([]float64, n)
	for c := 0; c < channelsPerLED; c++ {
		for i := 0; i < n; i++ {
			plane[i] = values[i*channelsPerLED+c]
		}
		smoothed := convolve1D(plane, kernel)
		for i := 0; i < n; i++ {
			out[i*channelsPerLED+c] = smoothed[i]
		}
	}
	return out
}
