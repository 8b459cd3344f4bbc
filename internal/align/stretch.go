package align

import "math"

const (
	stretchFrame = 1024
	stretchHop   = stretchFrame / 2
)

// timeStretch changes the duration of a mono sample block without shifting
// pitch. A rate above 1 shortens the clip, below 1 lengthens it. The output
// length is round(len(samples)/rate). Overlap-add with a Hann window; pure
// float math, so the result is deterministic for a given input.
func timeStretch(samples []float64, rate float64) []float64 {
	if len(samples) == 0 || rate <= 0 {
		return nil
	}
	outLen := int(math.Round(float64(len(samples)) / rate))
	if outLen <= 0 {
		return nil
	}
	if math.Abs(rate-1) < 1e-9 {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out
	}
	if len(samples) < stretchFrame*2 {
		return resampleLinear(samples, outLen)
	}

	analysisHop := int(math.Round(float64(stretchHop) * rate))
	if analysisHop < 1 {
		analysisHop = 1
	}
	window := hannWindow(stretchFrame)

	out := make([]float64, outLen+stretchFrame)
	norm := make([]float64, len(out))
	for frame := 0; ; frame++ {
		aPos := frame * analysisHop
		sPos := frame * stretchHop
		if aPos >= len(samples) || sPos >= outLen {
			break
		}
		for j := 0; j < stretchFrame; j++ {
			ai := aPos + j
			si := sPos + j
			if ai >= len(samples) || si >= len(out) {
				break
			}
			out[si] += samples[ai] * window[j]
			norm[si] += window[j]
		}
	}
	for i := range out {
		if norm[i] > 1e-9 {
			out[i] /= norm[i]
		}
	}
	return out[:outLen]
}

// resampleLinear handles clips too short for windowed overlap-add.
func resampleLinear(samples []float64, outLen int) []float64 {
	out := make([]float64, outLen)
	if len(samples) == 1 {
		for i := range out {
			out[i] = samples[0]
		}
		return out
	}
	scale := float64(len(samples)-1) / float64(outLen-1)
	if outLen == 1 {
		out[0] = samples[0]
		return out
	}
	for i := range out {
		pos := float64(i) * scale
		lo := int(pos)
		if lo >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(lo)
		out[i] = samples[lo]*(1-frac) + samples[lo+1]*frac
	}
	return out
}

func hannWindow(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return w
}
