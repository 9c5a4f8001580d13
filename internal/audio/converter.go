package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// PCM16ToFloat32 converts 16-bit signed little-endian PCM into samples normalized to [-1, 1).
func PCM16ToFloat32(pcmData []byte) ([]float32, error) {
	if len(pcmData)%2 != 0 {
		return nil, fmt.Errorf("PCM data length must be even (16-bit samples), got %d", len(pcmData))
	}

	samples := make([]float32, len(pcmData)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(pcmData[i*2:]))
		samples[i] = float32(v) / 32768.0
	}
	return samples, nil
}

// Float32ToPCM16 converts normalized samples to 16-bit signed little-endian PCM, clipping out-of-range values.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(floatToInt16(s)))
	}
	return out
}

func floatToInt16(s float32) int16 {
	v := math.Round(float64(s) * 32768.0)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// MulawToFloat32 decodes G.711 PCMU (μ-law) bytes into normalized samples.
func MulawToFloat32(pcmuData []byte) []float32 {
	samples := make([]float32, len(pcmuData))
	for i, b := range pcmuData {
		samples[i] = float32(mulawToLinear(b)) / 32768.0
	}
	return samples
}

// Float32ToMulaw encodes normalized samples as G.711 PCMU (μ-law) bytes.
func Float32ToMulaw(samples []float32) []byte {
	out := make([]byte, len(samples))
	for i, s := range samples {
		// G.711 works on a 14-bit range
		out[i] = linearToMulaw(floatToInt16(s) >> 2)
	}
	return out
}

// linearToMulaw converts a 14-bit linear sample to an 8-bit μ-law sample
func linearToMulaw(sample int16) byte {
	const (
		clip = 8158 // Maximum magnitude so that magnitude+bias stays below 8192
		bias = 0x21 // Bias value (33 decimal)
	)

	var sign byte
	magnitude := int32(sample)
	if sample < 0 {
		sign = 0x80
		magnitude = -magnitude
	}
	if magnitude > clip {
		magnitude = clip
	}
	magnitude += bias

	// Segment is the position of the highest set bit above 0x20
	var segment byte
	for temp := magnitude >> 6; temp > 0 && segment < 7; temp >>= 1 {
		segment++
	}

	mantissa := byte((magnitude >> (segment + 1)) & 0x0F)
	return ^(sign | (segment << 4) | mantissa)
}

// mulawToLinear converts an 8-bit μ-law sample to 16-bit linear PCM
func mulawToLinear(mulawByte byte) int16 {
	// Invert all bits first (μ-law uses inverted representation)
	mulawByte = ^mulawByte

	sign := mulawByte & 0x80
	segment := int32((mulawByte >> 4) & 0x07)
	mantissa := int32(mulawByte & 0x0F)

	// step = (mantissa << (segment + 1)) + (33 << segment), magnitude = step - 33
	magnitude := (mantissa << (segment + 1)) + (int32(33) << segment) - 33

	// G.711 works on a 14-bit range; scale to 16 bits
	magnitude <<= 2
	if sign != 0 {
		return int16(-magnitude)
	}
	return int16(magnitude)
}

// Resample performs simple linear interpolation resampling.
// Telephony input is upsampled with it, so quality is bounded by the 8kHz source anyway.
func Resample(samples []float32, inputRate, outputRate int) []float32 {
	if inputRate == outputRate || len(samples) == 0 || inputRate <= 0 || outputRate <= 0 {
		return samples
	}

	ratio := float64(outputRate) / float64(inputRate)
	outputLength := int(float64(len(samples)) * ratio)
	output := make([]float32, outputLength)

	for i := range output {
		srcPos := float64(i) / ratio
		idx0 := int(srcPos)
		if idx0 >= len(samples) {
			idx0 = len(samples) - 1
		}
		idx1 := idx0 + 1
		if idx1 >= len(samples) {
			idx1 = len(samples) - 1
		}
		fraction := float32(srcPos - float64(idx0))
		output[i] = samples[idx0]*(1-fraction) + samples[idx1]*fraction
	}
	return output
}

// EncodeWAV wraps normalized mono samples in a 16-bit PCM RIFF/WAVE container.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	data := Float32ToPCM16(samples)

	var buf bytes.Buffer
	buf.Grow(44 + len(data))
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))           // fmt chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))            // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1))            // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))   // sample rate
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))           // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

// CalculateRMS calculates the root mean square (RMS) of normalized samples
func CalculateRMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
