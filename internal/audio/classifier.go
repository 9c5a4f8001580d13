package audio

// SilenceClassifier labels frames as silent when their mean absolute amplitude
// falls below Threshold. Different capture sources need different thresholds.
type SilenceClassifier struct {
	Threshold float64
}

// NewSilenceClassifier creates a classifier for a normalized amplitude threshold
func NewSilenceClassifier(threshold float64) SilenceClassifier {
	return SilenceClassifier{Threshold: threshold}
}

// IsSilent reports whether the frame's energy is below the threshold.
// An empty frame is silent.
func (c SilenceClassifier) IsSilent(samples []float32) bool {
	return MeanAbsAmplitude(samples) < c.Threshold
}

// MeanAbsAmplitude returns the mean absolute sample value of a normalized frame.
func MeanAbsAmplitude(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		if s < 0 {
			sum -= float64(s)
		} else {
			sum += float64(s)
		}
	}
	return sum / float64(len(samples))
}
