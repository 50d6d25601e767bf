package presence

// DefaultSpeakingThreshold is the mean frequency-bin magnitude above which
// the local microphone counts as speaking.
const DefaultSpeakingThreshold = 30

// SpeakingDetector turns analyser frames into speaking transitions.
type SpeakingDetector struct {
	Threshold float64
	speaking  bool
}

// NewSpeakingDetector creates a detector with the default threshold.
func NewSpeakingDetector() *SpeakingDetector {
	return &SpeakingDetector{Threshold: DefaultSpeakingThreshold}
}

// Observe feeds one frame of byte frequency data. changed is true only when
// the speaking state flips, which is when a speaking event should be sent.
func (d *SpeakingDetector) Observe(bins []byte) (speaking, changed bool) {
	if len(bins) == 0 {
		return d.speaking, false
	}
	var sum int
	for _, b := range bins {
		sum += int(b)
	}
	now := float64(sum)/float64(len(bins)) > d.Threshold
	changed = now != d.speaking
	d.speaking = now
	return now, changed
}

// Speaking reports the last observed state.
func (d *SpeakingDetector) Speaking() bool {
	return d.speaking
}
