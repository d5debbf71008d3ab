package entities

// Emotion labels recognised across classifiers
const (
	EmotionHappy      = "happy"
	EmotionSad        = "sad"
	EmotionAngry      = "angry"
	EmotionNeutral    = "neutral"
	EmotionExcited    = "excited"
	EmotionFrustrated = "frustrated"
)

var emotionLabels = map[string]struct{}{
	EmotionHappy:      {},
	EmotionSad:        {},
	EmotionAngry:      {},
	EmotionNeutral:    {},
	EmotionExcited:    {},
	EmotionFrustrated: {},
}

// Emotion is a detected label with an intensity in [0, 1]
type Emotion struct {
	Label     string  `json:"label"`
	Intensity float64 `json:"intensity"`
}

// NeutralEmotion is used whenever classification is unavailable.
func NeutralEmotion() Emotion {
	return Emotion{Label: EmotionNeutral, Intensity: 0}
}

// IsKnownEmotion reports whether label belongs to the supported set.
func IsKnownEmotion(label string) bool {
	_, ok := emotionLabels[label]
	return ok
}

// Clamp maps unknown labels to neutral at zero intensity and keeps known
// intensities within [0, 1].
func (e Emotion) Clamp() Emotion {
	if !IsKnownEmotion(e.Label) {
		return NeutralEmotion()
	}
	switch {
	case e.Intensity < 0:
		e.Intensity = 0
	case e.Intensity > 1:
		e.Intensity = 1
	}
	return e
}

func (e Emotion) IsNeutral() bool {
	return e.Label == EmotionNeutral
}

// Reply is the aggregate result of one processed utterance
type Reply struct {
	Transcript string
	Text       string
	Emotion    Emotion
	Audio      []byte
}
