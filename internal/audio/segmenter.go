package audio

import "time"

// SegmenterConfig controls how a continuous mu-law stream is cut into utterances
type SegmenterConfig struct {
	SampleRate       int
	SilenceThreshold float64       // RMS below this counts as silence
	SilenceDuration  time.Duration // trailing silence that ends an utterance
	MinSpeech        time.Duration // shorter bursts are discarded as noise
	MaxUtterance     time.Duration // forces a cut on long monologues
}

// DefaultSegmenterConfig returns settings tuned for 8 kHz phone audio.
func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		SampleRate:       PhoneSampleRate,
		SilenceThreshold: 500,
		SilenceDuration:  800 * time.Millisecond,
		MinSpeech:        300 * time.Millisecond,
		MaxUtterance:     15 * time.Second,
	}
}

// Segmenter detects utterance boundaries by frame energy. It is not safe for
// concurrent use; each media stream owns one.
type Segmenter struct {
	threshold      float64
	silenceSamples int
	minSpeech      int
	maxSamples     int

	buf      []byte
	inSpeech bool
	speech   int
	silence  int
}

func NewSegmenter(cfg SegmenterConfig) *Segmenter {
	def := DefaultSegmenterConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.SilenceThreshold <= 0 {
		cfg.SilenceThreshold = def.SilenceThreshold
	}
	if cfg.SilenceDuration <= 0 {
		cfg.SilenceDuration = def.SilenceDuration
	}
	if cfg.MinSpeech <= 0 {
		cfg.MinSpeech = def.MinSpeech
	}
	if cfg.MaxUtterance <= 0 {
		cfg.MaxUtterance = def.MaxUtterance
	}

	samples := func(d time.Duration) int {
		return int(d.Seconds() * float64(cfg.SampleRate))
	}

	return &Segmenter{
		threshold:      cfg.SilenceThreshold,
		silenceSamples: samples(cfg.SilenceDuration),
		minSpeech:      samples(cfg.MinSpeech),
		maxSamples:     samples(cfg.MaxUtterance),
	}
}

// Push feeds one mu-law frame and returns a complete utterance when the frame
// closes one, or nil otherwise.
func (s *Segmenter) Push(frame []byte) []byte {
	if len(frame) == 0 {
		return nil
	}

	loud := RMS(MulawToPCM(frame)) >= s.threshold
	if !s.inSpeech {
		if !loud {
			return nil
		}
		s.inSpeech = true
	}

	s.buf = append(s.buf, frame...)
	if loud {
		s.speech += len(frame)
		s.silence = 0
	} else {
		s.silence += len(frame)
	}

	if len(s.buf) >= s.maxSamples {
		return s.cut()
	}
	if s.silence >= s.silenceSamples {
		return s.cut()
	}
	return nil
}

func (s *Segmenter) cut() []byte {
	utterance := s.buf
	enough := s.speech >= s.minSpeech
	s.reset()
	if !enough {
		return nil
	}
	return utterance
}

func (s *Segmenter) reset() {
	s.buf = nil
	s.inSpeech = false
	s.speech = 0
	s.silence = 0
}
