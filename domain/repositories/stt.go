package repositories

import "context"

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// TranscribeAudio converts audio data to text
	TranscribeAudio(ctx context.Context, audioData []byte, config AudioConfig) (string, error)
}

// AudioConfig describes the audio handed to a transcription provider.
// An empty Encoding means the payload is a self-describing container.
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// Encodings understood by the transcription adapters
const (
	EncodingMulaw    = "MULAW"
	EncodingLinear16 = "LINEAR16"
	EncodingWebmOpus = "WEBM_OPUS"
	EncodingOggOpus  = "OGG_OPUS"
	EncodingMP3      = "MP3"
	EncodingWAV      = "WAV"
)
