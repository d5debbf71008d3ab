package stt

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/satriahrh/voicebridge/domain"
	"github.com/satriahrh/voicebridge/domain/repositories"
)

type fakeRecognizer struct {
	req  *speechpb.RecognizeRequest
	resp *speechpb.RecognizeResponse
	err  error
}

func (f *fakeRecognizer) Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error) {
	f.req = req
	return f.resp, f.err
}

func (f *fakeRecognizer) Close() error { return nil }

func result(transcript string) *speechpb.SpeechRecognitionResult {
	return &speechpb.SpeechRecognitionResult{
		Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: transcript}},
	}
}

func TestGoogleTranscribeAudio(t *testing.T) {
	fake := &fakeRecognizer{resp: &speechpb.RecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{result("I'm so excited"), result("about this")},
	}}
	g := &GoogleSpeechToText{client: fake, logger: zaptest.NewLogger(t)}

	text, err := g.TranscribeAudio(context.Background(), []byte{1, 2}, repositories.AudioConfig{
		Encoding:   repositories.EncodingMulaw,
		SampleRate: 8000,
		Language:   "en-US",
	})
	if err != nil {
		t.Fatalf("TranscribeAudio() error = %v", err)
	}
	if text != "I'm so excited about this" {
		t.Errorf("Unexpected transcript %q", text)
	}

	cfg := fake.req.GetConfig()
	if cfg.GetEncoding() != speechpb.RecognitionConfig_MULAW || cfg.GetSampleRateHertz() != 8000 {
		t.Errorf("Unexpected recognition config %+v", cfg)
	}
	if cfg.GetModel() != "phone_call" {
		t.Errorf("Expected phone_call model for mulaw audio, got %q", cfg.GetModel())
	}
}

func TestGoogleNoSpeech(t *testing.T) {
	g := &GoogleSpeechToText{client: &fakeRecognizer{resp: &speechpb.RecognizeResponse{}}, logger: zaptest.NewLogger(t)}

	_, err := g.TranscribeAudio(context.Background(), []byte{1}, repositories.AudioConfig{Encoding: repositories.EncodingWebmOpus})
	if !errors.Is(err, domain.ErrNoSpeech) {
		t.Errorf("Expected ErrNoSpeech, got %v", err)
	}
}

func TestGoogleErrorClassification(t *testing.T) {
	tests := []struct {
		code codes.Code
		want domain.ErrorKind
	}{
		{codes.Unauthenticated, domain.KindAuthentication},
		{codes.PermissionDenied, domain.KindAuthentication},
		{codes.ResourceExhausted, domain.KindRateLimit},
		{codes.InvalidArgument, domain.KindInvalidInput},
		{codes.Unavailable, domain.KindTransient},
		{codes.DeadlineExceeded, domain.KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			fake := &fakeRecognizer{err: status.Error(tt.code, "boom")}
			g := &GoogleSpeechToText{client: fake, logger: zaptest.NewLogger(t)}

			_, err := g.TranscribeAudio(context.Background(), []byte{1}, repositories.AudioConfig{})
			if kind, _ := domain.KindOf(err); kind != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, kind)
			}
		})
	}
}

func TestGetAudioEncoding(t *testing.T) {
	tests := []struct {
		in      string
		want    speechpb.RecognitionConfig_AudioEncoding
		wantErr bool
	}{
		{"", speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, false},
		{"WAV", speechpb.RecognitionConfig_LINEAR16, false},
		{"MULAW", speechpb.RecognitionConfig_MULAW, false},
		{"WEBM_OPUS", speechpb.RecognitionConfig_WEBM_OPUS, false},
		{"AAC", speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, true},
	}

	for _, tt := range tests {
		got, err := getAudioEncoding(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("getAudioEncoding(%q) = %v, %v", tt.in, got, err)
		}
	}
}
