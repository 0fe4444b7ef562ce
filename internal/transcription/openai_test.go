package transcription

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GriffinCanCode/livecaption/internal/errors"
)

func TestOpenAITranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q", got)
		}
		file, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer file.Close()
		if hdr.Filename != "audio.wav" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		b, _ := io.ReadAll(file)
		if string(b[:4]) != "RIFF" {
			t.Errorf("upload is not WAV")
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "the meeting starts now"})
	}))
	defer srv.Close()

	o := NewOpenAI(srv.URL, "sk-test", "whisper-1", srv.Client())
	text, err := o.Transcribe(context.Background(), chunkOf(1))
	if err != nil {
		t.Fatalf("Transcribe() error: %v", err)
	}
	if text != "the meeting starts now" {
		t.Errorf("text = %q", text)
	}
}

func TestOpenAIRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	o := NewOpenAI(srv.URL, "bad", "whisper-1", srv.Client())
	_, err := o.Transcribe(context.Background(), chunkOf(1))
	if !errors.IsCode(err, errors.Remote) {
		t.Errorf("error = %v, want REMOTE", err)
	}
}
