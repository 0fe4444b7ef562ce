package transcription

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/GriffinCanCode/livecaption/internal/audio"
	"github.com/GriffinCanCode/livecaption/internal/errors"
	"github.com/GriffinCanCode/livecaption/internal/restutil"
)

// OpenAI posts each chunk as a multipart WAV upload and reads the text from
// the synchronous response.
type OpenAI struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// NewOpenAI creates the synchronous backend. baseURL is the API root,
// e.g. https://api.openai.com/v1.
func NewOpenAI(baseURL, apiKey, model string, client *http.Client) *OpenAI {
	return &OpenAI{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Transcribe(ctx context.Context, chunk audio.Chunk) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", errors.Wrap(err, errors.Internal, "build multipart body")
	}
	if _, err := part.Write(EncodeWAV(chunk.Samples, chunk.SampleRate)); err != nil {
		return "", errors.Wrap(err, errors.Internal, "build multipart body")
	}
	if err := mw.WriteField("model", o.model); err != nil {
		return "", errors.Wrap(err, errors.Internal, "build multipart body")
	}
	if err := mw.Close(); err != nil {
		return "", errors.Wrap(err, errors.Internal, "build multipart body")
	}

	headers := map[string]string{
		"Authorization": "Bearer " + o.apiKey,
		"Content-Type":  mw.FormDataContentType(),
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := restutil.Do(ctx, o.client, http.MethodPost, o.baseURL+"/audio/transcriptions", headers, &body, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}
