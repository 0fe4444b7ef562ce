package transcription

import (
	"bytes"
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/GriffinCanCode/livecaption/internal/audio"
	"github.com/GriffinCanCode/livecaption/internal/errors"
	"github.com/GriffinCanCode/livecaption/internal/resilience"
	"github.com/GriffinCanCode/livecaption/internal/restutil"
	"github.com/GriffinCanCode/livecaption/internal/trace"
)

// Job states reported by the polling endpoint.
const (
	jobQueued     = "queued"
	jobProcessing = "processing"
	jobCompleted  = "completed"
	jobError      = "error"
)

// AssemblyAI uploads each chunk, creates a transcription job for it and
// polls the job at a fixed interval until it completes, fails, or the
// attempt budget runs out.
type AssemblyAI struct {
	client  *http.Client
	baseURL string
	apiKey  string
	poll    resilience.PollConfig
}

// NewAssemblyAI creates the upload+poll backend. baseURL is the API root,
// e.g. https://api.assemblyai.com/v2.
func NewAssemblyAI(baseURL, apiKey string, poll resilience.PollConfig, client *http.Client) *AssemblyAI {
	return &AssemblyAI{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		poll:    poll,
	}
}

func (a *AssemblyAI) Name() string { return "assemblyai" }

type jobStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

func (a *AssemblyAI) Transcribe(ctx context.Context, chunk audio.Chunk) (string, error) {
	log := trace.Logger(ctx)
	auth := map[string]string{"authorization": a.apiKey}

	var upload struct {
		UploadURL string `json:"upload_url"`
	}
	uploadHeaders := map[string]string{"authorization": a.apiKey, "Content-Type": "application/octet-stream"}
	wav := bytes.NewReader(EncodeWAV(chunk.Samples, chunk.SampleRate))
	if err := restutil.Do(ctx, a.client, http.MethodPost, a.baseURL+"/upload", uploadHeaders, wav, &upload); err != nil {
		return "", err
	}
	if upload.UploadURL == "" {
		return "", errors.New(errors.Remote, "upload response missing upload_url")
	}

	var job jobStatus
	req := map[string]string{"audio_url": upload.UploadURL}
	if err := restutil.DoJSON(ctx, a.client, http.MethodPost, a.baseURL+"/transcript", auth, req, &job); err != nil {
		return "", err
	}
	if job.ID == "" {
		return "", errors.New(errors.Remote, "transcript response missing id")
	}
	log.Debug("transcription job created", "job_id", job.ID, "seq", chunk.Seq)

	text, err := resilience.Poll(ctx, a.poll, func(ctx context.Context, attempt int) (string, bool, error) {
		var st jobStatus
		if err := restutil.DoJSON(ctx, a.client, http.MethodGet, a.baseURL+"/transcript/"+job.ID, auth, nil, &st); err != nil {
			return "", false, err
		}
		switch st.Status {
		case jobCompleted:
			return st.Text, true, nil
		case jobError:
			msg := st.Error
			if msg == "" {
				msg = "transcription failed"
			}
			return "", false, errors.New(errors.Remote, msg).WithMetadata("job_id", job.ID)
		default:
			log.Debug("transcription pending", "job_id", job.ID, "status", st.Status, "attempt", attempt)
			return "", false, nil
		}
	})

	switch {
	case err == nil:
		return text, nil
	case stderrors.Is(err, resilience.ErrPollExhausted):
		return "", errors.Wrap(err, errors.Timeout, "Transcription timed out").WithMetadata("job_id", job.ID)
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		if ctxErr := restutil.ContextError(ctx); ctxErr != nil {
			return "", ctxErr
		}
		return "", errors.Wrap(err, errors.Cancelled, "poll cancelled")
	default:
		return "", err
	}
}
