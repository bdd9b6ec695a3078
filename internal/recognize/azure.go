package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"InkNote/internal/diag"
)

const azureAnalyzePath = "/vision/v3.2/read/analyze"

// AzureOptions configure the Azure Read engine.
type AzureOptions struct {
	Endpoint     string // https://<resource>.cognitiveservices.azure.com
	Key          string
	PollInterval time.Duration
	PollAttempts int
	Timeout      time.Duration
	Logger       *slog.Logger
}

func (o *AzureOptions) defaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 600 * time.Millisecond
	}
	if o.PollAttempts <= 0 {
		o.PollAttempts = 12
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
}

// Azure submits an image to the Read API and polls the operation until it
// settles. Credentials are checked per request so a server can start without
// them and still answer every call with a configuration error.
type Azure struct {
	endpoint string
	key      string
	interval time.Duration
	attempts int
	do       func(*http.Request) (*http.Response, error)
	sleep    func(ctx context.Context, d time.Duration) error
	log      *slog.Logger
}

func NewAzure(opts AzureOptions) *Azure {
	opts.defaults()
	hc := &http.Client{Timeout: opts.Timeout}
	return &Azure{
		endpoint: strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/"),
		key:      strings.TrimSpace(opts.Key),
		interval: opts.PollInterval,
		attempts: opts.PollAttempts,
		do:       hc.Do,
		sleep:    sleepCtx,
		log:      diag.Component(opts.Logger, "azure"),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type azureLine struct {
	Text string `json:"text"`
}

type azurePage struct {
	Lines []azureLine `json:"lines"`
}

type azureResult struct {
	Status        string `json:"status"`
	AnalyzeResult *struct {
		ReadResults []azurePage `json:"readResults"`
		Pages       []azurePage `json:"pages"`
	} `json:"analyzeResult"`
}

func (r azureResult) text() string {
	if r.AnalyzeResult == nil {
		return ""
	}
	pages := r.AnalyzeResult.ReadResults
	if len(pages) == 0 {
		pages = r.AnalyzeResult.Pages
	}
	var lines []string
	for _, p := range pages {
		for _, ln := range p.Lines {
			lines = append(lines, ln.Text)
		}
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}

func (a *Azure) Recognize(ctx context.Context, img []byte) (string, error) {
	if a.endpoint == "" {
		return "", fmt.Errorf("azure: %w: missing AZURE_VISION_ENDPOINT", ErrNotConfigured)
	}
	if a.key == "" {
		return "", fmt.Errorf("azure: %w: missing AZURE_VISION_KEY", ErrNotConfigured)
	}
	opLoc, err := a.analyze(ctx, img)
	if err != nil {
		return "", err
	}
	for try := 1; try <= a.attempts; try++ {
		if err := a.sleep(ctx, a.interval); err != nil {
			return "", fmt.Errorf("azure: poll: %w", err)
		}
		res, err := a.poll(ctx, opLoc)
		if err != nil {
			return "", err
		}
		switch strings.ToLower(res.Status) {
		case "succeeded":
			return res.text(), nil
		case "failed":
			return "", fmt.Errorf("azure: %w", ErrAnalysisFailed)
		case "", "notstarted", "running":
			if res.Status == "" && res.AnalyzeResult != nil {
				return res.text(), nil
			}
		default:
			a.log.Warn("unexpected operation status", "status", res.Status)
		}
		a.log.Debug("operation pending", "try", try, "status", res.Status)
	}
	return "", fmt.Errorf("azure: %w after %d attempts", ErrPollExhausted, a.attempts)
}

func (a *Azure) analyze(ctx context.Context, img []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+azureAnalyzePath, bytes.NewReader(img))
	if err != nil {
		return "", fmt.Errorf("azure: build request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.key)
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := a.do(req)
	if err != nil {
		return "", fmt.Errorf("azure: analyze: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("azure: %w: analyze status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	opLoc := resp.Header.Get("Operation-Location")
	if opLoc == "" {
		return "", fmt.Errorf("azure: %w: missing Operation-Location", ErrResponseInvalid)
	}
	return opLoc, nil
}

func (a *Azure) poll(ctx context.Context, opLoc string) (azureResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opLoc, nil)
	if err != nil {
		return azureResult{}, fmt.Errorf("azure: build poll: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.key)
	resp, err := a.do(req)
	if err != nil {
		return azureResult{}, fmt.Errorf("azure: poll: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return azureResult{}, fmt.Errorf("azure: %w: poll status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var res azureResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&res); err != nil {
		return azureResult{}, fmt.Errorf("azure: %w: %w", ErrResponseInvalid, err)
	}
	return res, nil
}
