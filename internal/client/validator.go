package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	api "github.com/citecheck/citecheck/api/v1alpha1"
)

const (
	headerUserToken         = "X-User-Token"
	headerFreeUserID        = "X-Free-User-ID"
	headerFreeUsed          = "X-Free-Used"
	headerExperimentVariant = "X-Experiment-Variant"

	// cap on error bodies read during classification
	maxErrorBodySize = 4096
)

// Identity describes the caller on a request: an auth token for paying users,
// or the anonymous free-user id plus the locally cached usage count.
type Identity struct {
	AuthToken  string
	FreeUserID string
	FreeUsed   int
	Variant    string
}

// Validator is the client interface to the validation backend.
type Validator interface {
	// SubmitValidation creates an asynchronous validation job and returns its id.
	SubmitValidation(ctx context.Context, request api.SubmitRequest, identity Identity) (string, error)
	// GetJob returns the current state of a job.
	GetJob(ctx context.Context, jobID string, identity Identity) (*api.Job, error)
	// RevealResults records a reveal outcome. Callers treat it as best-effort.
	RevealResults(ctx context.Context, request api.RevealRequest) error
	// GetCredits returns the credit balance for a token.
	GetCredits(ctx context.Context, token string) (*api.CreditsResponse, error)
}

var _ Validator = (*validator)(nil)

type validator struct {
	client *http.Client
	server string
}

func NewValidator(httpClient *http.Client, config *Config) Validator {
	return &validator{
		client: httpClient,
		server: strings.TrimSuffix(config.Service.Server, "/"),
	}
}

func (v *validator) SubmitValidation(ctx context.Context, request api.SubmitRequest, identity Identity) (string, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return "", NewErrMalformedResponse(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.server+"/api/validate/async", bytes.NewReader(body))
	if err != nil {
		return "", NewErrNetworkError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	setIdentityHeaders(req, identity)

	resp, err := v.client.Do(req)
	if err != nil {
		return "", NewErrNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyResponse(resp)
	}

	var submitResp api.SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitResp); err != nil {
		return "", NewErrMalformedResponse(err)
	}
	if submitResp.JobID == "" {
		return "", NewErrMalformedResponse(fmt.Errorf("response is missing job_id"))
	}
	return submitResp.JobID, nil
}

func (v *validator) GetJob(ctx context.Context, jobID string, identity Identity) (*api.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.server+"/api/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, NewErrNetworkError(err)
	}
	setIdentityHeaders(req, identity)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, NewErrNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, NewErrJobNotFound(jobID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyResponse(resp)
	}

	var job api.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, NewErrMalformedResponse(err)
	}
	// fold statuses this client does not know into pending
	job.Status = api.StringToJobStatus(string(job.Status))
	if job.ID == "" {
		job.ID = jobID
	}
	return &job, nil
}

func (v *validator) RevealResults(ctx context.Context, request api.RevealRequest) error {
	body, err := json.Marshal(request)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.server+"/api/reveal-results", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// response body is ignored on purpose, only the status matters
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("reveal tracking failed: %s", resp.Status)
	}
	return nil
}

func (v *validator) GetCredits(ctx context.Context, token string) (*api.CreditsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.server+"/api/credits?token="+url.QueryEscape(token), nil)
	if err != nil {
		return nil, NewErrNetworkError(err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, NewErrNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyResponse(resp)
	}

	var credits api.CreditsResponse
	if err := json.NewDecoder(resp.Body).Decode(&credits); err != nil {
		return nil, NewErrMalformedResponse(err)
	}
	return &credits, nil
}

// setIdentityHeaders attaches the caller identity: the auth token when one is
// persisted, otherwise the anonymous free-user id and cached usage count.
// The anonymous values are base64 encoded to keep header values injection safe.
func setIdentityHeaders(req *http.Request, identity Identity) {
	if identity.AuthToken != "" {
		req.Header.Set(headerUserToken, identity.AuthToken)
	} else if identity.FreeUserID != "" {
		req.Header.Set(headerFreeUserID, encodeHeaderValue(identity.FreeUserID))
		req.Header.Set(headerFreeUsed, encodeHeaderValue(strconv.Itoa(identity.FreeUsed)))
	}
	if identity.Variant != "" {
		req.Header.Set(headerExperimentVariant, identity.Variant)
	}
}

func encodeHeaderValue(value string) string {
	return base64.StdEncoding.EncodeToString([]byte(value))
}

// classifyResponse turns a non-2xx response into a typed server error. JSON
// bodies contribute their detail/error/message field; anything else (an HTML
// gateway timeout page for instance) is surfaced as trimmed raw text.
func classifyResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var payload struct {
			Detail  string `json:"detail"`
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &payload); err == nil {
			for _, msg := range []string{payload.Detail, payload.Error, payload.Message} {
				if msg != "" {
					return NewErrServerError(resp.StatusCode, msg)
				}
			}
		}
	}
	return NewErrServerError(resp.StatusCode, strings.TrimSpace(string(raw)))
}
