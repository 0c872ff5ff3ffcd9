// Package github is the typed GitHub REST client the verifier consumes.
// Base64 content encoding and decoding is owned here, at the API
// boundary; callers always deal in raw file content.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/haosenchai9-afk/workflow-verify/internal/adapter/rest"
	"github.com/haosenchai9-afk/workflow-verify/internal/domain"
)

const (
	defaultBaseURL        = "https://api.github.com"
	defaultTimeout        = 30 * time.Second
	defaultMaxRetries     = 3
	defaultInitialBackoff = 2 * time.Second
)

// Client is an HTTP client for the GitHub repository, pulls, contents,
// git refs, and Actions APIs.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	retryConf  rest.RetryConfig
	logger     rest.Logger
}

// NewClient creates a new GitHub API client with the given token.
// The token should be a personal access token or GITHUB_TOKEN from Actions.
func NewClient(token string) *Client {
	return &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		retryConf: rest.RetryConfig{
			MaxRetries:     defaultMaxRetries,
			InitialBackoff: defaultInitialBackoff,
			MaxBackoff:     32 * time.Second,
			Multiplier:     2.0,
		},
	}
}

// SetBaseURL sets a custom base URL (for testing).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// SetTimeout sets the HTTP timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// SetRetryConfig overrides the retry behavior.
func (c *Client) SetRetryConfig(conf rest.RetryConfig) {
	c.retryConf = conf
}

// SetLogger wires a call logger into the client.
func (c *Client) SetLogger(logger rest.Logger) {
	c.logger = logger
}

// do executes one API call with retry, decoding a 2xx JSON body into out
// when out is non-nil. All non-2xx statuses become typed *rest.Error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	fullURL := c.baseURL + path
	start := time.Now()

	if c.logger != nil {
		c.logger.LogRequest(ctx, rest.RequestLog{
			Service:   serviceName,
			Method:    method,
			Path:      path,
			Timestamp: start,
			Token:     c.token,
		})
	}

	var resp *http.Response
	err := rest.RetryWithBackoff(ctx, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, reqErr := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if reqErr != nil {
			return &rest.Error{
				Type:      rest.ErrTypeUnknown,
				Message:   reqErr.Error(),
				Retryable: false,
				Service:   serviceName,
			}
		}

		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		var callErr error
		resp, callErr = c.httpClient.Do(req)
		if callErr != nil {
			// Could be timeout or network error
			return &rest.Error{
				Type:      rest.ErrTypeTimeout,
				Message:   callErr.Error(),
				Retryable: true,
				Service:   serviceName,
			}
		}

		if resp.StatusCode >= 400 {
			bodyBytes, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				return &rest.Error{
					Type:       rest.ErrTypeUnknown,
					Message:    fmt.Sprintf("HTTP %d (failed to read response: %v)", resp.StatusCode, readErr),
					StatusCode: resp.StatusCode,
					Retryable:  resp.StatusCode >= 500,
					Service:    serviceName,
				}
			}
			return MapHTTPError(resp.StatusCode, bodyBytes)
		}

		return nil
	}, c.retryConf)

	if err != nil {
		if c.logger != nil {
			logEntry := rest.ErrorLog{
				Service:   serviceName,
				Method:    method,
				Path:      path,
				Timestamp: time.Now(),
				Duration:  time.Since(start),
				Error:     err,
			}
			var restErr *rest.Error
			if errors.As(err, &restErr) {
				logEntry.ErrorType = restErr.Type
				logEntry.StatusCode = restErr.StatusCode
				logEntry.Retryable = restErr.Retryable
			}
			c.logger.LogError(ctx, logEntry)
		}
		return err
	}
	defer resp.Body.Close()

	if c.logger != nil {
		c.logger.LogResponse(ctx, rest.ResponseLog{
			Service:    serviceName,
			Method:     method,
			Path:       path,
			Timestamp:  time.Now(),
			Duration:   time.Since(start),
			StatusCode: resp.StatusCode,
		})
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// GetFileContent fetches a file from the given ref and returns its raw
// content plus the blob SHA needed for updates.
func (c *Client) GetFileContent(ctx context.Context, repo domain.RepositoryRef, path, ref string) (string, string, error) {
	apiPath := fmt.Sprintf("/repos/%s/%s/contents/%s?ref=%s",
		repo.Owner, repo.Name, path, url.QueryEscape(ref))

	var content contentResponse
	if err := c.do(ctx, http.MethodGet, apiPath, nil, &content); err != nil {
		return "", "", err
	}

	decoded, err := base64.StdEncoding.DecodeString(stripNewlines(content.Content))
	if err != nil {
		return "", "", fmt.Errorf("decode content of %s: %w", path, err)
	}
	return string(decoded), content.SHA, nil
}

// stripNewlines removes the line breaks GitHub inserts into base64 payloads.
func stripNewlines(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\r' {
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

// FindPullByTitle locates a pull request by exact title match, searching
// closed pull requests before open ones. Returns nil when no PR matches.
func (c *Client) FindPullByTitle(ctx context.Context, repo domain.RepositoryRef, title string, perPage int) (*domain.PullRequest, error) {
	for _, state := range []string{"closed", "open"} {
		apiPath := fmt.Sprintf("/repos/%s/%s/pulls?state=%s&per_page=%d",
			repo.Owner, repo.Name, state, perPage)

		var pulls []pullResponse
		if err := c.do(ctx, http.MethodGet, apiPath, nil, &pulls); err != nil {
			return nil, err
		}
		for _, p := range pulls {
			if p.Title == title {
				pr := mapPull(p)
				return &pr, nil
			}
		}
	}
	return nil, nil
}

// ListWorkflowRuns fetches the most recent runs of the named workflow file.
func (c *Client) ListWorkflowRuns(ctx context.Context, repo domain.RepositoryRef, workflowFile string, perPage int) ([]domain.WorkflowRun, error) {
	apiPath := fmt.Sprintf("/repos/%s/%s/actions/workflows/%s/runs?per_page=%d",
		repo.Owner, repo.Name, workflowFile, perPage)

	var runs workflowRunsResponse
	if err := c.do(ctx, http.MethodGet, apiPath, nil, &runs); err != nil {
		return nil, err
	}
	return mapRuns(runs.WorkflowRuns), nil
}

// ListRunsByEvent fetches recent runs triggered by the given event across
// all workflows, newest first.
func (c *Client) ListRunsByEvent(ctx context.Context, repo domain.RepositoryRef, event string, perPage int) ([]domain.WorkflowRun, error) {
	apiPath := fmt.Sprintf("/repos/%s/%s/actions/runs?event=%s&per_page=%d",
		repo.Owner, repo.Name, url.QueryEscape(event), perPage)

	var runs workflowRunsResponse
	if err := c.do(ctx, http.MethodGet, apiPath, nil, &runs); err != nil {
		return nil, err
	}
	return mapRuns(runs.WorkflowRuns), nil
}

// ListRunJobs fetches the jobs of one workflow run.
func (c *Client) ListRunJobs(ctx context.Context, repo domain.RepositoryRef, runID int64) ([]domain.Job, error) {
	apiPath := fmt.Sprintf("/repos/%s/%s/actions/runs/%d/jobs", repo.Owner, repo.Name, runID)

	var jobs jobsResponse
	if err := c.do(ctx, http.MethodGet, apiPath, nil, &jobs); err != nil {
		return nil, err
	}

	result := make([]domain.Job, 0, len(jobs.Jobs))
	for _, j := range jobs.Jobs {
		result = append(result, domain.Job{
			Name:       j.Name,
			Conclusion: j.Conclusion,
			StartedAt:  j.StartedAt,
		})
	}
	return result, nil
}

// ListIssueComments fetches all comments on a pull request.
func (c *Client) ListIssueComments(ctx context.Context, repo domain.RepositoryRef, number int) ([]domain.Comment, error) {
	apiPath := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", repo.Owner, repo.Name, number)

	var comments []issueCommentResponse
	if err := c.do(ctx, http.MethodGet, apiPath, nil, &comments); err != nil {
		return nil, err
	}

	result := make([]domain.Comment, 0, len(comments))
	for _, cm := range comments {
		result = append(result, domain.Comment{Author: cm.User.Login, Body: cm.Body})
	}
	return result, nil
}

// GetBranchSHA resolves the tip commit SHA of a branch.
func (c *Client) GetBranchSHA(ctx context.Context, repo domain.RepositoryRef, branch string) (string, error) {
	apiPath := fmt.Sprintf("/repos/%s/%s/git/ref/heads/%s", repo.Owner, repo.Name, branch)

	var ref gitRefResponse
	if err := c.do(ctx, http.MethodGet, apiPath, nil, &ref); err != nil {
		return "", err
	}
	return ref.Object.SHA, nil
}

// CreateBranch creates a branch ref pointing at the given commit SHA.
func (c *Client) CreateBranch(ctx context.Context, repo domain.RepositoryRef, branch, sha string) error {
	apiPath := fmt.Sprintf("/repos/%s/%s/git/refs", repo.Owner, repo.Name)
	body := createRefRequest{Ref: "refs/heads/" + branch, SHA: sha}
	return c.do(ctx, http.MethodPost, apiPath, body, nil)
}

// DeleteBranch deletes a branch ref.
func (c *Client) DeleteBranch(ctx context.Context, repo domain.RepositoryRef, branch string) error {
	apiPath := fmt.Sprintf("/repos/%s/%s/git/refs/heads/%s", repo.Owner, repo.Name, branch)
	return c.do(ctx, http.MethodDelete, apiPath, nil, nil)
}

// PutFileInput describes one file commit. Content is raw; the client
// encodes it. SHA must be set when updating a file that already exists.
type PutFileInput struct {
	Path    string
	Message string
	Content string
	Branch  string
	SHA     string
}

// PutFile creates or updates a file on a branch.
func (c *Client) PutFile(ctx context.Context, repo domain.RepositoryRef, input PutFileInput) error {
	apiPath := fmt.Sprintf("/repos/%s/%s/contents/%s", repo.Owner, repo.Name, input.Path)
	body := putContentRequest{
		Message: input.Message,
		Content: base64.StdEncoding.EncodeToString([]byte(input.Content)),
		Branch:  input.Branch,
		SHA:     input.SHA,
	}
	return c.do(ctx, http.MethodPut, apiPath, body, nil)
}

// CreatePullInput describes one pull request to open.
type CreatePullInput struct {
	Title string
	Head  string
	Base  string
	Body  string
}

// CreatePull opens a pull request and returns its record.
func (c *Client) CreatePull(ctx context.Context, repo domain.RepositoryRef, input CreatePullInput) (*domain.PullRequest, error) {
	apiPath := fmt.Sprintf("/repos/%s/%s/pulls", repo.Owner, repo.Name)
	body := createPullRequest{Title: input.Title, Head: input.Head, Base: input.Base, Body: input.Body}

	var pull pullResponse
	if err := c.do(ctx, http.MethodPost, apiPath, body, &pull); err != nil {
		return nil, err
	}
	pr := mapPull(pull)
	return &pr, nil
}

// ClosePull closes a pull request without merging it.
func (c *Client) ClosePull(ctx context.Context, repo domain.RepositoryRef, number int) error {
	apiPath := fmt.Sprintf("/repos/%s/%s/pulls/%d", repo.Owner, repo.Name, number)
	return c.do(ctx, http.MethodPatch, apiPath, updatePullRequest{State: "closed"}, nil)
}

func mapPull(p pullResponse) domain.PullRequest {
	return domain.PullRequest{
		Number:   p.Number,
		Title:    p.Title,
		State:    p.State,
		MergedAt: p.MergedAt,
		HeadRef:  p.Head.Ref,
		HeadSHA:  p.Head.SHA,
		BaseRef:  p.Base.Ref,
	}
}

func mapRuns(runs []workflowRunResponse) []domain.WorkflowRun {
	result := make([]domain.WorkflowRun, 0, len(runs))
	for _, r := range runs {
		run := domain.WorkflowRun{
			ID:         r.ID,
			Status:     r.Status,
			Conclusion: r.Conclusion,
			HeadSHA:    r.HeadSHA,
			HeadBranch: r.HeadBranch,
			CreatedAt:  r.CreatedAt,
		}
		for _, pr := range r.PullRequests {
			run.PullNumbers = append(run.PullNumbers, pr.Number)
		}
		result = append(result, run)
	}
	return result
}
