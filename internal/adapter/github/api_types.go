package github

import "time"

// GitHub REST v3 wire types for the endpoints the verifier consumes.
// See: https://docs.github.com/en/rest

// pullResponse is a pull request as returned by GET /repos/{owner}/{repo}/pulls.
type pullResponse struct {
	Number   int        `json:"number"`
	Title    string     `json:"title"`
	State    string     `json:"state"`
	MergedAt *time.Time `json:"merged_at"`
	Head     refInfo    `json:"head"`
	Base     refInfo    `json:"base"`
}

// refInfo identifies one side of a pull request.
type refInfo struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// workflowRunsResponse is the envelope for GET .../actions/runs.
type workflowRunsResponse struct {
	TotalCount   int                   `json:"total_count"`
	WorkflowRuns []workflowRunResponse `json:"workflow_runs"`
}

type workflowRunResponse struct {
	ID           int64     `json:"id"`
	Status       string    `json:"status"`
	Conclusion   string    `json:"conclusion"`
	HeadSHA      string    `json:"head_sha"`
	HeadBranch   string    `json:"head_branch"`
	CreatedAt    time.Time `json:"created_at"`
	PullRequests []struct {
		Number int `json:"number"`
	} `json:"pull_requests"`
}

// jobsResponse is the envelope for GET .../actions/runs/{id}/jobs.
type jobsResponse struct {
	TotalCount int           `json:"total_count"`
	Jobs       []jobResponse `json:"jobs"`
}

type jobResponse struct {
	Name       string     `json:"name"`
	Conclusion string     `json:"conclusion"`
	StartedAt  *time.Time `json:"started_at"`
}

// issueCommentResponse is one element of GET .../issues/{number}/comments.
type issueCommentResponse struct {
	Body string `json:"body"`
	User struct {
		Login string `json:"login"`
	} `json:"user"`
}

// gitRefResponse is the body of GET .../git/ref/heads/{branch}.
type gitRefResponse struct {
	Ref    string `json:"ref"`
	Object struct {
		SHA string `json:"sha"`
	} `json:"object"`
}

// createRefRequest is the body for POST .../git/refs.
type createRefRequest struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// contentResponse is the body of GET .../contents/{path}.
type contentResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

// putContentRequest is the body for PUT .../contents/{path}.
// Content must be base64 encoded; SHA is required only when updating an
// existing file.
type putContentRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

// createPullRequest is the body for POST .../pulls.
type createPullRequest struct {
	Title string `json:"title"`
	Head  string `json:"head"`
	Base  string `json:"base"`
	Body  string `json:"body"`
}

// updatePullRequest is the body for PATCH .../pulls/{number}.
type updatePullRequest struct {
	State string `json:"state"`
}

// errorResponse represents an error response from the GitHub API.
type errorResponse struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
	Errors           []struct {
		Resource string `json:"resource"`
		Field    string `json:"field"`
		Code     string `json:"code"`
		Message  string `json:"message"`
	} `json:"errors,omitempty"`
}
