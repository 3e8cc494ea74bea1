package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stwalsh4118/git-check-rebase/internal/logging"
)

const (
	jiraIssueFields = "description,subtasks,priority,resolution,issuetype"
	jiraTimeout     = 30 * time.Second
	jiraMaxRetries  = 3
)

// Jira is a minimal read-only Jira REST client
type Jira struct {
	server string
	user   string
	token  string
	client *http.Client
	logger logging.Logger
	cache  map[string]*jiraIssue
}

// NewJira creates a client for server. A server without scheme gets https://.
func NewJira(server, user, token string, logger logging.Logger) (*Jira, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if server == "" {
		return nil, fmt.Errorf("jira server is not configured (tracker.server or GCR_TRACKER_SERVER)")
	}
	if !strings.HasPrefix(server, "http") {
		server = "https://" + server
	}

	return &Jira{
		server: strings.TrimRight(server, "/"),
		user:   user,
		token:  token,
		client: &http.Client{Timeout: jiraTimeout},
		logger: logger.With("component", "jira"),
		cache:  make(map[string]*jiraIssue),
	}, nil
}

type jiraName struct {
	Name string `json:"name"`
}

type jiraIssueResponse struct {
	Key    string `json:"key"`
	Fields struct {
		Description string    `json:"description"`
		Priority    *jiraName `json:"priority"`
		Resolution  *jiraName `json:"resolution"`
		IssueType   *jiraName `json:"issuetype"`
		Subtasks    []struct {
			Key string `json:"key"`
		} `json:"subtasks"`
	} `json:"fields"`
}

type jiraEpicResponse struct {
	Issues []struct {
		Key string `json:"key"`
	} `json:"issues"`
}

type jiraIssue struct {
	j    *Jira
	resp jiraIssueResponse
}

func (i *jiraIssue) Key() string         { return i.resp.Key }
func (i *jiraIssue) Description() string { return i.resp.Fields.Description }

func (i *jiraIssue) IsCritical() bool {
	p := i.resp.Fields.Priority
	return p != nil && (p.Name == "Critical" || p.Name == "Blocker")
}

func (i *jiraIssue) IsFixed() bool {
	r := i.resp.Fields.Resolution
	return r != nil && r.Name == "Fixed"
}

// SubIssues returns the subtasks, or the issues of an epic
func (i *jiraIssue) SubIssues(ctx context.Context) ([]Issue, error) {
	var keys []string
	if t := i.resp.Fields.IssueType; t != nil && t.Name == "Epic" {
		var epic jiraEpicResponse
		if err := i.j.getJSON(ctx, "/rest/agile/1.0/epic/"+url.PathEscape(i.Key())+"/issue", nil, &epic); err != nil {
			return nil, err
		}
		for _, is := range epic.Issues {
			keys = append(keys, is.Key)
		}
	} else {
		for _, st := range i.resp.Fields.Subtasks {
			keys = append(keys, st.Key)
		}
	}

	subs := make([]Issue, 0, len(keys))
	for _, k := range keys {
		sub, err := i.j.GetIssue(ctx, k)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// GetIssue fetches one issue. Results are memoized for the client lifetime.
func (j *Jira) GetIssue(ctx context.Context, key string) (Issue, error) {
	if is, ok := j.cache[key]; ok {
		return is, nil
	}

	var resp jiraIssueResponse
	query := url.Values{"fields": {jiraIssueFields}}
	if err := j.getJSON(ctx, "/rest/api/2/issue/"+url.PathEscape(key), query, &resp); err != nil {
		return nil, err
	}

	is := &jiraIssue{j: j, resp: resp}
	j.cache[key] = is
	j.logger.Debug("fetched issue", "key", key, "subtasks", len(resp.Fields.Subtasks))
	return is, nil
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jira %s: HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}

func (j *Jira) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := j.server + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body []byte
	err := retryWithBackoff(ctx, jiraMaxRetries, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if j.user != "" || j.token != "" {
			req.SetBasicAuth(j.user, j.token)
		}

		resp, err := j.client.Do(req)
		if err != nil {
			return fmt.Errorf("sending request: %w", err)
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return &rateLimitError{}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &StatusError{URL: u, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s: %w", u, err)
	}
	return nil
}

type rateLimitError struct{}

func (e *rateLimitError) Error() string { return "rate limited" }

var retryBaseDelay = time.Second

// retryWithBackoff retries fn only while it reports rate limiting
func retryWithBackoff(ctx context.Context, maxRetries int, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if _, ok := lastErr.(*rateLimitError); !ok {
			return lastErr
		}

		if attempt < maxRetries {
			backoff := time.Duration(1<<uint(attempt)) * retryBaseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}
