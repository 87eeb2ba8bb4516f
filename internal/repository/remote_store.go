package repository

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"grading-service/internal/config"
	"grading-service/internal/models"

	"go.uber.org/zap"
)

// RemoteStore is the remotely synced flat-file backend. Records live in a
// CSV file inside a remote repository; a local copy of the file is the
// durable working state, and Persist pushes it back with the content SHA
// captured at load time as an optimistic-concurrency precondition. A
// conflicting push never touches the local copy.
type RemoteStore struct {
	local  *CSVStore
	client *contentsClient
	logger *zap.Logger

	// sha is the remote content version observed at LoadAll, refreshed
	// after every successful push.
	sha string
}

// RemoteConfig identifies the remote resource.
type RemoteConfig struct {
	BaseURL   string
	Repo      string // "owner/name"
	FilePath  string // path inside the repo
	Token     string
	LocalPath string
}

// NewRemoteStore creates a remote-synced store. No I/O happens until
// LoadAll.
func NewRemoteStore(cfg RemoteConfig, cols config.ColumnMap, condition models.Condition, logger *zap.Logger) (*RemoteStore, error) {
	if cfg.Repo == "" || cfg.FilePath == "" {
		return nil, fmt.Errorf("remote store requires repo and file_path")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("remote access token is required")
	}

	client := &contentsClient{
		baseURL:    cfg.BaseURL,
		repo:       cfg.Repo,
		path:       cfg.FilePath,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}

	return &RemoteStore{
		local:  NewCSVStore(cfg.LocalPath, cols, condition, logger),
		client: client,
		logger: logger,
	}, nil
}

// LoadAll fetches the remote file, mirrors it to the local path and loads
// the records from there. The remote content SHA is captured for the
// concurrency check at push time.
func (s *RemoteStore) LoadAll(ctx context.Context) ([]models.AnnotationRecord, error) {
	content, sha, err := s.client.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s/%s: %v", models.ErrSourceUnavailable, s.client.repo, s.client.path, err)
	}

	if err := os.WriteFile(s.local.path, content, 0o644); err != nil {
		return nil, fmt.Errorf("%w: mirror to %s: %v", models.ErrSourceUnavailable, s.local.path, err)
	}

	records, err := s.local.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	s.sha = sha
	s.logger.Info("Remote records loaded",
		zap.String("repo", s.client.repo),
		zap.String("path", s.client.path),
		zap.String("sha", sha),
		zap.Int("count", len(records)))

	return records, nil
}

// GetByPosition returns the record at position i in the loaded sequence.
func (s *RemoteStore) GetByPosition(i int) (models.AnnotationRecord, error) {
	return s.local.GetByPosition(i)
}

// Update writes through to the local file. The remote copy is only
// touched by Persist.
func (s *RemoteStore) Update(ctx context.Context, key string, fields RecordFields) (models.AnnotationRecord, error) {
	return s.local.Update(ctx, key, fields)
}

// Persist rewrites the local file and pushes its content to the remote
// with the SHA captured at load. The local write happens first, so a
// failed push loses nothing.
func (s *RemoteStore) Persist(ctx context.Context) error {
	if err := s.local.Persist(ctx); err != nil {
		return err
	}

	content, err := os.ReadFile(s.local.path)
	if err != nil {
		return fmt.Errorf("failed to read local copy: %w", err)
	}

	newSHA, err := s.client.push(ctx, content, s.sha)
	if err != nil {
		return err
	}

	s.sha = newSHA
	s.logger.Info("Remote copy updated",
		zap.String("repo", s.client.repo),
		zap.String("path", s.client.path),
		zap.String("sha", newSHA))
	return nil
}

// Close implements RecordStore.
func (s *RemoteStore) Close() error {
	s.client.httpClient.CloseIdleConnections()
	return s.local.Close()
}

// contentsClient talks to a repository contents API (GitHub-shaped): GET
// returns base64 content plus its SHA, PUT replaces the file and requires
// the SHA of the version being replaced.
type contentsClient struct {
	baseURL    string
	repo       string
	path       string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

type contentsResponse struct {
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

type updateRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

type updateResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

func (c *contentsClient) url() string {
	return fmt.Sprintf("%s/repos/%s/contents/%s", c.baseURL, c.repo, c.path)
}

func (c *contentsClient) fetch(ctx context.Context) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.url(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("contents API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Contents API fetch error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, "", fmt.Errorf("contents API returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload contentsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, "", fmt.Errorf("failed to parse response: %w", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(stripNewlines(payload.Content))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode content: %w", err)
	}

	return decoded, payload.SHA, nil
}

// push replaces the remote file. A 409 or 422 from the API means the
// remote moved past the SHA we loaded.
func (c *contentsClient) push(ctx context.Context, content []byte, sha string) (string, error) {
	reqBody := updateRequest{
		Message: "Update grading results",
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     sha,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", models.ErrSyncFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, "PUT", c.url(), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", models.ErrSyncFailure, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrSyncFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", models.ErrSyncFailure, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		c.logger.Warn("Remote content moved past loaded version",
			zap.String("sha", sha),
			zap.Int("status", resp.StatusCode))
		return "", fmt.Errorf("%w: loaded sha %s", models.ErrConcurrentModification, sha)
	default:
		c.logger.Error("Contents API push error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return "", fmt.Errorf("%w: status %d: %s", models.ErrSyncFailure, resp.StatusCode, string(body))
	}

	var payload updateResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: parse response: %v", models.ErrSyncFailure, err)
	}

	return payload.Content.SHA, nil
}

// The contents API wraps base64 payloads at 60 columns.
func stripNewlines(s string) string {
	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\r' {
			continue
		}
		buf = append(buf, s[i])
	}
	return string(buf)
}
