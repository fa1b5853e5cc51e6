package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"phias/backend/internal/dto"
	"phias/backend/internal/schedule"
)

// HTTPClient 通过另一实例的 /api/v1 接口访问排课存储
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient 创建远程存储客户端；token 为空时不带 Authorization 头
func NewHTTPClient(baseURL, token string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = DefaultHTTPClient(0)
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// DefaultHTTPClient 带超时的 http.Client，timeout<=0 时取 10s
func DefaultHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

var _ Store = (*HTTPClient)(nil)

// envelope 与 pkg/response.Response 对应
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details string          `json:"details"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	if c.baseURL == "" {
		return ErrInvalidInput
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("编码请求失败: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		if resp.StatusCode >= 300 {
			return &RemoteError{Status: resp.StatusCode}
		}
		return fmt.Errorf("解析排课存储响应失败: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || env.Code != 0 {
		msg := env.Message
		if env.Details != "" {
			msg += ": " + env.Details
		}
		return &RemoteError{Status: resp.StatusCode, Code: env.Code, Message: msg}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("解析排课存储数据失败: %w", err)
	}
	return nil
}

// ── 时段 ──

func (c *HTTPClient) ListSlots(ctx context.Context, f Filter) ([]schedule.Slot, error) {
	query := url.Values{}
	if f.Mode != ModeAll {
		query.Set("mode", string(f.Mode))
		query.Set("id", f.ID)
	}
	if f.IncludeInactive {
		query.Set("include_inactive", "true")
	}

	var items []dto.SlotResponse
	if err := c.do(ctx, http.MethodGet, "/slots", query, nil, &items); err != nil {
		return nil, err
	}
	slots := make([]schedule.Slot, 0, len(items))
	for _, item := range items {
		s, err := item.ToSlot()
		if err != nil {
			return nil, fmt.Errorf("时段 %s: %w", item.ID, err)
		}
		slots = append(slots, s)
	}
	return slots, nil
}

func (c *HTTPClient) GetSlot(ctx context.Context, id string) (schedule.Slot, error) {
	var item dto.SlotResponse
	if err := c.do(ctx, http.MethodGet, "/slots/"+url.PathEscape(id), nil, nil, &item); err != nil {
		return schedule.Slot{}, err
	}
	return item.ToSlot()
}

func (c *HTTPClient) CreateSlot(ctx context.Context, slot schedule.Slot) (string, error) {
	var created dto.CreateSlotResponse
	if err := c.do(ctx, http.MethodPost, "/slots", nil, dto.NewCreateSlotRequest(slot), &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", errors.New("排课存储未返回时段 ID")
	}
	return created.ID, nil
}

func (c *HTTPClient) UpdateSlot(ctx context.Context, id string, u SlotUpdate) error {
	return c.do(ctx, http.MethodPut, "/slots/"+url.PathEscape(id), nil, u.Request(), nil)
}

func (c *HTTPClient) SetActive(ctx context.Context, id string, active bool) error {
	req := dto.SetActiveRequest{Active: &active}
	return c.do(ctx, http.MethodPut, "/slots/"+url.PathEscape(id)+"/active", nil, req, nil)
}

// ── 参考数据 ──

func (c *HTTPClient) ListInstructors(ctx context.Context) ([]Instructor, error) {
	var out []Instructor
	err := c.do(ctx, http.MethodGet, "/instructors", nil, nil, &out)
	return out, err
}

func (c *HTTPClient) ListRooms(ctx context.Context) ([]Room, error) {
	var out []Room
	err := c.do(ctx, http.MethodGet, "/rooms", nil, nil, &out)
	return out, err
}

func (c *HTTPClient) ListCohorts(ctx context.Context) ([]Cohort, error) {
	var out []Cohort
	err := c.do(ctx, http.MethodGet, "/cohorts", nil, nil, &out)
	return out, err
}

func (c *HTTPClient) ListCompetencies(ctx context.Context, programID string) ([]Competency, error) {
	var out []Competency
	err := c.do(ctx, http.MethodGet, "/programs/"+url.PathEscape(programID)+"/competencies", nil, nil, &out)
	return out, err
}

func (c *HTTPClient) ListLearningOutcomes(ctx context.Context, competencyID string) ([]LearningOutcome, error) {
	var out []LearningOutcome
	err := c.do(ctx, http.MethodGet, "/competencies/"+url.PathEscape(competencyID)+"/outcomes", nil, nil, &out)
	return out, err
}
