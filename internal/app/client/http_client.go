package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/exp/slog"

	"pxocore/internal/app/client/config"
	"pxocore/internal/domain/backup"
	"pxocore/internal/domain/device"
	syncdomain "pxocore/internal/domain/sync"
)

var ErrUnauthorized = errors.New("требуется аутентификация")

// APIError ответ сервера с кодом 4xx/5xx
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ошибка сервера (%d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

type httpClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	token     string
	userAgent string
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) *httpClient {
	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	return &httpClient{
		client:    client,
		log:       log.With("component", "http_client"),
		baseURL:   cfg.BaseURL(),
		token:     cfg.Token,
		userAgent: "PXO-Client/1.0",
	}
}

// HealthCheck проверяет доступность сервера
func (h *httpClient) HealthCheck(ctx context.Context) error {
	return h.do(ctx, http.MethodGet, "/api/v1/health", nil, nil)
}

func (h *httpClient) RegisterDevice(ctx context.Context, req device.RegisterRequest) (*device.Device, error) {
	var d device.Device
	if err := h.do(ctx, http.MethodPost, "/api/devices", req, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (h *httpClient) FullSync(ctx context.Context, deviceID string) (*syncdomain.FullSyncResult, error) {
	var result syncdomain.FullSyncResult
	body := map[string]string{"deviceId": deviceID}
	if err := h.do(ctx, http.MethodPost, "/api/sync/full", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (h *httpClient) DeltaSync(ctx context.Context, req syncdomain.DeltaSyncRequest) (*syncdomain.DeltaSyncResult, error) {
	var result syncdomain.DeltaSyncResult
	if err := h.do(ctx, http.MethodPost, "/api/sync/delta", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (h *httpClient) Status(ctx context.Context) ([]syncdomain.SyncStatus, error) {
	var statuses []syncdomain.SyncStatus
	if err := h.do(ctx, http.MethodGet, "/api/sync/status", nil, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (h *httpClient) Conflicts(ctx context.Context) ([]syncdomain.SyncConflict, error) {
	var conflicts []syncdomain.SyncConflict
	if err := h.do(ctx, http.MethodGet, "/api/sync/conflicts", nil, &conflicts); err != nil {
		return nil, err
	}
	return conflicts, nil
}

func (h *httpClient) ResolveConflict(ctx context.Context, id string, req syncdomain.ResolveRequest) (*syncdomain.ResolveResult, error) {
	var result syncdomain.ResolveResult
	path := "/api/sync/conflicts/" + url.PathEscape(id) + "/resolve"
	if err := h.do(ctx, http.MethodPost, path, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (h *httpClient) History(ctx context.Context, deviceID string, page, limit int) (*syncdomain.HistoryPage, error) {
	q := url.Values{}
	q.Set("deviceId", deviceID)
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var result syncdomain.HistoryPage
	if err := h.do(ctx, http.MethodGet, "/api/sync/history?"+q.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (h *httpClient) CreateBackup(ctx context.Context) (*backup.Info, error) {
	var info backup.Info
	if err := h.do(ctx, http.MethodPost, "/api/sync/backups", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (h *httpClient) ListBackups(ctx context.Context) ([]backup.Info, error) {
	var infos []backup.Info
	if err := h.do(ctx, http.MethodGet, "/api/sync/backups", nil, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

func (h *httpClient) RestoreBackup(ctx context.Context, id string) (*backup.RestoreResult, error) {
	var result backup.RestoreResult
	path := "/api/sync/backups/" + url.PathEscape(id) + "/restore"
	if err := h.do(ctx, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (h *httpClient) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	h.log.Debug("Отправка запроса", "method", method, "url", req.URL.String())

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("сервер недоступен: %w", err)
	}

	return h.parseResponse(resp, result)
}

func (h *httpClient) parseResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	h.log.Debug("Получен ответ", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body, resp.Status)}
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("ошибка парсинга ответа: %w", err)
		}
	}
	return nil
}

// errorMessage текст ошибки из тела huma (detail) или middleware (error)
func errorMessage(body []byte, fallback string) string {
	var errResp struct {
		Error  string `json:"error"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return fallback
	}

	switch {
	case errResp.Detail != "":
		return errResp.Detail
	case errResp.Error != "":
		return errResp.Error
	case errResp.Title != "":
		return errResp.Title
	}
	return fallback
}
