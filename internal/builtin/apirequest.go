package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/Flowline/internal/domain"
)

const defaultRequestTimeout = 30 * time.Second

// APIRequestHandler — узел типа "api-request".
//
// Выполняет HTTP-запрос через капабилити ec.Fetch — узел не имеет
// собственного сетевого доступа, только переданный вызывающей стороной.
//
// Config:
//   - method (string): HTTP-метод. Default: GET
//   - url (string): адрес запроса (переопределяется входом "url")
//   - headers (map[string]any): заголовки запроса
//   - timeout_sec (number): таймаут запроса. Default: 30
//
// Inputs:
//   - url (optional): адрес запроса
//   - body (optional): тело запроса
//
// Outputs:
//   - status_code (int), headers (map[string]string), body (any)
type APIRequestHandler struct{}

// Execute выполняет HTTP-запрос.
func (h *APIRequestHandler) Execute(ctx context.Context, node *domain.Node, inputs map[string]any, ec *domain.ExecContext) (map[string]any, error) {
	if ec.Fetch == nil {
		return nil, fmt.Errorf("api-request: network access is not enabled for this run")
	}

	url := getString(node.Config, "url", "")
	if s, ok := inputs["url"].(string); ok && s != "" {
		url = s
	}
	if url == "" {
		return nil, fmt.Errorf("api-request: url is required")
	}

	req := domain.FetchRequest{
		Method:  getString(node.Config, "method", "GET"),
		URL:     url,
		Headers: configHeaders(node.Config),
		Body:    inputs["body"],
	}

	timeout := getTimeout(node.Config)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := ec.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("api-request: %w", err)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     resp.Headers,
		"body":        resp.Body,
	}, nil
}

// configHeaders извлекает заголовки из конфигурации узла.
func configHeaders(config map[string]any) map[string]string {
	raw, ok := config["headers"]
	if !ok || raw == nil {
		return nil
	}

	switch h := raw.(type) {
	case map[string]string:
		return h
	case map[string]any:
		headers := make(map[string]string, len(h))
		for key, val := range h {
			if s, ok := val.(string); ok {
				headers[key] = s
			}
		}
		return headers
	default:
		return nil
	}
}

// getString извлекает строку из map с default-значением.
func getString(m map[string]any, key, defaultVal string) string {
	if val, ok := m[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return defaultVal
}

// getTimeout извлекает таймаут из конфигурации.
func getTimeout(config map[string]any) time.Duration {
	if val, ok := config["timeout_sec"]; ok {
		switch v := val.(type) {
		case float64:
			if v > 0 {
				return time.Duration(v * float64(time.Second))
			}
		case int:
			if v > 0 {
				return time.Duration(v) * time.Second
			}
		}
	}
	return defaultRequestTimeout
}
