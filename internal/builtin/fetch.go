package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shaiso/Flowline/internal/domain"
)

// HTTPFetch строит реализацию сетевой капабилити поверх http.Client.
//
// Это единственный путь узлов (встроенных и sandbox) в сеть:
// capability передаётся явно вызывающей стороной, nil означает
// полный запрет сетевого доступа для run'а.
func HTTPFetch(client *http.Client) domain.FetchFunc {
	if client == nil {
		client = &http.Client{}
	}

	return func(ctx context.Context, req domain.FetchRequest) (*domain.FetchResponse, error) {
		method := req.Method
		if method == "" {
			method = http.MethodGet
		}

		var bodyReader io.Reader
		if req.Body != nil {
			bodyBytes, err := json.Marshal(req.Body)
			if err != nil {
				return nil, fmt.Errorf("marshal body: %w", err)
			}
			bodyReader = bytes.NewReader(bodyBytes)
		}

		httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		for key, val := range req.Headers {
			httpReq.Header.Set(key, val)
		}
		if bodyReader != nil && httpReq.Header.Get("Content-Type") == "" {
			httpReq.Header.Set("Content-Type", "application/json")
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		headers := make(map[string]string, len(resp.Header))
		for key := range resp.Header {
			headers[key] = resp.Header.Get(key)
		}

		// Пробуем распарсить body как JSON, иначе строка.
		var parsedBody any
		if err := json.Unmarshal(respBody, &parsedBody); err != nil {
			parsedBody = string(respBody)
		}

		return &domain.FetchResponse{
			StatusCode: resp.StatusCode,
			Headers:    headers,
			Body:       parsedBody,
		}, nil
	}
}
