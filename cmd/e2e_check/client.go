package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// apiClient habla con la API por HTTP y recuerda el token de sesión.
type apiClient struct {
	baseURL string
	http    *http.Client
	token   string
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type apiResponse struct {
	Status int
	Body   gjson.Result
}

func (r apiResponse) String() string {
	return fmt.Sprintf("%d %s", r.Status, r.Body.Raw)
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (apiResponse, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return apiResponse{}, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apiResponse{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apiResponse{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apiResponse{}, fmt.Errorf("read body: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return apiResponse{}, fmt.Errorf("%s %s: non-json response (status %d): %q", method, path, resp.StatusCode, raw)
	}
	return apiResponse{Status: resp.StatusCode, Body: gjson.ParseBytes(raw)}, nil
}

// step es un paso del recorrido: una llamada y lo que se espera de ella.
type step struct {
	Name   string
	Method string
	Path   string
	Body   any
	Status int
	// Expect compara rutas gjson con valores esperados (como texto).
	Expect map[string]string
}

func checkStep(s step, res apiResponse) error {
	if res.Status != s.Status {
		return fmt.Errorf("expected status %d, got %s", s.Status, res)
	}
	for path, want := range s.Expect {
		got := res.Body.Get(path)
		if !got.Exists() {
			return fmt.Errorf("missing %q in %s", path, res.Body.Raw)
		}
		if got.String() != want {
			return fmt.Errorf("%s: expected %q, got %q", path, want, got.String())
		}
	}
	return nil
}

func (c *apiClient) run(ctx context.Context, s step) (apiResponse, error) {
	res, err := c.do(ctx, s.Method, s.Path, s.Body)
	if err != nil {
		return res, err
	}
	if err := checkStep(s, res); err != nil {
		return res, fmt.Errorf("%s: %w", s.Name, err)
	}
	return res, nil
}
