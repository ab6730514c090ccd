package clientpkg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tidwall/gjson"

	"github.com/Seann-Moser/go-bench/pkg/pagination"
)

// Client calls a go-bench server and unwraps its {message, data, page} replies.
type Client struct {
	endpoint *url.URL
	client   *http.Client
}

// StatusError is returned for non 2xx replies.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("invalid status code: %d", e.Code)
	}
	return fmt.Sprintf("invalid status code: %d: %s", e.Code, e.Message)
}

func Flags(prefix string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(prefix, pflag.ExitOnError)
	fs.String(GetFlagWithPrefix("endpoint", prefix), "http://127.0.0.1:8080", "")
	fs.Duration(GetFlagWithPrefix("timeout", prefix), 2*time.Minute, "benchmark runs can take as long as their window")
	return fs
}

func NewWithFlags(prefix string) (*Client, error) {
	return New(
		viper.GetString(GetFlagWithPrefix("endpoint", prefix)),
		&http.Client{Timeout: viper.GetDuration(GetFlagWithPrefix("timeout", prefix))},
	)
}

func New(endpoint string, client *http.Client) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		endpoint: u,
		client:   client,
	}, nil
}

// GetResponse decodes the data returned by SendRequest into T.
func GetResponse[T any](body []byte, page *pagination.Pagination, err error) (T, *pagination.Pagination, error) {
	var d T
	if err != nil {
		return d, nil, err
	}
	if err := json.Unmarshal(body, &d); err != nil {
		return d, nil, fmt.Errorf("failed decoding response: %w", err)
	}
	return d, page, nil
}

// SendRequest sends body as JSON and returns the data and page fields of the reply.
func (c *Client) SendRequest(ctx context.Context, path string, method string, body interface{}, params map[string]string, headers map[string]string) ([]byte, *pagination.Pagination, error) {
	u := c.endpoint.JoinPath(path)
	var rawBody []byte
	if body != nil {
		var err error
		rawBody, err = json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(rawBody))
	if err != nil {
		return nil, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	queryParams := url.Values{}
	for k, v := range params {
		queryParams.Add(k, v)
	}
	req.URL.RawQuery = queryParams.Encode()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	responseData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &StatusError{Code: resp.StatusCode, Message: gjson.GetBytes(responseData, "message").String()}
	}

	var page *pagination.Pagination
	if raw := gjson.GetBytes(responseData, "page"); raw.Exists() {
		page = &pagination.Pagination{}
		if err := json.Unmarshal([]byte(raw.Raw), page); err != nil {
			return nil, nil, fmt.Errorf("failed decoding page: %w", err)
		}
	}
	return []byte(gjson.GetBytes(responseData, "data").Raw), page, nil
}
