package request

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestStruct struct {
	Code    string        `json:"code"`
	State   string        `json:"state,omitempty"`
	Samples int           `json:"samples"`
	Window  time.Duration `json:"window"`
	Debug   bool          `json:"debug"`
	Skipped string        `json:"-"`
}

func TestGetBody_JSON(t *testing.T) {
	req, err := http.NewRequest("POST", "/", strings.NewReader(`{"code": "123", "state": "active", "samples": 4}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	result, err := GetBody[TestStruct](req)
	require.NoError(t, err)
	assert.Equal(t, "123", result.Code)
	assert.Equal(t, "active", result.State)
	assert.Equal(t, 4, result.Samples)
}

func TestGetBody_EmptyJSON(t *testing.T) {
	req, err := http.NewRequest("POST", "/", http.NoBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	result, err := GetBody[TestStruct](req)
	require.NoError(t, err)
	assert.Equal(t, TestStruct{}, *result)
}

func TestGetBody_InvalidJSON(t *testing.T) {
	req, err := http.NewRequest("POST", "/", strings.NewReader(`{"samples": "many"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	_, err = GetBody[TestStruct](req)
	assert.Error(t, err)
}

func TestGetBody_FormEncoded(t *testing.T) {
	form := url.Values{}
	form.Set("code", "123")
	form.Set("state", "active")
	form.Set("debug", "true")

	req, err := http.NewRequest("POST", "/", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	result, err := GetBody[TestStruct](req)
	require.NoError(t, err)
	assert.Equal(t, "123", result.Code)
	assert.Equal(t, "active", result.State)
	assert.True(t, result.Debug)
}

func TestGetBody_MultipartForm(t *testing.T) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("code", "123"))
	require.NoError(t, writer.WriteField("samples", "7"))
	require.NoError(t, writer.Close())

	req, err := http.NewRequest("POST", "/", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	result, err := GetBody[TestStruct](req)
	require.NoError(t, err)
	assert.Equal(t, "123", result.Code)
	assert.Equal(t, 7, result.Samples)
}

func TestGetBody_QueryParams(t *testing.T) {
	req, err := http.NewRequest("GET", "/?code=123&state=active&samples=3&window=2s&-=x", nil)
	require.NoError(t, err)

	result, err := GetBody[TestStruct](req)
	require.NoError(t, err)
	assert.Equal(t, "123", result.Code)
	assert.Equal(t, "active", result.State)
	assert.Equal(t, 3, result.Samples)
	assert.Equal(t, 2*time.Second, result.Window)
	assert.Empty(t, result.Skipped)
}

func TestGetBody_BadQueryValue(t *testing.T) {
	req, err := http.NewRequest("GET", "/?samples=lots", nil)
	require.NoError(t, err)

	_, err = GetBody[TestStruct](req)
	assert.ErrorContains(t, err, "samples")
}
