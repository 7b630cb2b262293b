package httpx_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/amberfield/press/internal/httpx"
	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/require"
)

type env struct{}

func serve(fn func(*env, http.ResponseWriter, *http.Request) error, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	httpx.HandlerFunc(func(*http.Request) *env { return &env{} }, fn)(w, r)
	return w
}

func TestHandlerRendersProtocolError(t *testing.T) {
	require := require.New(t)

	w := serve(func(*env, http.ResponseWriter, *http.Request) error {
		return &httpx.ProtocolError{
			Code:      http.StatusBadRequest,
			ErrorCode: "invalid_request",
			Info:      "unsupported q source",
		}
	}, httptest.NewRequest("GET", "/", nil))

	require.Equal(400, w.Code)
	var body map[string]string
	require.NoError(json.UnmarshalFull(w.Body, &body))
	require.Equal("invalid_request", body["error"])
	require.Equal("unsupported q source", body["info"])
}

func TestHandlerOmitsEmptyInfo(t *testing.T) {
	require := require.New(t)

	w := serve(func(*env, http.ResponseWriter, *http.Request) error {
		return &httpx.ProtocolError{Code: http.StatusUnauthorized, ErrorCode: "unauthorized"}
	}, httptest.NewRequest("POST", "/", nil))

	require.Equal(401, w.Code)
	var body map[string]string
	require.NoError(json.UnmarshalFull(w.Body, &body))
	require.Equal("unauthorized", body["error"])
	require.NotContains(body, "info")
}

func TestHandlerRendersStatusError(t *testing.T) {
	require := require.New(t)

	w := serve(func(*env, http.ResponseWriter, *http.Request) error {
		return httpx.Error(http.StatusNotFound, errors.New("no such entry"))
	}, httptest.NewRequest("GET", "/", nil))

	require.Equal(404, w.Code)
	require.Contains(w.Body.String(), "no such entry")
}

func TestHandlerMasksUnexpectedErrors(t *testing.T) {
	require := require.New(t)

	w := serve(func(*env, http.ResponseWriter, *http.Request) error {
		return errors.New("database on fire")
	}, httptest.NewRequest("GET", "/", nil))

	require.Equal(500, w.Code)
	require.NotContains(w.Body.String(), "database on fire")
}

func TestParamsDecodesQueryAndBodies(t *testing.T) {
	type params struct {
		GrantType string `json:"grant_type" schema:"grant_type"`
		Code      string `json:"code" schema:"code"`
	}

	t.Run("query string", func(t *testing.T) {
		require := require.New(t)

		r := httptest.NewRequest("GET", "/?grant_type=authorization_code&code=1234", nil)
		var p params
		require.NoError(httpx.Params(r, &p))
		require.Equal("authorization_code", p.GrantType)
		require.Equal("1234", p.Code)
	})
	t.Run("form body", func(t *testing.T) {
		require := require.New(t)

		form := url.Values{"grant_type": {"authorization_code"}, "code": {"1234"}, "extra": {"ignored"}}
		r := httptest.NewRequest("POST", "/", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		var p params
		require.NoError(httpx.Params(r, &p))
		require.Equal("1234", p.Code)
	})
	t.Run("json body", func(t *testing.T) {
		require := require.New(t)

		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"grant_type": "authorization_code", "code": "1234"}`))
		r.Header.Set("Content-Type", "application/json")
		var p params
		require.NoError(httpx.Params(r, &p))
		require.Equal("authorization_code", p.GrantType)
	})
	t.Run("unsupported content type", func(t *testing.T) {
		require := require.New(t)

		r := httptest.NewRequest("POST", "/", strings.NewReader("grant_type=x"))
		r.Header.Set("Content-Type", "text/plain")
		var p params
		err := httpx.Params(r, &p)
		require.Error(err)
	})
}

func TestMediaTypeStripsParameters(t *testing.T) {
	require := require.New(t)

	r := httptest.NewRequest("POST", "/", nil)
	r.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
	require.Equal("multipart/form-data", httpx.MediaType(r))

	r.Header.Del("Content-Type")
	require.Equal("", httpx.MediaType(r))
}
