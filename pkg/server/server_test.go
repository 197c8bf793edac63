/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: server_test.go
Description: Tests for the HTTP API using httptest against the gin router.
*/

package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kleascm/protodec/internal/testdata"
	"github.com/kleascm/protodec/pkg/config"
	"github.com/kleascm/protodec/pkg/core"
	"github.com/kleascm/protodec/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	l, err := logging.NewLogger(nil, &bytes.Buffer{})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	eng, err := core.NewEngine(core.DefaultEngineConfig(),
		core.WithLogger(l),
		core.WithReporter(core.NewPrometheusReporter(reg)),
	)
	require.NoError(t, err)
	return New(config.Default().Server, eng, reg, l)
}

func post(t *testing.T, s *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func b64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestDecodeWholeMessage(t *testing.T) {
	s := newTestServer(t)
	rec := post(t, s, "/v1/decode", DecodeRequest{Data: b64([]byte{0x08, 0x96, 0x01})})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp DecodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1: 150\n", resp.Dump)
	assert.Equal(t, "decode", resp.Mode)
	assert.Empty(t, resp.Schema)
}

func TestDecodeScanWithSchema(t *testing.T) {
	s := newTestServer(t)
	buf := append(append(testdata.Filler(98), testdata.AddressBook...), testdata.Filler(10)...)
	rec := post(t, s, "/v1/decode", DecodeRequest{Data: b64(buf), Mode: "scan", Schema: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp DecodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Spans, 1)
	assert.Equal(t, 98, resp.Spans[0].Start)
	assert.Equal(t, testdata.AddressBookSchema, resp.Schema)
}

func TestDecodeErrors(t *testing.T) {
	s := newTestServer(t)

	rec := post(t, s, "/v1/decode", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, s, "/v1/decode", DecodeRequest{Data: "AQ==", Mode: "guess"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, s, "/v1/decode", DecodeRequest{Data: "***"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_BASE64")

	rec = post(t, s, "/v1/decode", DecodeRequest{Data: b64([]byte{0x08, 0x96})})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "MALFORMED_MESSAGE", resp.Code)
	require.NotNil(t, resp.Offset)

	rec = post(t, s, "/v1/decode", DecodeRequest{Data: b64(testdata.Filler(40)), Mode: "scan"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "NO_MESSAGE")
}

func TestSchemaEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := post(t, s, "/v1/schema", SchemaRequest{
		Samples: []string{b64([]byte{0x0a, 0x02, 'h', 'i'})},
		Mode:    "structural",
		Package: "api",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp SchemaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "structural", resp.Mode)
	assert.Equal(t, 1, resp.Messages)
	assert.Equal(t, "package api;\n\nmessage MSG1 {\n\trequired string fld1 = 1;\n}\n", resp.Schema)

	rec = post(t, s, "/v1/schema", SchemaRequest{Samples: []string{b64(testdata.AddressBook)}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testdata.AddressBookSchema, resp.Schema)

	rec = post(t, s, "/v1/schema", SchemaRequest{Samples: []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, s, "/v1/schema", SchemaRequest{
		Samples: []string{b64([]byte{0x08, 0x01})},
		Mode:    "descriptor",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	post(t, s, "/v1/decode", DecodeRequest{Data: b64([]byte{0x08, 0x01})})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `protodec_captures_total{mode="decode",outcome="decoded"} 1`))
}

func TestMetricsDisabled(t *testing.T) {
	l, err := logging.NewLogger(nil, &bytes.Buffer{})
	require.NoError(t, err)
	eng, err := core.NewEngine(core.DefaultEngineConfig(), core.WithLogger(l))
	require.NoError(t, err)

	cfg := config.Default().Server
	cfg.Metrics = false
	s := New(cfg, eng, prometheus.NewRegistry(), l)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
