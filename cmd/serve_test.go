package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildServer_Routes(t *testing.T) {
	useConfig(t)

	env, err := initExportEnv(context.Background(), "serve", true)
	require.NoError(t, err)
	defer env.Close()

	h := buildServer(env).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/exports/contacts",
		strings.NewReader(`{"options":{"format":"csv"},"data":[{"email":"sarah.johnson@bbc.co.uk"}]}`))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/v1/exports?kind=contacts", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"kind":"contacts"`)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `intel_export_jobs_total{format="csv",kind="contacts",outcome="success"} 1`)
}

func TestBuildServer_NoHistory(t *testing.T) {
	c := useConfig(t)
	c.Store.Driver = "none"

	env, err := initExportEnv(context.Background(), "serve", false)
	require.NoError(t, err)
	defer env.Close()

	h := buildServer(env).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/exports", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
