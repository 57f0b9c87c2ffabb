// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/stretchr/testify/require"
)

var (
	openapiOnce sync.Once
	openapiDoc  *openapi3.T
	openapiErr  error
)

func loadOpenAPIDoc(t *testing.T) *openapi3.T {
	t.Helper()
	openapiOnce.Do(func() {
		doc, err := openapi3.NewLoader().LoadFromData(OpenAPISpec())
		if err != nil {
			openapiErr = err
			return
		}
		if err := doc.Validate(context.Background()); err != nil {
			openapiErr = err
			return
		}
		openapiDoc = doc
	})
	if openapiErr != nil {
		t.Fatalf("openapi load failed: %v", openapiErr)
	}
	return openapiDoc
}

func validateOpenAPIResponse(t *testing.T, doc *openapi3.T, req *http.Request, rr *httptest.ResponseRecorder) {
	t.Helper()
	router, err := legacy.NewRouter(doc)
	require.NoError(t, err, "openapi router init")

	route, pathParams, err := router.FindRoute(req)
	require.NoError(t, err, "openapi route lookup for %s %s", req.Method, req.URL.Path)

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
		},
		Status: rr.Code,
		Header: rr.Header(),
	}
	input.SetBodyBytes(rr.Body.Bytes())

	require.NoError(t, openapi3filter.ValidateResponse(context.Background(), input),
		"openapi response validation for %s %s (%d)", req.Method, req.URL.Path, rr.Code)
}

func TestOpenAPIDocumentServed(t *testing.T) {
	loadOpenAPIDoc(t)
	env := newTestEnv(t)

	rec := env.get("/openapi.yaml")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, string(OpenAPISpec()), rec.Body.String())
}

func TestContractAdminAPI(t *testing.T) {
	doc := loadOpenAPIDoc(t)
	env := newTestEnv(t)
	env.addVideo(t, "clip.mp4", []byte("frames"))

	check := func(req *http.Request, want int) {
		t.Helper()
		rec := env.do(req)
		require.Equal(t, want, rec.Code, rec.Body.String())
		validateOpenAPIResponse(t, doc, req, rec)
	}

	check(withToken(uploadRequest(t, "video", "new.mp4", []byte("data"))), http.StatusOK)
	check(withToken(uploadRequest(t, "video", "notes.txt", []byte("data"))), http.StatusUnsupportedMediaType)
	check(withToken(uploadRequest(t, "", "", nil)), http.StatusBadRequest)
	check(uploadRequest(t, "video", "new.mp4", []byte("data")), http.StatusUnauthorized)

	check(withToken(httptest.NewRequest(http.MethodGet, "/admin/api/videos", nil)), http.StatusOK)
	check(httptest.NewRequest(http.MethodGet, "/admin/api/videos", nil), http.StatusUnauthorized)
	check(withToken(httptest.NewRequest(http.MethodGet, "/admin/api/qr/clip.mp4", nil)), http.StatusOK)
	check(withToken(httptest.NewRequest(http.MethodGet, "/admin/api/qr/missing.mp4", nil)), http.StatusNotFound)
	check(withToken(httptest.NewRequest(http.MethodGet, "/admin/api/logs", nil)), http.StatusOK)
	check(withToken(httptest.NewRequest(http.MethodGet, "/admin/api/config", nil)), http.StatusOK)
	check(withToken(httptest.NewRequest(http.MethodDelete, "/admin/api/videos/clip.mp4", nil)), http.StatusOK)
	check(withToken(httptest.NewRequest(http.MethodDelete, "/admin/api/videos/clip.mp4", nil)), http.StatusNotFound)
}

func TestContractAnalytics(t *testing.T) {
	doc := loadOpenAPIDoc(t)
	env := newTestEnv(t)
	env.addVideo(t, "clip.mp4", []byte("frames"))

	check := func(req *http.Request, want int) {
		t.Helper()
		rec := env.do(req)
		require.Equal(t, want, rec.Code, rec.Body.String())
		validateOpenAPIResponse(t, doc, req, rec)
	}

	check(httptest.NewRequest(http.MethodPost, "/track-view/clip.mp4", nil), http.StatusOK)
	check(httptest.NewRequest(http.MethodPost, "/track-view/missing.mp4", nil), http.StatusNotFound)
	check(withToken(httptest.NewRequest(http.MethodGet, "/analytics", nil)), http.StatusOK)
	check(httptest.NewRequest(http.MethodGet, "/analytics", nil), http.StatusUnauthorized)
	check(withToken(httptest.NewRequest(http.MethodGet, "/analytics/clip.mp4", nil)), http.StatusOK)
	check(withToken(httptest.NewRequest(http.MethodGet, "/analytics/never-viewed.mp4", nil)), http.StatusOK)
}

func TestContractHealth(t *testing.T) {
	doc := loadOpenAPIDoc(t)
	env := newTestEnv(t)

	for _, path := range []string{"/healthz", "/healthz?verbose=true", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := env.do(req)
		require.Equal(t, http.StatusOK, rec.Code, path)
		validateOpenAPIResponse(t, doc, req, rec)
	}

	require.NoError(t, env.store.Close())
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := env.do(req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	validateOpenAPIResponse(t, doc, req, rec)
}
