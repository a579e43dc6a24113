// Copyright (C) 2025 Librex AI (eng@librex.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// okRouter wires the middleware in front of a trivial handler that also
// exposes the request id seen inside the handler.
func okRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	for _, m := range mw {
		router.Use(m)
	}
	router.POST("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": GetRequestID(c)})
	})
	return router
}

func post(router *gin.Engine, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/ping", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// Test: Request ID
// =============================================================================

// TestRequestID_Generated verifies a fresh id is assigned and echoed.
func TestRequestID_Generated(t *testing.T) {
	router := okRouter(RequestID())

	w := post(router, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	id := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, id)
	assert.Contains(t, w.Body.String(), id)
}

// TestRequestID_Propagated verifies an inbound id is kept.
func TestRequestID_Propagated(t *testing.T) {
	router := okRouter(RequestID())

	w := post(router, "", map[string]string{RequestIDHeader: "upstream-42"})
	assert.Equal(t, "upstream-42", w.Header().Get(RequestIDHeader))
	assert.Contains(t, w.Body.String(), "upstream-42")
}

// =============================================================================
// Test: Bearer auth
// =============================================================================

func TestBearerAuth_Disabled(t *testing.T) {
	router := okRouter(BearerAuth(""))
	assert.Equal(t, http.StatusOK, post(router, "", nil).Code)
}

// TestBearerAuth_Enforced verifies the token gate in both directions.
func TestBearerAuth_Enforced(t *testing.T) {
	router := okRouter(BearerAuth("sekrit"))

	assert.Equal(t, http.StatusUnauthorized, post(router, "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		post(router, "", map[string]string{"Authorization": "Bearer wrong"}).Code)
	assert.Equal(t, http.StatusUnauthorized,
		post(router, "", map[string]string{"Authorization": "sekrit"}).Code, "scheme prefix required")
	assert.Equal(t, http.StatusOK,
		post(router, "", map[string]string{"Authorization": "Bearer sekrit"}).Code)
}

// =============================================================================
// Test: Body limit
// =============================================================================

// TestBodyLimit verifies oversize declared bodies answer 413 and small
// ones pass.
func TestBodyLimit(t *testing.T) {
	router := okRouter(BodyLimit(16))

	assert.Equal(t, http.StatusOK, post(router, "tiny", nil).Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge,
		post(router, strings.Repeat("x", 64), nil).Code)
}

// =============================================================================
// Test: Rate limit
// =============================================================================

// TestRateLimit verifies the burst bound and the disabled mode.
func TestRateLimit(t *testing.T) {
	// Effectively no refill during the test; only the burst is spendable.
	router := okRouter(RateLimit(0.0001, 2))

	assert.Equal(t, http.StatusOK, post(router, "", nil).Code)
	assert.Equal(t, http.StatusOK, post(router, "", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, post(router, "", nil).Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	router := okRouter(RateLimit(0, 0))
	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, post(router, "", nil).Code)
	}
}
