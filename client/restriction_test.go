package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"subzero/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPassesThroughServerDecision(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/device/check", r.URL.Path)
		var req models.DeviceCheckRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		allowed := req.DeviceFingerprint == "good"
		json.NewEncoder(w).Encode(models.DeviceCheckResult{Allowed: allowed, Reason: map[bool]string{false: "account_limit_reached"}[allowed]})
	}))
	defer srv.Close()

	rc := NewRestrictionClient(srv.URL, time.Second, nil)
	assert.Equal(t, models.DeviceCheckResult{Allowed: true}, rc.Check(context.Background(), "good", "c"))
	assert.Equal(t, models.DeviceCheckResult{Allowed: false, Reason: "account_limit_reached"}, rc.Check(context.Background(), "bad", "c"))
}

func TestCheckFailsClosedOnNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := NewRestrictionClient(url, time.Second, nil).Check(context.Background(), "fp", "c")
	assert.False(t, res.Allowed)
	assert.Equal(t, ReasonTransport, res.Reason)
}

func TestCheckFailsClosedOnBadResponses(t *testing.T) {
	cases := map[string]struct {
		handler http.HandlerFunc
		reason  string
	}{
		"server error": {func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"allowed":true}`))
		}, ReasonStatus},
		"not json": {func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>"))
		}, ReasonMalformed},
		"missing field": {func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"reason":"?"}`))
		}, ReasonMalformed},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			res := NewRestrictionClient(srv.URL, time.Second, nil).Check(context.Background(), "fp", "c")
			assert.False(t, res.Allowed)
			assert.Equal(t, tc.reason, res.Reason)
		})
	}
}

func TestCheckFailsClosedOnTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	res := NewRestrictionClient(srv.URL, 50*time.Millisecond, nil).Check(context.Background(), "fp", "c")
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, res.Allowed)
	assert.Equal(t, ReasonTransport, res.Reason)
}
