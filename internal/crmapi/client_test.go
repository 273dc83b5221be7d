package crmapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/allocation"
)

func TestHistoryRequestShape(t *testing.T) {
	t.Parallel()

	var gotPath, gotKey string
	var gotParams map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-KEY")
		gotParams = r.URL.Query()
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-token", 0)
	start := time.Date(2022, 12, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 12, 31, 23, 59, 59, 0, time.UTC)
	body, err := c.History(context.Background(), Query{Start: start, End: end})
	require.NoError(t, err)
	require.Equal(t, "[]", string(body))
	require.Equal(t, "/crmapi/v1/history/json", gotPath)
	require.Equal(t, "secret-token", gotKey)
	require.Equal(t, []string{"out"}, gotParams["type"])
	require.Equal(t, []string{"20221201T000000Z"}, gotParams["start"])
	require.Equal(t, []string{"20221231T235959Z"}, gotParams["end"])
	require.NotContains(t, gotParams, "period")
}

func TestHistoryPeriodWinsOverDates(t *testing.T) {
	t.Parallel()

	var gotParams map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotParams = r.URL.Query()
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "t", 0)
	_, err := c.History(context.Background(), Query{Period: "last_month", Start: time.Now()})
	require.NoError(t, err)
	require.Equal(t, []string{"last_month"}, gotParams["period"])
	require.NotContains(t, gotParams, "start")
}

func TestHistoryRetriesTransient(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"status":"success"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "t", 0)
	c.Backoff = time.Millisecond
	body, err := c.History(context.Background(), Query{Period: "last_month"})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Contains(t, string(body), "success")
}

func TestHistoryExhaustsRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "t", 0)
	c.MaxRetries = 2
	c.Backoff = time.Millisecond
	_, err := c.History(context.Background(), Query{Period: "last_month"})
	require.Error(t, err)
	require.Equal(t, 3, calls)

	var tf *allocation.TransientFetchError
	require.True(t, errors.As(err, &tf))
	require.Equal(t, 3, tf.Attempts)
}

func TestHistoryAuthFailureNotRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "bad", 0)
	c.Backoff = time.Millisecond
	_, err := c.History(context.Background(), Query{Period: "last_month"})
	require.Error(t, err)
	require.Equal(t, 1, calls)

	var tf *allocation.TransientFetchError
	require.False(t, errors.As(err, &tf))
}
