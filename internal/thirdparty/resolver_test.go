package thirdparty

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registry = "urn:decentraland:matic:collections-thirdparty:cryptoartist"

func TestOwnedAssets_FollowsNext(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/registry/"+registry+"/address/0xabc/assets", r.URL.Path)
		switch r.URL.Query().Get("page") {
		case "":
			_, _ = w.Write([]byte(`{"assets":[{"id":"1","amount":1,"urn":{"decentraland":"u1"}}],"page":1,"next":"?page=2"}`))
		case "2":
			fmt.Fprintf(w, `{"assets":[{"id":"2","amount":1,"urn":{"decentraland":"u2"}}],"page":2,"next":"%s/registry/%s/address/0xabc/assets?page=3"}`, srv.URL, registry)
		case "3":
			_, _ = w.Write([]byte(`{"assets":[],"page":3}`))
		}
	}))
	defer srv.Close()

	assets, err := NewResolver(srv.URL+"/", 0, slog.Default()).OwnedAssets(context.Background(), registry, "0xABC")
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "u1", assets[0].URN.Decentraland)
	assert.Equal(t, "u2", assets[1].URN.Decentraland)
}

func TestOwnedAssets_NonOKReturnsPartial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"assets":[{"id":"1","urn":{"decentraland":"u1"}}],"next":"?page=2"}`))
	}))
	defer srv.Close()

	assets, err := NewResolver(srv.URL, 0, slog.Default()).OwnedAssets(context.Background(), registry, "0xabc")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "u1", assets[0].URN.Decentraland)
}

func TestOwnedAssets_NonOKFirstPageIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	assets, err := NewResolver(srv.URL, 0, slog.Default()).OwnedAssets(context.Background(), registry, "0xabc")
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestOwnedAssets_TimeoutIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewResolver(srv.URL, 20*time.Millisecond, slog.Default()).OwnedAssets(context.Background(), registry, "0xabc")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOwnedAssets_StopsOnNextLoop(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"assets":[{"id":"1","urn":{"decentraland":"u1"}}],"next":"?page=2"}`))
	}))
	defer srv.Close()

	assets, err := NewResolver(srv.URL, 0, slog.Default()).OwnedAssets(context.Background(), registry, "0xabc")
	require.NoError(t, err)
	assert.Len(t, assets, 2)
	assert.Equal(t, 2, calls)
}
