package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/emperorhan/ownership-indexer/internal/contracttype"
	"github.com/emperorhan/ownership-indexer/internal/domain/model"
	"github.com/emperorhan/ownership-indexer/internal/ownership"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	snapshot map[model.Network][]contracttype.Entry
	forgot   bool
}

func (f *fakeRegistry) Snapshot() map[model.Network][]contracttype.Entry {
	return f.snapshot
}

func (f *fakeRegistry) ForgetUnknown() map[model.Network]int {
	f.forgot = true
	return map[model.Network]int{model.NetworkMatic: 2}
}

type fakeVerifier struct {
	verifyFunc func(ctx context.Context, cat model.Category, claims *model.Claims, bypass bool) (map[model.Address][]model.ItemID, error)
}

func (f *fakeVerifier) Categories() []model.Category {
	return []model.Category{model.CategoryNames, model.CategoryThirdParty}
}

func (f *fakeVerifier) Verify(ctx context.Context, cat model.Category, claims *model.Claims, bypass bool) (map[model.Address][]model.ItemID, error) {
	return f.verifyFunc(ctx, cat, claims, bypass)
}

func serve(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := serve(t, NewServer(slog.Default()), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetrics(t *testing.T) {
	rec := serve(t, NewServer(slog.Default()), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestListContracts(t *testing.T) {
	reg := &fakeRegistry{snapshot: map[model.Network][]contracttype.Entry{
		model.NetworkMatic:   {{Contract: "0xa", Type: "erc721"}},
		model.NetworkMainnet: {},
	}}
	s := NewServer(slog.Default(), WithContractRegistry(reg))

	rec := serve(t, s, http.MethodGet, "/admin/contracts", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"matic":[{"contract":"0xa","type":"erc721"}],"mainnet":[]}`, rec.Body.String())

	rec = serve(t, s, http.MethodGet, "/admin/contracts?network=polygon", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"matic":[{"contract":"0xa","type":"erc721"}]}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, serve(t, s, http.MethodGet, "/admin/contracts?network=solana", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, s, http.MethodGet, "/admin/contracts?network=amoy", "").Code)
}

func TestListContracts_NotConfigured(t *testing.T) {
	rec := serve(t, NewServer(slog.Default()), http.MethodGet, "/admin/contracts", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestForgetUnknown(t *testing.T) {
	reg := &fakeRegistry{}
	rec := serve(t, NewServer(slog.Default(), WithContractRegistry(reg)), http.MethodPost, "/admin/contracts/forget-unknown", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reg.forgot)
	assert.JSONEq(t, `{"dropped":{"matic":2}}`, rec.Body.String())
}

func TestVerify_Success(t *testing.T) {
	v := &fakeVerifier{verifyFunc: func(_ context.Context, cat model.Category, claims *model.Claims, bypass bool) (map[model.Address][]model.ItemID, error) {
		assert.Equal(t, model.CategoryNames, cat)
		assert.True(t, bypass)
		assert.Equal(t, []model.ItemID{"alice", "bob"}, claims.Items("0xa"))
		return map[model.Address][]model.ItemID{"0xa": {"alice"}}, nil
	}}
	s := NewServer(slog.Default(), WithVerifier(v))

	rec := serve(t, s, http.MethodPost, "/admin/verify",
		`{"category":"names","claims":{"0xA":["alice","bob"]},"bypass_cache":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"category":"names","owned":{"0xa":["alice"]}}`, rec.Body.String())
}

func TestVerify_ReportsUnavailable(t *testing.T) {
	v := &fakeVerifier{verifyFunc: func(context.Context, model.Category, *model.Claims, bool) (map[model.Address][]model.ItemID, error) {
		return map[model.Address][]model.ItemID{}, &ownership.UnavailableError{
			Category:  model.CategoryThirdParty,
			Addresses: []model.Address{"0xa"},
		}
	}}
	s := NewServer(slog.Default(), WithVerifier(v))

	rec := serve(t, s, http.MethodPost, "/admin/verify", `{"category":"third-party","claims":{"0xa":["u1"]}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp verifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"0xa"}, resp.Unavailable)
	assert.Contains(t, resp.Error, "unavailable")
}

func TestVerify_InternalError(t *testing.T) {
	v := &fakeVerifier{verifyFunc: func(context.Context, model.Category, *model.Claims, bool) (map[model.Address][]model.ItemID, error) {
		return nil, errors.New("boom")
	}}
	rec := serve(t, NewServer(slog.Default(), WithVerifier(v)), http.MethodPost, "/admin/verify", `{"category":"names","claims":{"0xa":["x"]}}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestVerify_BadRequests(t *testing.T) {
	v := &fakeVerifier{verifyFunc: func(context.Context, model.Category, *model.Claims, bool) (map[model.Address][]model.ItemID, error) {
		t.Fatal("verifier must not be called")
		return nil, nil
	}}
	s := NewServer(slog.Default(), WithVerifier(v))

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "invalid json", body: `{`, code: http.StatusBadRequest},
		{name: "invalid category", body: `{"category":"land","claims":{"0xa":["x"]}}`, code: http.StatusBadRequest},
		{name: "category not configured", body: `{"category":"wearables","claims":{"0xa":["x"]}}`, code: http.StatusNotFound},
		{name: "no claims", body: `{"category":"names"}`, code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, serve(t, s, http.MethodPost, "/admin/verify", tt.body).Code)
		})
	}
}
