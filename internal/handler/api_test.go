package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tcaothien/allbotv3/internal/handler/mw"
	"github.com/tcaothien/allbotv3/internal/repository"
	"github.com/tcaothien/allbotv3/internal/usecase"
)

func newTestAPI(t *testing.T) (*httptest.Server, *usecase.Service) {
	t.Helper()
	mw.SetSecretKey([]byte("test-secret"))

	repo := repository.NewMemory()
	svc := usecase.NewService(repo, usecase.NewStaticAuthorizer([]string{testAdminID}))
	require.NoError(t, svc.ReseedCatalog(context.Background()))

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	r := chi.NewRouter()
	NewAPI(svc, string(hash)).Register(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, svc
}

func postJSON(t *testing.T, url, token string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func login(t *testing.T, ts *httptest.Server, username, password string) (string, int) {
	t.Helper()
	resp := postJSON(t, ts.URL+"/api/auth", "", map[string]string{
		"username": username,
		"password": password,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode
	}
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Token, resp.StatusCode
}

func TestAPI_Auth(t *testing.T) {
	ts, _ := newTestAPI(t)

	token, status := login(t, ts, testAdminID, "hunter2")
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, token)

	_, status = login(t, ts, testAdminID, "wrong")
	assert.Equal(t, http.StatusUnauthorized, status)

	// A known password does not help a non-privileged identity.
	_, status = login(t, ts, "100", "hunter2")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAPI_Credit(t *testing.T) {
	ts, svc := newTestAPI(t)

	token, _ := login(t, ts, testAdminID, "hunter2")

	resp := postJSON(t, ts.URL+"/api/credit", token, map[string]interface{}{
		"userId": "100",
		"amount": 5000,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	balance, err := svc.Balance(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), balance)
}

func TestAPI_RequiresToken(t *testing.T) {
	ts, _ := newTestAPI(t)

	resp := postJSON(t, ts.URL+"/api/credit", "", map[string]interface{}{
		"userId": "100",
		"amount": 5000,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_Healthz(t *testing.T) {
	ts, _ := newTestAPI(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
