package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/doorman/internal/domain/model"
	"github.com/dropDatabas3/doorman/internal/security/password"
	accountsvc "github.com/dropDatabas3/doorman/internal/service/account"
	compatsvc "github.com/dropDatabas3/doorman/internal/service/compat"
	oauthsvc "github.com/dropDatabas3/doorman/internal/service/oauth"
	"github.com/dropDatabas3/doorman/internal/store/memory"
)

type env struct {
	srv     *httptest.Server
	dal     *memory.Store
	grants  oauthsvc.Service[uuid.UUID]
	browser *model.BrowserSession[uuid.UUID]
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	dal := memory.New()

	hash, err := password.Hash(password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}, "123-456")
	require.NoError(t, err)
	user, err := dal.Users().Create(ctx, "john", hash)
	require.NoError(t, err)
	browser, err := dal.BrowserSessions().Create(ctx, user)
	require.NoError(t, err)
	_, err = dal.Clients().Create(ctx, "client-1")
	require.NoError(t, err)

	grants := oauthsvc.NewService(oauthsvc.Deps[uuid.UUID]{DAL: dal})
	login := compatsvc.NewLoginService(compatsvc.Deps[uuid.UUID]{DAL: dal})
	account := accountsvc.New(accountsvc.Deps[uuid.UUID]{DAL: dal})

	h := NewRouter(Deps[uuid.UUID]{
		DAL:        dal,
		Grants:     grants,
		Login:      login,
		Account:    account,
		Homeserver: "example.com",
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &env{srv: srv, dal: dal, grants: grants, browser: browser}
}

func (e *env) issueCode(t *testing.T, scope, verifier string) string {
	t.Helper()
	ctx := context.Background()
	session, err := e.grants.Request(ctx, "client-1", scope)
	require.NoError(t, err)
	pkce, err := model.NewPkce(model.CodeChallengeMethodPlain, verifier)
	require.NoError(t, err)
	code, err := e.grants.Authorize(ctx, session, e.browser, pkce)
	require.NoError(t, err)
	return code
}

func postForm(t *testing.T, rawURL string, form url.Values) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.PostForm(rawURL, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func postJSON(t *testing.T, rawURL, payload string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(rawURL, "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	resp, err := http.Get(e.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsExposed(t *testing.T) {
	e := newEnv(t)
	resp, err := http.Get(e.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTokenEndpointExchange(t *testing.T) {
	e := newEnv(t)
	code := e.issueCode(t, "read write", "hello")

	resp, body := postForm(t, e.srv.URL+"/oauth2/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {"client-1"},
		"code_verifier": {"hello"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.Equal(t, "Bearer", body["token_type"])
	require.Contains(t, body["access_token"], "dmat_")
	require.Equal(t, "read write", body["scope"])

	// segundo canje: invalid_grant
	resp, body = postForm(t, e.srv.URL+"/oauth2/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {"client-1"},
		"code_verifier": {"hello"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_grant", body["error"])
}

func TestTokenEndpointUnsupportedGrant(t *testing.T) {
	e := newEnv(t)
	resp, body := postForm(t, e.srv.URL+"/oauth2/token", url.Values{
		"grant_type": {"refresh_token"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "unsupported_grant_type", body["error"])
}

func TestCompatLoginFlows(t *testing.T) {
	e := newEnv(t)
	for _, ver := range []string{"v3", "r0"} {
		resp, err := http.Get(e.srv.URL + "/_matrix/client/" + ver + "/login")
		require.NoError(t, err)
		var body struct {
			Flows []struct {
				Type string `json:"type"`
			} `json:"flows"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		require.Len(t, body.Flows, 1)
		require.Equal(t, "m.login.password", body.Flows[0].Type)
	}
}

func TestCompatLoginSuccess(t *testing.T) {
	e := newEnv(t)
	resp, body := postJSON(t, e.srv.URL+"/_matrix/client/v3/login",
		`{"type":"m.login.password","identifier":{"type":"m.id.user","user":"john"},"password":"123-456"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "@john:example.com", body["user_id"])
	require.Contains(t, body["access_token"], "dmct_")
	require.Len(t, body["device_id"], 10)
	require.NotContains(t, body, "expires_in_ms")
}

func TestCompatLoginWrongPassword(t *testing.T) {
	e := newEnv(t)
	resp, body := postJSON(t, e.srv.URL+"/_matrix/client/v3/login",
		`{"type":"m.login.password","identifier":{"type":"m.id.user","user":"john"},"password":"nope"}`)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "M_UNAUTHORIZED", body["errcode"])
}

func TestCompatLoginUnsupportedType(t *testing.T) {
	e := newEnv(t)
	for _, payload := range []string{
		`{"type":"m.login.token","token":"x"}`,
		`{"type":"m.login.password","identifier":{"type":"m.id.thirdparty"},"password":"x"}`,
	} {
		resp, body := postJSON(t, e.srv.URL+"/_matrix/client/v3/login", payload)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, "M_UNRECOGNIZED", body["errcode"])
	}
}

func (e *env) compatToken(t *testing.T) string {
	t.Helper()
	resp, body := postJSON(t, e.srv.URL+"/_matrix/client/v3/login",
		`{"type":"m.login.password","identifier":{"type":"m.id.user","user":"john"},"password":"123-456"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["access_token"].(string)
}

func (e *env) doAuth(t *testing.T, method, path, bearer, payload string) *http.Response {
	t.Helper()
	var rd io.Reader
	if payload != "" {
		rd = strings.NewReader(payload)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestAccountEmailsRequiresAuth(t *testing.T) {
	e := newEnv(t)
	resp := e.doAuth(t, http.MethodGet, "/account/emails", "", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "invalid_token")
}

func TestAccountEmailsLifecycle(t *testing.T) {
	e := newEnv(t)
	tok := e.compatToken(t)

	resp := e.doAuth(t, http.MethodPost, "/account/emails", tok, `{"address":"john@example.com"}`)
	var created map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, true, created["primary"]) // la primera queda primary

	// duplicada
	resp = e.doAuth(t, http.MethodPost, "/account/emails", tok, `{"address":"john@example.com"}`)
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// inválida
	resp = e.doAuth(t, http.MethodPost, "/account/emails", tok, `{"address":"not an address"}`)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.doAuth(t, http.MethodPost, "/account/emails", tok, `{"address":"j2@example.com"}`)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = e.doAuth(t, http.MethodPost, "/account/emails/primary", tok, `{"address":"j2@example.com"}`)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.doAuth(t, http.MethodDelete, "/account/emails/"+url.PathEscape("john@example.com"), tok, "")
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.doAuth(t, http.MethodGet, "/account/emails", tok, "")
	var listed struct {
		Emails []struct {
			Address string `json:"address"`
			Primary bool   `json:"primary"`
		} `json:"emails"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, listed.Emails, 1)
	require.Equal(t, "j2@example.com", listed.Emails[0].Address)
	require.True(t, listed.Emails[0].Primary)
}

func TestCompatLoginBadJSON(t *testing.T) {
	e := newEnv(t)
	resp, body := postJSON(t, e.srv.URL+"/_matrix/client/v3/login", `{not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "M_NOT_JSON", body["errcode"])
}
