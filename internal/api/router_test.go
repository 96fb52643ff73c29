package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/baharkarakas/coin-wallet/internal/auth"
	"github.com/baharkarakas/coin-wallet/internal/config"
	"github.com/baharkarakas/coin-wallet/internal/repository/memory"
	"github.com/baharkarakas/coin-wallet/internal/services"
	"github.com/baharkarakas/coin-wallet/internal/web"
)

func newTestServer(t *testing.T, topUp bool) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	var cfg config.Config
	cfg.Ledger = config.LedgerConfig{StartingBalance: 100, HistoryLimit: 50, TopUpEnabled: topUp}
	cfg.CORS.AllowedOrigins = []string{"*"}

	pages, err := web.NewRenderer()
	if err != nil {
		t.Fatal(err)
	}
	repos := memory.NewRepositories()
	srv := httptest.NewServer(NewRouter(RouterDeps{
		Cfg:      cfg,
		Log:      log,
		Accounts: services.NewAccountService(repos.Accounts, log, cfg.Ledger.StartingBalance),
		Ledger:   services.NewLedgerService(repos, log, topUp),
		TM:       auth.NewTokenManager("test-secret", "coin-wallet", time.Hour),
		Sessions: auth.NewMemorySessions(time.Hour),
		Pages:    pages,
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newClient keeps cookies and does not follow redirects.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postJSON(t *testing.T, c *http.Client, u string, body any) (*http.Response, map[string]any) {
	t.Helper()
	b, _ := json.Marshal(body)
	res, err := c.Post(u, "application/json", strings.NewReader(string(b)))
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res, out
}

func postForm(t *testing.T, c *http.Client, u string, v url.Values) *http.Response {
	t.Helper()
	res, err := c.PostForm(u, v)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	return res
}

func get(t *testing.T, c *http.Client, u string) (*http.Response, []byte) {
	t.Helper()
	res, err := c.Get(u)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	return res, b
}

// signup registers and logs in over JSON, returning a client holding the session cookie.
func signup(t *testing.T, srv *httptest.Server, username string) *http.Client {
	t.Helper()
	c := newClient(t)
	res, _ := postJSON(t, c, srv.URL+"/register", map[string]string{
		"username": username, "email": username + "@example.com", "password": "pw-" + username,
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status=%d", username, res.StatusCode)
	}
	res, _ = postJSON(t, c, srv.URL+"/login", map[string]string{"username": username, "password": "pw-" + username})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status=%d", username, res.StatusCode)
	}
	return c
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, false)
	res, body := get(t, http.DefaultClient, srv.URL+"/health")
	if res.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("health: %d %q", res.StatusCode, body)
	}
	if res.Header.Get("X-Request-Id") == "" {
		t.Fatal("missing X-Request-Id")
	}
}

func TestRegisterAndLoginJSON(t *testing.T) {
	srv := newTestServer(t, false)
	c := newClient(t)

	res, body := postJSON(t, c, srv.URL+"/register", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "pw",
	})
	if res.StatusCode != http.StatusCreated || body["success"] != true {
		t.Fatalf("register: %d %v", res.StatusCode, body)
	}
	acct := body["account"].(map[string]any)
	if acct["balance"].(float64) != 100 {
		t.Fatalf("starting balance=%v", acct["balance"])
	}
	if _, leaked := acct["password_hash"]; leaked {
		t.Fatal("password hash exposed")
	}

	res, body = postJSON(t, c, srv.URL+"/register", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "pw",
	})
	if res.StatusCode != http.StatusConflict || body["code"] != "duplicate_account" {
		t.Fatalf("duplicate: %d %v", res.StatusCode, body)
	}

	res, body = postJSON(t, c, srv.URL+"/register", map[string]string{"username": "bob"})
	if res.StatusCode != http.StatusBadRequest || body["code"] != "invalid_input" {
		t.Fatalf("missing fields: %d %v", res.StatusCode, body)
	}

	res, body = postJSON(t, c, srv.URL+"/login", map[string]string{"username": "alice", "password": "nope"})
	if res.StatusCode != http.StatusUnauthorized || body["code"] != "invalid_credentials" {
		t.Fatalf("bad login: %d %v", res.StatusCode, body)
	}

	res, _ = postJSON(t, c, srv.URL+"/login", map[string]string{"username": "alice", "password": "pw"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login: %d", res.StatusCode)
	}
	var cookie *http.Cookie
	for _, ck := range res.Cookies() {
		if ck.Name == "session" {
			cookie = ck
		}
	}
	if cookie == nil || !cookie.HttpOnly {
		t.Fatalf("session cookie missing or not HttpOnly: %+v", cookie)
	}

	res, raw := get(t, c, srv.URL+"/balance")
	if res.StatusCode != http.StatusOK || !strings.Contains(string(raw), `"balance":100`) {
		t.Fatalf("balance: %d %s", res.StatusCode, raw)
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	srv := newTestServer(t, false)
	c := newClient(t)

	res, body := postJSON(t, c, srv.URL+"/transfer", map[string]any{"recipient": "bob", "amount": 1})
	if res.StatusCode != http.StatusUnauthorized || body["code"] != "unauthorized" {
		t.Fatalf("transfer: %d %v", res.StatusCode, body)
	}
	if res, _ := get(t, c, srv.URL+"/transactions"); res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("transactions: %d", res.StatusCode)
	}
	for _, p := range []string{"/dashboard", "/wallet"} {
		res, _ := get(t, c, srv.URL+p)
		if res.StatusCode != http.StatusSeeOther || res.Header.Get("Location") != "/login" {
			t.Fatalf("%s: %d %q", p, res.StatusCode, res.Header.Get("Location"))
		}
	}

	// forged cookie
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/balance", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "garbage"})
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("forged cookie: %d", res.StatusCode)
	}
}

func TestTransferFlow(t *testing.T) {
	srv := newTestServer(t, false)
	alice := signup(t, srv, "alice")
	bob := signup(t, srv, "bob")

	res, body := postJSON(t, alice, srv.URL+"/transfer", map[string]any{"recipient": "bob", "amount": 30})
	if res.StatusCode != http.StatusOK || body["success"] != true || body["new_balance"].(float64) != 70 {
		t.Fatalf("transfer: %d %v", res.StatusCode, body)
	}

	cases := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"overdraft", map[string]any{"recipient": "bob", "amount": 1000}, http.StatusBadRequest, "insufficient_funds"},
		{"self", map[string]any{"recipient": "alice", "amount": 1}, http.StatusBadRequest, "self_transfer"},
		{"unknown", map[string]any{"recipient": "ghost", "amount": 1}, http.StatusNotFound, "recipient_not_found"},
		{"zero", map[string]any{"recipient": "bob", "amount": 0}, http.StatusBadRequest, "invalid_amount"},
		{"fraction", map[string]any{"recipient": "bob", "amount": 1.5}, http.StatusBadRequest, "invalid_amount"},
		{"text", map[string]any{"recipient": "bob", "amount": "abc"}, http.StatusBadRequest, "invalid_amount"},
		{"missing", map[string]any{"recipient": "bob"}, http.StatusBadRequest, "invalid_amount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, body := postJSON(t, alice, srv.URL+"/transfer", tc.body)
			if res.StatusCode != tc.status || body["code"] != tc.code {
				t.Fatalf("got %d %v, want %d %s", res.StatusCode, body, tc.status, tc.code)
			}
		})
	}

	// form-encoded variant
	res = postForm(t, alice, srv.URL+"/transfer", url.Values{"recipient": {"bob"}, "amount": {"5"}})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("form transfer: %d", res.StatusCode)
	}

	_, raw := get(t, bob, srv.URL+"/balance")
	if !strings.Contains(string(raw), `"balance":135`) {
		t.Fatalf("bob balance: %s", raw)
	}

	res, raw = get(t, bob, srv.URL+"/transactions")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("transactions: %d", res.StatusCode)
	}
	var txs []struct {
		ID        int64  `json:"id"`
		Sender    string `json:"sender"`
		Recipient string `json:"recipient"`
		Amount    int64  `json:"amount"`
		Timestamp string `json:"timestamp"`
		Type      string `json:"type"`
	}
	if err := json.Unmarshal(raw, &txs); err != nil {
		t.Fatal(err)
	}
	if len(txs) != 2 {
		t.Fatalf("len=%d body=%s", len(txs), raw)
	}
	if txs[0].Amount != 5 || txs[1].Amount != 30 {
		t.Fatalf("not newest first: %+v", txs)
	}
	for _, tx := range txs {
		if tx.Type != "incoming" || tx.Sender != "alice" || tx.Recipient != "bob" {
			t.Fatalf("entry=%+v", tx)
		}
		ts, err := time.Parse(time.RFC3339Nano, tx.Timestamp)
		if err != nil || ts.Location() != time.UTC {
			t.Fatalf("timestamp %q: %v", tx.Timestamp, err)
		}
	}

	_, raw = get(t, alice, srv.URL+"/transactions?limit=1")
	if err := json.Unmarshal(raw, &txs); err != nil || len(txs) != 1 || txs[0].Type != "outgoing" {
		t.Fatalf("limited alice history: %s", raw)
	}
	if res, _ := get(t, alice, srv.URL+"/transactions?limit=zero"); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit: %d", res.StatusCode)
	}
}

func TestEmptyHistoryIsArray(t *testing.T) {
	srv := newTestServer(t, false)
	c := signup(t, srv, "alice")
	_, raw := get(t, c, srv.URL+"/transactions")
	if strings.TrimSpace(string(raw)) != "[]" {
		t.Fatalf("body=%s", raw)
	}
}

func TestAddCoins(t *testing.T) {
	off := newTestServer(t, false)
	c := signup(t, off, "alice")
	res, body := postJSON(t, c, off.URL+"/add_coins", map[string]any{"amount": 10})
	if res.StatusCode != http.StatusForbidden || body["code"] != "topup_disabled" {
		t.Fatalf("disabled: %d %v", res.StatusCode, body)
	}

	on := newTestServer(t, true)
	c = signup(t, on, "alice")
	res, body = postJSON(t, c, on.URL+"/add_coins", map[string]any{"amount": 25})
	if res.StatusCode != http.StatusOK || body["new_balance"].(float64) != 125 {
		t.Fatalf("enabled: %d %v", res.StatusCode, body)
	}
	res, body = postJSON(t, c, on.URL+"/add_coins", map[string]any{"amount": -1})
	if res.StatusCode != http.StatusBadRequest || body["code"] != "invalid_amount" {
		t.Fatalf("negative: %d %v", res.StatusCode, body)
	}
	res, body = postJSON(t, c, on.URL+"/add_coins", map[string]any{"amount": int64(9223372036854775807)})
	if res.StatusCode != http.StatusBadRequest || body["code"] != "invalid_amount" {
		t.Fatalf("overflow: %d %v", res.StatusCode, body)
	}
	res = postForm(t, c, on.URL+"/add_coins", url.Values{"amount": {"x"}})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed: %d", res.StatusCode)
	}
}

func TestBrowserFormFlow(t *testing.T) {
	srv := newTestServer(t, false)
	c := newClient(t)

	if res, body := get(t, c, srv.URL+"/register"); res.StatusCode != http.StatusOK || !strings.Contains(string(body), `action="/register"`) {
		t.Fatalf("register page: %d", res.StatusCode)
	}

	res := postForm(t, c, srv.URL+"/register", url.Values{
		"username": {"carol"}, "email": {"carol@example.com"}, "password": {"pw"},
	})
	if res.StatusCode != http.StatusSeeOther || !strings.HasPrefix(res.Header.Get("Location"), "/login") {
		t.Fatalf("register form: %d %q", res.StatusCode, res.Header.Get("Location"))
	}

	// duplicate re-renders the page with the message
	res, err := c.PostForm(srv.URL+"/register", url.Values{
		"username": {"carol"}, "email": {"carol@example.com"}, "password": {"pw"},
	})
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusConflict || !strings.Contains(string(body), "already registered") {
		t.Fatalf("duplicate form: %d", res.StatusCode)
	}

	res = postForm(t, c, srv.URL+"/login", url.Values{"username": {"carol"}, "password": {"wrong"}})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad form login: %d", res.StatusCode)
	}
	res = postForm(t, c, srv.URL+"/login", url.Values{"username": {"carol"}, "password": {"pw"}})
	if res.StatusCode != http.StatusSeeOther || res.Header.Get("Location") != "/dashboard" {
		t.Fatalf("form login: %d %q", res.StatusCode, res.Header.Get("Location"))
	}

	res, body = get(t, c, srv.URL+"/dashboard")
	if res.StatusCode != http.StatusOK || !strings.Contains(string(body), "carol") || !strings.Contains(string(body), ">100<") {
		t.Fatalf("dashboard: %d %s", res.StatusCode, body)
	}
	if res, _ := get(t, c, srv.URL+"/wallet"); res.StatusCode != http.StatusOK {
		t.Fatalf("wallet: %d", res.StatusCode)
	}
	if res, body := get(t, c, srv.URL+"/static/wallet.js"); res.StatusCode != http.StatusOK || len(body) == 0 {
		t.Fatalf("static: %d", res.StatusCode)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	srv := newTestServer(t, false)
	c := signup(t, srv, "alice")

	u, _ := url.Parse(srv.URL)
	saved := c.Jar.Cookies(u)
	if len(saved) == 0 {
		t.Fatal("no cookie after login")
	}

	res, _ := get(t, c, srv.URL+"/logout")
	if res.StatusCode != http.StatusSeeOther || res.Header.Get("Location") != "/" {
		t.Fatalf("logout: %d %q", res.StatusCode, res.Header.Get("Location"))
	}

	// replaying the old cookie must fail: the server-side session is gone
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/balance", nil)
	for _, ck := range saved {
		req.AddCookie(ck)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("replayed cookie: %d", res.StatusCode)
	}
}
