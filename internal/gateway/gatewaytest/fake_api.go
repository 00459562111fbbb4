// Package gatewaytest runs an in-process stand-in for the remote reporting API.
package gatewaytest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Account is a user known to the fake API.
type Account struct {
	ID       int64
	Username string
	Email    string
	Password string
	Staff    bool
}

// Upload is the last multipart or binary body received on a report endpoint.
type Upload struct {
	ContentType string
	Size        int
}

// FakeAPI serves the account, identity and report endpoints under /api.
type FakeAPI struct {
	srv *httptest.Server

	mu       sync.Mutex
	accounts map[string]Account
	access   map[string]string
	refresh  map[string]string
	seq      int64
	upload   Upload
	calls    map[string]int
	identity int
	delay    time.Duration
}

// New starts a fake API that is closed when the test ends.
func New(t testing.TB) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		accounts: map[string]Account{},
		access:   map[string]string{},
		refresh:  map[string]string{},
		calls:    map[string]int{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/token/", f.token)
	mux.HandleFunc("/api/auth/token/refresh/", f.refreshToken)
	mux.HandleFunc("/api/auth/register/", f.register)
	mux.HandleFunc("/api/auth/me/", f.me)
	mux.HandleFunc("/api/staff/reports/", f.staffReports)
	mux.HandleFunc("/api/reports/create/", f.createReport)
	mux.HandleFunc("/api/trucks/locations/", f.trucks)
	f.srv = httptest.NewServer(f.count(mux))
	t.Cleanup(f.srv.Close)
	return f
}

// BaseURL is the value to use as the gateway base URL.
func (f *FakeAPI) BaseURL() string {
	return f.srv.URL + "/api"
}

// AddAccount registers an account directly.
func (f *FakeAPI) AddAccount(a Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == 0 {
		f.seq++
		a.ID = f.seq
	}
	f.accounts[a.Username] = a
}

// SetIdentityStatus makes the identity endpoint answer with status. Zero restores it.
func (f *FakeAPI) SetIdentityStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identity = status
}

// DelayIdentityOnce makes the next identity call wait d before answering.
func (f *FakeAPI) DelayIdentityOnce(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// RevokeAll invalidates every issued access and refresh token.
func (f *FakeAPI) RevokeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = map[string]string{}
	f.refresh = map[string]string{}
}

// Calls returns how many requests reached path.
func (f *FakeAPI) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// LastUpload returns the most recent report upload.
func (f *FakeAPI) LastUpload() Upload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upload
}

func (f *FakeAPI) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.URL.Path]++
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) issue(username string, ttl time.Duration) string {
	f.seq++
	claims := jwt.RegisteredClaims{
		Subject:   username,
		ID:        fmt.Sprintf("%d", f.seq),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("fake-api"))
	if err != nil {
		panic(err)
	}
	return signed
}

func (f *FakeAPI) token(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.accounts[body.Username]
	if !ok || acct.Password != body.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "No active account found with the given credentials"})
		return
	}
	access := f.issue(acct.Username, 5*time.Minute)
	refresh := f.issue(acct.Username, 24*time.Hour)
	f.access[access] = acct.Username
	f.refresh[refresh] = acct.Username
	writeJSON(w, http.StatusOK, map[string]any{"access": access, "refresh": refresh})
}

func (f *FakeAPI) refreshToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	username, ok := f.refresh[body.Refresh]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}
	access := f.issue(username, 5*time.Minute)
	f.access[access] = username
	writeJSON(w, http.StatusOK, map[string]any{"access": access})
}

func (f *FakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.accounts[body.Username]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]any{"username": []string{"A user with that username already exists."}})
		return
	}
	f.seq++
	acct := Account{ID: f.seq, Username: body.Username, Email: body.Email, Password: body.Password}
	f.accounts[acct.Username] = acct
	writeJSON(w, http.StatusCreated, map[string]any{"id": acct.ID, "username": acct.Username, "email": acct.Email})
}

// bearer returns the account of the request's access token.
func (f *FakeAPI) bearer(r *http.Request) (Account, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	f.mu.Lock()
	defer f.mu.Unlock()
	username, ok := f.access[token]
	if !ok {
		return Account{}, false
	}
	acct, ok := f.accounts[username]
	return acct, ok
}

func (f *FakeAPI) me(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	override := f.identity
	delay := f.delay
	f.delay = 0
	f.mu.Unlock()
	time.Sleep(delay)
	if override != 0 {
		writeJSON(w, override, map[string]any{"detail": "unavailable"})
		return
	}
	acct, ok := f.bearer(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Given token not valid for any token type"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           acct.ID,
		"username":     acct.Username,
		"email":        acct.Email,
		"is_staff":     acct.Staff,
		"is_superuser": false,
	})
}

func (f *FakeAPI) staffReports(w http.ResponseWriter, r *http.Request) {
	acct, ok := f.bearer(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
		return
	}
	if !acct.Staff {
		writeJSON(w, http.StatusForbidden, map[string]any{"detail": "You do not have permission to perform this action."})
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/staff/reports/"), "/")
	if id != "" {
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": "pending"})
		return
	}
	writeJSON(w, http.StatusOK, []map[string]any{{"id": "1", "status": "pending"}})
}

func (f *FakeAPI) createReport(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.bearer(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
		return
	}
	n, _ := io.Copy(io.Discard, r.Body)
	f.mu.Lock()
	f.upload = Upload{ContentType: r.Header.Get("Content-Type"), Size: int(n)}
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"id": 42})
}

func (f *FakeAPI) trucks(w http.ResponseWriter, r *http.Request) {
	if _, ok := f.bearer(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
		return
	}
	writeJSON(w, http.StatusOK, []map[string]any{{"truck": "T-1", "lat": 12.97, "lng": 77.59}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
