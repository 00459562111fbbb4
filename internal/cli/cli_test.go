package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoai-civic/ecoai-client/internal/config"
	"github.com/ecoai-civic/ecoai-client/internal/gateway/gatewaytest"
)

type cliHarness struct {
	api *gatewaytest.FakeAPI
	env *Env
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	api := gatewaytest.New(t)
	api.AddAccount(gatewaytest.Account{Username: "asha", Email: "asha@example.com", Password: "pw"})
	api.AddAccount(gatewaytest.Account{Username: "ravi", Email: "ravi@example.com", Password: "pw", Staff: true})
	cfg := &config.Config{
		API:     config.APIConfig{BaseURL: api.BaseURL()},
		Storage: config.StorageConfig{Backend: "file", FilePath: filepath.Join(t.TempDir(), "storage.yaml"), Secret: "s"},
		Events:  config.EventsConfig{Backend: "memory"},
		Session: config.SessionConfig{LoginPath: "/login", HomePath: "/"},
	}
	return &cliHarness{api: api, env: &Env{Config: cfg}}
}

func (h *cliHarness) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := ExecuteContext(context.Background(), h.env, args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	root := NewRootCommand(&Env{Config: &config.Config{}})
	want := []string{"login", "staff-login", "signup", "logout", "whoami", "refresh", "open", "call", "nav"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestLoginPersistsAcrossInvocations(t *testing.T) {
	h := newCLIHarness(t)

	out, _, err := h.run(t, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "Not logged in\n", out)

	out, _, err = h.run(t, "login", "-u", "asha", "-p", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as asha")

	out, _, err = h.run(t, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "asha <asha@example.com> (user)\n", out)

	out, _, err = h.run(t, "open", "/report-waste")
	require.NoError(t, err)
	assert.Equal(t, "authorized: report-waste\n", out)

	out, _, err = h.run(t, "open", "/staff/dashboard")
	require.NoError(t, err)
	assert.Equal(t, "forbidden: redirect to /\n", out)

	_, _, err = h.run(t, "logout")
	require.NoError(t, err)
	out, _, err = h.run(t, "open", "/chatbot")
	require.NoError(t, err)
	assert.Equal(t, "unauthorized: redirect to /login\n", out)
}

func TestProfilesAreIsolated(t *testing.T) {
	h := newCLIHarness(t)
	_, _, err := h.run(t, "login", "-u", "asha", "-p", "pw", "--profile", "work")
	require.NoError(t, err)

	out, _, err := h.run(t, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "Not logged in\n", out)

	out, _, err = h.run(t, "whoami", "--profile", "work")
	require.NoError(t, err)
	assert.Contains(t, out, "asha")
}

func TestStaffLoginAndNav(t *testing.T) {
	h := newCLIHarness(t)
	_, _, err := h.run(t, "staff-login", "-u", "asha", "-p", "pw")
	assert.EqualError(t, err, "This is not a staff account.")

	_, _, err = h.run(t, "staff-login", "-u", "ravi", "-p", "pw")
	require.NoError(t, err)
	out, _, err := h.run(t, "nav")
	require.NoError(t, err)
	assert.Contains(t, out, `"staff":true`)
	assert.Contains(t, out, "/staff/dashboard")
}

func TestCallEvictsRejectedCredential(t *testing.T) {
	h := newCLIHarness(t)
	_, _, err := h.run(t, "login", "-u", "asha", "-p", "pw")
	require.NoError(t, err)

	out, _, err := h.run(t, "call", "get", "/trucks/locations/")
	require.NoError(t, err)
	assert.Contains(t, out, "200 OK")
	assert.Contains(t, out, "T-1")

	h.api.RevokeAll()
	_, stderr, err := h.run(t, "call", "get", "/trucks/locations/")
	assert.EqualError(t, err, "session expired, log in again")
	assert.Contains(t, stderr, "/login")

	out, _, err = h.run(t, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "Not logged in\n", out)
}

func TestCallUploadsMultipart(t *testing.T) {
	h := newCLIHarness(t)
	_, _, err := h.run(t, "login", "-u", "asha", "-p", "pw")
	require.NoError(t, err)

	photo := filepath.Join(t.TempDir(), "bin.jpg")
	require.NoError(t, os.WriteFile(photo, []byte("jpeg-bytes"), 0o600))

	_, _, err = h.run(t, "call", "post", "/reports/create/", "-F", "description=overflowing", "--file", "image="+photo)
	require.NoError(t, err)
	assert.Contains(t, h.api.LastUpload().ContentType, "multipart/form-data; boundary=")

	_, _, err = h.run(t, "call", "post", "/reports/create/", "--file", "image")
	assert.ErrorContains(t, err, "want field=path")
}

func TestSignupAndRefresh(t *testing.T) {
	h := newCLIHarness(t)
	out, _, err := h.run(t, "signup", "-u", "neha", "--email", "neha@example.com", "-p", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Account neha created")

	out, _, err = h.run(t, "refresh")
	require.NoError(t, err)
	assert.Contains(t, out, "refreshed")
}
