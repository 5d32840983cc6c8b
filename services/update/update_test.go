package update

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adguardctl/adguardhome-go"
	fake "github.com/adguardctl/adguardhome-go/internal/testutil"
)

func newTestClient(t *testing.T) (*Client, *fake.Server) {
	t.Helper()
	srv := fake.NewServer(t)
	c, err := adguardhome.New(srv.Host(), adguardhome.WithPort(srv.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return NewClient(c), srv
}

func TestAvailable(t *testing.T) {
	client, srv := newTestClient(t)
	srv.Handle(http.MethodPost, "/control/version.json", fake.JSON(`{
		"new_version": "v0.107.55",
		"announcement": "AdGuard Home v0.107.55 is now available!",
		"announcement_url": "https://github.com/AdguardTeam/AdGuardHome/releases/tag/v0.107.55",
		"can_autoupdate": true,
		"disabled": false
	}`))

	u, err := client.Available(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v0.107.55", u.NewVersion)
	assert.True(t, u.CanAutoupdate)
	assert.False(t, u.Disabled)
	assert.Equal(t, http.MethodPost, srv.Last().Method)
}

func TestAvailableDisabled(t *testing.T) {
	client, srv := newTestClient(t)
	srv.Handle(http.MethodPost, "/control/version.json", fake.JSON(`{"disabled": true}`))

	u, err := client.Available(context.Background())
	require.NoError(t, err)
	assert.True(t, u.Disabled)
	assert.Empty(t, u.NewVersion)
}

func TestBegin(t *testing.T) {
	client, srv := newTestClient(t)
	srv.Handle(http.MethodPost, "/control/update", fake.Text(""))

	require.NoError(t, client.Begin(context.Background()))
	assert.Equal(t, "/control/update", srv.Last().Path)
}

func TestBeginFailure(t *testing.T) {
	client, srv := newTestClient(t)
	srv.Handle(http.MethodPost, "/control/update",
		fake.Reply{Status: http.StatusInternalServerError, ContentType: "application/json", Body: `{"message": "no update available"}`})

	err := client.Begin(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin AdGuard Home update failed")
	assert.Contains(t, err.Error(), "no update available")
	assert.ErrorIs(t, err, adguardhome.ErrServerError)
}
