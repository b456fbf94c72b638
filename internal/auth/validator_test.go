package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/binbin1213/GAGA-Client/internal/license"
)

type fakeChecker struct {
	resp  license.AuthResponse
	err   error
	calls int
}

func (f *fakeChecker) Auth(_ context.Context, _ license.Credentials) (license.AuthResponse, error) {
	f.calls++
	return f.resp, f.err
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestValidator(t *testing.T, checker *fakeChecker) (*Validator, *Store) {
	t.Helper()
	store := NewStoreWithFS(afero.NewMemMapFs(), "/data")
	v := NewValidator(store, checker, slog.New(slog.NewTextHandler(io.Discard, nil)))
	v.now = func() time.Time { return testNow }
	return v, store
}

func validState() State {
	return State{
		DeviceID:     "dev-1",
		LicenseCode:  "LIC-1",
		AuthorizedAt: testNow.Add(-24 * time.Hour),
		IsValid:      true,
	}
}

func TestValidate_NoState(t *testing.T) {
	checker := &fakeChecker{}
	v, _ := newTestValidator(t, checker)

	st, err := v.Validate(context.Background())
	require.NoError(t, err)
	require.Nil(t, st)
	require.Zero(t, checker.calls)
}

func TestValidate_ExpiredStateIsCleared(t *testing.T) {
	checker := &fakeChecker{}
	v, store := newTestValidator(t, checker)

	st := validState()
	st.ExpiresAt = testNow.Add(-time.Minute)
	require.NoError(t, store.SaveState(st))

	got, err := v.Validate(context.Background())
	require.NoError(t, err)
	require.Nil(t, got)
	require.Zero(t, checker.calls)

	saved, err := store.LoadState()
	require.NoError(t, err)
	require.False(t, saved.IsValid)
	require.Empty(t, saved.LicenseCode)
}

func TestValidate_FreshCacheSkipsBackend(t *testing.T) {
	checker := &fakeChecker{}
	v, store := newTestValidator(t, checker)

	expires := testNow.Add(30 * 24 * time.Hour)
	require.NoError(t, store.SaveState(validState()))
	require.NoError(t, store.SaveCache(Cache{LastValidation: testNow.Add(-time.Minute), IsValid: true, ExpiresAt: expires}))

	got, err := v.Validate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Zero(t, checker.calls)
	require.True(t, got.ExpiresAt.Equal(expires))

	saved, err := store.LoadState()
	require.NoError(t, err)
	require.True(t, saved.ExpiresAt.Equal(expires))
}

func TestValidate_StaleCacheAsksBackend(t *testing.T) {
	checker := &fakeChecker{resp: license.AuthResponse{Status: "ok", ExpiresAt: "2027-01-01T00:00:00Z"}}
	v, store := newTestValidator(t, checker)

	require.NoError(t, store.SaveState(validState()))
	require.NoError(t, store.SaveCache(Cache{LastValidation: testNow.Add(-CacheTTL - time.Second), IsValid: true}))

	got, err := v.Validate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 1, checker.calls)
	require.Equal(t, 2027, got.ExpiresAt.Year())

	cache, err := store.LoadCache()
	require.NoError(t, err)
	require.True(t, cache.IsValid)
	require.True(t, cache.LastValidation.Equal(testNow))
}

func TestValidate_RevokedByBackend(t *testing.T) {
	checker := &fakeChecker{resp: license.AuthResponse{Status: "failed", Message: "license expired"}}
	v, store := newTestValidator(t, checker)
	require.NoError(t, store.SaveState(validState()))

	got, err := v.Validate(context.Background())
	require.NoError(t, err)
	require.Nil(t, got)

	cache, err := store.LoadCache()
	require.NoError(t, err)
	require.False(t, cache.IsValid)

	_, err = v.Credentials(context.Background())
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestValidate_BackendDownKeepsLocalState(t *testing.T) {
	checker := &fakeChecker{err: errors.New("dial tcp: connection refused")}
	v, store := newTestValidator(t, checker)
	require.NoError(t, store.SaveState(validState()))

	got, err := v.Validate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)

	cache, err := store.LoadCache()
	require.NoError(t, err)
	require.Nil(t, cache, "cache is left untouched so the next call retries")

	creds, err := v.Credentials(context.Background())
	require.NoError(t, err)
	require.Equal(t, "dev-1", creds.DeviceID)
	require.Equal(t, 2, checker.calls)
}

func TestActivateAndDeactivate(t *testing.T) {
	checker := &fakeChecker{resp: license.AuthResponse{Status: "success"}}
	v, store := newTestValidator(t, checker)

	st, err := v.Activate(context.Background(), license.Credentials{DeviceID: "dev-9", LicenseCode: "LIC-9"})
	require.NoError(t, err)
	require.True(t, st.IsValid)
	require.True(t, st.ExpiresAt.IsZero())

	creds, err := v.Credentials(context.Background())
	require.NoError(t, err)
	require.Equal(t, "LIC-9", creds.LicenseCode)
	require.Equal(t, 1, checker.calls, "activation fills the cache")

	require.NoError(t, v.Deactivate())
	saved, err := store.LoadState()
	require.NoError(t, err)
	require.False(t, saved.IsValid)

	checker.resp = license.AuthResponse{Status: "failed", Message: "unknown license"}
	_, err = v.Activate(context.Background(), license.Credentials{DeviceID: "dev-9", LicenseCode: "bad"})
	require.ErrorIs(t, err, ErrNotAuthorized)
	require.Contains(t, err.Error(), "unknown license")
}
