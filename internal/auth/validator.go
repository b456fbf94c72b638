package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/binbin1213/GAGA-Client/internal/license"
)

// ErrNotAuthorized is returned when the device has no usable authorization
var ErrNotAuthorized = errors.New("device is not authorized")

// Checker asks the licensing backend about device credentials
type Checker interface {
	Auth(ctx context.Context, creds license.Credentials) (license.AuthResponse, error)
}

// Validator answers "is this device authorized" using the local state,
// a short lived cache of the last backend answer and the backend itself.
type Validator struct {
	store   *Store
	checker Checker
	log     *slog.Logger
	now     func() time.Time

	mu sync.Mutex
}

func NewValidator(store *Store, checker Checker, log *slog.Logger) *Validator {
	if log == nil {
		log = slog.Default()
	}
	return &Validator{
		store:   store,
		checker: checker,
		log:     log.With(slog.String("component", "auth")),
		now:     time.Now,
	}
}

// Activate checks the credentials with the backend and saves them on success
func (v *Validator) Activate(ctx context.Context, creds license.Credentials) (*State, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	resp, err := v.checker.Auth(ctx, creds)
	if err != nil {
		return nil, err
	}
	if !license.IsSuccess(resp.Status) {
		msg := resp.Message
		if msg == "" {
			msg = "license rejected"
		}
		return nil, fmt.Errorf("%w: %s", ErrNotAuthorized, msg)
	}

	now := v.now()
	st := State{
		DeviceID:     creds.DeviceID,
		LicenseCode:  creds.LicenseCode,
		AuthorizedAt: now,
		ExpiresAt:    parseExpiry(resp.ExpiresAt),
		IsValid:      true,
	}
	if err := v.store.SaveState(st); err != nil {
		return nil, err
	}
	v.saveCache(Cache{LastValidation: now, IsValid: true, ExpiresAt: st.ExpiresAt})
	v.log.Info("device authorized", slog.String("device_id", creds.DeviceID))
	return &st, nil
}

// Deactivate forgets the saved authorization
func (v *Validator) Deactivate() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.saveCache(Cache{LastValidation: time.Unix(0, 0).UTC()})
	return v.store.ClearState()
}

// Validate returns the current authorization or nil when there is none.
// An unreachable backend does not revoke a locally valid state.
func (v *Validator) Validate(ctx context.Context) (*State, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	st, err := v.store.LoadState()
	if err != nil {
		v.log.Warn("reading auth state failed", slog.String("error", err.Error()))
		return nil, nil
	}
	if st == nil {
		return nil, nil
	}

	now := v.now()
	if !st.Usable(now) {
		v.log.Info("local authorization expired or invalid")
		if err := v.store.ClearState(); err != nil {
			return nil, err
		}
		if err := v.store.ClearCache(); err != nil {
			v.log.Warn("clearing auth cache failed", slog.String("error", err.Error()))
		}
		return nil, nil
	}

	cache, err := v.store.LoadCache()
	if err != nil {
		v.log.Warn("reading auth cache failed", slog.String("error", err.Error()))
	}
	if cache.Fresh(now) && cache.IsValid {
		return v.updateExpiry(st, cache.ExpiresAt)
	}

	return v.validateWithBackend(ctx, st)
}

// Credentials returns the credentials of a valid authorization or ErrNotAuthorized
func (v *Validator) Credentials(ctx context.Context) (license.Credentials, error) {
	st, err := v.Validate(ctx)
	if err != nil {
		return license.Credentials{}, err
	}
	if st == nil {
		return license.Credentials{}, ErrNotAuthorized
	}
	return license.Credentials{DeviceID: st.DeviceID, LicenseCode: st.LicenseCode}, nil
}

func (v *Validator) validateWithBackend(ctx context.Context, st *State) (*State, error) {
	resp, err := v.checker.Auth(ctx, license.Credentials{DeviceID: st.DeviceID, LicenseCode: st.LicenseCode})
	if err != nil {
		v.log.Warn("backend validation failed, using local authorization", slog.String("error", err.Error()))
		return st, nil
	}

	now := v.now()
	if license.IsSuccess(resp.Status) {
		expires := parseExpiry(resp.ExpiresAt)
		v.saveCache(Cache{LastValidation: now, IsValid: true, ExpiresAt: expires})
		return v.updateExpiry(st, expires)
	}

	v.log.Info("authorization revoked by backend", slog.String("message", resp.Message))
	v.saveCache(Cache{LastValidation: now, IsValid: false})
	if err := v.store.ClearState(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (v *Validator) updateExpiry(st *State, expires time.Time) (*State, error) {
	if expires.IsZero() || expires.Equal(st.ExpiresAt) {
		return st, nil
	}
	updated := *st
	updated.ExpiresAt = expires
	if err := v.store.SaveState(updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// saveCache failures only cost an extra backend round trip
func (v *Validator) saveCache(c Cache) {
	if err := v.store.SaveCache(c); err != nil {
		v.log.Warn("saving auth cache failed", slog.String("error", err.Error()))
	}
}

func parseExpiry(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
