package demo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrio/nutrio/internal/platform/auth"
)

type fakeStore struct {
	profile Profile
	owner   uuid.UUID
	purged  int64
	err     error
}

func (f *fakeStore) Seed(_ context.Context, owner uuid.UUID, p Profile) (Result, error) {
	f.owner, f.profile = owner, p
	if f.err != nil {
		return Result{}, f.err
	}
	return Result{Patients: p.Patients}, nil
}

func (f *fakeStore) Purge(_ context.Context, owner uuid.UUID) (int64, error) {
	f.owner = owner
	return f.purged, f.err
}

func newRequest(method, body string, uid uuid.UUID) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/", nil)
	} else {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if uid != uuid.Nil {
		req = req.WithContext(auth.WithUser(req.Context(), uid, auth.RoleNutritionist, ""))
	}
	return req
}

func TestHandler_Seed_Defaults(t *testing.T) {
	store := &fakeStore{}
	h := NewHandler(store)
	uid := uuid.New()
	rec := httptest.NewRecorder()

	require.NoError(t, h.Seed(echo.New().NewContext(newRequest(http.MethodPost, "", uid), rec)))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, uid, store.owner)
	assert.Equal(t, DefaultProfile().Patients, store.profile.Patients)

	var res Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, DefaultProfile().Patients, res.Patients)
}

func TestHandler_Seed_Body(t *testing.T) {
	store := &fakeStore{}
	h := NewHandler(store)
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodPost, `{"patients":3,"days":7,"seed":5}`, uuid.New())

	require.NoError(t, h.Seed(echo.New().NewContext(req, rec)))
	assert.Equal(t, 3, store.profile.Patients)
	assert.Equal(t, 7, store.profile.Days)
	assert.Equal(t, int64(5), store.profile.Seed)
}

func TestHandler_Seed_InvalidProfile(t *testing.T) {
	h := NewHandler(&fakeStore{})
	req := newRequest(http.MethodPost, `{"patients":1000}`, uuid.New())

	err := h.Seed(echo.New().NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestHandler_Seed_StoreError(t *testing.T) {
	h := NewHandler(&fakeStore{err: errors.New("db down")})

	err := h.Seed(echo.New().NewContext(newRequest(http.MethodPost, "", uuid.New()), httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, he.Code)
}

func TestHandler_Purge(t *testing.T) {
	store := &fakeStore{purged: 6}
	h := NewHandler(store)
	uid := uuid.New()
	rec := httptest.NewRecorder()

	require.NoError(t, h.Purge(echo.New().NewContext(newRequest(http.MethodDelete, "", uid), rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uid, store.owner)
	assert.JSONEq(t, `{"deleted":6}`, rec.Body.String())
}

func TestHandler_Unauthenticated(t *testing.T) {
	h := NewHandler(&fakeStore{})
	err := h.Purge(echo.New().NewContext(newRequest(http.MethodDelete, "", uuid.Nil), httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestSeeder_RejectsBeforeTouchingDB(t *testing.T) {
	s := NewSeeder(nil, testDomain, zerolog.Nop())

	_, err := s.Seed(context.Background(), uuid.Nil, DefaultProfile())
	assert.Error(t, err)

	p := DefaultProfile()
	p.Patients = 1000
	_, err = s.Seed(context.Background(), uuid.New(), p)
	assert.Error(t, err)

	_, err = s.Purge(context.Background(), uuid.Nil)
	assert.Error(t, err)
}
