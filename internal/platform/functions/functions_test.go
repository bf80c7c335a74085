package functions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greetInput struct {
	Name string `json:"name"`
}

func testRegistry() *Registry {
	r := NewRegistry()
	r.Register("greet", func(ctx context.Context, payload json.RawMessage) (any, error) {
		in, err := Decode[greetInput](payload)
		if err != nil {
			return nil, err
		}
		if in.Name == "" {
			return nil, Logical("name is required")
		}
		return map[string]string{"greeting": "hello " + in.Name}, nil
	})
	r.Register("explode", func(ctx context.Context, payload json.RawMessage) (any, error) {
		return nil, errors.New("database on fire")
	})
	return r
}

func invoke(t *testing.T, r *Registry, name, body string) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	e := echo.New()
	NewHandler(r, zerolog.Nop()).RegisterRoutes(e.Group("/functions/v1"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/functions/v1/"+name, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	e.ServeHTTP(rec, req)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestInvoke_Success(t *testing.T) {
	rec, env := invoke(t, testRegistry(), "greet", `{"name":"Ana"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.Error)
	assert.Equal(t, map[string]any{"greeting": "hello Ana"}, env.Data)
}

func TestInvoke_LogicalErrorIsSuccessShaped(t *testing.T) {
	rec, env := invoke(t, testRegistry(), "greet", `{}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "name is required", env.Error)
	assert.Nil(t, env.Data)
}

func TestInvoke_EmptyBodyDefaultsToObject(t *testing.T) {
	rec, env := invoke(t, testRegistry(), "greet", ``)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "name is required", env.Error)
}

func TestInvoke_MalformedPayloadDecodedAsLogical(t *testing.T) {
	rec, env := invoke(t, testRegistry(), "greet", `{"name": 42}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, env.Error, "invalid payload")
}

func TestInvoke_InvalidJSON(t *testing.T) {
	rec, env := invoke(t, testRegistry(), "greet", `{nope`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, env.Error)
}

func TestInvoke_UnknownFunction(t *testing.T) {
	rec, env := invoke(t, testRegistry(), "missing", `{}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, env.Error, "function not found")
}

func TestInvoke_InternalErrorHidesDetails(t *testing.T) {
	rec, env := invoke(t, testRegistry(), "explode", `{}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", env.Error)
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	fn := func(context.Context, json.RawMessage) (any, error) { return nil, nil }
	r.Register("a", fn)
	assert.Panics(t, func() { r.Register("a", fn) })
}

func TestRegistry_Names(t *testing.T) {
	assert.Equal(t, []string{"explode", "greet"}, testRegistry().Names())
}
