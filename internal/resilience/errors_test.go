package resilience

import (
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial tcp: i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit transient", NewTransientError(errors.New("copper 503"), 503), true},
		{"transient wrapped by eris", eris.Wrap(NewTransientError(errors.New("copper 429"), 429), "copper: search page 3"), true},
		{"network timeout", timeoutErr{}, true},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"plain API error", errors.New("copper: status 401: bad token"), false},
		{"decode error", errors.New("copper: unmarshal companies"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestTransientError_UnwrapKeepsCause(t *testing.T) {
	cause := errors.New("copper 500")
	te := NewTransientError(cause, 500)
	assert.ErrorIs(t, te, cause)
	assert.Equal(t, cause.Error(), te.Error())
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{http.StatusOK, http.StatusBadRequest,
		http.StatusUnauthorized, http.StatusNotFound, http.StatusUnprocessableEntity} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}
