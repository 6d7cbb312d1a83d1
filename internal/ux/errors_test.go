package ux

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
)

func TestErrorWithSuggestion(t *testing.T) {
	assert.NoError(t, NewErrorWithSuggestion(nil, "x"))

	base := errors.New("something failed")
	err := NewErrorWithSuggestion(base, "try this fix")
	assert.Equal(t, "something failed\n\nSuggestion: try this fix", err.Error())
	assert.ErrorIs(t, err, base)

	assert.Equal(t, "something failed", NewErrorWithSuggestion(base, "").Error())
}

func TestEnhanceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"runtime", kerrors.New(kerrors.ErrCodeRuntime, "runtime unreachable"), "runtime.url"},
		{"connection refused", errors.New("dial tcp: connection refused"), "automation runtime"},
		{"sheets forbidden", kerrors.New(kerrors.ErrCodeSheets, "googleapi: Error 403"), "client_email"},
		{"sheets", kerrors.New(kerrors.ErrCodeSheets, "not found"), "GOOGLE_SHEET_ID"},
		{"mailgun auth", kerrors.New(kerrors.ErrCodeEmail, "status 401"), "MAILGUN_API_KEY"},
		{"game api", kerrors.New(kerrors.ErrCodeGameAPI, "token invalid"), "WAVES_TOKEN"},
		{"webhook", kerrors.New(kerrors.ErrCodeWebhook, "status 500"), "hooks section"},
		{"permissions", errors.New("open /var/lib/wavekeeper: permission denied"), "journal directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnhanceError(tt.err)
			require.Error(t, got)
			assert.Contains(t, got.Error(), tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestEnhanceErrorFirstHintWins(t *testing.T) {
	// Mail failures mentioning 401 get the credential hint, not the
	// generic one further down.
	err := EnhanceError(kerrors.New(kerrors.ErrCodeEmail, "status 401: permission denied"))
	assert.Contains(t, err.Error(), "MAILGUN_API_KEY")
	assert.NotContains(t, err.Error(), "journal directory")
}

func TestEnhanceErrorPassThrough(t *testing.T) {
	withSuggestion := kerrors.NewTimeoutError("Daily Task", time.Minute)
	assert.Same(t, withSuggestion, EnhanceError(withSuggestion))

	plain := errors.New("something odd")
	assert.Equal(t, plain, EnhanceError(plain))
	assert.NoError(t, EnhanceError(nil))

	// A mail failure without a recognised status gets no hint.
	mail := kerrors.New(kerrors.ErrCodeEmail, "something odd")
	assert.Same(t, mail, EnhanceError(mail))
}
