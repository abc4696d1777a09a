package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ErrMalformedToken, "malformed_token"},
		{fmt.Errorf("decode: %w", ErrExpiredToken), "expired_token"},
		{ErrWrongTokenType, "wrong_token_type"},
		{ErrRevokedOrUnknownToken, "revoked_or_unknown_token"},
		{ErrSubjectMismatch, "subject_mismatch"},
		{fmt.Errorf("%w: dial tcp: refused", ErrStoreUnavailable), "store_unavailable"},
		{errors.New("boom"), "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorKind(tt.err))
		})
	}
}

func TestIsAuthFailure(t *testing.T) {
	assert.True(t, IsAuthFailure(ErrMalformedToken))
	assert.True(t, IsAuthFailure(fmt.Errorf("x: %w", ErrSubjectMismatch)))
	assert.False(t, IsAuthFailure(ErrStoreUnavailable))
	assert.False(t, IsAuthFailure(errors.New("other")))
}
