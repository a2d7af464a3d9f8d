package types

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodesMatchSentinels(t *testing.T) {
	err := fmt.Errorf("context: %w", NotFoundf("no %s", "thing"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrDuplicate))
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestFatalfKeepsExistingCode(t *testing.T) {
	wrapped := Fatalf(Duplicatef("dup"), "while saving")
	assert.True(t, errors.Is(wrapped, ErrDuplicate))
	assert.False(t, errors.Is(wrapped, ErrFatal))

	fatal := Fatalf(io.ErrUnexpectedEOF, "read document")
	assert.True(t, errors.Is(fatal, ErrFatal))
	assert.True(t, errors.Is(fatal, io.ErrUnexpectedEOF))
	assert.Equal(t, "read document: unexpected EOF", fatal.Error())
}
