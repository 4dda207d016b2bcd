package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindInvalidInput, "INVALID_INPUT"},
		{KindNotFound, "NOT_FOUND"},
		{KindInputUnreadable, "INPUT_UNREADABLE"},
		{KindStorage, "STORAGE"},
		{KindInconsistency, "INCONSISTENCY"},
		{KindConflict, "CONFLICT"},
		{KindUpstream, "UPSTREAM"},
		{Kind(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}

func TestWrapAndKindOf(t *testing.T) {
	base := stderrors.New("disk full")
	err := Wrap(KindStorage, "vocabulary.save", base)

	assert.True(t, Is(err, KindStorage))
	assert.False(t, Is(err, KindNotFound))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "[STORAGE] vocabulary.save: disk full", err.Error())

	outer := fmt.Errorf("process document: %w", err)
	assert.Equal(t, KindStorage, KindOf(outer))
	assert.Equal(t, KindUnknown, KindOf(base))
	assert.False(t, Is(nil, KindStorage))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(KindStorage, "op", nil))
	assert.Nil(t, Wrapf(KindStorage, "op", nil, "ignored %d", 1))
}

func TestErrorWithPath(t *testing.T) {
	err := New(KindInputUnreadable, "pdf.text", "no text content").WithPath("/tmp/a.pdf")
	assert.Equal(t, "[INPUT_UNREADABLE] pdf.text: no text content (/tmp/a.pdf)", err.Error())
}

func TestCollection(t *testing.T) {
	c := NewCollection()
	assert.Equal(t, "No errors", c.Summary())

	c.Add("a.pdf", New(KindInputUnreadable, "read", "empty"))
	c.Add("b.pdf", stderrors.New("boom"))
	c.Add("c.pdf", nil)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "b.pdf", c.Errors[1].Path)
	assert.Equal(t, "Found 2 error(s), UNKNOWN: 1, INPUT_UNREADABLE: 1", c.Summary())
}
