package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDSet(t *testing.T) {
	var s IDSet
	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("a"))
	assert.True(t, s.Add("b"))
	assert.Equal(t, IDSet{"a", "b"}, s)

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	assert.Equal(t, IDSet{"b"}, s)

	assert.Equal(t, IDSet{"x", "y"}, IDSet{"x", "y", "x"}.Normalized())
	assert.NotNil(t, IDSet(nil).Normalized())
}

func TestParseReplyTarget(t *testing.T) {
	target, err := ParseReplyTarget("post", "", "p1")
	require.NoError(t, err)
	assert.Equal(t, PostTarget("p1"), target)

	target, err = ParseReplyTarget("", "p1", "p1")
	require.NoError(t, err)
	assert.False(t, target.IsReply())

	target, err = ParseReplyTarget("reply", "r1", "p1")
	require.NoError(t, err)
	assert.Equal(t, ReplyTo("r1"), target)
	assert.True(t, target.IsReply())

	_, err = ParseReplyTarget("post", "p2", "p1")
	assert.Error(t, err)
	_, err = ParseReplyTarget("reply", "", "p1")
	assert.Error(t, err)
	_, err = ParseReplyTarget("thread", "x", "p1")
	assert.Error(t, err)
}

func TestAuthorIsGuest(t *testing.T) {
	assert.True(t, Author{UserName: "guest"}.IsGuest())
	assert.True(t, Author{IsUser: true}.IsGuest())
	assert.False(t, Author{IsUser: true, UserID: "u1"}.IsGuest())
}
