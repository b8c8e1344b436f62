package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateIsDeterministic(t *testing.T) {
	c := New("secret")
	assert.Equal(t, c.Generate("abc"), c.Generate("abc"))
	assert.NotEqual(t, c.Generate("abc"), c.Generate("abd"))
}

func TestVerify(t *testing.T) {
	c := New("secret")
	tok := c.Generate("signup-1")

	assert.True(t, c.Verify("signup-1", tok))
	assert.False(t, c.Verify("signup-2", tok))
	assert.False(t, c.Verify("signup-1", ""))
	assert.False(t, c.Verify("signup-1", tok+"x"))
}

func TestDifferentSecretsDiffer(t *testing.T) {
	tok := New("secret-a").Generate("signup-1")
	assert.False(t, New("secret-b").Verify("signup-1", tok))
}
