package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOnDomain(t *testing.T) {
	assert.True(t, onDomain("https://patreonusercontent.com/a.jpg", "patreonusercontent.com"))
	assert.True(t, onDomain("https://c10.patreonusercontent.com/a.jpg", "patreonusercontent.com"))
	assert.False(t, onDomain("https://evilpatreonusercontent.com/a.jpg", "patreonusercontent.com"))
	assert.False(t, onDomain("https://cdn.example.com/a.jpg", "patreonusercontent.com"))
	assert.False(t, onDomain("/relative/a.jpg", "patreonusercontent.com"))
}

func TestMediaID(t *testing.T) {
	const hashed = "https://c10.patreonusercontent.com/4/patreon-media/p/post/123/0a1b2c3d4e5f6a7b8c9d/eyJ3Ijo2MjB9/1.jpg?token=x"

	assert.Equal(t, "m-42", mediaID("m-42", hashed))
	assert.Equal(t, "0a1b2c3d4e5f6a7b8c9d", mediaID("", hashed))
	assert.Equal(t, "photo.png", mediaID("", "https://c10.patreonusercontent.com/x/photo.png"))
}
