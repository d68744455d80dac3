package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reouo/bilifeed/internal/normalize"
)

func TestMimeKind(t *testing.T) {
	testCases := []struct {
		name string
		url  string
		want string
	}{
		{"jpg", "https://i0.hdslb.com/bfs/new_dyn/abc.jpg", "image/jpeg"},
		{"jpeg", "https://i0.hdslb.com/bfs/new_dyn/abc.jpeg", "image/jpeg"},
		{"png", "https://i0.hdslb.com/bfs/new_dyn/abc.png", "image/png"},
		{"gif", "https://i0.hdslb.com/bfs/new_dyn/abc.gif", "image/gif"},
		{"bmp", "https://i0.hdslb.com/bfs/new_dyn/abc.bmp", "image/bmp"},
		{"webp", "https://i0.hdslb.com/bfs/new_dyn/abc.webp", "image/webp"},
		{"uppercase extension", "https://i0.hdslb.com/bfs/new_dyn/abc.PNG", "image/png"},
		{"query string ignored", "https://i0.hdslb.com/bfs/new_dyn/abc.jpg?width=640", "image/jpeg"},
		{"unrecognized extension", "https://i0.hdslb.com/bfs/new_dyn/abc.avif", normalize.GenericBinaryKind},
		{"no extension", "https://i0.hdslb.com/bfs/new_dyn/abc", normalize.GenericBinaryKind},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalize.MimeKind(tc.url))
		})
	}
}
