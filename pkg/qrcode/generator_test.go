package qrcode_test

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wamux/pkg/qrcode"
)

const challenge = "2@k9xV0bR1mQ,Zq1Gm5dY3tXc=,aB9xW2vQ7pLk=,Qm9vbGVhbg=="

func TestRendererPNG(t *testing.T) {
	t.Parallel()

	t.Run("rejects empty content", func(t *testing.T) {
		t.Parallel()
		for _, content := range []string{"", "  \t\n"} {
			got, err := qrcode.NewRenderer().PNG(content)
			require.ErrorIs(t, err, qrcode.ErrEmptyContent)
			assert.Nil(t, got)
		}
	})

	t.Run("produces a decodable image of the requested size", func(t *testing.T) {
		t.Parallel()
		data, err := qrcode.NewRenderer(qrcode.WithSize(300)).PNG(challenge)
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 300, img.Bounds().Dx())
		assert.Equal(t, 300, img.Bounds().Dy())
	})

	t.Run("non-positive size falls back to default", func(t *testing.T) {
		t.Parallel()
		data, err := qrcode.Generate(challenge, 0)
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, qrcode.DefaultSize, img.Bounds().Dx())
	})

	t.Run("level changes the encoding", func(t *testing.T) {
		t.Parallel()
		low, err := qrcode.NewRenderer(qrcode.WithLevel(qrcode.Low)).PNG(challenge)
		require.NoError(t, err)
		high, err := qrcode.NewRenderer(qrcode.WithLevel(qrcode.Highest)).PNG(challenge)
		require.NoError(t, err)
		assert.NotEqual(t, low, high)
	})
}

func TestDataURL(t *testing.T) {
	t.Parallel()

	t.Run("wraps png in a data url", func(t *testing.T) {
		t.Parallel()
		url, err := qrcode.DataURL(challenge)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/png;base64,"))
		require.NoError(t, err)
		_, err = png.Decode(bytes.NewReader(raw))
		require.NoError(t, err)
	})

	t.Run("same content gives same image", func(t *testing.T) {
		t.Parallel()
		a, err := qrcode.DataURL(challenge)
		require.NoError(t, err)
		b, err := qrcode.DataURL(challenge)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("propagates empty content error", func(t *testing.T) {
		t.Parallel()
		url, err := qrcode.DataURL("")
		assert.ErrorIs(t, err, qrcode.ErrEmptyContent)
		assert.Empty(t, url)
	})
}
