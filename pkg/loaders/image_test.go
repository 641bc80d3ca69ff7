package loaders

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBuffer is a 2x2 image: white, red / green, blue
func testBuffer() []byte {
	return []byte{
		255, 255, 255, 255, 255, 0, 0, 255,
		0, 255, 0, 255, 0, 0, 255, 255,
	}
}

func TestToRGBA(t *testing.T) {
	img, err := ToRGBA(testBuffer(), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
	r, g, b, a := img.At(1, 0).RGBA()
	assert.Equal(t, []uint32{0xffff, 0, 0, 0xffff}, []uint32{r, g, b, a})

	_, err = ToRGBA(testBuffer(), 3, 2)
	assert.Error(t, err)
	_, err = ToRGBA(nil, 0, 0)
	assert.Error(t, err)
}

func TestSaveImage_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"out.png", "out.bmp", "out.tif", "nested/out.tiff"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, SaveImage(path, testBuffer(), 2, 2))

			pixels, width, height, err := LoadImage(path)
			require.NoError(t, err)
			assert.Equal(t, 2, width)
			assert.Equal(t, 2, height)
			assert.Equal(t, testBuffer(), pixels)
		})
	}
}

func TestSaveImage_UnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gif")
	err := SaveImage(path, testBuffer(), 2, 2)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file is created for an unknown format")
}

func TestEncodeImage_PNGSignature(t *testing.T) {
	img, err := ToRGBA(testBuffer(), 2, 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeImage(&buf, img, ".PNG"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	assert.ErrorIs(t, EncodeImage(&buf, img, ".jpg"), ErrUnknownFormat)
}

func TestLoadImageNotFound(t *testing.T) {
	_, _, _, err := LoadImage("nonexistent.png")
	assert.Error(t, err)
}
