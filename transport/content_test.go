package transport_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitlink/transport"
)

func TestContent_roundtrip(t *testing.T) {
	t.Parallel()

	payloads := []string{
		"",
		"a",
		"hello world\n",
		"# README\n\nline two with symbols !@#$%^&*()",
		"{\"key\": \"value\", \"n\": 42}",
	}

	for _, p := range payloads {
		got, err := transport.DecodeContent(
			transport.EncodeContent([]byte(p)),
		)

		require.NoError(t, err)
		assert.Equal(t, p, string(got))
	}
}

func TestDecodeContent_wrapped_lines(t *testing.T) {
	t.Parallel()

	// Content APIs wrap base64 at 60 columns.
	got, err := transport.DecodeContent(
		"aGVsbG8g\nd29y\r\nbGQ=\n",
	)

	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestDecodeContent_invalid(t *testing.T) {
	t.Parallel()

	got, err := transport.DecodeContent("not*base64")

	assert.Nil(t, got)
	assert.ErrorContains(t, err, "decoding content")
}
