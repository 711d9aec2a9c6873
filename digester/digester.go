package digester

import (
	"crypto/sha1" //nolint:gosec // git object ids are sha1
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// BlobID returns the id git assigns to content stored as
// a blob object, the same value `git hash-object`
// prints.
func BlobID(content []byte) string {
	ha := sha1.New() //nolint:gosec // git object ids are sha1

	writeHeader(ha, int64(len(content)))
	ha.Write(content) //nolint:errcheck // hash writes never fail

	return hex.EncodeToString(ha.Sum(nil))
}

// FileBlobID computes the blob id of the file at path.
// Returns empty string with no error if the file does
// not exist.
func FileBlobID(path string) (result string, retErr error) {
	const errCtx = "calculating blob id"

	fi, err := os.Open(path) //nolint:gosec // path is caller-provided by design
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		if closeErr := fi.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("%s: %w", errCtx, closeErr)
		}
	}()

	st, err := fi.Stat()
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if st.IsDir() {
		return "", fmt.Errorf("%s: %s is a directory", errCtx, path)
	}

	ha := sha1.New() //nolint:gosec // git object ids are sha1

	writeHeader(ha, st.Size())

	n, err := io.Copy(ha, fi)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if n != st.Size() {
		return "", fmt.Errorf(
			"%s: %s changed while reading",
			errCtx, path,
		)
	}

	return hex.EncodeToString(ha.Sum(nil)), nil
}

// Matches reports whether content hashes to the given
// blob id. An empty id never matches.
func Matches(content []byte, id string) bool {
	if id == "" {
		return false
	}

	return strings.EqualFold(BlobID(content), id)
}

func writeHeader(w io.Writer, size int64) {
	//nolint:errcheck // hash writes never fail
	io.WriteString(
		w,
		"blob "+strconv.FormatInt(size, 10)+"\x00",
	)
}
