package translate

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const cursorPrefix = "arrayconnection:"

// EncodeCursor returns the opaque cursor of the edge at offset.
func EncodeCursor(offset int64) string {
	return base64.StdEncoding.EncodeToString([]byte(cursorPrefix + strconv.FormatInt(offset, 10)))
}

// DecodeCursor returns the offset an EncodeCursor cursor points at.
func DecodeCursor(cursor string) (int64, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("cursor %q: %w", cursor, err)
	}
	s, ok := strings.CutPrefix(string(raw), cursorPrefix)
	if !ok {
		return 0, fmt.Errorf("cursor %q: missing %s prefix", cursor, cursorPrefix)
	}
	offset, err := strconv.ParseInt(s, 10, 64)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("cursor %q: invalid offset %q", cursor, s)
	}
	return offset, nil
}
