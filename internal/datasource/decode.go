package datasource

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// Decode wraps r so that it yields UTF-8. The encoding is named by any WHATWG
// label ("windows-1252", "latin1", "iso-8859-15", ...). An empty name or a
// UTF-8 label returns r unchanged.
func Decode(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return r, nil
	}
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("datasource: encoding %q: %w", encoding, err)
	}
	return enc.NewDecoder().Reader(r), nil
}
