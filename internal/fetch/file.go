package fetch

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// LoadFile decodes a local image. path may be a plain path or a file:// URL.
func LoadFile(path string) (*Image, error) {
	if strings.HasPrefix(path, "file://") {
		u, err := url.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("invalid file url %q: %w", path, err)
		}
		path = u.Path
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: KindTransport, URL: path, Err: err}
	}
	return decode(Request{URL: path}, body)
}
