package httpclient

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const headerTerminator = "\r\n\r\n"

var (
	ErrMalformedResponse = errors.New("httpclient: malformed response")

	statusLineRe = regexp.MustCompile(`^(HTTP/1\.[01]) (\d{3})(?: (.*))?$`)
	headerLineRe = regexp.MustCompile(`^([A-Za-z0-9-]+):\s*(.+)$`)

	// contentLengthRe scans the raw header block case-insensitively, so
	// the body length is known before the headers are fully parsed.
	contentLengthRe = regexp.MustCompile(`(?i)\r\ncontent-length:\s*(\d+)`)
)

// Response is one parsed HTTP response.
type Response struct {
	Version       string
	StatusCode    int
	StatusMessage string
	Headers       []Header
	Body          string
}

// Header returns the first header value with a case-insensitive key
// match.
func (r *Response) Header(key string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, key) {
			return h.Value, true
		}
	}
	return "", false
}

// parseResponseHead parses the status line and header block. head must
// not include the terminating blank line.
func parseResponseHead(head string) (*Response, error) {
	lines := strings.Split(head, "\r\n")
	if len(lines) == 0 {
		return nil, errors.Wrap(ErrMalformedResponse, "empty header block")
	}

	m := statusLineRe.FindStringSubmatch(lines[0])
	if m == nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "bad status line %q", lines[0])
	}
	statusCode, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "bad status code %q", m[2])
	}

	resp := &Response{
		Version:       m[1],
		StatusCode:    statusCode,
		StatusMessage: m[3],
	}

	for _, line := range lines[1:] {
		hm := headerLineRe.FindStringSubmatch(line)
		if hm == nil {
			return nil, errors.Wrapf(ErrMalformedResponse, "bad header line %q", line)
		}
		resp.Headers = append(resp.Headers, Header{Key: hm[1], Value: hm[2]})
	}

	return resp, nil
}
