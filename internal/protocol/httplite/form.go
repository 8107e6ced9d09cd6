package httplite

import (
	"strings"
)

// Values holds decoded query or form pairs. The first occurrence of a key
// wins.
type Values map[string]string

// Get returns the value for key, or "".
func (v Values) Get(key string) string { return v[key] }

// ParseQuery decodes "k=v&k2=v2". Pairs without '=' map to "". Keys and
// values are URL-decoded.
func ParseQuery(raw string) Values {
	out := Values{}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		k = URLDecode(k)
		if _, seen := out[k]; seen {
			continue
		}
		out[k] = URLDecode(v)
	}
	return out
}

// URLDecode replaces %XX escapes and '+' with the bytes they stand for.
// A '%' not followed by two hex digits is copied verbatim.
func URLDecode(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '+':
			b.WriteByte(' ')
		case '%':
			if i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
				b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
				i += 2
				continue
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// ParseURLEncodedCredentials reads the username and password fields of an
// application/x-www-form-urlencoded body.
func ParseURLEncodedCredentials(body string) (username, password string) {
	v := ParseQuery(body)
	return v.Get("username"), v.Get("password")
}

// BoundaryFromContentType extracts the multipart boundary parameter, without
// surrounding spaces or quotes. ok is false when there is none.
func BoundaryFromContentType(contentType string) (boundary string, ok bool) {
	const key = "boundary="
	i := strings.Index(contentType, key)
	if i < 0 {
		return "", false
	}
	b := contentType[i+len(key):]
	if end := strings.IndexByte(b, ';'); end >= 0 {
		b = b[:end]
	}
	b = strings.Trim(strings.TrimSpace(b), `"`)
	return b, b != ""
}

// IsMultipart reports whether contentType is multipart/form-data.
func IsMultipart(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "multipart/form-data")
}

// ParseMultipartField finds the part whose disposition names field and
// returns its value: the bytes after the part's blank line up to the next
// CRLF and boundary delimiter.
func ParseMultipartField(body, boundary, field string) (string, bool) {
	delim := "--" + boundary

	start := strings.Index(body, delim)
	if start < 0 {
		return "", false
	}
	nameAt := strings.Index(body[start:], `name="`+field+`"`)
	if nameAt < 0 {
		return "", false
	}
	nameAt += start

	blank := strings.Index(body[nameAt:], "\r\n\r\n")
	if blank < 0 {
		return "", false
	}
	valueAt := nameAt + blank + 4

	end := strings.Index(body[valueAt:], "\r\n"+delim)
	if end < 0 {
		return "", false
	}
	return strings.TrimRight(body[valueAt:valueAt+end], "\r\n"), true
}

// ParseCredentials extracts username and password from a login body of
// either supported encoding.
func ParseCredentials(contentType, body string) (username, password string) {
	if IsMultipart(contentType) {
		boundary, ok := BoundaryFromContentType(contentType)
		if !ok {
			return "", ""
		}
		username, _ = ParseMultipartField(body, boundary, "username")
		password, _ = ParseMultipartField(body, boundary, "password")
		return username, password
	}
	return ParseURLEncodedCredentials(body)
}
