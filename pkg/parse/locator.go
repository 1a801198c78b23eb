package parse

import (
	"strings"

	"github.com/dashjay/copyit/pkg/types"
	"github.com/pkg/errors"
)

// Locator splits a scheme://bucket/key string into its bucket and key.
// Scheme, query and fragment are ignored and nothing is unescaped: the key is
// the raw path, so "s3://b/100%.csv" names the key "100%.csv". Only one
// leading '/' is removed from the key, so "s3://b//k" yields the key "/k". A
// locator without "//" has no bucket; that is left for the storage service to
// reject.
func Locator(raw string) (types.Object, error) {
	rest := strings.NewReplacer("\t", "", "\r", "", "\n", "").Replace(raw)
	rest = strings.TrimLeftFunc(rest, func(r rune) bool { return r <= ' ' })
	rest = trimScheme(rest)

	var netloc string
	if strings.HasPrefix(rest, "//") {
		rest = rest[2:]
		end := strings.IndexAny(rest, "/?#")
		if end < 0 {
			end = len(rest)
		}
		netloc, rest = rest[:end], rest[end:]
		if strings.Contains(netloc, "[") != strings.Contains(netloc, "]") {
			return types.Object{}, errors.Errorf("parse locator %q: invalid IPv6 host %q", raw, netloc)
		}
	}
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	return types.Object{
		Bucket: netloc,
		Key:    strings.TrimPrefix(rest, "/"),
	}, nil
}

// trimScheme drops a leading "scheme:" when the text before the first ':'
// is a valid scheme name.
func trimScheme(s string) string {
	i := strings.Index(s, ":")
	if i <= 0 {
		return s
	}
	for j, c := range s[:i] {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case j > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return s
		}
	}
	return s[i+1:]
}
