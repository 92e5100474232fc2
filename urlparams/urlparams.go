// Package urlparams parses the editor page's location query string.
package urlparams

import (
	"net/url"
	"regexp"
	"strings"
)

var pairRe = regexp.MustCompile(`[?&]+([^=&]+)=([^&]*)`)

// Params maps decoded parameter names to decoded values.
type Params map[string]string

// Parse reads key=value pairs from a location search string such as
// "?query=SELECT%20%3Fs&x=1". A leading "?" is optional. Names and values
// are percent-decoded with "+" kept literal; a pair that fails to decode
// keeps its raw text. Later duplicates win.
func Parse(search string) Params {
	if search != "" && !strings.HasPrefix(search, "?") && !strings.HasPrefix(search, "&") {
		search = "?" + search
	}

	params := make(Params)
	for _, m := range pairRe.FindAllStringSubmatch(search, -1) {
		params[decode(m[1])] = decode(m[2])
	}
	return params
}

// Get returns the value for name and whether it was present.
func (p Params) Get(name string) (string, bool) {
	v, ok := p[name]
	return v, ok
}

func decode(s string) string {
	v, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return v
}
