package probe

import (
	"net/http"
	"sort"
	"strings"
)

const defaultUserAgent = "probegate/1.0"

func defaultHeaders() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("User-Agent", defaultUserAgent)
	return h
}

// mergeHeaders lays caller overrides on top of the default set. Malformed
// entries are skipped rather than fatal: the probe still runs with defaults
// and the Outcome carries a warning naming the dropped keys.
func mergeHeaders(overrides map[string]string) (http.Header, string) {
	h := defaultHeaders()
	var dropped []string
	for k, v := range overrides {
		if !validHeaderName(k) {
			name := k
			if name == "" {
				name = "(empty)"
			}
			dropped = append(dropped, name)
			continue
		}
		h.Set(k, v)
	}
	if len(dropped) == 0 {
		return h, ""
	}
	sort.Strings(dropped)
	return h, "ignored invalid header(s): " + strings.Join(dropped, ", ")
}

func validHeaderName(k string) bool {
	if k == "" {
		return false
	}
	return !strings.ContainsAny(k, " \t\r\n:")
}
