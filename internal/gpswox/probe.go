package gpswox

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ExpandTemplate fills {name} placeholders. {base} is inserted verbatim,
// every other value is query-escaped.
func ExpandTemplate(tpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		if k != "base" {
			v = url.QueryEscape(v)
		}
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// ProbeResult reports which candidate answered.
type ProbeResult[T any] struct {
	Items    []T
	Index    int
	Endpoint string
}

// Probe tries the candidate URLs in order and returns the first one whose
// response is accepted with a non-empty list. Transport failures, 404
// markers and rejected bodies all move on to the next candidate. Only a
// cancelled context is reported as an error.
func Probe[T any](ctx context.Context, f *Fetcher, urls []string, policy RetryPolicy, accept func(*Response) ([]T, bool), logger log.FieldLogger) (ProbeResult[T], error) {
	for i, u := range urls {
		safeURL := RedactURL(u)
		entry := logger.WithFields(log.Fields{"candidate": i, "url": safeURL})

		resp, err := f.Do(ctx, http.MethodGet, u, nil, policy)
		if err != nil {
			if ctx.Err() != nil {
				return ProbeResult[T]{Index: -1}, ctx.Err()
			}
			entry.WithError(err).Debug("Candidate endpoint unreachable")
			continue
		}
		if IsNotFound(resp) {
			entry.Debug("Candidate endpoint not found")
			continue
		}
		items, ok := accept(resp)
		if !ok || len(items) == 0 {
			entry.Debug("Candidate endpoint returned nothing usable")
			continue
		}
		return ProbeResult[T]{Items: items, Index: i, Endpoint: safeURL}, nil
	}
	return ProbeResult[T]{Index: -1}, nil
}

// IsNotFound detects 404s, including providers that answer 200 with a 404
// status in the body or an HTML error page.
func IsNotFound(resp *Response) bool {
	if resp.StatusCode == http.StatusNotFound {
		return true
	}
	if isObject(resp.Body) {
		var marker struct {
			Status     FlexFloat `json:"status"`
			StatusCode FlexFloat `json:"statusCode"`
			Code       FlexFloat `json:"code"`
		}
		if err := json.Unmarshal(resp.Body, &marker); err == nil {
			for _, v := range []FlexFloat{marker.Status, marker.StatusCode, marker.Code} {
				if v.Valid && v.Value == http.StatusNotFound {
					return true
				}
			}
		}
		return false
	}
	return bytes.Contains(bytes.ToLower(resp.Body), []byte("404 not found"))
}
