// Package webhook receives DocuSign Connect notifications and reconciles them
// onto host records.
package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
)

// Fields is the normalized view of one notification, whatever shape it arrived in.
// Empty strings mean the field could not be extracted.
type Fields struct {
	EnvelopeID string
	Status     string
	Doctype    string
	Docname    string
}

// ParseBody decodes the request body as JSON, falling back to form-encoded
// fields when the body is empty or not valid JSON. An unrecognized body yields
// an empty payload, which downstream validation rejects as missing fields.
func ParseBody(r *http.Request) map[string]any {
	b, _ := io.ReadAll(r.Body)

	var m map[string]any
	if len(b) > 0 && json.Unmarshal(b, &m) == nil && m != nil {
		return m
	}

	vals, err := url.ParseQuery(string(b))
	if err != nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(vals))
	for k := range vals {
		out[k] = vals.Get(k)
	}
	return out
}

// Extract pulls the envelope id, status and correlation metadata out of the
// payload, trying each known shape in fixed priority order.
func Extract(p map[string]any) Fields {
	f := Fields{
		EnvelopeID: firstString(p, []string{"envelopeId"}, []string{"data", "envelopeSummary", "envelopeId"}),
		Status:     firstString(p, []string{"status"}, []string{"data", "envelopeSummary", "status"}),
	}
	f.Doctype, f.Docname = extractCorrelation(p)
	return f
}

// correlationSource is one extraction strategy: a pure function from payload
// to whichever correlation values that shape carries.
type correlationSource func(map[string]any) (doctype, docname string)

// Candidate shapes in priority order. The first non-empty value found for each
// key wins; later sources never override an already-found value.
var correlationSources = []correlationSource{
	func(p map[string]any) (string, string) {
		return customFieldValues(dig(p, "data", "customFields", "textCustomFields"))
	},
	func(p map[string]any) (string, string) {
		return customFieldValues(dig(p, "customFields", "textCustomFields"))
	},
	func(p map[string]any) (string, string) {
		return asString(p["frappe_doctype"]), asString(p["frappe_docname"])
	},
	func(p map[string]any) (string, string) {
		return customFieldValues(dig(p, "data", "envelopeSummary", "customFields", "textCustomFields"))
	},
}

func extractCorrelation(p map[string]any) (string, string) {
	var doctype, docname string
	for _, source := range correlationSources {
		dt, dn := source(p)
		if doctype == "" {
			doctype = dt
		}
		if docname == "" {
			docname = dn
		}
		if doctype != "" && docname != "" {
			break
		}
	}
	return doctype, docname
}

// customFieldValues scans a textCustomFields list for the correlation pair.
func customFieldValues(v any) (doctype, docname string) {
	list, ok := v.([]any)
	if !ok {
		return "", ""
	}
	for _, item := range list {
		field, ok := item.(map[string]any)
		if !ok {
			continue
		}
		switch asString(field["name"]) {
		case "frappe_doctype":
			if doctype == "" {
				doctype = asString(field["value"])
			}
		case "frappe_docname":
			if docname == "" {
				docname = asString(field["value"])
			}
		}
	}
	return doctype, docname
}

func firstString(p map[string]any, paths ...[]string) string {
	for _, path := range paths {
		if s := asString(dig(p, path...)); s != "" {
			return s
		}
	}
	return ""
}

func dig(p map[string]any, path ...string) any {
	var cur any = p
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
