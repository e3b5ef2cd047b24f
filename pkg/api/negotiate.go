package api

import (
	"mime"
	"strconv"
	"strings"
)

const (
	mimeJSON = "application/json"
	mimeHTML = "text/html"
)

type mediaRange struct {
	typ, sub string
	q        float64
}

func parseAccept(header string) []mediaRange {
	var out []mediaRange
	for _, part := range strings.Split(header, ",") {
		mt, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		typ, sub, ok := strings.Cut(mt, "/")
		if !ok {
			continue
		}
		q := 1.0
		if v, ok := params["q"]; ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				q = f
			}
		}
		out = append(out, mediaRange{typ: typ, sub: sub, q: q})
	}
	return out
}

// negotiate picks the offer the Accept header prefers. Each offer takes the
// quality of its most specific matching range. Equal qualities go to the
// offer whose range is listed first in the header, then to the earlier offer.
// A missing or unparsable header selects the first offer. "" means none of
// the offers is acceptable.
func negotiate(accept string, offers ...string) string {
	ranges := parseAccept(accept)
	if len(ranges) == 0 {
		return offers[0]
	}

	best, bestQ, bestPos := "", 0.0, len(ranges)
	for _, offer := range offers {
		typ, sub, _ := strings.Cut(offer, "/")
		q, specificity, pos := 0.0, -1, len(ranges)
		for i, r := range ranges {
			s := -1
			switch {
			case r.typ == typ && r.sub == sub:
				s = 2
			case r.typ == typ && r.sub == "*":
				s = 1
			case r.typ == "*" && r.sub == "*":
				s = 0
			}
			if s > specificity {
				specificity, q, pos = s, r.q, i
			}
		}
		if q > bestQ || (q > 0 && q == bestQ && pos < bestPos) {
			best, bestQ, bestPos = offer, q, pos
		}
	}
	return best
}
