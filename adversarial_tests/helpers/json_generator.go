package helpers

import (
	"fmt"
	"strings"
)

// JSONGenerator creates malicious and malformed JSON for testing
type JSONGenerator struct{}

// NewJSONGenerator creates a new JSON generator
func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

// GenerateDeeplyNestedComment creates a t1 thing whose replies nest depth
// levels deep. The comment at level i has ID "cN" with N = i.
func (g *JSONGenerator) GenerateDeeplyNestedComment(depth int) string {
	var b strings.Builder
	for i := 0; i < depth; i++ {
		fmt.Fprintf(&b, `{"kind": "t1", "data": {"id": "c%d", "name": "t1_c%d", "author": "nested", "body": "level %d", "replies": `, i, i, i)
		if i == depth-1 {
			b.WriteString(`""`)
		} else {
			b.WriteString(`{"kind": "Listing", "data": {"children": [`)
		}
	}
	for i := depth - 1; i >= 0; i-- {
		if i != depth-1 {
			b.WriteString(`]}}`)
		}
		b.WriteString(`}}`)
	}
	return b.String()
}

// GenerateMalformedThings creates various malformed Thing objects
func (g *JSONGenerator) GenerateMalformedThings() []string {
	return []string{
		`{"data": {"id": "test123"}}`,
		`{"kind": "t1"}`,
		`{"kind": "t1", "data": null}`,
		`{"kind": "t1", "data": ["test"]}`,
		`{"kind": "t1", "data": "invalid"}`,
		`{"kind": "t1", "data": 12345}`,
		`{"kind": "t9", "data": {"id": "test"}}`,
		`{"kind": "", "data": {"id": "test"}}`,
		`{"kind": "t1", "data": {"id": 42, "score": "high"}}`,
		`{"kind": "t1", "data": {"id": "x", "edited": []}}`,
		`{"kind": "t1", "data": {"id": "x", "replies": {"kind": "Listing", "data": {"children": "nope"}}}}`,
		`{"kind": "more", "data": {"children": "r1,r2"}}`,
		`{}`,
	}
}

// GenerateMalformedCommentsResponses creates /comments/{id} bodies that
// decode as JSON but do not have the [post_listing, comments_listing] shape.
func (g *JSONGenerator) GenerateMalformedCommentsResponses() map[string]string {
	post := `{"kind": "Listing", "data": {"children": [{"kind": "t3", "data": {"id": "p1", "title": "t"}}]}}`
	return map[string]string{
		"empty array":           `[]`,
		"single listing":        `[` + post + `]`,
		"comments not listing":  `[` + post + `, {"kind": "t1", "data": {}}]`,
		"post listing is t3":    `[{"kind": "t3", "data": {"id": "p1"}}, ` + post + `]`,
		"children wrong type":   `[` + post + `, {"kind": "Listing", "data": {"children": {"a": 1}}}]`,
		"post data wrong type":  `[{"kind": "Listing", "data": {"children": [{"kind": "t3", "data": []}]}}, ` + post + `]`,
		"null elements":         `[null, null]`,
		"null children entries": `[` + post + `, {"kind": "Listing", "data": {"children": [null, null]}}]`,
	}
}

// GenerateMalformedMoreChildren creates malformed /api/morechildren bodies.
// Each decodes to an error, never a panic.
func (g *JSONGenerator) GenerateMalformedMoreChildren() map[string]string {
	return map[string]string{
		"not json":          `<html>Too Many Requests</html>`,
		"errors present":    `{"json": {"errors": [["RATELIMIT", "you are doing that too much", "ratelimit"]], "data": {"things": []}}}`,
		"things wrong type": `{"json": {"errors": [], "data": {"things": {"kind": "t1"}}}}`,
		"thing data broken": `{"json": {"errors": [], "data": {"things": [{"kind": "t1", "data": "x"}]}}}`,
		"truncated":         `{"json": {"errors": [], "data": {"things": [`,
	}
}

// GenerateMalformedTokenResponses creates various malformed OAuth token
// responses served with status 200.
func (g *JSONGenerator) GenerateMalformedTokenResponses() map[string]string {
	return map[string]string{
		"empty body":          ``,
		"empty object":        `{}`,
		"empty access token":  `{"access_token": "", "expires_in": 3600}`,
		"null access token":   `{"access_token": null, "expires_in": 3600}`,
		"token is number":     `{"access_token": 12345, "expires_in": 3600}`,
		"expiry is string":    `{"access_token": "t", "expires_in": "soon"}`,
		"error field":         `{"error": "invalid_grant"}`,
		"truncated":           `{"access_token": "t", "expires_in": 36`,
		"html error page":     `<html><body>502 Bad Gateway</body></html>`,
		"array instead of ob": `[{"access_token": "t"}]`,
	}
}
