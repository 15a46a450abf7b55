package internal

import (
	"encoding/json"
	"errors"
	"testing"

	pkgerrs "github.com/jamesprial/go-reddit-extractor/pkg/errors"
	"github.com/jamesprial/go-reddit-extractor/pkg/types"
)

func TestNewParser(t *testing.T) {
	parser := NewParser()
	if parser == nil {
		t.Fatal("NewParser returned nil")
	}
}

func TestParseListing(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name          string
		thing         *types.Thing
		expectError   bool
		expectedCount int
	}{
		{name: "nil thing", thing: nil, expectError: true},
		{name: "wrong kind", thing: &types.Thing{Kind: "t3", Data: json.RawMessage(`{}`)}, expectError: true},
		{name: "empty listing", thing: &types.Thing{Kind: "Listing", Data: json.RawMessage(`{"children":[]}`)}},
		{
			name: "listing with children",
			thing: &types.Thing{
				Kind: "Listing",
				Data: json.RawMessage(`{"after":"t3_x","children":[{"kind":"t3","data":{}},{"kind":"t1","data":{}}]}`),
			},
			expectedCount: 2,
		},
		{name: "invalid JSON", thing: &types.Thing{Kind: "Listing", Data: json.RawMessage(`{invalid}`)}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parser.ParseListing(tt.thing)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(result.Children) != tt.expectedCount {
				t.Errorf("expected %d children, got %d", tt.expectedCount, len(result.Children))
			}
		})
	}
}

func TestParseLink(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name        string
		thing       *types.Thing
		expectError bool
		check       func(t *testing.T, p *types.RawPost)
	}{
		{name: "nil thing", thing: nil, expectError: true},
		{name: "wrong kind", thing: &types.Thing{Kind: "t1", Data: json.RawMessage(`{}`)}, expectError: true},
		{
			name: "gallery post keeps raw media fields",
			thing: &types.Thing{
				Kind: "t3",
				Data: json.RawMessage(`{
					"id":"abc123",
					"name":"t3_abc123",
					"title":"Gallery",
					"author":"poster",
					"is_gallery":true,
					"edited":1700000000,
					"removed_by_category":null,
					"media_metadata":{"m1":{"e":"Image"}},
					"gallery_data":{"items":[{"media_id":"m1"}]}
				}`),
			},
			check: func(t *testing.T, p *types.RawPost) {
				if p.ID != "abc123" || p.Name != "t3_abc123" || p.Title != "Gallery" {
					t.Errorf("identity fields = %q %q %q", p.ID, p.Name, p.Title)
				}
				if !p.IsGallery || len(p.MediaMetadata) == 0 || len(p.GalleryData) == 0 {
					t.Error("gallery fields not captured")
				}
				if !p.Edited.IsEdited || p.Edited.Timestamp != 1700000000 {
					t.Errorf("edited = %+v", p.Edited)
				}
				if p.RemovedByCategory != nil {
					t.Errorf("removed_by_category = %v, want nil", *p.RemovedByCategory)
				}
			},
		},
		{name: "invalid JSON", thing: &types.Thing{Kind: "t3", Data: json.RawMessage(`{invalid}`)}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parser.ParseLink(tt.thing)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, result)
			}
		})
	}
}

func TestParseComment(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name           string
		thing          *types.Thing
		expectError    bool
		expectReplies  int
		expectNestedID string
	}{
		{name: "nil thing", thing: nil, expectError: true},
		{name: "wrong kind", thing: &types.Thing{Kind: "t3", Data: json.RawMessage(`{}`)}, expectError: true},
		{
			name: "comment without replies",
			thing: &types.Thing{
				Kind: "t1",
				Data: json.RawMessage(`{
					"id":"c1",
					"author":"testuser",
					"body":"This is a test comment",
					"score":10,
					"created_utc":1234567890,
					"edited":false,
					"replies":"",
					"parent_id":"t3_abc123",
					"link_id":"t3_abc123"
				}`),
			},
		},
		{
			name: "comment with replies and placeholder",
			thing: &types.Thing{
				Kind: "t1",
				Data: json.RawMessage(`{
					"id":"c1",
					"author":"testuser",
					"body":"Parent comment",
					"replies":{
						"kind":"Listing",
						"data":{
							"children":[
								{"kind":"t1","data":{"id":"r1","author":"user2","body":"Reply","replies":{
									"kind":"Listing","data":{"children":[{"kind":"t1","data":{"id":"r1a","author":"u3","body":"deep"}}]}
								}}},
								{"kind":"more","data":{"id":"m1","children":["x1","x2"],"count":2}}
							]
						}
					}
				}`),
			},
			expectReplies:  2,
			expectNestedID: "r1a",
		},
		{name: "invalid JSON", thing: &types.Thing{Kind: "t1", Data: json.RawMessage(`{invalid json}`)}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parser.ParseComment(tt.thing)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Kind != types.KindComment {
				t.Errorf("kind = %q, want t1", result.Kind)
			}
			if len(result.Replies) != tt.expectReplies {
				t.Fatalf("replies = %d, want %d", len(result.Replies), tt.expectReplies)
			}
			if tt.expectNestedID != "" {
				if got := result.Replies[0].Replies[0].ID; got != tt.expectNestedID {
					t.Errorf("nested id = %q, want %q", got, tt.expectNestedID)
				}
				more := result.Replies[1]
				if !more.IsPlaceholder() || len(more.Children) != 2 || more.Count != 2 {
					t.Errorf("placeholder = %+v", more)
				}
			}
		})
	}
}

func TestParseMore(t *testing.T) {
	parser := NewParser()

	if _, err := parser.ParseMore(nil); err == nil {
		t.Error("expected error for nil thing")
	}
	if _, err := parser.ParseMore(&types.Thing{Kind: "t1", Data: json.RawMessage(`{}`)}); err == nil {
		t.Error("expected error for wrong kind")
	}

	more, err := parser.ParseMore(&types.Thing{
		Kind: "more",
		Data: json.RawMessage(`{"id":"_","name":"t1__","parent_id":"t1_p","children":["a","b","c"],"count":3}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !more.IsPlaceholder() || more.ParentID != "t1_p" || len(more.Children) != 3 {
		t.Errorf("placeholder = %+v", more)
	}
}

func TestExtractComments(t *testing.T) {
	parser := NewParser()

	thing := &types.Thing{
		Kind: "Listing",
		Data: json.RawMessage(`{"children":[
			{"kind":"t1","data":{"id":"a","author":"u","body":"1"}},
			{"kind":"t5","data":{"display_name":"ignored"}},
			{"kind":"t1","data":{"id":"b","author":"u","body":"2"}},
			{"kind":"more","data":{"id":"m","children":["c"],"count":1}}
		]}`),
	}
	got, err := parser.ExtractComments(thing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a", "b", "m"}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("record %d = %q, want %q", i, got[i].ID, id)
		}
	}

	if _, err := parser.ExtractComments(&types.Thing{Kind: "t1", Data: json.RawMessage(`{}`)}); err == nil {
		t.Error("expected error for non-listing")
	}
}

func TestExtractPostAndComments(t *testing.T) {
	parser := NewParser()

	postListing := &types.Thing{
		Kind: "Listing",
		Data: json.RawMessage(`{"children":[{"kind":"t3","data":{"id":"post1","name":"t3_post1","title":"Test Post","author":"postauthor"}}]}`),
	}
	commentListing := &types.Thing{
		Kind: "Listing",
		Data: json.RawMessage(`{"children":[{"kind":"t1","data":{"id":"c1","author":"u","body":"hi"}}]}`),
	}
	emptyListing := &types.Thing{Kind: "Listing", Data: json.RawMessage(`{"children":[]}`)}

	tests := []struct {
		name           string
		response       []*types.Thing
		expectError    bool
		expectPost     bool
		expectComments int
	}{
		{name: "nil response", response: nil, expectError: true},
		{name: "single listing", response: []*types.Thing{postListing}, expectError: true},
		{name: "post and comments", response: []*types.Thing{postListing, commentListing}, expectPost: true, expectComments: 1},
		{name: "no post", response: []*types.Thing{emptyListing, emptyListing}},
		{name: "bad comment listing", response: []*types.Thing{postListing, {Kind: "t1"}}, expectError: true, expectPost: true},
		{name: "bad post listing", response: []*types.Thing{{Kind: "t3"}, commentListing}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post, comments, err := parser.ExtractPostAndComments(tt.response)
			if tt.expectError {
				var parseErr *pkgerrs.ParseError
				if !errors.As(err, &parseErr) {
					t.Errorf("err = %v, want ParseError", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (post != nil) != tt.expectPost {
				t.Errorf("post = %v, want present=%v", post, tt.expectPost)
			}
			if len(comments) != tt.expectComments {
				t.Errorf("comments = %d, want %d", len(comments), tt.expectComments)
			}
		})
	}
}

func TestParseMoreChildren(t *testing.T) {
	parser := NewParser()

	body := []byte(`{"json":{"errors":[],"data":{"things":[
		{"kind":"t1","data":{"id":"x1","name":"t1_x1","parent_id":"t1_p","author":"a","body":"one"}},
		{"kind":"t1","data":{"id":"x1a","name":"t1_x1a","parent_id":"t1_x1","author":"b","body":"nested"}},
		{"kind":"t1","data":{"id":"x2","name":"t1_x2","parent_id":"t1_p","author":"c","body":"two"}},
		{"kind":"more","data":{"id":"x3","name":"t1_x3","parent_id":"t1_x2","children":["x3"],"count":1}},
		{"kind":"t1","data":{"id":"orphan","name":"t1_orphan","parent_id":"t1_gone","author":"d","body":"lost"}}
	]}}}`)

	flat, err := parser.ParseMoreChildren(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(flat) != 5 {
		t.Fatalf("flat = %d records, want 5", len(flat))
	}

	top := NestReplies("t1_p", flat)
	if len(top) != 2 || top[0].ID != "x1" || top[1].ID != "x2" {
		t.Fatalf("top = %v", top)
	}
	if len(top[0].Replies) != 1 || top[0].Replies[0].ID != "x1a" {
		t.Errorf("x1 replies = %v", top[0].Replies)
	}
	if len(top[1].Replies) != 1 || !top[1].Replies[0].IsPlaceholder() {
		t.Errorf("x2 replies = %v, want one placeholder", top[1].Replies)
	}
}

func TestParseMoreChildren_Errors(t *testing.T) {
	parser := NewParser()

	_, err := parser.ParseMoreChildren([]byte(`{"json":{"errors":[["RATELIMIT","you are doing that too much","ratelimit"]]}}`))
	var apiErr *pkgerrs.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}

	_, err = parser.ParseMoreChildren([]byte(`not json`))
	var parseErr *pkgerrs.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %v, want ParseError", err)
	}
}
