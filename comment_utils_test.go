package extractor

import (
	"strings"
	"testing"

	"github.com/jamesprial/go-reddit-extractor/pkg/types"
)

// Helper function to create a test comment
func createTestComment(id, author string, score int, body string) *types.Comment {
	return &types.Comment{
		ID:      id,
		Author:  author,
		Body:    body,
		Score:   score,
		Replies: []*types.Comment{},
	}
}

// Helper function to create a comment with replies
func createCommentWithReplies(id, author string, replies ...*types.Comment) *types.Comment {
	comment := createTestComment(id, author, 10, "Test comment "+id)
	comment.Replies = append(comment.Replies, replies...)
	return comment
}

func TestCommentTree_NilHandling(t *testing.T) {
	tests := []struct {
		name     string
		comments []*types.Comment
	}{
		{name: "Nil comments slice", comments: nil},
		{name: "Empty comments slice", comments: []*types.Comment{}},
		{
			name:     "Comments with nil elements",
			comments: []*types.Comment{nil, createTestComment("1", "user1", 5, "test"), nil},
		},
		{
			name:     "Comment with nil replies",
			comments: []*types.Comment{{ID: "1", Author: "user1", Replies: nil}},
		},
		{
			name:     "Nil reply inside replies",
			comments: []*types.Comment{createCommentWithReplies("1", "user1", nil)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := NewCommentTree(tt.comments)

			// These should not panic
			_ = tree.Flatten()
			_ = tree.Count()
			_ = tree.GetDepth()
			_ = tree.GetTopLevel()
			_ = tree.GetByAuthor("user1")
			_ = tree.GetByID("1")
			_ = tree.Find(func(c *types.Comment) bool { return true })
			_ = tree.Filter(func(c *types.Comment) bool { return true })
			tree.Walk(func(c *types.Comment) {
				if c == nil {
					t.Error("Walk visited a nil comment")
				}
			})
		})
	}
}

func TestCommentTree_Flatten(t *testing.T) {
	reply2 := createTestComment("3", "user3", 5, "reply to reply")
	reply1 := createCommentWithReplies("2", "user2", reply2)
	sibling := createTestComment("4", "user4", 1, "second reply")
	root := createCommentWithReplies("1", "user1", reply1, sibling)

	tree := NewCommentTree([]*types.Comment{root})
	flattened := tree.Flatten()

	var got []string
	for _, c := range flattened {
		got = append(got, c.ID)
	}
	if strings.Join(got, ",") != "1,2,3,4" {
		t.Errorf("Flatten order = %v, want depth-first [1 2 3 4]", got)
	}
	if tree.Count() != 4 {
		t.Errorf("Count() = %d, want 4", tree.Count())
	}
}

func TestCommentTree_Filter(t *testing.T) {
	comments := []*types.Comment{
		createTestComment("1", "user1", 5, "low score"),
		createTestComment("2", "user2", 15, "high score"),
		createCommentWithReplies("3", "user1", createTestComment("3a", "user1", 20, "nested")),
		nil,
	}

	tree := NewCommentTree(comments)

	highScored := tree.Filter(func(c *types.Comment) bool {
		return c.Score >= 10
	})
	if len(highScored) != 3 {
		t.Errorf("Expected 3 high-scored comments, got %d", len(highScored))
	}

	byUser1 := tree.GetByAuthor("user1")
	if len(byUser1) != 3 {
		t.Errorf("Expected 3 comments by user1, got %d", len(byUser1))
	}
}

func TestCommentTree_GetByID(t *testing.T) {
	nested := createTestComment("deep", "user3", 1, "nested")
	comments := []*types.Comment{
		createTestComment("1", "user1", 5, "test"),
		createCommentWithReplies("2", "user2", nested),
		nil,
	}

	tree := NewCommentTree(comments)

	if comment := tree.GetByID("1"); comment == nil || comment.ID != "1" {
		t.Errorf("Failed to get comment by ID")
	}
	if comment := tree.GetByID("deep"); comment != nested {
		t.Errorf("Failed to get nested comment by ID")
	}
	if comment := tree.GetByID("999"); comment != nil {
		t.Errorf("Expected nil for non-existent ID")
	}
}

func TestCommentTree_Depth(t *testing.T) {
	deep4 := createTestComment("5", "user5", 5, "depth 4")
	deep3 := createCommentWithReplies("4", "user4", deep4)
	deep2 := createCommentWithReplies("3", "user3", deep3)
	deep1 := createCommentWithReplies("2", "user2", deep2)
	root := createCommentWithReplies("1", "user1", deep1)

	tests := []struct {
		name     string
		comments []*types.Comment
		want     int
	}{
		{name: "empty", comments: nil, want: 0},
		{name: "top level only", comments: []*types.Comment{createTestComment("x", "u", 1, "b")}, want: 0},
		{name: "five levels", comments: []*types.Comment{root}, want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewCommentTree(tt.comments).GetDepth(); got != tt.want {
				t.Errorf("GetDepth() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCommentTree_Walk(t *testing.T) {
	comments := []*types.Comment{
		createTestComment("1", "user1", 5, "test"),
		createCommentWithReplies("2", "user2", createTestComment("2a", "user3", 1, "reply")),
		nil,
	}

	tree := NewCommentTree(comments)
	count := 0
	tree.Walk(func(c *types.Comment) {
		count++
	})

	if count != 3 {
		t.Errorf("Expected to walk 3 comments, got %d", count)
	}
	if len(tree.GetTopLevel()) != 3 {
		t.Errorf("GetTopLevel() = %d entries, want the original 3", len(tree.GetTopLevel()))
	}
}
