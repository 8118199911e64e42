package memory

import (
	"reflect"
	"strings"
	"testing"
)

func TestTopicsOf(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"my boss moved the deadline again", []string{"work"}},
		{"cold and rainy, let's cook dinner", []string{"weather", "food"}},
		{"nothing to see here", nil},
		{"movie night with my sister this weekend", []string{"plans", "entertainment", "relationships"}},
	}
	for _, tt := range tests {
		if got := TopicsOf(tt.text); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("TopicsOf(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestSummarizeTopicsOrderStable(t *testing.T) {
	// Topic order follows the vocabulary, not mention order.
	turns := []Turn{
		{Role: RoleUser, Text: "dinner was great"},
		{Role: RoleUser, Text: "back to work tomorrow"},
	}
	got := summarizeTopics(turns)
	if !strings.Contains(got, "work, food") {
		t.Errorf("summarizeTopics = %q, want vocabulary order work, food", got)
	}
}

func TestExtractImportant(t *testing.T) {
	turns := []Turn{
		{Role: RoleUser, Text: "I love jazz"},
		{Role: RoleUser, Text: "what time is it"},
		{Role: RoleUser, Text: "my birthday is in June"},
	}
	got := extractImportant(turns)
	if len(got) != 2 {
		t.Fatalf("extractImportant = %v, want 2 snippets", got)
	}
}

func TestSnippetTrims(t *testing.T) {
	long := strings.Repeat("word ", 60)
	got := snippet(long)
	if len(got) > importantSnippetMax+4 {
		t.Errorf("snippet too long: %d chars", len(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("snippet %q missing ellipsis", got)
	}
}
