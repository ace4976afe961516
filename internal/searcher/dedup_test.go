package searcher

import (
	"slices"
	"testing"
)

func TestDeduplicate(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "SubstringDropped",
			input: []string{"施工架應設置護欄", "依規定施工架應設置護欄及踏板"},
			want:  []string{"依規定施工架應設置護欄及踏板"},
		},
		{
			name:  "InputOrderKept",
			input: []string{"abc", "xyz", "b", "y"},
			want:  []string{"abc", "xyz"},
		},
		{
			name:  "IdenticalCollapse",
			input: []string{"同一", "同一", "同一"},
			want:  []string{"同一"},
		},
		{
			name:  "UnrelatedKept",
			input: []string{"梯子", "護欄"},
			want:  []string{"梯子", "護欄"},
		},
		{
			name:  "EmptyDropped",
			input: []string{"", "a", ""},
			want:  []string{"a"},
		},
		{
			name:  "Nil",
			input: nil,
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Deduplicate(tt.input)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Deduplicate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDeduplicateProperties(t *testing.T) {
	input := []string{"第 1 條", "第 1 條 目的", "目的", "第 2 條", "第 2 條 罰則", "罰則", "第 1 條 目的"}
	once := Deduplicate(input)

	// Idempotent
	if twice := Deduplicate(once); !slices.Equal(once, twice) {
		t.Errorf("second pass changed output: %q -> %q", once, twice)
	}

	// No survivor is contained in another survivor
	for i, a := range once {
		for j, b := range once {
			if i != j && len(a) <= len(b) && containsString(b, a) {
				t.Errorf("%q survived although %q contains it", a, b)
			}
		}
	}
}

func TestDeduplicateFunc(t *testing.T) {
	type hit struct {
		id   int
		text string
	}
	input := []hit{{1, "護欄"}, {2, "施工架應設置護欄"}, {3, "梯子"}}

	got := DeduplicateFunc(input, func(h hit) string { return h.text })
	if len(got) != 2 || got[0].id != 2 || got[1].id != 3 {
		t.Errorf("unexpected result: %+v", got)
	}
}

// TestDeduplicateFunc_IdenticalKeepsFirst verifies ties resolve to the
// earliest item
func TestDeduplicateFunc_IdenticalKeepsFirst(t *testing.T) {
	type hit struct {
		id   int
		text string
	}
	input := []hit{{1, "梯子"}, {2, "護欄"}, {3, "梯子"}, {4, "施工架應設置護欄"}, {5, "梯子"}}

	got := DeduplicateFunc(input, func(h hit) string { return h.text })
	if len(got) != 2 || got[0].id != 1 || got[1].id != 4 {
		t.Errorf("unexpected result: %+v", got)
	}
}

func containsString(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
