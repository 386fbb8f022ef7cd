package agent

import "testing"

func TestMergeAccumulatesAcrossFragments(t *testing.T) {
	acc := NewArgAccumulator()

	got := acc.Merge("c1", map[string]any{"a": 1})
	if len(got) != 1 || got["a"] != 1 {
		t.Fatalf("first merge = %v", got)
	}

	got = acc.Merge("c1", map[string]any{"b": 2})
	if len(got) != 2 || got["a"] != 1 || got["b"] != 2 {
		t.Fatalf("second merge = %v", got)
	}

	// Re-merging an existing key is idempotent.
	got = acc.Merge("c1", map[string]any{"a": 1})
	if len(got) != 2 || got["a"] != 1 || got["b"] != 2 {
		t.Fatalf("idempotent merge = %v", got)
	}
}

func TestMergeEmptyArgsKeepsState(t *testing.T) {
	acc := NewArgAccumulator()
	acc.Merge("c1", map[string]any{"prompt": "cat"})

	got := acc.Merge("c1", nil)
	if got["prompt"] != "cat" {
		t.Fatalf("empty merge dropped keys: %v", got)
	}
	got = acc.Merge("c1", map[string]any{})
	if got["prompt"] != "cat" {
		t.Fatalf("empty merge dropped keys: %v", got)
	}
}

func TestMergeLaterValuesWin(t *testing.T) {
	acc := NewArgAccumulator()
	acc.Merge("c1", map[string]any{"size": "1:1"})
	got := acc.Merge("c1", map[string]any{"size": "16:9"})
	if got["size"] != "16:9" {
		t.Fatalf("later value did not win: %v", got)
	}
}

func TestReleaseDeletesEntry(t *testing.T) {
	acc := NewArgAccumulator()
	acc.Merge("c1", map[string]any{"a": 1})
	acc.Release("c1")
	if acc.Len() != 0 {
		t.Fatalf("entry survived release")
	}
	// Idempotent.
	acc.Release("c1")

	// A later fragment starts a fresh entry.
	got := acc.Merge("c1", map[string]any{"b": 2})
	if len(got) != 1 || got["b"] != 2 {
		t.Fatalf("fresh entry after release = %v", got)
	}
}

func TestMergeReturnsCopy(t *testing.T) {
	acc := NewArgAccumulator()
	got := acc.Merge("c1", map[string]any{"a": 1})
	got["a"] = "mutated"
	if again := acc.Merge("c1", nil); again["a"] != 1 {
		t.Fatalf("caller mutation leaked into accumulator: %v", again)
	}
}

func TestAccumulatorIsolatesCallIDs(t *testing.T) {
	acc := NewArgAccumulator()
	acc.Merge("c1", map[string]any{"a": 1})
	acc.Merge("c2", map[string]any{"b": 2})
	if got := acc.Merge("c1", nil); len(got) != 1 {
		t.Fatalf("c1 state contaminated: %v", got)
	}
	acc.Release("c1")
	if got := acc.Merge("c2", nil); got["b"] != 2 {
		t.Fatalf("release of c1 affected c2: %v", got)
	}
}
