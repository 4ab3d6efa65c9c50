package reduce

import (
	"slices"
	"testing"

	"ddebug/internal/syntax"
	"ddebug/internal/testkit"
)

func TestStateRemovedCoversSubtrees(t *testing.T) {
	tree := testkit.LineTree(t, "main.rs", testkit.ScenarioSource)
	st := NewState(tree)
	item := tree.ChildrenOf(tree.Root())[0]
	body := tree.ChildrenOf(item)

	st.Accept(body[1])
	if !st.Removed(body[1]) || st.Removed(body[0]) || st.Removed(item) {
		t.Fatal("Removed disagrees with the accepted set")
	}
	st.Accept(item)
	for _, id := range body {
		if !st.Removed(id) {
			t.Fatalf("node %d inside an accepted item reported live", id)
		}
	}
	// body[1] is folded into its accepted parent.
	if !slices.Equal(st.Accepted(), []syntax.NodeID{item}) {
		t.Fatalf("accepted = %v", st.Accepted())
	}
}

func TestWithRemovalFoldsCoveredIDs(t *testing.T) {
	tree := testkit.LineTree(t, "main.rs", testkit.ScenarioSource)
	item := tree.ChildrenOf(tree.Root())[0]
	body := tree.ChildrenOf(item)
	base := []syntax.NodeID{body[0], body[2]}

	got := withRemoval(tree, base, item)
	if !slices.Equal(got, []syntax.NodeID{item}) {
		t.Fatalf("withRemoval = %v", got)
	}
	if !slices.Equal(base, []syntax.NodeID{body[0], body[2]}) {
		t.Fatal("base was modified")
	}
	if got := withRemoval(tree, []syntax.NodeID{body[2]}, body[0]); !slices.Equal(got, []syntax.NodeID{body[0], body[2]}) {
		t.Fatalf("disjoint ids: %v", got)
	}
}

func TestStateRejectionsArePerPass(t *testing.T) {
	st := NewState(testkit.LineTree(t, "main.rs", testkit.ScenarioSource))
	st.BeginPass()
	st.Reject(3)
	if !st.Rejected(3) {
		t.Fatal("rejection lost")
	}
	st.BeginPass()
	if st.Rejected(3) || st.Pass() != 2 {
		t.Fatal("rejections must reset at each pass")
	}
}

func TestOrderLevel(t *testing.T) {
	tree := testkit.LineTree(t, "main.rs", testkit.ScenarioSource)
	body := slices.Clone(tree.ChildrenOf(tree.ChildrenOf(tree.Root())[0]))
	// let b = 0; / let a = 0; / let c = a + 1; / b = 10;
	slices.Reverse(body)
	orderLevel(tree, body, syntax.SizeBytes)
	var got []string
	for _, id := range body {
		got = append(got, string(tree.Text(id)))
	}
	want := []string{"let c = a + 1;", "let b = 0;", "let a = 0;", "b = 10;"}
	if !slices.Equal(got, want) {
		t.Fatalf("order = %q, want %q", got, want)
	}
}
