package testkit

import (
	"testing"

	"ddebug/internal/oracle"
	"ddebug/internal/syntax"
)

func TestLineTreeScenario(t *testing.T) {
	tree := LineTree(t, "main.rs", ScenarioSource)
	CheckTreeInvariants(t, tree)

	item := tree.ChildrenOf(tree.Root())
	if len(item) != 1 || tree.Node(item[0]).Kind != syntax.KindItem || tree.Node(item[0]).Name != "main" {
		t.Fatalf("top level = %v", item)
	}
	body := tree.ChildrenOf(item[0])
	if len(body) != 4 {
		t.Fatalf("body has %d nodes, want 4", len(body))
	}
	if got := string(tree.Text(body[2])); got != "let c = a + 1;" {
		t.Fatalf("third statement = %q", got)
	}
	if tree.Node(body[0]).Name != "b" || tree.Node(body[3]).Ref != "b" {
		t.Fatal("names and refs not recorded")
	}
}

func TestScenarioJudge(t *testing.T) {
	cases := map[string]oracle.Verdict{
		ScenarioSource:                     oracle.Reproduces,
		ScenarioMinimal:                    oracle.Reproduces,
		"fn main() {\n    b = 10;\n}\n":     oracle.OtherError,
		"fn main() {\n    let b = 0;\n}\n": oracle.NoError,
		"":                                 oracle.OtherError,
	}
	for text, want := range cases {
		if got := ScenarioJudge(text); got != want {
			t.Errorf("ScenarioJudge(%q) = %s, want %s", text, got, want)
		}
	}
}
