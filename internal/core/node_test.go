package core

import (
	"errors"
	"testing"
)

func TestValidateRejectsNonYieldingLoops(t *testing.T) {
	sig := NewSignal("s", 0, nil, false)

	cases := []struct {
		name string
		node Node
		ok   bool
	}{
		{"loop of atomic", &LoopNode{Body: &AtomicNode{Fn: func() error { return nil }}}, false},
		{"loop of emit", &LoopNode{Body: &EmitNode{Sig: sig, Value: func() any { return 1 }}}, false},
		{"loop of pause", &LoopNode{Body: &PauseNode{}}, true},
		{"loop of await", &LoopNode{Body: &AwaitNode{Sig: sig}}, true},
		{"loop of seq with pause", &LoopNode{Body: &SeqNode{Steps: []Node{
			&NothingNode{}, &PauseNode{},
		}}}, true},
		{"loop of seq without yield", &LoopNode{Body: &SeqNode{Steps: []Node{
			&NothingNode{}, &AtomicNode{Fn: func() error { return nil }},
		}}}, false},
		{"loop of par with one yielding branch", &LoopNode{Body: &ParNode{Branches: []Node{
			&NothingNode{}, &PauseNode{},
		}}}, true},
		{"loop of choice with await head", &LoopNode{Body: &ChoiceNode{Branches: []Node{
			&SeqNode{Steps: []Node{&AwaitNode{Sig: sig}, &NothingNode{}}},
			&NothingNode{},
		}}}, true},
		{"loop of choice without yield", &LoopNode{Body: &ChoiceNode{Branches: []Node{
			&NothingNode{}, &AtomicNode{Fn: func() error { return nil }},
		}}}, false},
		{"nested bad loop", &SeqNode{Steps: []Node{
			&PauseNode{},
			&LoopNode{Body: &NothingNode{}},
		}}, false},
		{"loop of scope", &LoopNode{Body: &ScopeNode{Name: "x", Body: func(*Signal) Node {
			return &PauseNode{}
		}}}, true},
	}
	for _, tc := range cases {
		err := Validate(tc.node)
		if tc.ok && err != nil {
			t.Errorf("%s: Validate() = %v, want nil", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrInstantaneousLoop) {
			t.Errorf("%s: Validate() = %v, want ErrInstantaneousLoop", tc.name, err)
		}
	}
}

func TestChoiceBranchSelection(t *testing.T) {
	a := NewSignal("a", 0, nil, false)
	b := NewSignal("b", 0, nil, false)
	in := &Instant{maxSteps: DefaultMaxSteps, pool: queueOnlyPool()}

	ch := &ChoiceNode{Branches: []Node{
		&SeqNode{Steps: []Node{&AwaitNode{Sig: a}, &NothingNode{}}},
		&SeqNode{Steps: []Node{&AwaitNode{Sig: b}, &NothingNode{}}},
		&PauseNode{},
	}}

	if got := pickBranch(ch); got != nil {
		t.Fatalf("pickBranch with all signals absent = %T, want park", got)
	}
	if got := firstImmediate(ch); got != ch.Branches[2] {
		t.Errorf("firstImmediate = %T, want the pause branch", got)
	}

	b.Emit(in, 1)
	if got := pickBranch(ch); got != ch.Branches[1] {
		t.Errorf("pickBranch with b present = %T, want the b branch", got)
	}
	a.Emit(in, 1)
	if got := pickBranch(ch); got != ch.Branches[0] {
		t.Errorf("pickBranch prefers declaration order, got %T", got)
	}

	heads := awaitHeads(ch)
	if len(heads) != 2 || heads[0] != a || heads[1] != b {
		t.Errorf("awaitHeads = %v, want [a b]", heads)
	}
}
