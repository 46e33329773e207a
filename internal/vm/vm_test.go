package vm

import (
	"errors"
	"testing"
)

func TestBlockRunOrder(t *testing.T) {
	e := New()
	b := e.Proc("main")
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		b.EmitFunc(func(*Frame) { got = append(got, i) })
	}
	p := e.Compile()
	f := &Frame{}
	if err := p.Run("main", f); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("op order = %v", got)
		}
	}
}

func TestBlockStopsOnError(t *testing.T) {
	e := New()
	b := e.Proc("main")
	boom := errors.New("boom")
	ran := 0
	b.EmitFunc(func(*Frame) { ran++ })
	b.EmitFunc(func(f *Frame) { f.Err = boom })
	b.EmitFunc(func(*Frame) { ran++ })
	f := &Frame{}
	if err := e.Compile().Run("main", f); !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want boom", err)
	}
	if ran != 1 {
		t.Errorf("ops after error ran, count = %d", ran)
	}
}

func TestUnknownProcIsNoop(t *testing.T) {
	e := New()
	if err := e.Compile().Run("missing", &Frame{}); err != nil {
		t.Fatalf("Run(missing) error = %v", err)
	}
}

func TestLinkMemoization(t *testing.T) {
	e := New()
	type obj struct{ n int }
	a, b := &obj{1}, &obj{2}
	r1 := e.Link(a)
	r2 := e.Link(a)
	r3 := e.Link(b)
	if r1 != r2 {
		t.Error("linking the same object twice gave distinct refs")
	}
	if r1 == r3 {
		t.Error("distinct objects shared a ref")
	}
	if got := e.LinkCount(); got != 2 {
		t.Errorf("LinkCount() = %d, want 2", got)
	}
}

func TestLinkUncomparable(t *testing.T) {
	e := New()
	s := []int{1, 2}
	r1 := e.Link(s)
	r2 := e.Link(s)
	if r1 == r2 {
		t.Error("uncomparable values must get fresh refs")
	}
	if got := e.LinkCount(); got != 2 {
		t.Errorf("LinkCount() = %d, want 2", got)
	}
}

func TestScopeSaveRestore(t *testing.T) {
	e := New()
	state := 1
	sc := e.ScopePair()
	sc.Set(
		func(*Frame) any { return state },
		func(_ *Frame, v any) { state = v.(int) },
		func(*Frame) any { return 42 },
	)
	e.BindProc("enter", &sc.Enter)
	e.BindProc("leave", &sc.Leave)
	p := e.Compile()

	f := &Frame{}
	if err := p.Run("enter", f); err != nil {
		t.Fatalf("enter error = %v", err)
	}
	if state != 42 {
		t.Fatalf("state after enter = %d, want 42", state)
	}
	if err := p.Run("leave", f); err != nil {
		t.Fatalf("leave error = %v", err)
	}
	if state != 1 {
		t.Fatalf("state after leave = %d, want 1", state)
	}
}

func TestScopeNesting(t *testing.T) {
	e := New()
	state := "outer"
	sc := e.ScopePair()
	sc.Save(
		func(*Frame) any { return state },
		func(_ *Frame, v any) { state = v.(string) },
	)
	e.BindProc("enter", &sc.Enter)
	e.BindProc("leave", &sc.Leave)
	p := e.Compile()

	// Two frames, two independent snapshots.
	f1 := &Frame{}
	p.Run("enter", f1)
	state = "mid"
	f2 := &Frame{}
	p.Run("enter", f2)
	state = "inner"
	p.Run("leave", f2)
	if state != "mid" {
		t.Fatalf("after inner leave state = %q, want mid", state)
	}
	p.Run("leave", f1)
	if state != "outer" {
		t.Fatalf("after outer leave state = %q, want outer", state)
	}
}

func TestCond(t *testing.T) {
	e := New()
	var path string
	c := e.Cond(func(f *Frame) bool { return f.BatchID > 0 })
	c.Then.EmitFunc(func(*Frame) { path = "then" })
	c.Else.EmitFunc(func(*Frame) { path = "else" })
	b := e.Proc("main")
	b.Emit(c)
	p := e.Compile()

	p.Run("main", &Frame{BatchID: 1})
	if path != "then" {
		t.Errorf("BatchID=1 path = %q, want then", path)
	}
	p.Run("main", &Frame{BatchID: 0})
	if path != "else" {
		t.Errorf("BatchID=0 path = %q, want else", path)
	}
}
