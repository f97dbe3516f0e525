package reactive

import (
	"fmt"
	"sync/atomic"
	"testing"
)

//go:noinline
func bindAndDrop(p *Property[int], calls *atomic.Int32) {
	p.BindMut(func(int) { calls.Add(1) })
}

func TestReadWriteBinding_ExcludesOwnCallback(t *testing.T) {
	p := NewProperty("a")

	var xSeen, plainSeen []string
	x := p.BindMut(func(v string) { xSeen = append(xSeen, v) })
	defer x.Close()
	plain := p.Hook(func(v string) { plainSeen = append(plainSeen, v) })
	defer plain.Close()

	g, err := x.Write()
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	g.Set("b")
	if err := g.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}

	if len(xSeen) != 0 {
		t.Errorf("binding saw its own write: %v", xSeen)
	}
	if fmt.Sprint(plainSeen) != "[b]" {
		t.Errorf("plain hook saw %v, want [b]", plainSeen)
	}
}

func TestReadWriteBinding_TwoBindings(t *testing.T) {
	p := NewProperty(0)

	var aSeen, bSeen []int
	a := p.BindMut(func(v int) { aSeen = append(aSeen, v) })
	b := p.BindMut(func(v int) { bSeen = append(bSeen, v) })
	defer a.Close()
	defer b.Close()

	if err := a.Set(1); err != nil {
		t.Fatalf("a.Set() error = %v", err)
	}
	if fmt.Sprint(aSeen) != "[]" || fmt.Sprint(bSeen) != "[1]" {
		t.Fatalf("after a.Set: a=%v b=%v, want a=[] b=[1]", aSeen, bSeen)
	}

	if err := b.Set(2); err != nil {
		t.Fatalf("b.Set() error = %v", err)
	}
	if fmt.Sprint(aSeen) != "[2]" || fmt.Sprint(bSeen) != "[1]" {
		t.Errorf("after b.Set: a=%v b=%v, want a=[2] b=[1]", aSeen, bSeen)
	}

	// A plain property write reaches both.
	_ = p.Set(3)
	if fmt.Sprint(aSeen) != "[2 3]" || fmt.Sprint(bSeen) != "[1 3]" {
		t.Errorf("after p.Set: a=%v b=%v, want a=[2 3] b=[1 3]", aSeen, bSeen)
	}
}

func TestReadWriteBinding_Update(t *testing.T) {
	p := NewProperty(1)

	var own, other int
	a := p.BindMut(func(int) { own++ })
	b := p.BindChanged(func(int) { other++ })
	defer a.Close()
	defer b.Close()

	if err := a.Update(func(v *int) { *v *= 10 }); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if own != 0 || other != 1 {
		t.Errorf("own=%d other=%d, want own=0 other=1", own, other)
	}
	if v, _ := a.Get(); v != 10 {
		t.Errorf("Get() = %d, want 10", v)
	}
}

func TestReadWriteBinding_NoFeedbackLoop(t *testing.T) {
	// Two properties mirror each other: each binding forwards changes it did
	// not make to the other side through the other side's binding. Without
	// self-exclusion the forwarded write would come straight back.
	left := NewProperty(0)
	right := NewProperty(0)

	var toLeft, toRight *ReadWriteBinding[int]
	toLeft = left.BindMut(func(v int) { _ = toRight.Set(v) })
	toRight = right.BindMut(func(v int) { _ = toLeft.Set(v) })
	defer toLeft.Close()
	defer toRight.Close()

	if err := left.Set(5); err != nil {
		t.Fatalf("left.Set() error = %v", err)
	}
	if v, _ := right.Get(); v != 5 {
		t.Errorf("right = %d, want 5", v)
	}

	if err := right.Set(7); err != nil {
		t.Fatalf("right.Set() error = %v", err)
	}
	if v, _ := left.Get(); v != 7 {
		t.Errorf("left = %d, want 7", v)
	}
}

func TestPropertyBinding_Read(t *testing.T) {
	p := NewProperty("value")
	b := p.BindChanged(func(string) {})
	defer b.Close()

	if b.Property() != p {
		t.Error("Property() does not return the bound property")
	}

	g, err := b.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if g.Get() != "value" {
		t.Errorf("Get() = %q, want value", g.Get())
	}
	g.Unlock()
}

func TestPropertyBinding_CloseAndLeak(t *testing.T) {
	p := NewProperty(0)

	var closed, leaked int
	bc := p.BindChanged(func(int) { closed++ })
	bl := p.BindMut(func(int) { leaked++ })

	if !bc.IsAlive() || !bl.IsAlive() {
		t.Fatal("expected new bindings to be alive")
	}

	bc.Close()
	bl.Leak()

	if bc.State() != HookClosed {
		t.Errorf("closed binding state = %v", bc.State())
	}
	if bl.State() != HookLeaked {
		t.Errorf("leaked binding state = %v", bl.State())
	}

	_ = p.Set(1)
	if closed != 0 {
		t.Errorf("closed binding called %d times", closed)
	}
	if leaked != 1 {
		t.Errorf("leaked binding called %d times, want 1", leaked)
	}

	// A leaked binding still excludes itself from its own writes.
	_ = bl.Set(2)
	if leaked != 1 {
		t.Errorf("leaked binding saw its own write")
	}
}

func TestReadWriteBinding_WriteAfterClose(t *testing.T) {
	p := NewProperty(0)

	var other int
	b := p.BindMut(func(int) {})
	o := p.BindChanged(func(v int) { other = v })
	defer o.Close()

	b.Close()
	if err := b.Set(4); err != nil {
		t.Fatalf("Set() after Close error = %v", err)
	}
	if other != 4 {
		t.Errorf("other = %d, want 4", other)
	}
}

func TestPropertyBinding_Collected(t *testing.T) {
	p := NewProperty(0)

	var calls atomic.Int32
	bindAndDrop(p, &calls)

	waitFor(t, func() bool { return p.Len() == 0 })

	_ = p.Set(1)
	if got := calls.Load(); got != 0 {
		t.Errorf("calls = %d, want 0", got)
	}
}
