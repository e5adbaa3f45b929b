package twoq

import (
	"testing"

	"github.com/IvanBrykalov/flexcache/policy"
)

type testNode[K comparable, V any] struct {
	k K
	v V
}

func (n *testNode[K, V]) Key() K    { return n.k }
func (n *testNode[K, V]) Value() *V { return &n.v }

type mockHooks[K comparable, V any] struct {
	pushFrontCnt   int
	moveToFrontCnt int

	lastPush policy.Node[K, V]
	lastMove policy.Node[K, V]
	backVal  policy.Node[K, V]
}

func (h *mockHooks[K, V]) MoveToFront(n policy.Node[K, V]) { h.moveToFrontCnt++; h.lastMove = n }
func (h *mockHooks[K, V]) PushFront(n policy.Node[K, V])   { h.pushFrontCnt++; h.lastPush = n }
func (h *mockHooks[K, V]) Remove(policy.Node[K, V])        {}
func (h *mockHooks[K, V]) Back() policy.Node[K, V]         { return h.backVal }
func (h *mockHooks[K, V]) Len() int                        { return 0 }

// newTwoQ builds a shard-local 2Q with capIn=2 and capGhost=4 (capacity 8).
func newTwoQ(h *mockHooks[string, int]) *twoQ[string, int] {
	return New[string, int](0.25, 0.5).New(h, 8).(*twoQ[string, int])
}

func node(k string) *testNode[string, int] { return &testNode[string, int]{k: k} }

func TestTwoQ_SizesFromCapacity(t *testing.T) {
	t.Parallel()

	p := newTwoQ(&mockHooks[string, int]{})
	if p.capIn != 2 || p.capGhost != 4 {
		t.Fatalf("capIn=%d capGhost=%d, want 2 and 4", p.capIn, p.capGhost)
	}

	p.Resize(1)
	if p.capIn != 1 || p.capGhost != 1 {
		t.Fatalf("tiny shard must keep 1/1, got %d/%d", p.capIn, p.capGhost)
	}
	p.Resize(policy.Unbounded)
	if p.capIn <= 1<<40 {
		t.Fatalf("unbounded shard must not cap A1in, got %d", p.capIn)
	}
}

func TestTwoQ_AddGoesToA1in(t *testing.T) {
	t.Parallel()

	p := newTwoQ(&mockHooks[string, int]{})
	n1 := node("a")
	if ev := p.OnAdd(n1); ev != nil {
		t.Fatalf("OnAdd should not evict yet")
	}
	if p.inList.Len() != 1 {
		t.Fatalf("A1in must have 1 element, got %d", p.inList.Len())
	}
	if _, ok := p.inIdx[n1]; !ok {
		t.Fatalf("n1 must be present in A1in index")
	}
}

// When A1in overflows, OnAdd returns its LRU candidate.
func TestTwoQ_OverflowReturnsLRUOfA1in(t *testing.T) {
	t.Parallel()

	p := newTwoQ(&mockHooks[string, int]{})
	n1, n2, n3 := node("a"), node("b"), node("c")

	p.OnAdd(n1)
	p.OnAdd(n2)
	if ev := p.OnAdd(n3); ev != n1 {
		t.Fatalf("expected evict candidate n1 (LRU of A1in), got %v", ev)
	}
}

func TestTwoQ_OnRemoveFromA1inGoesToGhost(t *testing.T) {
	t.Parallel()

	p := newTwoQ(&mockHooks[string, int]{})
	n1 := node("a")
	p.OnAdd(n1)
	p.OnRemove(n1)
	if _, ok := p.inIdx[n1]; ok {
		t.Fatal("n1 must be removed from A1in")
	}
	if _, ok := p.ghostIdx["a"]; !ok {
		t.Fatal("key 'a' must be in ghost (A1out)")
	}
}

// Re-admitting a ghost key bypasses A1in.
func TestTwoQ_AddFromGhostGoesToAm(t *testing.T) {
	t.Parallel()

	p := newTwoQ(&mockHooks[string, int]{})
	n1 := node("a")
	p.OnAdd(n1)
	p.OnRemove(n1)

	n2 := node("a")
	if ev := p.OnAdd(n2); ev != nil {
		t.Fatalf("OnAdd from ghost must not evict (got %v)", ev)
	}
	if _, ok := p.inIdx[n2]; ok {
		t.Fatalf("n2 must NOT be in A1in (should go to Am)")
	}
	if _, ok := p.ghostIdx["a"]; ok {
		t.Fatal("ghost must be consumed on re-admission")
	}
}

func TestTwoQ_GetPromotesFromA1inToAm(t *testing.T) {
	t.Parallel()

	h := &mockHooks[string, int]{}
	p := newTwoQ(h)
	n1 := node("a")
	p.OnAdd(n1)
	p.OnGet(n1)
	if _, ok := p.inIdx[n1]; ok {
		t.Fatal("n1 must be promoted out of A1in after Get")
	}
	if h.moveToFrontCnt != 1 {
		t.Fatalf("OnGet must call MoveToFront once")
	}
}

// After a shrink, Victim drains A1in first, then falls back to the shard LRU.
func TestTwoQ_VictimAfterShrink(t *testing.T) {
	t.Parallel()

	mature := node("m")
	h := &mockHooks[string, int]{backVal: mature}
	p := newTwoQ(h)

	a, b := node("a"), node("b")
	p.OnAdd(a)
	p.OnAdd(b)
	if v := p.Victim(); v != mature {
		t.Fatalf("A1in within share: victim must be shard LRU, got %v", v)
	}

	p.Resize(4) // capIn 1
	if v := p.Victim(); v != a {
		t.Fatalf("A1in over share: victim must be A1in LRU, got %v", v)
	}
	p.OnRemove(a)
	if v := p.Victim(); v != mature {
		t.Fatalf("A1in back within share: got %v", v)
	}
}

// Shrinking drops ghosts beyond the new limit.
func TestTwoQ_ResizeTrimsGhosts(t *testing.T) {
	t.Parallel()

	p := newTwoQ(&mockHooks[string, int]{})
	for _, k := range []string{"a", "b", "c", "d"} {
		n := node(k)
		p.OnAdd(n)
		p.OnRemove(n)
	}
	if p.ghostList.Len() != 4 {
		t.Fatalf("ghosts = %d, want 4", p.ghostList.Len())
	}
	p.Resize(2) // capGhost 1
	if p.ghostList.Len() != 1 {
		t.Fatalf("ghosts after shrink = %d, want 1", p.ghostList.Len())
	}
	if _, ok := p.ghostIdx["d"]; !ok {
		t.Fatal("most recent ghost must survive")
	}
}
