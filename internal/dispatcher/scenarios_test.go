package dispatcher

import (
	"testing"

	"github.com/l1jgo/simcore/internal/chronicle"
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/worldstate"
)

func fiftyTwoCardStack() []worldstate.Token {
	suits := []string{"clubs", "diamonds", "hearts", "spades"}
	tokens := make([]worldstate.Token, 0, 52)
	for _, suit := range suits {
		for rank := 1; rank <= 13; rank++ {
			tokens = append(tokens, worldstate.Token{
				ID:     suit + "-" + string(rune('0'+rank/10)) + string(rune('0'+rank%10)),
				Label:  suit,
				FaceUp: false,
			})
		}
	}
	return tokens
}

// TestTwoPlayerShuffleAndDealDeterministicBySeed grounds spec.md §8
// scenario 1: a 52-token stack shuffled with a fixed seed, dealt 5 cards
// each to two named agents, must split 5/5/42 with no id repeats, and two
// independently built engines seeded identically must deal the same hands.
func TestTwoPlayerShuffleAndDealDeterministicBySeed(t *testing.T) {
	deal := func() (alice, bob []worldstate.Token, remaining int) {
		bus := event.NewBus(nil)
		chron := chronicle.New(bus)
		d := New(chron, bus, nil)

		doc := chron.State()
		doc.Stack = worldstate.NewStack(fiftyTwoCardStack())
		doc.Agents["alice"] = worldstate.NewAgent("alice", nil)
		doc.Agents["bob"] = worldstate.NewAgent("bob", nil)

		seed := int64(42)
		if res := d.Dispatch("stack:shuffle", Payload{"seed": seed}, &seed); !res.OK {
			t.Fatalf("stack:shuffle failed: %v", res.Err)
		}

		res := d.Dispatch("agent:drawCards", Payload{"name": "alice", "count": 5}, nil)
		if !res.OK {
			t.Fatalf("alice draw failed: %v", res.Err)
		}
		alice = res.Value.([]worldstate.Token)

		res = d.Dispatch("agent:drawCards", Payload{"name": "bob", "count": 5}, nil)
		if !res.OK {
			t.Fatalf("bob draw failed: %v", res.Err)
		}
		bob = res.Value.([]worldstate.Token)

		remaining = chron.State().Stack.Size()
		return
	}

	alice1, bob1, remaining1 := deal()
	if len(alice1) != 5 || len(bob1) != 5 || remaining1 != 42 {
		t.Fatalf("split = %d/%d/%d, want 5/5/42", len(alice1), len(bob1), remaining1)
	}

	seen := make(map[string]bool, 10)
	for _, t2 := range append(append([]worldstate.Token(nil), alice1...), bob1...) {
		if seen[t2.ID] {
			t.Fatalf("duplicate token id %q dealt to both hands", t2.ID)
		}
		seen[t2.ID] = true
	}

	alice2, bob2, _ := deal()
	for i := range alice1 {
		if alice1[i].ID != alice2[i].ID {
			t.Fatalf("alice's hand is not seed-deterministic: %q vs %q", alice1[i].ID, alice2[i].ID)
		}
	}
	for i := range bob1 {
		if bob1[i].ID != bob2[i].ID {
			t.Fatalf("bob's hand is not seed-deterministic: %q vs %q", bob1[i].ID, bob2[i].ID)
		}
	}
}

// TestAtomicTradeSettlesBothSidesOrNeither grounds spec.md §8 scenario 2:
// a trade either moves both offers or leaves every balance untouched.
func TestAtomicTradeSettlesBothSidesOrNeither(t *testing.T) {
	d, chron, _ := newTestDispatcher()
	doc := chron.State()
	alice := worldstate.NewAgent("alice", nil)
	alice.GiveResource("gold", 100)
	bob := worldstate.NewAgent("bob", nil)
	bob.GiveResource("wood", 200)
	doc.Agents["alice"] = alice
	doc.Agents["bob"] = bob

	res := d.Dispatch("agent:trade", Payload{
		"agent1": "alice", "agent2": "bob",
		"offer1": map[string]any{"gold": int64(50)},
		"offer2": map[string]any{"wood": int64(100)},
	}, nil)
	if !res.OK {
		t.Fatalf("trade failed: %v", res.Err)
	}

	after := chron.State()
	if after.Agents["alice"].Resources["gold"] != 50 || after.Agents["alice"].Resources["wood"] != 100 {
		t.Fatalf("alice balances = %+v, want gold=50 wood=100", after.Agents["alice"].Resources)
	}
	if after.Agents["bob"].Resources["gold"] != 50 || after.Agents["bob"].Resources["wood"] != 100 {
		t.Fatalf("bob balances = %+v, want gold=50 wood=100", after.Agents["bob"].Resources)
	}

	// A second trade alice can't afford must settle neither side.
	res = d.Dispatch("agent:trade", Payload{
		"agent1": "alice", "agent2": "bob",
		"offer1": map[string]any{"gold": int64(1000)},
		"offer2": map[string]any{"wood": int64(10)},
	}, nil)
	if res.OK {
		t.Fatalf("trade should have failed on insufficient funds")
	}
	final := chron.State()
	if final.Agents["alice"].Resources["gold"] != 50 || final.Agents["alice"].Resources["wood"] != 100 {
		t.Fatalf("alice balances changed after a failed trade: %+v", final.Agents["alice"].Resources)
	}
	if final.Agents["bob"].Resources["gold"] != 50 || final.Agents["bob"].Resources["wood"] != 100 {
		t.Fatalf("bob balances changed after a failed trade: %+v", final.Agents["bob"].Resources)
	}
}

// TestMergeThenSplitRestoresOriginalCardinality grounds spec.md §8's
// merge/split Law: merging N tokens then splitting the result back into N
// parts restores the original count, here with keepOriginals=false (the
// merged inputs are consumed). The following test covers keepOriginals=true
// (the inputs survive, carrying mergedInto provenance).
func TestMergeThenSplitRestoresOriginalCardinality(t *testing.T) {
	d, chron, _ := newTestDispatcher()
	chron.State().Stack = worldstate.NewStack([]worldstate.Token{
		{ID: "a", Label: "card"}, {ID: "b", Label: "card"}, {ID: "c", Label: "card"},
	})

	res := d.Dispatch("token:merge", Payload{"tokens": []string{"a", "b", "c"}}, nil)
	if !res.OK {
		t.Fatalf("merge failed: %v", res.Err)
	}
	merged := res.Value.(worldstate.Token)
	if len(merged.MergedFrom) != 3 {
		t.Fatalf("merged.MergedFrom = %v, want 3 ids", merged.MergedFrom)
	}
	if chron.State().Stack.Size() != 0 {
		t.Fatalf("stack should be empty after a non-keepOriginals merge, size = %d", chron.State().Stack.Size())
	}

	res = d.Dispatch("token:split", Payload{"token": merged.ID, "count": 3}, nil)
	if !res.OK {
		t.Fatalf("split failed: %v", res.Err)
	}
	parts := res.Value.([]worldstate.Token)
	if len(parts) != 3 {
		t.Fatalf("split produced %d parts, want 3 (restoring the merge's cardinality)", len(parts))
	}
}

// TestMergeKeepOriginalsRecordsProvenanceOnTheKeptTokens specifically
// exercises keepOriginals=true, confirming every kept original's
// mergedInto field is actually persisted into the Chronicle document (not
// just computed and discarded — see actions_token.go's findTokenAnywhere
// setter fix).
func TestMergeKeepOriginalsRecordsProvenanceOnTheKeptTokens(t *testing.T) {
	d, chron, _ := newTestDispatcher()
	chron.State().Stack = worldstate.NewStack([]worldstate.Token{
		{ID: "a", Label: "card"}, {ID: "b", Label: "card"},
	})

	res := d.Dispatch("token:merge", Payload{"tokens": []string{"a", "b"}, "keepOriginals": true}, nil)
	if !res.OK {
		t.Fatalf("merge failed: %v", res.Err)
	}
	merged := res.Value.(worldstate.Token)

	doc := chron.State()
	if doc.Stack.Size() != 2 {
		t.Fatalf("keepOriginals=true must keep both tokens in the stack, size = %d", doc.Stack.Size())
	}
	for _, id := range []string{"a", "b"} {
		tok, _, ok := findTokenAnywhere(doc, id)
		if !ok {
			t.Fatalf("original token %q missing from the document", id)
		}
		if tok.MergedInto != merged.ID {
			t.Fatalf("token %q MergedInto = %q, want %q (provenance must persist into the Chronicle)", id, tok.MergedInto, merged.ID)
		}
	}
}
