package chronicle

import (
	"errors"
	"testing"

	"github.com/l1jgo/simcore/internal/worldstate"
)

func TestChangeAppliesMutationAndBumpsVersion(t *testing.T) {
	c := New(nil)
	before := c.State().Version

	err := c.Change("create zone", func(d *Document) error {
		return d.Space.CreateZone("hand", nil)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after := c.State()
	if after.Version != before+1 {
		t.Fatalf("version = %d, want %d", after.Version, before+1)
	}
	if _, ok := after.Space.Zones["hand"]; !ok {
		t.Fatalf("zone %q not created", "hand")
	}
}

func TestChangeLeavesDocumentUntouchedOnError(t *testing.T) {
	c := New(nil)
	before := c.State()

	boom := errors.New("boom")
	err := c.Change("fails", func(d *Document) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("got err %v, want %v", err, boom)
	}

	after := c.State()
	if after.Version != before.Version {
		t.Fatalf("version changed on failed mutation: %d -> %d", before.Version, after.Version)
	}
	if after != before {
		t.Fatalf("document pointer changed on failed mutation")
	}
}

func TestMergeRemoteNewerVersionWins(t *testing.T) {
	c := New(nil)
	_ = c.Change("bump", func(d *Document) error { return nil })

	remoteDoc := NewDocument()
	remoteDoc.Agents["p1"] = worldstate.NewAgent("p1", nil)
	remoteDoc.Version = c.State().Version + 5

	if err := c.MergeRemote(RemoteUpdate{Document: remoteDoc, Version: remoteDoc.Version}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if c.State().Version != remoteDoc.Version {
		t.Fatalf("merge did not adopt newer remote version")
	}
	if _, ok := c.State().Agents["p1"]; !ok {
		t.Fatalf("merge did not adopt remote document contents")
	}
}

func TestMergeRemoteStaleVersionIgnored(t *testing.T) {
	c := New(nil)
	_ = c.Change("bump", func(d *Document) error { return nil })
	_ = c.Change("bump again", func(d *Document) error { return nil })
	localVersion := c.State().Version

	stale := NewDocument()
	stale.Version = localVersion - 1

	if err := c.MergeRemote(RemoteUpdate{Document: stale, Version: stale.Version}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if c.State().Version != localVersion {
		t.Fatalf("stale remote update was applied: version = %d, want %d", c.State().Version, localVersion)
	}
}

func TestSaveAndLoadBase64RoundTrips(t *testing.T) {
	c := New(nil)
	_ = c.Change("seed", func(d *Document) error {
		return d.Space.CreateZone("deck", nil)
	})

	blob, err := c.SaveToBase64()
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	restored := New(nil)
	if err := restored.LoadFromBase64(blob); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := restored.State().Space.Zones["deck"]; !ok {
		t.Fatalf("round-tripped document missing zone")
	}
	if restored.State().Version != c.State().Version {
		t.Fatalf("version mismatch after round-trip: got %d, want %d", restored.State().Version, c.State().Version)
	}
}
