package worldstate

import "testing"

func TestSpaceCreateZoneRejectsDuplicate(t *testing.T) {
	sp := NewSpace()
	if err := sp.CreateZone("hand", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := sp.CreateZone("hand", nil); err != ErrZoneExists {
		t.Fatalf("err = %v, want ErrZoneExists", err)
	}
}

func TestSpacePlaceAndMove(t *testing.T) {
	sp := NewSpace()
	sp.CreateZone("deck", nil)
	sp.CreateZone("hand", nil)

	p, err := sp.Place("deck", Token{ID: "t1"}, PlaceOpts{})
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	moved, err := sp.Move("deck", "hand", p.ID, nil, nil)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.Token.ID != "t1" {
		t.Fatalf("moved token = %+v, want t1", moved.Token)
	}
	if len(sp.Zones["deck"].Placements) != 0 {
		t.Fatalf("source zone still holds placement")
	}
	if len(sp.Zones["hand"].Placements) != 1 {
		t.Fatalf("destination zone missing placement")
	}
}

func TestSpaceMoveIntoLockedZoneFails(t *testing.T) {
	sp := NewSpace()
	sp.CreateZone("deck", nil)
	sp.CreateZone("vault", nil)
	sp.LockZone("vault", true)

	p, _ := sp.Place("deck", Token{ID: "t1"}, PlaceOpts{})
	if _, err := sp.Move("deck", "vault", p.ID, nil, nil); err != ErrZoneLocked {
		t.Fatalf("err = %v, want ErrZoneLocked", err)
	}
}

func TestSpaceFlipTogglesWhenFaceUpNil(t *testing.T) {
	sp := NewSpace()
	sp.CreateZone("deck", nil)
	p, _ := sp.Place("deck", Token{ID: "t1"}, PlaceOpts{FaceUp: boolPtr(true)})

	flipped, err := sp.Flip("deck", p.ID, nil)
	if err != nil {
		t.Fatalf("flip: %v", err)
	}
	if flipped.FaceUp {
		t.Fatalf("expected faceUp to toggle false")
	}
}

func TestSpaceRemoveMissingPlacementErrors(t *testing.T) {
	sp := NewSpace()
	sp.CreateZone("deck", nil)
	if _, err := sp.Remove("deck", "nonexistent"); err != ErrPlacementMissing {
		t.Fatalf("err = %v, want ErrPlacementMissing", err)
	}
}

func TestSpaceCloneIsIndependent(t *testing.T) {
	sp := NewSpace()
	sp.CreateZone("deck", nil)
	sp.Place("deck", Token{ID: "t1"}, PlaceOpts{})

	clone := sp.Clone()
	clone.ClearZone("deck")

	if len(sp.Zones["deck"].Placements) != 1 {
		t.Fatalf("mutating clone affected original space")
	}
}

func boolPtr(b bool) *bool { return &b }
