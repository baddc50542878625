package netchannel

import "testing"

func TestJSONCodecRoundTrips(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	c := JSONCodec{}

	data, err := c.Encode(payload{Name: "ada", Count: 3})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var out payload
	if err := c.Decode(data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Name != "ada" || out.Count != 3 {
		t.Fatalf("decoded = %+v, want {ada 3}", out)
	}
}

func TestCodecForFallsBackToJSONForUnknownNames(t *testing.T) {
	if _, ok := CodecFor("json").(JSONCodec); !ok {
		t.Fatalf("CodecFor(json) did not return JSONCodec")
	}
	if _, ok := CodecFor("bogus").(JSONCodec); !ok {
		t.Fatalf("CodecFor(bogus) did not fall back to JSONCodec")
	}
}
