package ledger

import (
	"testing"
)

func TestParseTypeTag(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want TypeTag
		ok   bool
	}{
		{
			name: "plain",
			raw:  "0x2::sui::SUI",
			want: TypeTag{Package: "0x2", Module: "sui", Name: "SUI"},
			ok:   true,
		},
		{
			name: "generic",
			raw:  "0xfeed::lending::Pool<0x2::sui::SUI>",
			want: TypeTag{Package: "0xfeed", Module: "lending", Name: "Pool", Params: []string{"0x2::sui::SUI"}},
			ok:   true,
		},
		{
			name: "nested generic kept whole",
			raw:  "0xfeed::lending::Pool<0xa::wrap::W<0x2::sui::SUI>, 0xb::x::Y>",
			want: TypeTag{
				Package: "0xfeed", Module: "lending", Name: "Pool",
				Params: []string{"0xa::wrap::W<0x2::sui::SUI>", "0xb::x::Y"},
			},
			ok: true,
		},
		{name: "empty", raw: "", ok: false},
		{name: "missing name", raw: "0x2::sui", ok: false},
		{name: "unterminated generic", raw: "0xfeed::lending::Pool<0x2::sui::SUI", ok: false},
		{name: "package without address prefix", raw: "sui::sui::SUI", ok: false},
		{name: "blank segment", raw: "0x2::::SUI", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTypeTag(tc.raw)
			if !tc.ok {
				if err == nil {
					t.Fatalf("expected error for %q, got %+v", tc.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTypeTag(%q): %v", tc.raw, err)
			}
			if got.String() != tc.want.String() {
				t.Fatalf("ParseTypeTag(%q) = %+v, want %+v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestCoinsSortedIsStable(t *testing.T) {
	set := Coins{
		{ID: "0xc", Amount: 20},
		{ID: "0xa", Amount: 20},
		{ID: "0xb", Amount: 5},
	}
	sorted := set.Sorted()

	want := []ObjectID{"0xb", "0xa", "0xc"}
	for i, id := range want {
		if sorted[i].ID != id {
			t.Fatalf("position %d: got %s, want %s (%+v)", i, sorted[i].ID, id, sorted)
		}
	}
	if set[0].ID != "0xc" {
		t.Fatalf("Sorted must not mutate the receiver, got %+v", set)
	}
}

func TestCoinsTotal(t *testing.T) {
	if got := (Coins{}).Total(); got != 0 {
		t.Fatalf("empty set totals %d", got)
	}
	set := Coins{{ID: "0xa", Amount: 3}, {ID: "0xb", Amount: 4}}
	if got := set.Total(); got != 7 {
		t.Fatalf("got %d, want 7", got)
	}
}
