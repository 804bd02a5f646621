package capability

import "testing"

func TestResolve(t *testing.T) {
	cases := []struct {
		name   string
		status ExtensionStatus
		want   SearchConfiguration
	}{
		{
			name:   "all extensions",
			status: ExtensionStatus{PgTrgm: true, Unaccent: true, UUIDOSSP: true, FullTextSearchCapable: true},
			want:   SearchConfiguration{UseFullTextSearch: true, UseTrigramSearch: true, UseUnaccent: true},
		},
		{
			name:   "trigram only",
			status: ExtensionStatus{PgTrgm: true},
			want:   SearchConfiguration{UseTrigramSearch: true},
		},
		{
			name:   "full text flag without trigram",
			status: ExtensionStatus{FullTextSearchCapable: true},
			want:   SearchConfiguration{FallbackToILike: true},
		},
		{
			name:   "nothing installed",
			status: ExtensionStatus{},
			want:   SearchConfiguration{FallbackToILike: true},
		},
		{
			name:   "unaccent only",
			status: ExtensionStatus{Unaccent: true},
			want:   SearchConfiguration{UseUnaccent: true, FallbackToILike: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.status); got != tc.want {
				t.Fatalf("Resolve(%+v) = %+v, want %+v", tc.status, got, tc.want)
			}
		})
	}
}

func TestResolveAlwaysYieldsAViableStrategy(t *testing.T) {
	for i := 0; i < 16; i++ {
		status := ExtensionStatus{
			PgTrgm:                i&1 != 0,
			Unaccent:              i&2 != 0,
			UUIDOSSP:              i&4 != 0,
			FullTextSearchCapable: i&8 != 0,
		}
		cfg := Resolve(status)
		if !cfg.UseFullTextSearch && !cfg.UseTrigramSearch && !cfg.FallbackToILike {
			t.Fatalf("Resolve(%+v) left no viable strategy", status)
		}
	}
}

func TestCacheInvalidateResetsToSafeDefault(t *testing.T) {
	c := NewCache(nil)
	c.mu.Lock()
	c.status = ExtensionStatus{PgTrgm: true, FullTextSearchCapable: true}
	c.probed = true
	c.mu.Unlock()

	if !c.Status().PgTrgm {
		t.Fatal("expected seeded status")
	}

	c.Invalidate()
	if c.Status() != (ExtensionStatus{}) {
		t.Fatalf("invalidated cache should report all-false, got %+v", c.Status())
	}
}
