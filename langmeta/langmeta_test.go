package langmeta

import "testing"

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "pt_br", want: "pt-BR"},
		{in: " EN-us ", want: "en-US"},
		{in: "es", want: "es"},
	}

	for _, tc := range cases {
		got, err := Canonicalize(tc.in)
		if err != nil {
			t.Fatalf("Canonicalize(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "not a tag", "e"} {
		if _, err := Canonicalize(bad); err == nil {
			t.Fatalf("Canonicalize(%q) expected error", bad)
		}
	}
}

func TestFlagFromRegion(t *testing.T) {
	if got := FlagFromRegion("us"); got != "🇺🇸" {
		t.Fatalf("FlagFromRegion(us) = %q, want %q", got, "🇺🇸")
	}
	if got := FlagFromRegion("USA"); got != "" {
		t.Fatalf("FlagFromRegion(USA) = %q, want empty", got)
	}
	if got := FlagFromRegion("1A"); got != "" {
		t.Fatalf("FlagFromRegion(1A) = %q, want empty", got)
	}
}

func TestResolve(t *testing.T) {
	t.Run("explicit region", func(t *testing.T) {
		got := Resolve("es-MX")
		if got.Flag != "🇲🇽" || got.Name == "" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("self name", func(t *testing.T) {
		if got := Resolve("es"); got.Name != "español" {
			t.Fatalf("Resolve(es).Name = %q, want español", got.Name)
		}
		if got := Resolve("en"); got.Name != "English" {
			t.Fatalf("Resolve(en).Name = %q, want English", got.Name)
		}
	})

	t.Run("invalid passthrough", func(t *testing.T) {
		got := Resolve("not a tag")
		if got.Name != "not a tag" || got.Flag != "" {
			t.Fatalf("unexpected invalid result: %#v", got)
		}
	})
}
