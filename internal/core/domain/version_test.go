package domain_test

import (
	"errors"
	"testing"

	"go.trai.ch/depot/internal/core/domain"
)

func TestParseVersion(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"1.2.3", "1.2.3"},
		{"0.0.1", "0.0.1"},
		{"1.2.3-rc.1", "1.2.3-rc.1"},
		{"1.2.3-rc.1+build.5", "1.2.3-rc.1+build.5"},
		{"  1.2.3 ", "1.2.3"},
		// Registry revision form: the trailing segment is a revision, not a
		// prerelease.
		{"3.0-1", "3.0.1"},
		{"10.4-2", "10.4.2"},
	}
	for _, tc := range cases {
		v, err := domain.ParseVersion(tc.input)
		if err != nil {
			t.Errorf("ParseVersion(%q): unexpected error: %v", tc.input, err)
			continue
		}
		if v.String() != tc.want {
			t.Errorf("ParseVersion(%q) = %q, want %q", tc.input, v, tc.want)
		}
	}
}

func TestParseVersion_Rejects(t *testing.T) {
	for _, input := range []string{"", "abc", "1.2", "1.2.3.4", "v1.2.3", "1.2.3-", "1.2.3-rc..1"} {
		_, err := domain.ParseVersion(input)
		if err == nil {
			t.Errorf("ParseVersion(%q): expected error, got nil", input)
			continue
		}
		if !errors.Is(err, domain.ErrVersionParse) {
			t.Errorf("ParseVersion(%q): error %v does not wrap ErrVersionParse", input, err)
		}
	}
}

func TestVersion_Ordering(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "2.0.0", -1},
		{"1.2.0", "1.10.0", -1},
		{"1.2.3", "1.2.3", 0},
		// A release outranks any prerelease of the same triple.
		{"1.0.0-rc.1", "1.0.0", -1},
		{"1.0.0-alpha", "1.0.0-alpha.1", -1},
		{"1.0.0-alpha.1", "1.0.0-beta", -1},
		{"1.0.0-rc.2", "1.0.0-rc.10", -1},
		// Build metadata does not participate in precedence.
		{"1.0.0+a", "1.0.0+b", 0},
	}
	for _, tc := range cases {
		a, b := domain.MustVersion(tc.a), domain.MustVersion(tc.b)
		if got := a.Compare(b); got != tc.want {
			t.Errorf("Compare(%s, %s) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
		if got := b.Compare(a); got != -tc.want {
			t.Errorf("Compare(%s, %s) = %d, want %d", tc.b, tc.a, got, -tc.want)
		}
	}
}

func TestVersion_TextRoundTrip(t *testing.T) {
	orig := domain.MustVersion("1.2.3-rc.1")
	text, err := orig.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}

	var parsed domain.Version
	if err := parsed.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText(%q): %v", text, err)
	}
	if !parsed.Equal(orig) {
		t.Errorf("round trip changed version: %s != %s", parsed, orig)
	}
}

func TestVersion_IsZero(t *testing.T) {
	var zero domain.Version
	if !zero.IsZero() {
		t.Error("zero Version should report IsZero")
	}
	if zero.String() != "" {
		t.Errorf("zero Version String() = %q, want empty", zero.String())
	}
	if domain.MustVersion("1.0.0").IsZero() {
		t.Error("parsed version should not report IsZero")
	}
}
