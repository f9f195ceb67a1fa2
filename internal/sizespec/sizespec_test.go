package sizespec_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nnetctl/internal/failure"
	"nnetctl/internal/sizespec"
)

func TestHalveMinibatchSizeStr(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"64", "32"},
		{"64,16:32", "32,8:16"},
		{"1", "1"},
		{"3,1:2", "1,1:1"},
		{"128=64/256=40,80:100", "128=32/256=20,40:50"},
		{"300=1", "300=1"},
	}
	for _, tc := range cases {
		got, err := sizespec.HalveMinibatchSizeStr(tc.in)
		if err != nil {
			t.Fatalf("HalveMinibatchSizeStr(%q) returned error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("HalveMinibatchSizeStr(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHalveMinibatchSizeStrRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "0", "abc", "128=64/256", "64:32", "a=16"} {
		_, err := sizespec.HalveMinibatchSizeStr(in)
		if !errors.Is(err, failure.ErrInvalidSpec) {
			t.Fatalf("HalveMinibatchSizeStr(%q) error = %v, want ErrInvalidSpec", in, err)
		}
	}
}

func TestHalvingPreservesValidity(t *testing.T) {
	inputs := []string{
		"1", "2", "256", "128,256", "64:128,256", "1:1", "1:3,7",
		"128=64:128/256=32,64", "40=1/80=2:3/200=512",
	}
	for _, in := range inputs {
		current := in
		for range 12 {
			halved, err := sizespec.HalveMinibatchSizeStr(current)
			if err != nil {
				t.Fatalf("halve %q: %v", current, err)
			}
			if !sizespec.ValidateMinibatchSizeStr(halved) {
				t.Fatalf("halving %q produced invalid %q", current, halved)
			}
			current = halved
		}
	}
}

func TestHalveRangeStrFloor(t *testing.T) {
	got, err := sizespec.HalveRangeStr("1")
	if err != nil {
		t.Fatalf("HalveRangeStr returned error: %v", err)
	}
	if got != "1" {
		t.Fatalf("HalveRangeStr(\"1\") = %q, want \"1\"", got)
	}
	got, err = sizespec.HalveRangeStr("64:64,5")
	if err != nil {
		t.Fatalf("HalveRangeStr returned error: %v", err)
	}
	if got != "32:32,2" {
		t.Fatalf("HalveRangeStr kept structure incorrectly: %q", got)
	}
}

func TestValidateMinibatchSizeStr(t *testing.T) {
	cases := []struct {
		in    string
		valid bool
	}{
		{"256", true},
		{"128,256", true},
		{"64:128,256", true},
		{"128=64:128/256=32,64", true},
		{"128=64", true},
		{"0", false},
		{"-4", false},
		{"", false},
		{"128:64", false},
		{"1:2:3", false},
		{"128=64/256", false},
		{"64/128", false},
		{"128=64=32", false},
		{"0=64", false},
		{"x=64", false},
		{"128=", false},
		{"128=64/", false},
		{"128 = 64, 128", true},
	}
	for _, tc := range cases {
		if got := sizespec.ValidateMinibatchSizeStr(tc.in); got != tc.valid {
			t.Fatalf("ValidateMinibatchSizeStr(%q) = %v, want %v", tc.in, got, tc.valid)
		}
	}
}

func TestValidateRangeStr(t *testing.T) {
	cases := map[string]bool{
		"128":        true,
		"128,256":    true,
		"64:128,256": true,
		"5:5":        true,
		"0:5":        false,
		"6:5":        false,
		"5,":         false,
		"a":          false,
		"128, 256":   true,
		" 64 : 128 ": true,
		"12 8":       false,
	}
	for in, want := range cases {
		if got := sizespec.ValidateRangeStr(in); got != want {
			t.Fatalf("ValidateRangeStr(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestValidateChunkWidth(t *testing.T) {
	cases := map[string]bool{
		"64":        true,
		"64,25,128": true,
		"0,5":       false,
		"":          false,
		"20,":       false,
		"1.5":       false,
		"20, 30":    true,
		" ":         false,
	}
	for in, want := range cases {
		if got := sizespec.ValidateChunkWidth(in); got != want {
			t.Fatalf("ValidateChunkWidth(%q) = %v, want %v", in, got, want)
		}
	}
	if sizespec.ValidChunkWidthValue(5) {
		t.Fatal("expected non-string chunk width to be invalid")
	}
	if !sizespec.ValidChunkWidthValue("20") {
		t.Fatal("expected string chunk width to be valid")
	}
}

func TestPrincipalChunkWidth(t *testing.T) {
	got, err := sizespec.PrincipalChunkWidth("50,70,40")
	if err != nil {
		t.Fatalf("PrincipalChunkWidth returned error: %v", err)
	}
	if got != 50 {
		t.Fatalf("PrincipalChunkWidth = %d, want 50", got)
	}
	if _, err := sizespec.PrincipalChunkWidth("0,5"); !errors.Is(err, failure.ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec, got %v", err)
	}
}

func TestParseMinibatchSizeRules(t *testing.T) {
	spec, err := sizespec.ParseMinibatchSize("128=64:128/256=32,64")
	if err != nil {
		t.Fatalf("ParseMinibatchSize returned error: %v", err)
	}
	if spec.IsFlat() {
		t.Fatal("expected rule spec")
	}
	want := []sizespec.Rule{
		{Length: 128, Sizes: sizespec.RangeSet{{Lo: 64, Hi: 128, Pair: true}}},
		{Length: 256, Sizes: sizespec.RangeSet{{Lo: 32, Hi: 32}, {Lo: 64, Hi: 64}}},
	}
	if diff := cmp.Diff(want, spec.Rules()); diff != "" {
		t.Fatalf("rules mismatch (-want +got):\n%s", diff)
	}
	if spec.String() != "128=64:128/256=32,64" {
		t.Fatalf("String() = %q", spec.String())
	}
}

func TestSizeForChoosesClosestLength(t *testing.T) {
	spec, err := sizespec.ParseMinibatchSize("100=64/200=32/400=16")
	if err != nil {
		t.Fatalf("ParseMinibatchSize returned error: %v", err)
	}
	cases := map[int]string{
		10:  "64",
		149: "64",
		150: "64",
		151: "32",
		390: "16",
		900: "16",
	}
	for length, want := range cases {
		if got := spec.SizeFor(length).String(); got != want {
			t.Fatalf("SizeFor(%d) = %q, want %q", length, got, want)
		}
	}

	flat, err := sizespec.ParseMinibatchSize("128,256")
	if err != nil {
		t.Fatalf("ParseMinibatchSize returned error: %v", err)
	}
	if got := flat.SizeFor(17).Max(); got != 256 {
		t.Fatalf("flat SizeFor max = %d, want 256", got)
	}
}
