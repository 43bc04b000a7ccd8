package voterid

import (
	"reflect"
	"testing"
)

func TestNormalizeVariants(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "   ", nil},
		{"canonical passthrough", "V0012345", []string{"V0012345"}},
		{"lowercase canonical", "v0012345", []string{"V0012345"}},
		{"digit tail padded", "12345", []string{"12345", "V0012345"}},
		{"full digit run", "0012345", []string{"0012345", "V0012345"}},
		{"unpadded with prefix", "V12345", []string{"V12345", "V0012345"}},
		{"too many digits", "123456789", []string{"123456789"}},
		{"test voter exact only", "TEST0001", []string{"TEST0001"}},
		{"non numeric", "JOHNDOE", []string{"JOHNDOE"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.input)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Normalize(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestIsTest(t *testing.T) {
	if !IsTest("TEST0001") {
		t.Fatalf("expected TEST0001 to be a test voter")
	}
	if !IsTest("  test0099 ") {
		t.Fatalf("expected lowercase test vid to be a test voter")
	}
	if IsTest("V0012345") {
		t.Fatalf("did not expect canonical vid to be a test voter")
	}
}

func TestIsCanonical(t *testing.T) {
	if !IsCanonical("V0012345") {
		t.Fatalf("expected V0012345 to be canonical")
	}
	for _, bad := range []string{"V12345", "X0012345", "V00123456", "V00123AB", ""} {
		if IsCanonical(bad) {
			t.Fatalf("expected %q to be non-canonical", bad)
		}
	}
}
