package capability

import (
	"testing"

	"github.com/syntrobox/ociq/internal/querylang"
)

func TestDefault_AllowsOCIReadCalls(t *testing.T) {
	wl := Default()

	if !wl.ModuleAllowed("oci") {
		t.Error("module oci not allowed, want allowed")
	}
	if wl.ModuleAllowed("subprocess") {
		t.Error("module subprocess allowed, want denied")
	}

	cases := []struct {
		recv   Receiver
		member string
		want   bool
	}{
		{ReceiverObject, "list_compartments", true},
		{ReceiverObject, "get_instance", true},
		{ReceiverObject, "instance_action", true},
		{ReceiverObject, "delete_bucket", false},
		{ReceiverObject, "terminate_instance", false},
		{ReceiverModule, "IdentityClient", true},
		{ReceiverBuiltin, "len", true},
		{ReceiverBuiltin, "eval", false},
		{ReceiverBuiltin, "open", false},
	}
	for _, tc := range cases {
		if got := wl.CallAllowed(tc.recv, tc.member); got != tc.want {
			t.Errorf("CallAllowed(%s, %s) = %v, want %v", tc.recv, tc.member, got, tc.want)
		}
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	if _, err := New(Config{AllowedModules: []string{""}}); err == nil {
		t.Error("empty module name accepted, want error")
	}
	if _, err := New(Config{AllowedCalls: []CallPattern{{Receiver: "service", Member: "x"}}}); err == nil {
		t.Error("unknown receiver accepted, want error")
	}
	if _, err := New(Config{AllowedCalls: []CallPattern{{Receiver: ReceiverObject, Member: "[bad"}}}); err == nil {
		t.Error("malformed glob accepted, want error")
	}
}

func TestForbiddenKinds(t *testing.T) {
	wl, err := New(Config{
		AllowedModules: []string{"oci"},
		ForbiddenKinds: []string{"while", "import"},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !wl.KindForbidden(querylang.KindWhile) {
		t.Error("while not forbidden, want forbidden")
	}
	if wl.KindForbidden(querylang.KindFor) {
		t.Error("for forbidden, want allowed")
	}
}

func TestDescribe_StableOrdering(t *testing.T) {
	wl, err := New(Config{
		Version:        "v2",
		AllowedModules: []string{"zeta", "oci", "alpha"},
		AllowedCalls: []CallPattern{
			{Receiver: ReceiverObject, Member: "list_*"},
			{Receiver: ReceiverBuiltin, Member: "len"},
		},
		Builtins: []string{"str", "len"},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	first := wl.Describe()
	second := wl.Describe()

	if first.Version != "v2" {
		t.Errorf("version = %q, want v2", first.Version)
	}
	if got, want := first.AllowedModules[0], "alpha"; got != want {
		t.Errorf("first module = %q, want %q", got, want)
	}
	if got, want := first.AllowedCalls[0].Receiver, ReceiverBuiltin; got != want {
		t.Errorf("first pattern receiver = %q, want %q", got, want)
	}
	for i := range first.AllowedModules {
		if first.AllowedModules[i] != second.AllowedModules[i] {
			t.Fatalf("Describe not stable across calls: %v vs %v", first.AllowedModules, second.AllowedModules)
		}
	}
}
