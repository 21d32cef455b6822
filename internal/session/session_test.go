package session

import (
	"context"
	"strings"
	"testing"

	"github.com/syntrobox/ociq/internal/sandbox"
)

func TestCatalogNamespaceResolution(t *testing.T) {
	root := newCatalog(nil, "")

	identity, err := root.Attr("identity")
	if err != nil {
		t.Fatalf("Attr(identity) error = %v", err)
	}
	ns, ok := identity.(*namespace)
	if !ok {
		t.Fatalf("Attr(identity) = %T, want *namespace", identity)
	}
	ctor, err := ns.Attr("IdentityClient")
	if err != nil {
		t.Fatalf("Attr(IdentityClient) error = %v", err)
	}
	if _, ok := ctor.(*constructor); !ok {
		t.Fatalf("Attr(IdentityClient) = %T, want *constructor", ctor)
	}
}

func TestCatalogUnknownAttrListsAvailable(t *testing.T) {
	root := newCatalog(nil, "")

	_, err := root.Attr("database")
	if err == nil {
		t.Fatal("Attr(database) succeeded, want error")
	}
	for _, want := range []string{"core", "identity", "objectstorage"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestConstructorRejectsExtraArguments(t *testing.T) {
	fake := &client{service: "fake", ops: map[string]operationFunc{}}
	ctor := &constructor{name: "FakeClient", build: func() (sandbox.Object, error) {
		return fake, nil
	}}

	if _, err := ctor.Call(context.Background(), []any{"a", "b"}, nil); err == nil {
		t.Error("two positional args accepted, want error")
	}
	if _, err := ctor.Call(context.Background(), nil, map[string]any{"x": 1}); err == nil {
		t.Error("keyword args accepted, want error")
	}
	got, err := ctor.Call(context.Background(), []any{map[string]any{}}, nil)
	if err != nil {
		t.Fatalf("Call with config arg error = %v", err)
	}
	if got != sandbox.Object(fake) {
		t.Errorf("Call = %v, want the built client", got)
	}
}

func TestOperationIsKeywordOnly(t *testing.T) {
	var seen kwargs
	c := &client{service: "fake", ops: map[string]operationFunc{
		"list_things": func(_ context.Context, kw kwargs) (any, error) {
			seen = kw
			return "ok", nil
		},
	}}

	v, err := c.Attr("list_things")
	if err != nil {
		t.Fatalf("Attr(list_things) error = %v", err)
	}
	op, ok := v.(sandbox.Callable)
	if !ok {
		t.Fatalf("Attr(list_things) = %T, want sandbox.Callable", v)
	}

	if _, err := op.Call(context.Background(), []any{"positional"}, nil); err == nil {
		t.Error("positional argument accepted, want error")
	}
	got, err := op.Call(context.Background(), nil, map[string]any{"compartment_id": "ocid1"})
	if err != nil {
		t.Fatalf("Call error = %v", err)
	}
	if got != "ok" {
		t.Errorf("Call = %v, want ok", got)
	}
	if seen["compartment_id"] != "ocid1" {
		t.Errorf("kwargs = %v, want compartment_id passed through", seen)
	}
}

func TestClientUnknownOperation(t *testing.T) {
	c := &client{service: "compute", ops: map[string]operationFunc{
		"list_instances": nil,
		"get_instance":   nil,
	}}
	_, err := c.Attr("terminate_instance")
	if err == nil {
		t.Fatal("Attr(terminate_instance) succeeded, want error")
	}
	if !strings.Contains(err.Error(), "get_instance, list_instances") {
		t.Errorf("error %q does not list available operations in order", err)
	}
}

func TestKwargsAllow(t *testing.T) {
	kw := kwargs{"compartment_id": "ocid1", "limit": int64(10)}
	if err := kw.allow("compartment_id", "limit", "page"); err != nil {
		t.Errorf("allow error = %v, want nil", err)
	}

	kw["lifecycle_state"] = "RUNNING"
	err := kw.allow("compartment_id", "limit")
	if err == nil {
		t.Fatal("allow accepted unknown argument, want error")
	}
	if !strings.Contains(err.Error(), "lifecycle_state") {
		t.Errorf("error %q does not name the unknown argument", err)
	}
}

func TestKwargsHelpers(t *testing.T) {
	kw := kwargs{
		"name":   "demo",
		"empty":  "",
		"count":  int64(3),
		"deep":   true,
		"badint": "ten",
	}

	if v, err := kw.requireString("name"); err != nil || v != "demo" {
		t.Errorf("requireString(name) = %q, %v", v, err)
	}
	if _, err := kw.requireString("missing"); err == nil {
		t.Error("requireString(missing) = nil error")
	}
	if _, err := kw.requireString("empty"); err == nil {
		t.Error("requireString(empty) = nil error")
	}

	if v, ok, err := kw.optionalString("name"); err != nil || !ok || v != "demo" {
		t.Errorf("optionalString(name) = %q, %v, %v", v, ok, err)
	}
	if _, ok, err := kw.optionalString("missing"); err != nil || ok {
		t.Errorf("optionalString(missing) = _, %v, %v", ok, err)
	}

	if v, ok, err := kw.optionalInt("count"); err != nil || !ok || v != 3 {
		t.Errorf("optionalInt(count) = %d, %v, %v", v, ok, err)
	}
	if _, _, err := kw.optionalInt("badint"); err == nil {
		t.Error("optionalInt(badint) = nil error")
	}

	if v, ok, err := kw.optionalBool("deep"); err != nil || !ok || !v {
		t.Errorf("optionalBool(deep) = %v, %v, %v", v, ok, err)
	}
	if _, _, err := kw.optionalBool("name"); err == nil {
		t.Error("optionalBool(name) = nil error")
	}
}
