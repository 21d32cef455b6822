package session

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/oracle/oci-go-sdk/v65/common"

	"github.com/syntrobox/ociq/internal/sandbox"
)

// The catalog is the static dispatch table behind the sandbox's `oci`
// binding: namespaces resolve to client constructors, constructors resolve
// to clients, and clients resolve to typed bound operations. Dispatch never
// goes through reflection: every reachable operation is a line in a table
// in this package, so the capability surface is auditable by reading it.

// namespace is a read-only attribute bag implementing sandbox.Object.
type namespace struct {
	name  string
	attrs map[string]any
}

func (n *namespace) Attr(name string) (any, error) {
	v, ok := n.attrs[name]
	if !ok {
		return nil, fmt.Errorf("%s has no attribute %q (available: %s)", n.name, name, keyList(n.attrs))
	}
	return v, nil
}

// constructor builds a service client when a snippet calls, for example,
// oci.identity.IdentityClient(config). The config argument is accepted for
// readability but the session's own provider is always used.
type constructor struct {
	name  string
	build func() (sandbox.Object, error)
}

func (c *constructor) Call(_ context.Context, args []any, kwargs map[string]any) (any, error) {
	if len(args) > 1 || len(kwargs) > 0 {
		return nil, fmt.Errorf("%s takes at most the session config argument", c.name)
	}
	return c.build()
}

// client maps operation names to bound, typed SDK calls.
type client struct {
	service string
	ops     map[string]operationFunc
}

func (c *client) Attr(name string) (any, error) {
	fn, ok := c.ops[name]
	if !ok {
		return nil, fmt.Errorf("%s client has no operation %q (available: %s)", c.service, name, opList(c.ops))
	}
	return &operation{name: name, fn: fn}, nil
}

type operationFunc func(ctx context.Context, kw kwargs) (any, error)

// operation is one bound SDK call. Operations take keyword arguments only so
// snippets read the same way the capability schema documents them.
type operation struct {
	name string
	fn   operationFunc
}

func (o *operation) Call(ctx context.Context, args []any, kw map[string]any) (any, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("%s takes keyword arguments only (e.g. %s(compartment_id: ...))", o.name, o.name)
	}
	return o.fn(ctx, kwargs(kw))
}

// listResponse is what list operations hand back to the sandbox: the typed
// item slice and the pagination cursor, without the raw HTTP response.
type listResponse struct {
	Items       any     `json:"items"`
	OpcNextPage *string `json:"opcNextPage,omitempty"`
}

// newCatalog builds the `oci` root object. Called per run so client
// lifetimes never span runs.
func newCatalog(provider common.ConfigurationProvider, region string) sandbox.Object {
	return &namespace{name: "oci", attrs: map[string]any{
		"identity": &namespace{name: "oci.identity", attrs: map[string]any{
			"IdentityClient": &constructor{name: "IdentityClient", build: func() (sandbox.Object, error) {
				return newIdentityClient(provider, region)
			}},
		}},
		"core": &namespace{name: "oci.core", attrs: map[string]any{
			"ComputeClient": &constructor{name: "ComputeClient", build: func() (sandbox.Object, error) {
				return newComputeClient(provider, region)
			}},
			"VirtualNetworkClient": &constructor{name: "VirtualNetworkClient", build: func() (sandbox.Object, error) {
				return newVirtualNetworkClient(provider, region)
			}},
		}},
		"objectstorage": &namespace{name: "oci.objectstorage", attrs: map[string]any{
			"ObjectStorageClient": &constructor{name: "ObjectStorageClient", build: func() (sandbox.Object, error) {
				return newObjectStorageClient(provider, region)
			}},
		}},
	}}
}

func keyList(attrs map[string]any) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

func opList(ops map[string]operationFunc) string {
	keys := make([]string, 0, len(ops))
	for k := range ops {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
