package session

import (
	"context"
	"fmt"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/identity"

	"github.com/syntrobox/ociq/internal/sandbox"
)

func newIdentityClient(provider common.ConfigurationProvider, region string) (sandbox.Object, error) {
	c, err := identity.NewIdentityClientWithConfigurationProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("creating identity client: %w", err)
	}
	if region != "" {
		c.SetRegion(region)
	}

	return &client{service: "identity", ops: map[string]operationFunc{
		"list_compartments": func(ctx context.Context, kw kwargs) (any, error) {
			if err := kw.allow("compartment_id", "compartment_id_in_subtree", "limit", "page"); err != nil {
				return nil, err
			}
			compartmentID, err := kw.requireString("compartment_id")
			if err != nil {
				return nil, err
			}
			req := identity.ListCompartmentsRequest{CompartmentId: common.String(compartmentID)}
			if v, ok, err := kw.optionalBool("compartment_id_in_subtree"); err != nil {
				return nil, err
			} else if ok {
				req.CompartmentIdInSubtree = common.Bool(v)
			}
			if v, ok, err := kw.optionalInt("limit"); err != nil {
				return nil, err
			} else if ok {
				req.Limit = common.Int(v)
			}
			if v, ok, err := kw.optionalString("page"); err != nil {
				return nil, err
			} else if ok {
				req.Page = common.String(v)
			}
			resp, err := c.ListCompartments(ctx, req)
			if err != nil {
				return nil, err
			}
			return &listResponse{Items: resp.Items, OpcNextPage: resp.OpcNextPage}, nil
		},

		"get_compartment": func(ctx context.Context, kw kwargs) (any, error) {
			if err := kw.allow("compartment_id"); err != nil {
				return nil, err
			}
			compartmentID, err := kw.requireString("compartment_id")
			if err != nil {
				return nil, err
			}
			resp, err := c.GetCompartment(ctx, identity.GetCompartmentRequest{
				CompartmentId: common.String(compartmentID),
			})
			if err != nil {
				return nil, err
			}
			return resp.Compartment, nil
		},

		"list_availability_domains": func(ctx context.Context, kw kwargs) (any, error) {
			if err := kw.allow("compartment_id"); err != nil {
				return nil, err
			}
			compartmentID, err := kw.requireString("compartment_id")
			if err != nil {
				return nil, err
			}
			resp, err := c.ListAvailabilityDomains(ctx, identity.ListAvailabilityDomainsRequest{
				CompartmentId: common.String(compartmentID),
			})
			if err != nil {
				return nil, err
			}
			return &listResponse{Items: resp.Items}, nil
		},

		"list_users": func(ctx context.Context, kw kwargs) (any, error) {
			if err := kw.allow("compartment_id", "limit", "page"); err != nil {
				return nil, err
			}
			compartmentID, err := kw.requireString("compartment_id")
			if err != nil {
				return nil, err
			}
			req := identity.ListUsersRequest{CompartmentId: common.String(compartmentID)}
			if v, ok, err := kw.optionalInt("limit"); err != nil {
				return nil, err
			} else if ok {
				req.Limit = common.Int(v)
			}
			if v, ok, err := kw.optionalString("page"); err != nil {
				return nil, err
			} else if ok {
				req.Page = common.String(v)
			}
			resp, err := c.ListUsers(ctx, req)
			if err != nil {
				return nil, err
			}
			return &listResponse{Items: resp.Items, OpcNextPage: resp.OpcNextPage}, nil
		},

		"list_regions": func(ctx context.Context, kw kwargs) (any, error) {
			if err := kw.allow(); err != nil {
				return nil, err
			}
			resp, err := c.ListRegions(ctx)
			if err != nil {
				return nil, err
			}
			return &listResponse{Items: resp.Items}, nil
		},
	}}, nil
}
