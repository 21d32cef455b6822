package session

import (
	"context"
	"fmt"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"

	"github.com/syntrobox/ociq/internal/sandbox"
)

func newVirtualNetworkClient(provider common.ConfigurationProvider, region string) (sandbox.Object, error) {
	c, err := core.NewVirtualNetworkClientWithConfigurationProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("creating virtual network client: %w", err)
	}
	if region != "" {
		c.SetRegion(region)
	}

	return &client{service: "virtual_network", ops: map[string]operationFunc{
		"list_vcns": func(ctx context.Context, kw kwargs) (any, error) {
			if err := kw.allow("compartment_id", "limit", "page"); err != nil {
				return nil, err
			}
			compartmentID, err := kw.requireString("compartment_id")
			if err != nil {
				return nil, err
			}
			req := core.ListVcnsRequest{CompartmentId: common.String(compartmentID)}
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
			resp, err := c.ListVcns(ctx, req)
			if err != nil {
				return nil, err
			}
			return &listResponse{Items: resp.Items, OpcNextPage: resp.OpcNextPage}, nil
		},

		"get_vcn": func(ctx context.Context, kw kwargs) (any, error) {
			if err := kw.allow("vcn_id"); err != nil {
				return nil, err
			}
			vcnID, err := kw.requireString("vcn_id")
			if err != nil {
				return nil, err
			}
			resp, err := c.GetVcn(ctx, core.GetVcnRequest{VcnId: common.String(vcnID)})
			if err != nil {
				return nil, err
			}
			return resp.Vcn, nil
		},

		"list_subnets": func(ctx context.Context, kw kwargs) (any, error) {
			if err := kw.allow("compartment_id", "vcn_id", "limit", "page"); err != nil {
				return nil, err
			}
			compartmentID, err := kw.requireString("compartment_id")
			if err != nil {
				return nil, err
			}
			req := core.ListSubnetsRequest{CompartmentId: common.String(compartmentID)}
			if v, ok, err := kw.optionalString("vcn_id"); err != nil {
				return nil, err
			} else if ok {
				req.VcnId = common.String(v)
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
			resp, err := c.ListSubnets(ctx, req)
			if err != nil {
				return nil, err
			}
			return &listResponse{Items: resp.Items, OpcNextPage: resp.OpcNextPage}, nil
		},
	}}, nil
}
