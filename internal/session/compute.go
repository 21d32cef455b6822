package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"

	"github.com/syntrobox/ociq/internal/sandbox"
)

func newComputeClient(provider common.ConfigurationProvider, region string) (sandbox.Object, error) {
	c, err := core.NewComputeClientWithConfigurationProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("creating compute client: %w", err)
	}
	if region != "" {
		c.SetRegion(region)
	}

	return &client{service: "compute", ops: map[string]operationFunc{
		"list_instances": func(ctx context.Context, kw kwargs) (any, error) {
			if err := kw.allow("compartment_id", "availability_domain", "lifecycle_state", "display_name", "limit", "page"); err != nil {
				return nil, err
			}
			compartmentID, err := kw.requireString("compartment_id")
			if err != nil {
				return nil, err
			}
			req := core.ListInstancesRequest{CompartmentId: common.String(compartmentID)}
			if v, ok, err := kw.optionalString("availability_domain"); err != nil {
				return nil, err
			} else if ok {
				req.AvailabilityDomain = common.String(v)
			}
			if v, ok, err := kw.optionalString("lifecycle_state"); err != nil {
				return nil, err
			} else if ok {
				req.LifecycleState = core.InstanceLifecycleStateEnum(strings.ToUpper(v))
			}
			if v, ok, err := kw.optionalString("display_name"); err != nil {
				return nil, err
			} else if ok {
				req.DisplayName = common.String(v)
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
			resp, err := c.ListInstances(ctx, req)
			if err != nil {
				return nil, err
			}
			return &listResponse{Items: resp.Items, OpcNextPage: resp.OpcNextPage}, nil
		},

		"get_instance": func(ctx context.Context, kw kwargs) (any, error) {
			if err := kw.allow("instance_id"); err != nil {
				return nil, err
			}
			instanceID, err := kw.requireString("instance_id")
			if err != nil {
				return nil, err
			}
			resp, err := c.GetInstance(ctx, core.GetInstanceRequest{InstanceId: common.String(instanceID)})
			if err != nil {
				return nil, err
			}
			return resp.Instance, nil
		},

		// instance_action covers the lifecycle verbs: START, STOP, RESET,
		// SOFTSTOP, SOFTRESET.
		"instance_action": func(ctx context.Context, kw kwargs) (any, error) {
			if err := kw.allow("instance_id", "action"); err != nil {
				return nil, err
			}
			instanceID, err := kw.requireString("instance_id")
			if err != nil {
				return nil, err
			}
			action, err := kw.requireString("action")
			if err != nil {
				return nil, err
			}
			actionEnum := core.InstanceActionActionEnum(strings.ToUpper(action))
			if _, ok := core.GetMappingInstanceActionActionEnum(string(actionEnum)); !ok {
				return nil, fmt.Errorf("unknown instance action %q", action)
			}
			resp, err := c.InstanceAction(ctx, core.InstanceActionRequest{
				InstanceId: common.String(instanceID),
				Action:     actionEnum,
			})
			if err != nil {
				return nil, err
			}
			return resp.Instance, nil
		},

		"list_vnic_attachments": func(ctx context.Context, kw kwargs) (any, error) {
			if err := kw.allow("compartment_id", "instance_id", "limit"); err != nil {
				return nil, err
			}
			compartmentID, err := kw.requireString("compartment_id")
			if err != nil {
				return nil, err
			}
			req := core.ListVnicAttachmentsRequest{CompartmentId: common.String(compartmentID)}
			if v, ok, err := kw.optionalString("instance_id"); err != nil {
				return nil, err
			} else if ok {
				req.InstanceId = common.String(v)
			}
			if v, ok, err := kw.optionalInt("limit"); err != nil {
				return nil, err
			} else if ok {
				req.Limit = common.Int(v)
			}
			resp, err := c.ListVnicAttachments(ctx, req)
			if err != nil {
				return nil, err
			}
			return &listResponse{Items: resp.Items, OpcNextPage: resp.OpcNextPage}, nil
		},
	}}, nil
}
