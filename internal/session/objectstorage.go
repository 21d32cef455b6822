package session

import (
	"context"
	"fmt"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/objectstorage"

	"github.com/syntrobox/ociq/internal/sandbox"
)

func newObjectStorageClient(provider common.ConfigurationProvider, region string) (sandbox.Object, error) {
	c, err := objectstorage.NewObjectStorageClientWithConfigurationProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("creating object storage client: %w", err)
	}
	if region != "" {
		c.SetRegion(region)
	}

	return &client{service: "object_storage", ops: map[string]operationFunc{
		"get_namespace": func(ctx context.Context, kw kwargs) (any, error) {
			if err := kw.allow("compartment_id"); err != nil {
				return nil, err
			}
			req := objectstorage.GetNamespaceRequest{}
			if v, ok, err := kw.optionalString("compartment_id"); err != nil {
				return nil, err
			} else if ok {
				req.CompartmentId = common.String(v)
			}
			resp, err := c.GetNamespace(ctx, req)
			if err != nil {
				return nil, err
			}
			if resp.Value == nil {
				return "", nil
			}
			return *resp.Value, nil
		},

		"list_buckets": func(ctx context.Context, kw kwargs) (any, error) {
			if err := kw.allow("namespace_name", "compartment_id", "limit", "page"); err != nil {
				return nil, err
			}
			namespaceName, err := kw.requireString("namespace_name")
			if err != nil {
				return nil, err
			}
			compartmentID, err := kw.requireString("compartment_id")
			if err != nil {
				return nil, err
			}
			req := objectstorage.ListBucketsRequest{
				NamespaceName: common.String(namespaceName),
				CompartmentId: common.String(compartmentID),
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
			resp, err := c.ListBuckets(ctx, req)
			if err != nil {
				return nil, err
			}
			return &listResponse{Items: resp.Items, OpcNextPage: resp.OpcNextPage}, nil
		},

		"list_objects": func(ctx context.Context, kw kwargs) (any, error) {
			if err := kw.allow("namespace_name", "bucket_name", "prefix", "limit"); err != nil {
				return nil, err
			}
			namespaceName, err := kw.requireString("namespace_name")
			if err != nil {
				return nil, err
			}
			bucketName, err := kw.requireString("bucket_name")
			if err != nil {
				return nil, err
			}
			req := objectstorage.ListObjectsRequest{
				NamespaceName: common.String(namespaceName),
				BucketName:    common.String(bucketName),
			}
			if v, ok, err := kw.optionalString("prefix"); err != nil {
				return nil, err
			} else if ok {
				req.Prefix = common.String(v)
			}
			if v, ok, err := kw.optionalInt("limit"); err != nil {
				return nil, err
			} else if ok {
				req.Limit = common.Int(v)
			}
			resp, err := c.ListObjects(ctx, req)
			if err != nil {
				return nil, err
			}
			return resp.ListObjects, nil
		},
	}}, nil
}
