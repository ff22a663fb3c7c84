package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/configmonkey/internal/model"
	"github.com/alfredjeanlab/configmonkey/internal/server"
	"github.com/alfredjeanlab/configmonkey/internal/service"
)

// GRPCClient implements Client using the gRPC transport.
type GRPCClient struct {
	conn *grpc.ClientConn
}

// NewGRPCClient connects to the given gRPC address and returns a client.
// When token is non-empty it is sent as a Bearer token on every call.
func NewGRPCClient(addr, token string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	if token != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(bearerInterceptor(token)))
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{conn: conn}, nil
}

func bearerInterceptor(token string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// call invokes one Registry method with the given request fields.
func (c *GRPCClient) call(ctx context.Context, method string, fields map[string]any) (map[string]*structpb.Value, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+server.RegistryServiceName+"/"+method, in, out); err != nil {
		return nil, fromStatus(err)
	}
	return out.GetFields(), nil
}

// --- Domains ---

func (c *GRPCClient) CreateDomain(ctx context.Context, slug string) (*model.Domain, error) {
	f, err := c.call(ctx, "CreateDomain", map[string]any{"slug": slug})
	if err != nil {
		return nil, err
	}
	return domainFromFields(f)
}

func (c *GRPCClient) GetDomain(ctx context.Context, slug string) (*model.Domain, error) {
	f, err := c.call(ctx, "GetDomain", map[string]any{"slug": slug})
	if err != nil {
		return nil, err
	}
	return domainFromFields(f)
}

func (c *GRPCClient) ListDomains(ctx context.Context, req service.PageRequest) (model.Page[*model.Domain], error) {
	f, err := c.call(ctx, "ListDomains", pageFields(map[string]any{}, req))
	if err != nil {
		return model.Page[*model.Domain]{}, err
	}
	return pageFromFields(f, domainFromFields)
}

func (c *GRPCClient) DeleteDomain(ctx context.Context, slug string) error {
	_, err := c.call(ctx, "DeleteDomain", map[string]any{"slug": slug})
	return err
}

// --- Configs ---

func (c *GRPCClient) CreateConfig(ctx context.Context, domain, key string) (*model.Config, error) {
	f, err := c.call(ctx, "CreateConfig", map[string]any{"domain": domain, "key": key})
	if err != nil {
		return nil, err
	}
	return configFromFields(f)
}

func (c *GRPCClient) GetConfig(ctx context.Context, domain, key string) (*model.Config, error) {
	f, err := c.call(ctx, "GetConfig", map[string]any{"domain": domain, "key": key})
	if err != nil {
		return nil, err
	}
	return configFromFields(f)
}

func (c *GRPCClient) ListConfigs(ctx context.Context, domain string, req service.PageRequest) (model.Page[*model.Config], error) {
	f, err := c.call(ctx, "ListConfigs", pageFields(map[string]any{"domain": domain}, req))
	if err != nil {
		return model.Page[*model.Config]{}, err
	}
	return pageFromFields(f, configFromFields)
}

func (c *GRPCClient) DeleteConfig(ctx context.Context, domain, key string) error {
	_, err := c.call(ctx, "DeleteConfig", map[string]any{"domain": domain, "key": key})
	return err
}

// --- Versions ---

func (c *GRPCClient) CreateVersion(ctx context.Context, domain, key string, value model.Value) (*model.Version, error) {
	text, typ := value.Encode()
	f, err := c.call(ctx, "CreateVersion", map[string]any{
		"domain": domain,
		"key":    key,
		"type":   string(typ),
		"value":  text,
	})
	if err != nil {
		return nil, err
	}
	return versionFromFields(f)
}

func (c *GRPCClient) ListVersions(ctx context.Context, domain, key string, req service.PageRequest) (model.Page[*model.Version], error) {
	f, err := c.call(ctx, "ListVersions", pageFields(map[string]any{"domain": domain, "key": key}, req))
	if err != nil {
		return model.Page[*model.Version]{}, err
	}
	return pageFromFields(f, versionFromFields)
}

func (c *GRPCClient) GetCurrentVersion(ctx context.Context, domain, key string) (*model.Version, error) {
	f, err := c.call(ctx, "GetCurrentVersion", map[string]any{"domain": domain, "key": key})
	if err != nil {
		return nil, err
	}
	return versionFromFields(f)
}

func (c *GRPCClient) GetVersion(ctx context.Context, domain, key string, index int64) (*model.Version, error) {
	f, err := c.call(ctx, "GetVersion", map[string]any{"domain": domain, "key": key, "index": float64(index)})
	if err != nil {
		return nil, err
	}
	return versionFromFields(f)
}

// --- Health ---

// Ping runs the standard gRPC health check against the registry service.
func (c *GRPCClient) Ping(ctx context.Context) error {
	resp, err := grpc_health_v1.NewHealthClient(c.conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: server.RegistryServiceName})
	if err != nil {
		return err
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("server status %s", resp.GetStatus())
	}
	return nil
}

// --- conversion helpers ---

// fromStatus maps a status carrying a registry ErrorInfo back to a
// *service.Error. Other errors are returned unchanged.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != server.ErrorDomain {
			continue
		}
		if kind, ok := service.KindFromCode(info.GetReason()); ok {
			return &service.Error{Kind: kind, Err: err}
		}
	}
	return err
}

func pageFields(fields map[string]any, req service.PageRequest) map[string]any {
	if req.Limit > 0 {
		fields["limit"] = float64(req.Limit)
	}
	if req.Offset > 0 {
		fields["offset"] = float64(req.Offset)
	}
	return fields
}

var errMalformed = errors.New("malformed response")

func str(f map[string]*structpb.Value, name string) (string, error) {
	v, ok := f[name].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: field %q is not a string", errMalformed, name)
	}
	return v.StringValue, nil
}

func num(f map[string]*structpb.Value, name string) (int64, error) {
	v, ok := f[name].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: field %q is not a number", errMalformed, name)
	}
	return int64(v.NumberValue), nil
}

func timestamp(f map[string]*structpb.Value, name string) (time.Time, error) {
	s, err := str(f, name)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: field %q: %v", errMalformed, name, err)
	}
	return t, nil
}

func domainFromFields(f map[string]*structpb.Value) (*model.Domain, error) {
	slug, err := str(f, "slug")
	if err != nil {
		return nil, err
	}
	created, err := timestamp(f, "created_at")
	if err != nil {
		return nil, err
	}
	return &model.Domain{Slug: slug, CreatedAt: created}, nil
}

func configFromFields(f map[string]*structpb.Value) (*model.Config, error) {
	key, err := str(f, "key")
	if err != nil {
		return nil, err
	}
	created, err := timestamp(f, "created_at")
	if err != nil {
		return nil, err
	}
	return &model.Config{Key: key, CreatedAt: created}, nil
}

func versionFromFields(f map[string]*structpb.Value) (*model.Version, error) {
	index, err := num(f, "index")
	if err != nil {
		return nil, err
	}
	typ, err := str(f, "type")
	if err != nil {
		return nil, err
	}
	text, err := str(f, "value")
	if err != nil {
		return nil, err
	}
	value, err := model.DecodeValue(model.ValueType(typ), text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	created, err := timestamp(f, "created_at")
	if err != nil {
		return nil, err
	}
	return &model.Version{Index: index, Value: value, CreatedAt: created}, nil
}

func pageFromFields[T any](f map[string]*structpb.Value, conv func(map[string]*structpb.Value) (T, error)) (model.Page[T], error) {
	var page model.Page[T]
	list, ok := f["items"].GetKind().(*structpb.Value_ListValue)
	if !ok {
		return page, fmt.Errorf("%w: field %q is not a list", errMalformed, "items")
	}
	page.Items = make([]T, 0, len(list.ListValue.GetValues()))
	for _, v := range list.ListValue.GetValues() {
		item, err := conv(v.GetStructValue().GetFields())
		if err != nil {
			return model.Page[T]{}, err
		}
		page.Items = append(page.Items, item)
	}
	for name, dst := range map[string]*int{"count": &page.Count, "limit": &page.Limit, "offset": &page.Offset} {
		n, err := num(f, name)
		if err != nil {
			return model.Page[T]{}, err
		}
		*dst = int(n)
	}
	for name, dst := range map[string]**int{"next_offset": &page.NextOffset, "prev_offset": &page.PrevOffset} {
		if _, ok := f[name]; !ok {
			continue
		}
		n, err := num(f, name)
		if err != nil {
			return model.Page[T]{}, err
		}
		i := int(n)
		*dst = &i
	}
	return page, nil
}
