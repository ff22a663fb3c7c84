package server

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"
)

// domainKey reads the "domain" and "key" fields shared by config and
// version requests.
func domainKey(in *structpb.Struct) (domain, key string, err error) {
	if domain, err = stringField(in, "domain"); err != nil {
		return "", "", err
	}
	if key, err = stringField(in, "key"); err != nil {
		return "", "", err
	}
	return domain, key, nil
}

func reply(fields map[string]any, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(fields)
}

func (s *Server) CreateDomain(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	slug, err := stringField(in, "slug")
	if err != nil {
		return nil, badRequest(err)
	}
	d, err := s.registry.CreateDomain(ctx, slug)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(domainFields(d))
}

func (s *Server) GetDomain(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	slug, err := stringField(in, "slug")
	if err != nil {
		return nil, badRequest(err)
	}
	d, err := s.registry.GetDomain(ctx, slug)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(domainFields(d))
}

func (s *Server) ListDomains(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := s.pageRequest(in)
	if err != nil {
		return nil, badRequest(err)
	}
	page, err := s.registry.ListDomains(ctx, req)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(pageFields(page, domainFields))
}

func (s *Server) DeleteDomain(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	slug, err := stringField(in, "slug")
	if err != nil {
		return nil, badRequest(err)
	}
	return reply(map[string]any{}, s.registry.DeleteDomain(ctx, slug))
}

func (s *Server) CreateConfig(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	domain, key, err := domainKey(in)
	if err != nil {
		return nil, badRequest(err)
	}
	c, err := s.registry.CreateConfig(ctx, domain, key)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(configFields(c))
}

func (s *Server) GetConfig(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	domain, key, err := domainKey(in)
	if err != nil {
		return nil, badRequest(err)
	}
	c, err := s.registry.GetConfig(ctx, domain, key)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(configFields(c))
}

func (s *Server) ListConfigs(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	domain, err := stringField(in, "domain")
	if err != nil {
		return nil, badRequest(err)
	}
	req, err := s.pageRequest(in)
	if err != nil {
		return nil, badRequest(err)
	}
	page, err := s.registry.ListConfigs(ctx, domain, req)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(pageFields(page, configFields))
}

func (s *Server) DeleteConfig(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	domain, key, err := domainKey(in)
	if err != nil {
		return nil, badRequest(err)
	}
	return reply(map[string]any{}, s.registry.DeleteConfig(ctx, domain, key))
}

func (s *Server) CreateVersion(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	domain, key, err := domainKey(in)
	if err != nil {
		return nil, badRequest(err)
	}
	value, err := valueField(in)
	if err != nil {
		return nil, badRequest(err)
	}
	v, err := s.registry.CreateVersion(ctx, domain, key, value)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(versionFields(v))
}

func (s *Server) ListVersions(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	domain, key, err := domainKey(in)
	if err != nil {
		return nil, badRequest(err)
	}
	req, err := s.pageRequest(in)
	if err != nil {
		return nil, badRequest(err)
	}
	page, err := s.registry.ListVersions(ctx, domain, key, req)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(pageFields(page, versionFields))
}

func (s *Server) GetCurrentVersion(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	domain, key, err := domainKey(in)
	if err != nil {
		return nil, badRequest(err)
	}
	v, err := s.registry.GetCurrentVersion(ctx, domain, key)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(versionFields(v))
}

func (s *Server) GetVersion(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	domain, key, err := domainKey(in)
	if err != nil {
		return nil, badRequest(err)
	}
	index, _, err := intField(in, "index")
	if err != nil {
		return nil, badRequest(err)
	}
	v, err := s.registry.GetVersion(ctx, domain, key, index)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(versionFields(v))
}
