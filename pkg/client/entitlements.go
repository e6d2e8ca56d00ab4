package client

import "context"

// EntitlementService reads the caller's access state
type EntitlementService struct {
	client *Client
}

// Get returns the caller's entitlement without requiring access
func (s *EntitlementService) Get(ctx context.Context) (*Entitlement, error) {
	var ent Entitlement
	if err := s.client.doRequest(ctx, "GET", "/api/v1/user/subscription", nil, &ent); err != nil {
		return nil, err
	}
	return &ent, nil
}

// Profile returns the caller's profile
func (s *EntitlementService) Profile(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := s.client.doRequest(ctx, "GET", "/api/v1/user/profile", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Premium calls the guarded resource. Users without access get an
// APIError: 403 when they never paid, 401 when their plan lapsed.
func (s *EntitlementService) Premium(ctx context.Context) (*Entitlement, error) {
	var ent Entitlement
	if err := s.client.doRequest(ctx, "GET", "/api/v1/premium", nil, &ent); err != nil {
		return nil, err
	}
	return &ent, nil
}
