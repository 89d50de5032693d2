package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// PortfolioLine is one valued holding as returned over the wire
type PortfolioLine struct {
	ID           string
	FundName     string
	SchemeCode   string
	NAV          string
	Quantity     int64
	CurrentValue string
}

// Portfolio is an owner's valued holdings
type Portfolio struct {
	Holdings   []PortfolioLine
	TotalValue string
}

// RefreshSummary is the outcome of a remote NAV refresh
type RefreshSummary struct {
	Updated []string
	Failed  map[string]string
}

// ownerTokenTTL is the lifetime of owner tokens signed by the client
const ownerTokenTTL = 5 * time.Minute

// Client calls the fund service over a gRPC connection
type Client struct {
	conn        grpc.ClientConnInterface
	token       string
	ownerSecret []byte
	signOwner   bool
}

// NewClient wraps conn. token is sent as the authorization header when set.
func NewClient(conn grpc.ClientConnInterface, token string) *Client {
	return &Client{conn: conn, token: token}
}

// WithOwnerSecret returns a copy of c that proves owner identity with tokens
// signed by secret instead of a plain owner header
func (c *Client) WithOwnerSecret(secret []byte) *Client {
	clone := *c
	clone.ownerSecret = secret
	clone.signOwner = true
	return &clone
}

func (c *Client) outgoing(ctx context.Context, ownerID string) (context.Context, error) {
	var pairs []string
	if c.token != "" {
		pairs = append(pairs, "authorization", c.token)
	}
	if ownerID != "" {
		if c.signOwner {
			token, err := SignOwnerToken(c.ownerSecret, ownerID, ownerTokenTTL)
			if err != nil {
				return nil, fmt.Errorf("failed to sign owner token: %w", err)
			}
			pairs = append(pairs, OwnerTokenMetadataKey, token)
		} else {
			pairs = append(pairs, OwnerMetadataKey, ownerID)
		}
	}
	if len(pairs) == 0 {
		return ctx, nil
	}
	return metadata.AppendToOutgoingContext(ctx, pairs...), nil
}

func (c *Client) invoke(ctx context.Context, ownerID, method string, req map[string]any) (*structpb.Struct, error) {
	ctx, err := c.outgoing(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	in, err := newStruct(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddHolding records quantity units of schemeCode for ownerID
func (c *Client) AddHolding(ctx context.Context, ownerID, schemeCode string, quantity int64) (*PortfolioLine, error) {
	out, err := c.invoke(ctx, ownerID, AddHoldingMethod, map[string]any{
		"scheme_code": schemeCode,
		"quantity":    float64(quantity),
	})
	if err != nil {
		return nil, err
	}
	line := lineFromMap(out.AsMap())
	return &line, nil
}

// ListPortfolio returns ownerID's valued holdings
func (c *Client) ListPortfolio(ctx context.Context, ownerID string) (*Portfolio, error) {
	out, err := c.invoke(ctx, ownerID, ListPortfolioMethod, map[string]any{})
	if err != nil {
		return nil, err
	}

	m := out.AsMap()
	p := &Portfolio{TotalValue: asString(m["total_value"])}
	if items, ok := m["holdings"].([]any); ok {
		for _, item := range items {
			if hm, ok := item.(map[string]any); ok {
				p.Holdings = append(p.Holdings, lineFromMap(hm))
			}
		}
	}
	return p, nil
}

// ListCatalog returns the provider's raw scheme records
func (c *Client) ListCatalog(ctx context.Context) ([]map[string]any, error) {
	out, err := c.invoke(ctx, "", ListCatalogMethod, map[string]any{})
	if err != nil {
		return nil, err
	}

	var schemes []map[string]any
	if items, ok := out.AsMap()["schemes"].([]any); ok {
		for _, item := range items {
			if sm, ok := item.(map[string]any); ok {
				schemes = append(schemes, sm)
			}
		}
	}
	return schemes, nil
}

// RefreshNAV triggers a batch NAV refresh on the server
func (c *Client) RefreshNAV(ctx context.Context) (*RefreshSummary, error) {
	out, err := c.invoke(ctx, "", RefreshNAVMethod, map[string]any{})
	if err != nil {
		return nil, err
	}

	m := out.AsMap()
	summary := &RefreshSummary{Failed: make(map[string]string)}
	if items, ok := m["updated"].([]any); ok {
		for _, item := range items {
			summary.Updated = append(summary.Updated, asString(item))
		}
	}
	if items, ok := m["failed"].([]any); ok {
		for _, item := range items {
			if fm, ok := item.(map[string]any); ok {
				summary.Failed[asString(fm["scheme_code"])] = asString(fm["reason"])
			}
		}
	}
	return summary, nil
}

func lineFromMap(m map[string]any) PortfolioLine {
	line := PortfolioLine{
		ID:           asString(m["id"]),
		FundName:     asString(m["fund_name"]),
		SchemeCode:   asString(m["scheme_code"]),
		NAV:          asString(m["nav"]),
		CurrentValue: asString(m["current_value"]),
	}
	if q, ok := m["quantity"].(float64); ok {
		line.Quantity = int64(q)
	}
	return line
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
