package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/utils"
)

// Client talks to the game API gateway. Every call returns tagged errors:
// 304 surfaces as apperror.ErrNotModified, 420/429 as ErrRateLimited and 5xx
// as ErrUnavailable, so callers can branch on errors.Is alone.
type Client interface {
	MarketOrdersRegion(ctx context.Context, regionID int64) ([]MarketOrderRecord, string, error)
	MarketOrdersStructure(ctx context.Context, structureID int64, token string) ([]MarketOrderRecord, string, error)
	CharacterOrders(ctx context.Context, characterID int64, token string) ([]MarketOrderRecord, error)
	CorporationOrders(ctx context.Context, corporationID int64, token string) ([]MarketOrderRecord, error)
	IndustryJobs(ctx context.Context, ownerID int64, corporation bool, token string) ([]IndustryJobRecord, error)
	SystemIndices(ctx context.Context) ([]SystemIndexRecord, error)
	Prices(ctx context.Context) ([]PriceRecord, error)
	Assets(ctx context.Context, ownerID int64, corporation bool, token string) ([]AssetRecord, error)
	Blueprints(ctx context.Context, ownerID int64, corporation bool, token string) ([]BlueprintRecord, error)
	PublicContracts(ctx context.Context, regionID int64, page int) ([]ContractRecord, int, error)
	PublicContractItems(ctx context.Context, contractID int64) ([]ContractItemRecord, error)
}

type client struct {
	base string
	hc   *http.Client
	log  *logger.Logger
}

func NewClient(baseLog *logger.Logger) Client {
	log := baseLog.With("service", "GatewayClient")
	base := utils.GetEnv("GATEWAY_ADDRESS", "http://localhost:8082", log)
	return &client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 60 * time.Second},
		log:  log,
	}
}

// get performs one gateway request and decodes the body into out. The
// returned header is nil on error and exposes paging and etag metadata.
func (c *client) get(ctx context.Context, path string, query url.Values, token, etag string, out any) (http.Header, error) {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apperror.Map("gateway request", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, apperror.Map("gateway request", fmt.Errorf("%s: %w", path, apperror.ErrUnavailable))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return resp.Header, fmt.Errorf("%s: %w", path, apperror.ErrNotModified)
	case resp.StatusCode == 420 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%s: %w", path, apperror.ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", path, apperror.ErrNotFound)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%s: status %d: %w", path, resp.StatusCode, apperror.ErrUnavailable)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, apperror.Map("gateway decode", fmt.Errorf("%s: %w", path, err))
		}
	}
	return resp.Header, nil
}

func ownerKind(corporation bool) string {
	if corporation {
		return "corporations"
	}
	return "characters"
}

func (c *client) MarketOrdersRegion(ctx context.Context, regionID int64) ([]MarketOrderRecord, string, error) {
	var out []MarketOrderRecord
	h, err := c.get(ctx, fmt.Sprintf("/markets/region/%d/orders", regionID), nil, "", "", &out)
	if err != nil {
		return nil, "", err
	}
	return out, h.Get("Etag"), nil
}

func (c *client) MarketOrdersStructure(ctx context.Context, structureID int64, token string) ([]MarketOrderRecord, string, error) {
	var out []MarketOrderRecord
	h, err := c.get(ctx, fmt.Sprintf("/markets/structures/%d", structureID), nil, token, "", &out)
	if err != nil {
		return nil, "", err
	}
	return out, h.Get("Etag"), nil
}

func (c *client) CharacterOrders(ctx context.Context, characterID int64, token string) ([]MarketOrderRecord, error) {
	var out []MarketOrderRecord
	_, err := c.get(ctx, fmt.Sprintf("/characters/%d/orders", characterID), nil, token, "", &out)
	return out, err
}

func (c *client) CorporationOrders(ctx context.Context, corporationID int64, token string) ([]MarketOrderRecord, error) {
	var out []MarketOrderRecord
	_, err := c.get(ctx, fmt.Sprintf("/corporations/%d/orders", corporationID), nil, token, "", &out)
	return out, err
}

func (c *client) IndustryJobs(ctx context.Context, ownerID int64, corporation bool, token string) ([]IndustryJobRecord, error) {
	var out []IndustryJobRecord
	q := url.Values{"include_completed": {"true"}}
	_, err := c.get(ctx, fmt.Sprintf("/%s/%d/industry/jobs", ownerKind(corporation), ownerID), q, token, "", &out)
	return out, err
}

func (c *client) SystemIndices(ctx context.Context) ([]SystemIndexRecord, error) {
	// The gateway flattens the per-activity array into named fields.
	var out []SystemIndexRecord
	_, err := c.get(ctx, "/industry/systems", nil, "", "", &out)
	return out, err
}

func (c *client) Prices(ctx context.Context) ([]PriceRecord, error) {
	var out []PriceRecord
	_, err := c.get(ctx, "/markets/prices", nil, "", "", &out)
	return out, err
}

func (c *client) Assets(ctx context.Context, ownerID int64, corporation bool, token string) ([]AssetRecord, error) {
	var out []AssetRecord
	_, err := c.get(ctx, fmt.Sprintf("/%s/%d/assets", ownerKind(corporation), ownerID), nil, token, "", &out)
	return out, err
}

func (c *client) Blueprints(ctx context.Context, ownerID int64, corporation bool, token string) ([]BlueprintRecord, error) {
	var out []BlueprintRecord
	_, err := c.get(ctx, fmt.Sprintf("/%s/%d/blueprints", ownerKind(corporation), ownerID), nil, token, "", &out)
	return out, err
}

func (c *client) PublicContracts(ctx context.Context, regionID int64, page int) ([]ContractRecord, int, error) {
	if page < 1 {
		page = 1
	}
	var out []ContractRecord
	q := url.Values{"page": {fmt.Sprint(page)}}
	h, err := c.get(ctx, fmt.Sprintf("/contracts/public/%d", regionID), q, "", "", &out)
	if err != nil {
		return nil, 0, err
	}
	pages := 1
	if v := h.Get("X-Pages"); v != "" {
		if _, scanErr := fmt.Sscanf(v, "%d", &pages); scanErr != nil {
			pages = 1
		}
	}
	return out, pages, nil
}

func (c *client) PublicContractItems(ctx context.Context, contractID int64) ([]ContractItemRecord, error) {
	var out []ContractItemRecord
	_, err := c.get(ctx, fmt.Sprintf("/contracts/public/items/%d", contractID), nil, "", "", &out)
	return out, err
}
