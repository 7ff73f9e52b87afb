// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"go.uber.org/zap"

	"github.com/pdiddy/gift-engine/pkg/types"
)

// amazonAPIBase overrides the PA-API endpoint derived from the configured
// host. Declared as a var so tests can substitute an httptest server.
var amazonAPIBase = ""

const (
	amazonService     = "ProductAdvertisingAPI"
	amazonTargetBase  = "com.amazon.paapi5.v1.ProductAdvertisingAPIv1."
	amazonMaxItems    = 10
	amazonNoResults   = "NoResults"
	amazonPartnerType = "Associates"
)

var amazonResources = []string{
	"ItemInfo.Title",
	"ItemInfo.Features",
	"ItemInfo.Classifications",
	"Images.Primary.Large",
	"Offers.Listings.Price",
	"Offers.Listings.Availability",
	"CustomerReviews.StarRating",
	"CustomerReviews.Count",
}

// AmazonAdapter queries the Amazon Product Advertising API 5.0. Requests
// are signed with AWS Signature Version 4 using the access/secret key pair.
type AmazonAdapter struct {
	Client *http.Client

	cfg       types.AmazonConfig
	userAgent string
	signer    *v4.Signer
	now       func() time.Time
	log       *zap.SugaredLogger
}

// NewAmazonAdapter returns an adapter for cfg. Without an access key,
// secret key and partner tag the adapter is unconfigured: it warns once
// here and then returns empty results.
func NewAmazonAdapter(cfg types.AmazonConfig, httpCfg types.HTTPConfig, log *zap.SugaredLogger) *AmazonAdapter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	a := &AmazonAdapter{
		Client:    newHTTPClient(httpCfg),
		cfg:       cfg,
		userAgent: httpCfg.UserAgent,
		signer:    v4.NewSigner(),
		now:       time.Now,
		log:       log,
	}
	if !a.Configured() {
		log.Warnw("source not configured, returning empty results", "source", SourceAmazon)
	}
	return a
}

// Configured reports whether credentials are present.
func (a *AmazonAdapter) Configured() bool {
	return a.cfg.AccessKey != "" && a.cfg.SecretKey != "" && a.cfg.PartnerTag != ""
}

// Search calls SearchItems for query.
func (a *AmazonAdapter) Search(ctx context.Context, query string, opts types.SearchOptions) ([]types.StandardizedProduct, error) {
	if !a.Configured() {
		return []types.StandardizedProduct{}, nil
	}

	count := opts.EffectiveLimit()
	if count <= 0 {
		return []types.StandardizedProduct{}, nil
	}
	if count > amazonMaxItems {
		count = amazonMaxItems
	}

	body := amazonSearchRequest{
		Keywords:    query,
		SearchIndex: "All",
		ItemCount:   count,
		amazonCommon: amazonCommon{
			PartnerTag:  a.cfg.PartnerTag,
			PartnerType: amazonPartnerType,
			Marketplace: a.cfg.Marketplace,
			Resources:   amazonResources,
		},
		SortBy: amazonSortBy(opts.SortBy),
	}
	if opts.MinPrice != nil {
		body.MinPrice = toCents(*opts.MinPrice)
	}
	if opts.MaxPrice != nil {
		body.MaxPrice = toCents(*opts.MaxPrice)
	}

	var sr amazonResponse
	if err := a.call(ctx, "SearchItems", "searchitems", body, &sr); err != nil {
		return nil, err
	}
	if sr.SearchResult == nil {
		return []types.StandardizedProduct{}, nil
	}

	products := make([]types.StandardizedProduct, 0, len(sr.SearchResult.Items))
	for _, item := range sr.SearchResult.Items {
		products = append(products, item.toProduct())
	}
	return products, nil
}

// GetProduct calls GetItems for one ASIN.
func (a *AmazonAdapter) GetProduct(ctx context.Context, id string) (*types.StandardizedProduct, error) {
	if !a.Configured() || id == "" {
		return nil, nil
	}

	body := amazonGetItemsRequest{
		ItemIDs: []string{id},
		amazonCommon: amazonCommon{
			PartnerTag:  a.cfg.PartnerTag,
			PartnerType: amazonPartnerType,
			Marketplace: a.cfg.Marketplace,
			Resources:   amazonResources,
		},
	}

	var gr amazonResponse
	if err := a.call(ctx, "GetItems", "getitems", body, &gr); err != nil {
		return nil, err
	}
	if gr.ItemsResult == nil || len(gr.ItemsResult.Items) == 0 {
		return nil, nil
	}
	p := gr.ItemsResult.Items[0].toProduct()
	return &p, nil
}

// call signs and sends one PA-API operation. A response whose only error
// is NoResults decodes as an empty result.
func (a *AmazonAdapter) call(ctx context.Context, operation, path string, body any, out *amazonResponse) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding Amazon %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint()+"/"+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Content-Encoding", "amz-1.0")
	req.Header.Set("X-Amz-Target", amazonTargetBase+operation)
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	sum := sha256.Sum256(payload)
	creds := aws.Credentials{AccessKeyID: a.cfg.AccessKey, SecretAccessKey: a.cfg.SecretKey}
	if err := a.signer.SignHTTP(ctx, creds, req, hex.EncodeToString(sum[:]), amazonService, a.cfg.Region, a.now()); err != nil {
		return fmt.Errorf("signing Amazon request: %w", err)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return fmt.Errorf("Amazon PA-API request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading Amazon response: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil && resp.StatusCode == http.StatusOK {
			return fmt.Errorf("parsing Amazon response: %w", err)
		}
	}

	if out.onlyNoResults() {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		if len(out.Errors) > 0 {
			return fmt.Errorf("Amazon PA-API returned HTTP %d: %s: %s",
				resp.StatusCode, out.Errors[0].Code, out.Errors[0].Message)
		}
		return fmt.Errorf("Amazon PA-API returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func (a *AmazonAdapter) endpoint() string {
	if amazonAPIBase != "" {
		return amazonAPIBase
	}
	return "https://" + a.cfg.Host + "/paapi5"
}

func amazonSortBy(s types.SortBy) string {
	switch s {
	case types.SortPrice:
		return "Price:LowToHigh"
	case types.SortRating:
		return "AvgCustomerReviews"
	case types.SortRelevance:
		return "Relevance"
	default:
		return ""
	}
}

// toCents converts a price to the lowest currency denomination PA-API expects.
func toCents(v float64) int {
	return int(math.Round(v * 100))
}

// PA-API 5.0 JSON structures.
type amazonCommon struct {
	PartnerTag  string   `json:"PartnerTag"`
	PartnerType string   `json:"PartnerType"`
	Marketplace string   `json:"Marketplace,omitempty"`
	Resources   []string `json:"Resources"`
}

type amazonSearchRequest struct {
	amazonCommon
	Keywords    string `json:"Keywords"`
	SearchIndex string `json:"SearchIndex"`
	ItemCount   int    `json:"ItemCount"`
	MinPrice    int    `json:"MinPrice,omitempty"`
	MaxPrice    int    `json:"MaxPrice,omitempty"`
	SortBy      string `json:"SortBy,omitempty"`
}

type amazonGetItemsRequest struct {
	amazonCommon
	ItemIDs []string `json:"ItemIds"`
}

type amazonResponse struct {
	SearchResult *amazonItems  `json:"SearchResult"`
	ItemsResult  *amazonItems  `json:"ItemsResult"`
	Errors       []amazonError `json:"Errors"`
}

func (r *amazonResponse) onlyNoResults() bool {
	if len(r.Errors) == 0 {
		return false
	}
	for _, e := range r.Errors {
		if e.Code != amazonNoResults {
			return false
		}
	}
	return true
}

type amazonError struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}

type amazonItems struct {
	Items []amazonItem `json:"Items"`
}

type amazonDisplayValue struct {
	DisplayValue string `json:"DisplayValue"`
}

type amazonItem struct {
	ASIN          string `json:"ASIN"`
	DetailPageURL string `json:"DetailPageURL"`
	Images        struct {
		Primary struct {
			Large struct {
				URL string `json:"URL"`
			} `json:"Large"`
		} `json:"Primary"`
	} `json:"Images"`
	ItemInfo struct {
		Title    amazonDisplayValue `json:"Title"`
		Features struct {
			DisplayValues []string `json:"DisplayValues"`
		} `json:"Features"`
		Classifications struct {
			ProductGroup amazonDisplayValue `json:"ProductGroup"`
			Binding      amazonDisplayValue `json:"Binding"`
		} `json:"Classifications"`
	} `json:"ItemInfo"`
	Offers struct {
		Listings []struct {
			Price struct {
				Amount   float64 `json:"Amount"`
				Currency string  `json:"Currency"`
			} `json:"Price"`
			Availability struct {
				Message string `json:"Message"`
				Type    string `json:"Type"`
			} `json:"Availability"`
		} `json:"Listings"`
	} `json:"Offers"`
	CustomerReviews struct {
		StarRating *struct {
			Value float64 `json:"Value"`
		} `json:"StarRating"`
		Count *int `json:"Count"`
	} `json:"CustomerReviews"`
}

func (it amazonItem) toProduct() types.StandardizedProduct {
	p := types.StandardizedProduct{
		ExternalID:  it.ASIN,
		Source:      SourceAmazon,
		Title:       it.ItemInfo.Title.DisplayValue,
		ImageURL:    it.Images.Primary.Large.URL,
		ProductURL:  it.DetailPageURL,
		ReviewCount: it.CustomerReviews.Count,
		Tags:        []string{},
	}
	if len(it.ItemInfo.Features.DisplayValues) > 0 {
		p.Description = joinNonEmpty(it.ItemInfo.Features.DisplayValues, " ")
	}
	if g := it.ItemInfo.Classifications.ProductGroup.DisplayValue; g != "" {
		p.Categories = append(p.Categories, g)
	}
	if it.CustomerReviews.StarRating != nil {
		p.Rating = types.Float(it.CustomerReviews.StarRating.Value)
	}
	if len(it.Offers.Listings) > 0 {
		l := it.Offers.Listings[0]
		if l.Price.Currency != "" {
			p.Price = types.Float(l.Price.Amount)
			p.Currency = l.Price.Currency
		}
		if l.Availability.Message != "" || l.Availability.Type != "" {
			p.Availability = l.Availability.Message
			p.InStock = types.Bool(l.Availability.Type == "Now")
		}
	}
	return p
}
