// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/gift-engine/pkg/types"
)

// rapidAPIBase overrides the endpoint derived from the configured host.
// Declared as a var so tests can substitute an httptest server.
var rapidAPIBase = ""

// RapidAPIAdapter queries the real-time Amazon data API on RapidAPI. It
// authenticates with the X-RapidAPI-Key header.
type RapidAPIAdapter struct {
	Client *http.Client

	cfg       types.RapidAPIConfig
	userAgent string
	log       *zap.SugaredLogger
}

// NewRapidAPIAdapter returns an adapter for cfg. Without a key the adapter
// is unconfigured: it warns once here and then returns empty results.
func NewRapidAPIAdapter(cfg types.RapidAPIConfig, httpCfg types.HTTPConfig, log *zap.SugaredLogger) *RapidAPIAdapter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.Country == "" {
		cfg.Country = "US"
	}
	a := &RapidAPIAdapter{
		Client:    newHTTPClient(httpCfg),
		cfg:       cfg,
		userAgent: httpCfg.UserAgent,
		log:       log,
	}
	if !a.Configured() {
		log.Warnw("source not configured, returning empty results", "source", SourceRapidAPI)
	}
	return a
}

// Configured reports whether an API key is present.
func (a *RapidAPIAdapter) Configured() bool { return a.cfg.Key != "" }

// Search calls /search for query.
func (a *RapidAPIAdapter) Search(ctx context.Context, query string, opts types.SearchOptions) ([]types.StandardizedProduct, error) {
	if !a.Configured() {
		return []types.StandardizedProduct{}, nil
	}

	params := url.Values{
		"query":   {query},
		"page":    {"1"},
		"country": {a.cfg.Country},
	}
	if opts.MinPrice != nil {
		params.Set("min_price", strconv.FormatFloat(*opts.MinPrice, 'f', -1, 64))
	}
	if opts.MaxPrice != nil {
		params.Set("max_price", strconv.FormatFloat(*opts.MaxPrice, 'f', -1, 64))
	}
	if s := rapidSortBy(opts.SortBy); s != "" {
		params.Set("sort_by", s)
	}

	resp, err := a.get(ctx, "/search", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("RapidAPI returned HTTP %d", resp.StatusCode)
	}

	var sr rapidSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing RapidAPI response: %w", err)
	}

	products := make([]types.StandardizedProduct, 0, len(sr.Data.Products))
	for _, item := range sr.Data.Products {
		products = append(products, item.toProduct())
	}
	return products, nil
}

// GetProduct calls /product-details for one ASIN.
func (a *RapidAPIAdapter) GetProduct(ctx context.Context, id string) (*types.StandardizedProduct, error) {
	if !a.Configured() || id == "" {
		return nil, nil
	}

	resp, err := a.get(ctx, "/product-details", url.Values{
		"asin":    {id},
		"country": {a.cfg.Country},
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("RapidAPI returned HTTP %d", resp.StatusCode)
	}

	var dr rapidDetailResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("parsing RapidAPI response: %w", err)
	}
	if dr.Data == nil || (dr.Data.ASIN == "" && dr.Data.Title == "") {
		return nil, nil
	}
	p := dr.Data.toProduct()
	return &p, nil
}

func (a *RapidAPIAdapter) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := a.endpoint() + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", a.cfg.Key)
	req.Header.Set("X-RapidAPI-Host", a.cfg.Host)
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RapidAPI request: %w", err)
	}
	return resp, nil
}

func (a *RapidAPIAdapter) endpoint() string {
	if rapidAPIBase != "" {
		return rapidAPIBase
	}
	return "https://" + a.cfg.Host
}

func rapidSortBy(s types.SortBy) string {
	switch s {
	case types.SortPrice:
		return "LOWEST_PRICE"
	case types.SortRating:
		return "REVIEWS"
	case types.SortRelevance:
		return "RELEVANCE"
	default:
		return ""
	}
}

// flexPrice decodes a JSON number or a currency string such as "$1,299.99".
// Anything unparseable decodes as absent.
type flexPrice struct {
	value *float64
}

func (n *flexPrice) UnmarshalJSON(b []byte) error {
	v, err := decodeFlex(b, parseLooseNumber)
	n.value = v
	return err
}

// flexLeading decodes a JSON number or a string whose value is its leading
// number, as in "4.5 out of 5 stars" or "1,204 ratings".
type flexLeading struct {
	value *float64
}

func (n *flexLeading) UnmarshalJSON(b []byte) error {
	v, err := decodeFlex(b, parseLeadingNumber)
	n.value = v
	return err
}

func decodeFlex(b []byte, parse func(string) *float64) (*float64, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil, err
		}
		return parse(s), nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, nil
	}
	return &f, nil
}

// parseLooseNumber keeps digits and the decimal point, as in "$1,299.99".
// A minus sign before the first digit is kept.
func parseLooseNumber(s string) *float64 {
	var b strings.Builder
	digits := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = true
			b.WriteRune(r)
		case r == '.':
			b.WriteRune(r)
		case r == '-' && !digits && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	if !digits {
		return nil
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return nil
	}
	return &f
}

var leadingNumber = regexp.MustCompile(`-?\d[\d,]*(\.\d+)?`)

// parseLeadingNumber returns the first number in s, allowing grouping commas.
func parseLeadingNumber(s string) *float64 {
	m := leadingNumber.FindString(s)
	if m == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return nil
	}
	return &f
}

// RapidAPI JSON structures.
type rapidSearchResponse struct {
	Status string `json:"status"`
	Data   struct {
		TotalProducts int            `json:"total_products"`
		Products      []rapidProduct `json:"products"`
	} `json:"data"`
}

type rapidDetailResponse struct {
	Status string        `json:"status"`
	Data   *rapidProduct `json:"data"`
}

type rapidProduct struct {
	ASIN         string      `json:"asin"`
	Title        string      `json:"product_title"`
	Description  string      `json:"product_description"`
	Price        flexPrice   `json:"product_price"`
	Currency     string      `json:"currency"`
	Photo        string      `json:"product_photo"`
	MainImage    string      `json:"product_main_image_url"`
	URL          string      `json:"product_url"`
	Link         string      `json:"product_link"`
	StarRating   flexLeading `json:"product_star_rating"`
	NumRatings   flexLeading `json:"product_num_ratings"`
	Category     string      `json:"product_category"`
	Availability string      `json:"product_availability"`
}

func (it rapidProduct) toProduct() types.StandardizedProduct {
	p := types.StandardizedProduct{
		ExternalID:   it.ASIN,
		Source:       SourceRapidAPI,
		Title:        it.Title,
		Description:  it.Description,
		Price:        it.Price.value,
		Currency:     it.Currency,
		ImageURL:     firstNonEmpty(it.Photo, it.MainImage),
		ProductURL:   firstNonEmpty(it.URL, it.Link),
		Rating:       it.StarRating.value,
		Tags:         []string{},
		Availability: it.Availability,
	}
	if it.NumRatings.value != nil {
		p.ReviewCount = types.Int(int(*it.NumRatings.value))
	}
	if it.Category != "" {
		p.Categories = []string{it.Category}
	}
	if it.Availability != "" {
		p.InStock = types.Bool(strings.HasPrefix(strings.ToLower(it.Availability), "in stock"))
	}
	return p
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
