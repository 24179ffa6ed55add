// Package places provides the place lookup oracle backed by the Google
// Places text search API.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Sagar-CK/pinpoint-ai/internal/domain"
)

// DefaultAPIURL is the Places text search endpoint.
const DefaultAPIURL = "https://places.googleapis.com/v1/places:searchText"

// fieldMask limits the place attributes the API returns to what the ranking
// core carries on domain.Place, amenity signals included so the scoring
// oracle sees them.
const fieldMask = "places.id,places.displayName,places.formattedAddress,places.location,places.rating,places.userRatingCount,places.types,places.googleMapsUri,places.websiteUri,places.goodForChildren,places.goodForGroups,places.liveMusic,places.outdoorSeating,places.dineIn,places.reservable,places.priceLevel,places.priceRange"

// Client is the place lookup client.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new place lookup client.
func NewClient(apiURL, apiKey string, timeout time.Duration) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type searchTextRequest struct {
	TextQuery string `json:"textQuery"`
}

type searchTextResponse struct {
	Places []apiPlace `json:"places"`
}

// apiPlace is the wire shape of a Places API result. Amenity fields are
// pointers: the API omits them entirely when the data is not available.
type apiPlace struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string          `json:"formattedAddress"`
	Location         domain.Location `json:"location"`
	Rating           float64         `json:"rating"`
	UserRatingCount  int             `json:"userRatingCount"`
	Types            []string        `json:"types"`
	GoogleMapsURI    string          `json:"googleMapsUri"`
	WebsiteURI       string          `json:"websiteUri"`
	GoodForChildren  *bool           `json:"goodForChildren"`
	GoodForGroups    *bool           `json:"goodForGroups"`
	LiveMusic        *bool           `json:"liveMusic"`
	OutdoorSeating   *bool           `json:"outdoorSeating"`
	DineIn           *bool           `json:"dineIn"`
	Reservable       *bool           `json:"reservable"`
	PriceLevel       string          `json:"priceLevel"`
	PriceRange       *apiPriceRange  `json:"priceRange"`
}

type apiPriceRange struct {
	StartPrice apiMoney `json:"startPrice"`
	EndPrice   apiMoney `json:"endPrice"`
}

type apiMoney struct {
	CurrencyCode string `json:"currencyCode"`
	Units        string `json:"units"`
}

// availability maps the API's omitted-means-unknown booleans onto the
// tri-state the domain carries.
func availability(v *bool) domain.Availability {
	switch {
	case v == nil:
		return domain.AvailabilityNotAvailable
	case *v:
		return domain.AvailabilityTrue
	default:
		return domain.AvailabilityFalse
	}
}

func priceRange(v *apiPriceRange) *domain.PriceRange {
	if v == nil {
		return nil
	}
	return &domain.PriceRange{
		Lower: v.StartPrice.Units,
		Upper: v.EndPrice.Units,
	}
}

// Search runs a text query against the Places API and returns the candidate
// places in the order the API ranked them.
func (c *Client) Search(ctx context.Context, query string) ([]domain.Place, error) {
	body, err := json.Marshal(searchTextRequest{TextQuery: query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places API error [%d]: %s", resp.StatusCode, string(respBody))
	}

	var result searchTextResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	out := make([]domain.Place, 0, len(result.Places))
	for _, p := range result.Places {
		out = append(out, domain.Place{
			ID:               p.ID,
			DisplayName:      p.DisplayName.Text,
			FormattedAddress: p.FormattedAddress,
			Location:         p.Location,
			Rating:           p.Rating,
			UserRatingCount:  p.UserRatingCount,
			Types:            p.Types,
			GoogleMapsURI:    p.GoogleMapsURI,
			WebsiteURI:       p.WebsiteURI,
			GoodForChildren:  availability(p.GoodForChildren),
			GoodForGroups:    availability(p.GoodForGroups),
			LiveMusic:        availability(p.LiveMusic),
			OutdoorSeating:   availability(p.OutdoorSeating),
			DineIn:           availability(p.DineIn),
			Reservable:       availability(p.Reservable),
			PriceLevel:       p.PriceLevel,
			PriceRange:       priceRange(p.PriceRange),
		})
	}
	return out, nil
}
