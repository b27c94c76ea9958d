package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const pageSize = 200

// TradingClient talks to the marketplace trading API over HTTP with a bearer
// token. Same env as the dashboard: MARKETPLACE_API_URL, MARKETPLACE_API_TOKEN.
type TradingClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewTradingClient returns a TradingClient with a 30s request timeout.
func NewTradingClient(baseURL, token string) *TradingClient {
	return &TradingClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type listingsPage struct {
	Listings []ListingSnapshot `json:"listings"`
	HasMore  bool              `json:"has_more"`
}

type salesPage struct {
	Sales   []SaleSnapshot `json:"sales"`
	HasMore bool           `json:"has_more"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FetchActiveListings pages through the seller's active listings, 200 per
// page, and returns them all.
func (c *TradingClient) FetchActiveListings(ctx context.Context) ([]ListingSnapshot, error) {
	var all []ListingSnapshot
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(pageSize))

		var out listingsPage
		if err := c.do(ctx, http.MethodGet, "/selling/listings/active?"+q.Encode(), "", nil, &out); err != nil {
			return nil, err
		}
		all = append(all, out.Listings...)
		if !out.HasMore || len(out.Listings) < pageSize {
			return all, nil
		}
	}
}

// FetchSales pages through completed sales since the given time.
func (c *TradingClient) FetchSales(ctx context.Context, since time.Time) ([]SaleSnapshot, error) {
	var all []SaleSnapshot
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("since", since.UTC().Format(time.RFC3339))
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(pageSize))

		var out salesPage
		if err := c.do(ctx, http.MethodGet, "/selling/sales?"+q.Encode(), "", nil, &out); err != nil {
			return nil, err
		}
		all = append(all, out.Sales...)
		if !out.HasMore || len(out.Sales) < pageSize {
			return all, nil
		}
	}
}

// RelistItem asks the marketplace to relist an item. The marketplace may
// hand back a fresh item id.
func (c *TradingClient) RelistItem(ctx context.Context, itemID string) (*RelistResult, error) {
	var out RelistResult
	path := "/selling/listings/" + url.PathEscape(itemID) + "/relist"
	if err := c.do(ctx, http.MethodPost, path, itemID, struct{}{}, &out); err != nil {
		return nil, err
	}
	if out.NewItemID == "" {
		out.NewItemID = itemID
	}
	return &out, nil
}

// SendOffer sends a discount offer to interested buyers of an item.
func (c *TradingClient) SendOffer(ctx context.Context, itemID string, offerPrice float64, message string) error {
	body := map[string]interface{}{
		"item_id":     itemID,
		"offer_price": offerPrice,
		"message":     message,
	}
	return c.do(ctx, http.MethodPost, "/selling/offers", itemID, body, nil)
}

// RequestFeedback asks the buyer of a completed sale to leave feedback.
func (c *TradingClient) RequestFeedback(ctx context.Context, itemID, saleID, buyerID string) error {
	body := map[string]interface{}{
		"item_id":  itemID,
		"sale_id":  saleID,
		"buyer_id": buyerID,
	}
	return c.do(ctx, http.MethodPost, "/selling/feedback-requests", itemID, body, nil)
}

// do performs one API call and decodes the response into out (if non-nil).
// Network failures and 5xx map to *TransportError, 4xx to *RejectedError.
func (c *TradingClient) do(ctx context.Context, method, path, itemID string, body, out interface{}) error {
	op := method + " " + path
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.Client == nil {
		c.Client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Credential faults are not an answer about the item.
		return &TransportError{Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		rej := &RejectedError{Op: op, ItemID: itemID, Code: strconv.Itoa(resp.StatusCode)}
		var ae apiError
		if err := json.NewDecoder(resp.Body).Decode(&ae); err == nil && ae.Error.Message != "" {
			if ae.Error.Code != "" {
				rej.Code = ae.Error.Code
			}
			rej.Reason = ae.Error.Message
		} else {
			rej.Reason = http.StatusText(resp.StatusCode)
		}
		return rej
	default:
		return &TransportError{Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
}
