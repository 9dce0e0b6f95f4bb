package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const (
	catalogRoot  = "/catalog/v2"
	ordersRoot   = "/orders/v2"
	s3credsRoot  = "/s3creds/v1"
	idahoType    = "IDAHOImage"
	MinS3Seconds = 900
	MaxS3Seconds = 36000
)

// S3Credentials are the temporary credentials and location of the user's
// prefix in the customer data bucket.
type S3Credentials struct {
	Bucket       string `json:"bucket"`
	Prefix       string `json:"prefix"`
	AccessKey    string `json:"S3_access_key"`
	SecretKey    string `json:"S3_secret_key"`
	SessionToken string `json:"S3_session_token"`
}

// CatalogRecord fetches a catalog record without its relationships.
func (c *Client) CatalogRecord(ctx context.Context, catalogID string) ([]byte, error) {
	return c.send(ctx, http.MethodGet, catalogRoot+"/record/"+url.PathEscape(catalogID)+"?includeRelationships=false", nil)
}

// StripFootprint returns the WKT footprint of a catalog strip.
func (c *Client) StripFootprint(ctx context.Context, catalogID string) (string, error) {
	data, err := c.CatalogRecord(ctx, catalogID)
	if err != nil {
		return "", err
	}

	var record struct {
		Properties struct {
			FootprintWkt string `json:"footprintWkt"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return "", fmt.Errorf("could not decode catalog record %s: %w", catalogID, err)
	}
	if record.Properties.FootprintWkt == "" {
		return "", fmt.Errorf("catalog record %s has no footprint", catalogID)
	}
	return record.Properties.FootprintWkt, nil
}

// IdahoImages searches the catalog for the IDAHO images of a strip that
// intersect aoiWKT.
func (c *Client) IdahoImages(ctx context.Context, catalogID, aoiWKT string) ([]byte, error) {
	body, err := json.Marshal(map[string]interface{}{
		"filters":       []string{fmt.Sprintf("catalogID = '%s'", catalogID)},
		"types":         []string{idahoType},
		"searchAreaWkt": aoiWKT,
	})
	if err != nil {
		return nil, err
	}
	return c.send(ctx, http.MethodPost, catalogRoot+"/search", body)
}

// IdahoImagesByCatalogID returns every IDAHO image inside the strip's footprint.
func (c *Client) IdahoImagesByCatalogID(ctx context.Context, catalogID string) ([]byte, error) {
	footprint, err := c.StripFootprint(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	return c.IdahoImages(ctx, catalogID, footprint)
}

// Order places an order for the given catalog ids and returns the order id.
func (c *Client) Order(ctx context.Context, catalogIDs []string) (string, error) {
	if len(catalogIDs) == 0 {
		return "", fmt.Errorf("no catalog ids to order")
	}
	body, err := json.Marshal(catalogIDs)
	if err != nil {
		return "", err
	}
	data, err := c.send(ctx, http.MethodPost, ordersRoot+"/order", body)
	if err != nil {
		return "", err
	}

	var resp struct {
		OrderID json.RawMessage `json:"order_id"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("could not decode order response: %w", err)
	}
	if len(resp.OrderID) == 0 {
		return "", fmt.Errorf("order response has no order_id")
	}
	var id string
	if err := json.Unmarshal(resp.OrderID, &id); err != nil {
		// numeric ids are kept as written
		return string(resp.OrderID), nil
	}
	return id, nil
}

// OrderStatus returns the acquisitions of an order.
func (c *Client) OrderStatus(ctx context.Context, orderID string) ([]byte, error) {
	data, err := c.send(ctx, http.MethodGet, ordersRoot+"/order/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Acquisitions json.RawMessage `json:"acquisitions"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("could not decode order %s: %w", orderID, err)
	}
	if resp.Acquisitions == nil {
		return nil, fmt.Errorf("order %s has no acquisitions", orderID)
	}
	return resp.Acquisitions, nil
}

// S3Info requests temporary S3 credentials valid for seconds.
func (c *Client) S3Info(ctx context.Context, seconds int) (*S3Credentials, error) {
	if seconds < MinS3Seconds || seconds > MaxS3Seconds {
		return nil, fmt.Errorf("duration must be between %d and %d seconds, got %d", MinS3Seconds, MaxS3Seconds, seconds)
	}
	data, err := c.send(ctx, http.MethodGet, s3credsRoot+"/prefix?duration="+strconv.Itoa(seconds), nil)
	if err != nil {
		return nil, err
	}

	var creds S3Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("could not decode s3 credentials: %w", err)
	}
	return &creds, nil
}
