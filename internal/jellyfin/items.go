package jellyfin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/arne/tubetag/internal/util"
)

// ItemRef is one search hit from the items endpoint
type ItemRef struct {
	ID       string `json:"Id"`
	Name     string `json:"Name"`
	ParentID string `json:"ParentId"`
}

// searchResult is the envelope around item search hits
type searchResult struct {
	Items            []ItemRef `json:"Items"`
	TotalRecordCount int       `json:"TotalRecordCount"`
}

// SearchItems searches the authenticated user's library for items matching
// the given term. Mirrors the lookup the loop needs: recursive, all item
// types, top 5 results.
func (c *Client) SearchItems(ctx context.Context, term string) ([]ItemRef, error) {
	if term == "" {
		return nil, fmt.Errorf("search term cannot be empty")
	}

	query := url.Values{}
	query.Set("SearchTerm", term)
	query.Set("IncludeItemTypes", "All")
	query.Set("Recursive", "true")
	query.Set("Limit", "5")

	body, err := c.Get(ctx, fmt.Sprintf("Users/%s/Items", c.userID), query)
	if err != nil {
		return nil, fmt.Errorf("item search failed: %w", err)
	}

	var result searchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode search result: %w", err)
	}

	util.DebugLog("Jellyfin: search %q returned %d items", term, len(result.Items))
	return result.Items, nil
}

// GetItem fetches the full metadata record for an item. The record is kept
// as a generic map: only Name is ever rewritten, every other field must
// round-trip unchanged through UpdateItem.
func (c *Client) GetItem(ctx context.Context, itemID string) (map[string]any, error) {
	body, err := c.Get(ctx, fmt.Sprintf("Items/%s", itemID), nil)
	if err != nil {
		return nil, fmt.Errorf("item fetch failed: %w", err)
	}

	var item map[string]any
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}

	return item, nil
}

// UpdateItem writes the full metadata record back to the server
func (c *Client) UpdateItem(ctx context.Context, itemID string, item map[string]any) error {
	resp, err := c.Post(ctx, fmt.Sprintf("Items/%s", itemID), item)
	if err != nil {
		return fmt.Errorf("item update failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("item update returned %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// RefreshLibrary asks the server to re-scan the library section containing
// the updated item. Best effort: callers log failures and move on.
func (c *Client) RefreshLibrary(ctx context.Context, libraryID string) error {
	resp, err := c.Post(ctx, "Library/Refresh", map[string]string{"LibraryId": libraryID})
	if err != nil {
		return fmt.Errorf("library refresh failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("library refresh returned %d", resp.StatusCode)
	}

	return nil
}
