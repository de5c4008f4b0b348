package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Item is a portal content item.
type Item struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	Owner    string `json:"owner"`
	Created  int64  `json:"created"`
	Modified int64  `json:"modified"`
	NumViews int64  `json:"numViews"`
	URL      string `json:"url"`
}

// CreatedAt returns the creation time; portals report epoch milliseconds.
func (i Item) CreatedAt() time.Time { return time.UnixMilli(i.Created) }

// ModifiedAt returns the last modification time.
func (i Item) ModifiedAt() time.Time { return time.UnixMilli(i.Modified) }

type searchResponse struct {
	Total     int    `json:"total"`
	NextStart int    `json:"nextStart"`
	Results   []Item `json:"results"`
}

func sharingURL(portal string) string {
	return portal + "/sharing/rest"
}

// SearchItems returns every item of itemType visible to the user, following
// nextStart paging.
func (c *Client) SearchItems(ctx context.Context, portal, itemType string, pageSize int) ([]Item, error) {
	if pageSize <= 0 {
		pageSize = 100
	}
	base := sharingURL(portal)

	var items []Item
	for start := 1; start > 0; {
		params := jsonParams()
		params.Set("q", fmt.Sprintf("type:%q", itemType))
		params.Set("start", strconv.Itoa(start))
		params.Set("num", strconv.Itoa(pageSize))
		params.Set("sortField", "title")

		data, err := c.get(ctx, base+"/generateToken", base+"/search", params)
		if err != nil {
			return nil, eris.Wrap(err, "arcgis: search items")
		}
		var page searchResponse
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, eris.Wrap(err, "arcgis: decode search")
		}
		for _, it := range page.Results {
			// The search matches on type keywords; keep exact type matches only.
			if it.Type == itemType {
				items = append(items, it)
			}
		}
		if page.NextStart <= start {
			break
		}
		start = page.NextStart
	}
	return items, nil
}

// ItemData returns the JSON data of an item (e.g. a web map definition).
func (c *Client) ItemData(ctx context.Context, portal, id string) ([]byte, error) {
	base := sharingURL(portal)
	data, err := c.get(ctx, base+"/generateToken", base+"/content/items/"+url.PathEscape(id)+"/data", jsonParams())
	if err != nil {
		return nil, eris.Wrapf(err, "arcgis: data of item %s", id)
	}
	return data, nil
}
