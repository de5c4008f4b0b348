package report

import (
	"bytes"
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/arcgis-admin-cli/internal/nested"
	"github.com/sells-group/arcgis-admin-cli/internal/table"
	"github.com/sells-group/arcgis-admin-cli/pkg/arcgis"
)

// ItemColumns is the column order of the items report.
var ItemColumns = []string{"title", "id", "type", "owner", "created", "modified", "views", "item_url", "data_urls"}

// itemDate is the dd/mm/yyyy layout of item dates.
const itemDate = "02/01/2006"

// Items builds the portal items report: every item of the configured type
// with each url found anywhere in its data on its own row. Items whose data
// holds no url keep one row with an empty data_urls.
func (r *Runner) Items(ctx context.Context, site, portal string) (*Report, error) {
	items, err := fetch(ctx, r, site, func(ctx context.Context) ([]arcgis.Item, error) {
		return r.client.SearchItems(ctx, portal, r.opts.ItemType, r.opts.PageSize)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "report: search %s items on %s", r.opts.ItemType, site)
	}
	rep := &Report{Units: len(items)}

	results := run(ctx, r.opts.Concurrency, items, func(it arcgis.Item) string { return site + ":" + it.ID },
		func(ctx context.Context, it arcgis.Item) ([][]string, error) {
			data, err := fetch(ctx, r, site, func(ctx context.Context) ([]byte, error) {
				return r.client.ItemData(ctx, portal, it.ID)
			})
			if err != nil {
				return nil, err
			}
			urls, err := dataURLs(data)
			if err != nil {
				return nil, eris.Wrapf(err, "report: data of item %s", it.ID)
			}
			return itemRows(it, urls), nil
		})

	perItem, failures := Partition(results)
	rep.addFailures("items", failures)

	var rows [][]string
	for _, rs := range perItem {
		rows = append(rows, rs...)
	}
	rep.Table = table.Table{Name: ItemsName(site), Columns: ItemColumns, Rows: rows}
	zap.L().Info("items report built",
		zap.String("site", site),
		zap.Int("items", len(items)),
		zap.Int("rows", rep.Table.Len()),
		zap.Int("failed", len(rep.Failures)),
	)
	return rep, ctx.Err()
}

// dataURLs returns every url value in an item's data, depth-first. Items
// without data have none.
func dataURLs(data []byte) ([]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	doc, err := nested.ParseJSON(data)
	if err != nil {
		return nil, err
	}
	return nested.FindStrings(doc, "url"), nil
}

func itemRows(it arcgis.Item, urls []string) [][]string {
	base := []string{
		it.Title,
		it.ID,
		it.Type,
		it.Owner,
		it.CreatedAt().UTC().Format(itemDate),
		it.ModifiedAt().UTC().Format(itemDate),
		strconv.FormatInt(it.NumViews, 10),
		it.URL,
	}
	if len(urls) == 0 {
		return [][]string{append(base, "")}
	}
	rows := make([][]string, len(urls))
	for i, u := range urls {
		row := make([]string, 0, len(base)+1)
		rows[i] = append(append(row, base...), u)
	}
	return rows
}
