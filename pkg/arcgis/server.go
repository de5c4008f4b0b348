package arcgis

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/arcgis-admin-cli/internal/fetcher"
)

// RootFolder is the folder name ArcGIS uses for services outside any folder.
const RootFolder = "/"

// ServiceRef identifies a service on a site.
type ServiceRef struct {
	Folder string `json:"folderName"`
	Name   string `json:"serviceName"`
	Type   string `json:"type"`
}

// path is the service's path below the services root, e.g. "Hydro/Rivers.MapServer".
func (r ServiceRef) path() string {
	p := url.PathEscape(r.Name) + "." + r.Type
	if r.Folder == "" || r.Folder == RootFolder {
		return p
	}
	return url.PathEscape(r.Folder) + "/" + p
}

// RESTURL returns the public REST endpoint of the service,
// {rest}/{folder}/{name}/{type}. Root services have no folder segment.
func (r ServiceRef) RESTURL(rest string) string {
	if r.Folder == "" || r.Folder == RootFolder {
		return strings.Join([]string{rest, r.Name, r.Type}, "/")
	}
	return strings.Join([]string{rest, r.Folder, r.Name, r.Type}, "/")
}

// Extension is a server object extension or capability of a service.
type Extension struct {
	TypeName string   `json:"typeName"`
	Enabled  flexBool `json:"enabled"`
}

// ServiceProperties is the admin view of a service.
type ServiceProperties struct {
	ServiceName string      `json:"serviceName"`
	Type        string      `json:"type"`
	Private     bool        `json:"private"`
	Extensions  []Extension `json:"extensions"`
}

// EnabledExtensions reports for each name whether that extension is enabled.
// Names missing from the service are reported as disabled.
func (p ServiceProperties) EnabledExtensions(names ...string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = false
	}
	for _, ext := range p.Extensions {
		if _, ok := out[ext.TypeName]; ok {
			out[ext.TypeName] = bool(ext.Enabled)
		}
	}
	return out
}

// flexBool accepts JSON true/false and the strings "true"/"false" in any case.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*b = flexBool(v)
	case string:
		*b = flexBool(strings.EqualFold(v, "true"))
	default:
		*b = false
	}
	return nil
}

func tokenURL(admin string) string {
	return admin + "/generateToken"
}

// Folders lists the service folders of the site, root first, minus ignored
// ones.
func (c *Client) Folders(ctx context.Context, admin string, ignore []string) ([]string, error) {
	data, err := c.get(ctx, tokenURL(admin), admin+"/services", jsonParams())
	if err != nil {
		return nil, eris.Wrap(err, "arcgis: list folders")
	}
	var resp struct {
		Folders []string `json:"folders"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, eris.Wrap(err, "arcgis: decode folders")
	}
	var out []string
	for _, f := range append([]string{RootFolder}, resp.Folders...) {
		if !slices.Contains(ignore, f) {
			out = append(out, f)
		}
	}
	return out, nil
}

// Services lists the services in folder.
func (c *Client) Services(ctx context.Context, admin, folder string) ([]ServiceRef, error) {
	endpoint := admin + "/services"
	if folder != RootFolder {
		endpoint += "/" + url.PathEscape(folder)
	}
	data, err := c.get(ctx, tokenURL(admin), endpoint, jsonParams())
	if err != nil {
		return nil, eris.Wrapf(err, "arcgis: list services in %s", folder)
	}
	var resp struct {
		Services []ServiceRef `json:"services"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, eris.Wrap(err, "arcgis: decode services")
	}
	for i := range resp.Services {
		if resp.Services[i].Folder == "" {
			resp.Services[i].Folder = folder
		}
	}
	return resp.Services, nil
}

// Properties returns the admin properties of a service.
func (c *Client) Properties(ctx context.Context, admin string, ref ServiceRef) (ServiceProperties, error) {
	data, err := c.get(ctx, tokenURL(admin), admin+"/services/"+ref.path(), jsonParams())
	if err != nil {
		return ServiceProperties{}, eris.Wrapf(err, "arcgis: properties of %s", ref.path())
	}
	var props ServiceProperties
	if err := json.Unmarshal(data, &props); err != nil {
		return ServiceProperties{}, eris.Wrap(err, "arcgis: decode properties")
	}
	return props, nil
}

// ManifestXML returns the service's manifest.xml.
func (c *Client) ManifestXML(ctx context.Context, admin string, ref ServiceRef) ([]byte, error) {
	data, err := c.get(ctx, tokenURL(admin), admin+"/services/"+ref.path()+"/iteminfo/manifest/manifest.xml", url.Values{})
	if err != nil {
		return nil, eris.Wrapf(err, "arcgis: manifest.xml of %s", ref.path())
	}
	return data, nil
}

// ManifestJSON returns the service's manifest.json.
func (c *Client) ManifestJSON(ctx context.Context, admin string, ref ServiceRef) ([]byte, error) {
	data, err := c.get(ctx, tokenURL(admin), admin+"/services/"+ref.path()+"/iteminfo/manifest/manifest.json", jsonParams())
	if err != nil {
		return nil, eris.Wrapf(err, "arcgis: manifest.json of %s", ref.path())
	}
	return data, nil
}

// QuickReport generates a RequestCount usage report for all services in a
// folder over the since window (e.g. LAST_YEAR) and returns the raw payload.
func (c *Client) QuickReport(ctx context.Context, admin, folder, since string) ([]byte, error) {
	form := url.Values{
		"f":       {"json"},
		"since":   {since},
		"queries": {"services/" + folder},
		"metrics": {"RequestCount"},
	}
	data, err := c.post(ctx, tokenURL(admin), admin+"/usagereports/quickReport/generate", form)
	if err != nil {
		return nil, eris.Wrapf(err, "arcgis: quick report for %s", folder)
	}
	return data, nil
}

// CreateDate returns Esri/CreaDate from the service's item metadata on the
// public REST endpoint, or "" when it is unavailable for any reason.
func (c *Client) CreateDate(ctx context.Context, rest string, ref ServiceRef) string {
	body, err := c.fetch.Get(ctx, ref.RESTURL(rest)+"/info/metadata")
	if err != nil {
		return ""
	}
	data, err := readBody(body)
	if err != nil {
		return ""
	}
	text, err := fetcher.FindText(bytes.NewReader(data), "Esri", "CreaDate")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
