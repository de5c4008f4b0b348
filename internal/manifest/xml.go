package manifest

import (
	"context"
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/arcgis-admin-cli/internal/fetcher"
)

// ElementManifest is the XML element name of a service manifest.
const ElementManifest = "SVCManifest"

// element is a generic XML tree. Manifests nest databases, datasets, and
// resources at varying depths, so lookups walk descendants rather than
// binding to a fixed struct layout.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []element  `xml:",any"`
	Text     string     `xml:",chardata"`
}

func (e element) attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// child returns the first direct child named name.
func (e element) child(name string) (element, bool) {
	for _, c := range e.Children {
		if c.XMLName.Local == name {
			return c, true
		}
	}
	return element{}, false
}

// childText returns the trimmed text of the first direct child named name,
// or nil when the child is absent or empty.
func (e element) childText(name string) *string {
	c, ok := e.child(name)
	if !ok {
		return nil
	}
	text := strings.TrimSpace(c.Text)
	if text == "" {
		return nil
	}
	return &text
}

// descendants returns every element named name below e, in document order.
func (e element) descendants(name string) []element {
	var out []element
	for _, c := range e.Children {
		if c.XMLName.Local == name {
			out = append(out, c)
		}
		out = append(out, c.descendants(name)...)
	}
	return out
}

// ParseXML reads every SVCManifest element in r. The identity fields come
// from the element's Endpoint, serviceDir, serviceName, serviceType, and
// serviceURL attributes.
func ParseXML(ctx context.Context, r io.Reader) ([]Manifest, error) {
	elCh, errCh := fetcher.StreamXML[element](ctx, r, ElementManifest)

	var out []Manifest
	for el := range elCh {
		out = append(out, fromElement(el))
	}
	for err := range errCh {
		if err != nil {
			return nil, eris.Wrap(err, "manifest: parse xml")
		}
	}
	return out, nil
}

// ParseServiceXML reads a single service's manifest.xml and stamps it with
// the identity of the service it was fetched for. Identity attributes already
// present in the document are overridden.
func ParseServiceXML(ctx context.Context, r io.Reader, identity Manifest) ([]Manifest, error) {
	manifests, err := ParseXML(ctx, r)
	if err != nil {
		return nil, err
	}
	for i := range manifests {
		manifests[i].Endpoint = identity.Endpoint
		manifests[i].ServiceDir = identity.ServiceDir
		manifests[i].ServiceName = identity.ServiceName
		manifests[i].ServiceType = identity.ServiceType
		manifests[i].ServiceURL = identity.ServiceURL
	}
	return manifests, nil
}

func fromElement(el element) Manifest {
	m := Manifest{
		Endpoint:    el.attr("Endpoint"),
		ServiceDir:  el.attr("serviceDir"),
		ServiceName: el.attr("serviceName"),
		ServiceType: el.attr("serviceType"),
		ServiceURL:  el.attr("serviceURL"),
	}

	for _, res := range el.descendants("SVCResource") {
		m.Resources = append(m.Resources, Resource{Path: res.childText("OnPremisePath")})
	}

	for _, dbEl := range el.descendants("SVCDatabase") {
		var db Database
		for _, ds := range dbEl.descendants("SVCDataset") {
			db.Datasets = append(db.Datasets, Dataset{
				Name: ds.childText("Name"),
				Type: ds.childText("DatasetType"),
				Path: ds.childText("OnPremisePath"),
			})
		}
		m.Databases = append(m.Databases, db)
	}

	return m
}
