// Package sites loads the registry of ArcGIS Server sites a report runs
// against.
//
// The registry is a JSON (or YAML) document in one of two shapes:
//
//	{"prod": {"admin": "...", "rest": "...", "access": "External", "type": "Map"}}
//
//	{"arcgis_servers": {"prod": {...}}, "arcgis_image_servers": {"img": {...}}}
//
// Sites keep the order they appear in the file.
package sites

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Server groups of the two-level registry.
const (
	MapServers   = "arcgis_servers"
	ImageServers = "arcgis_image_servers"
)

// Site is one ArcGIS Server deployment.
type Site struct {
	Name   string `yaml:"-"`
	Admin  string `yaml:"admin"`
	REST   string `yaml:"rest"`
	Access string `yaml:"access"`
	Type   string `yaml:"type"`
}

// Group maps a --server_type value to its registry key.
func Group(serverType string) (string, error) {
	switch strings.ToLower(serverType) {
	case "", "map":
		return MapServers, nil
	case "image":
		return ImageServers, nil
	default:
		return "", eris.Errorf("sites: unknown server type %q (want map or image)", serverType)
	}
}

// Load reads the registry at path and returns the sites for serverType.
func Load(path, serverType string) ([]Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sites: read %s", path)
	}
	return Parse(data, serverType)
}

// Parse decodes a registry document. JSON is valid YAML, so one decoder
// serves both and preserves key order.
func Parse(data []byte, serverType string) ([]Site, error) {
	group, err := Group(serverType)
	if err != nil {
		return nil, err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "sites: parse registry")
	}
	if len(doc.Content) == 0 {
		return nil, eris.New("sites: empty registry")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, eris.New("sites: registry must be a mapping")
	}

	if isGrouped(root) {
		sub := lookup(root, group)
		if sub == nil {
			return nil, eris.Errorf("sites: registry has no %q group", group)
		}
		root = sub
	}
	return decodeSites(root)
}

func isGrouped(root *yaml.Node) bool {
	return lookup(root, MapServers) != nil || lookup(root, ImageServers) != nil
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func decodeSites(m *yaml.Node) ([]Site, error) {
	if m.Kind != yaml.MappingNode {
		return nil, eris.New("sites: site group must be a mapping")
	}
	out := make([]Site, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		name := m.Content[i].Value
		var s Site
		if err := m.Content[i+1].Decode(&s); err != nil {
			return nil, eris.Wrapf(err, "sites: decode site %q", name)
		}
		if s.Admin == "" {
			return nil, eris.Errorf("sites: site %q has no admin url", name)
		}
		s.Name = name
		s.Admin = strings.TrimRight(s.Admin, "/")
		s.REST = strings.TrimRight(s.REST, "/")
		out = append(out, s)
	}
	return out, nil
}

// Select returns the site called name, or all sites when name is empty.
func Select(all []Site, name string) ([]Site, error) {
	if name == "" {
		return all, nil
	}
	for _, s := range all {
		if s.Name == name {
			return []Site{s}, nil
		}
	}
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	return nil, eris.Errorf("sites: server %q not found (available: %s)", name, strings.Join(names, ", "))
}
