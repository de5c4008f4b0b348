package report

import "time"

// Report names. Output files are named {name}_{YYYYMMDD}.csv by default.
const (
	NameManifestXML  = "ServicesManifest_XML"
	NameManifestJSON = "ServicesManifest_JSON"
	NameServices     = "GIS_Services"
	NameUsage        = "GIS_Services_Usage"
)

// ServicesName names the service details report for a server type.
func ServicesName(serverType string) string {
	if serverType == "" {
		return NameServices
	}
	return NameServices + "_" + serverType
}

// ItemsName names the items report of a portal site.
func ItemsName(site string) string { return site + "_items" }

// FileName returns the default CSV file name for a report run at at.
func FileName(name string, at time.Time) string {
	return name + "_" + at.Format("20060102") + ".csv"
}
