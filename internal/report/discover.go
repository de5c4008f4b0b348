package report

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/arcgis-admin-cli/internal/sites"
	"github.com/sells-group/arcgis-admin-cli/pkg/arcgis"
)

// RootLabel is how the root folder is shown in report rows.
const RootLabel = "Root"

// DirectoryLabel returns the report label of a folder.
func DirectoryLabel(folder string) string {
	if folder == arcgis.RootFolder {
		return RootLabel
	}
	return folder
}

// FolderUnit is one folder on one site.
type FolderUnit struct {
	Site   sites.Site
	Folder string
}

func (u FolderUnit) String() string { return u.Site.Name + ":" + u.Folder }

// ServiceUnit is one service on one site.
type ServiceUnit struct {
	Site sites.Site
	Ref  arcgis.ServiceRef
}

func (u ServiceUnit) String() string {
	return u.Site.Name + ":" + u.Ref.Folder + "/" + u.Ref.Name + "." + u.Ref.Type
}

func siteName(s sites.Site) string { return s.Name }

// folders lists the non-ignored folders of every site, in site order.
func (r *Runner) folders(ctx context.Context, list []sites.Site) ([]FolderUnit, []Failure) {
	results := run(ctx, r.opts.Concurrency, list, siteName, func(ctx context.Context, s sites.Site) ([]FolderUnit, error) {
		names, err := fetch(ctx, r, s.Name, func(ctx context.Context) ([]string, error) {
			return r.client.Folders(ctx, s.Admin, r.opts.IgnoreFolders)
		})
		if err != nil {
			return nil, err
		}
		units := make([]FolderUnit, len(names))
		for i, n := range names {
			units[i] = FolderUnit{Site: s, Folder: n}
		}
		zap.L().Debug("listed folders", zap.String("site", s.Name), zap.Int("folders", len(units)))
		return units, nil
	})

	perSite, failures := Partition(results)
	var units []FolderUnit
	for _, fs := range perSite {
		units = append(units, fs...)
	}
	return units, failures
}

// services lists every service in every folder of every site, in site then
// folder then server order.
func (r *Runner) services(ctx context.Context, list []sites.Site) ([]ServiceUnit, []Failure) {
	folders, failures := r.folders(ctx, list)

	results := run(ctx, r.opts.Concurrency, folders, FolderUnit.String, func(ctx context.Context, f FolderUnit) ([]ServiceUnit, error) {
		refs, err := fetch(ctx, r, f.Site.Name, func(ctx context.Context) ([]arcgis.ServiceRef, error) {
			return r.client.Services(ctx, f.Site.Admin, f.Folder)
		})
		if err != nil {
			return nil, err
		}
		units := make([]ServiceUnit, len(refs))
		for i, ref := range refs {
			units[i] = ServiceUnit{Site: f.Site, Ref: ref}
		}
		return units, nil
	})

	perFolder, more := Partition(results)
	var units []ServiceUnit
	for _, us := range perFolder {
		units = append(units, us...)
	}
	return units, append(failures, more...)
}
