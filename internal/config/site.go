package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/couchcryptid/soil-water-etl/internal/domain"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Site describes one monitored field: its name, the deepest root depth the
// crop can reach, and the soil layers observed by the probes.
type Site struct {
	Name         string
	MaxRootDepth float64
	Profile      domain.ProfileInput
}

// hclSiteFile is the top-level structure of a site file for decoding.
type hclSiteFile struct {
	Sites []*hclSite `hcl:"site,block"`
}

type hclSite struct {
	Name         string      `hcl:"name,label"`
	MaxRootDepth *float64    `hcl:"max_root_depth,optional"`
	Layers       []*hclLayer `hcl:"layer,block"`
}

type hclLayer struct {
	Depth        float64 `hcl:"depth"`
	Start        float64 `hcl:"start"`
	End          float64 `hcl:"end"`
	ThetaFC      float64 `hcl:"theta_fc"`
	ThetaInitial float64 `hcl:"theta_initial"`
	ThetaWP      float64 `hcl:"theta_wp"`
}

// LoadSite reads and decodes an HCL site file such as:
//
//	site "ames" {
//	  max_root_depth = 1.5
//	  layer {
//	    depth         = 0.15
//	    start         = 0
//	    end           = 0.15
//	    theta_fc      = 0.29
//	    theta_initial = 0.083
//	    theta_wp      = 0.145
//	  }
//	}
func LoadSite(path string) (*Site, error) {
	src, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: site config %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("read site config %s: %w", path, err)
	}
	return ParseSite(path, src)
}

// ParseSite decodes site HCL. The filename is used in diagnostics only.
func ParseSite(filename string, src []byte) (*Site, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to parse site config %s: %s", domain.ErrParse, filename, diags.Error())
	}

	var parsed hclSiteFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to decode site config %s: %s", domain.ErrParse, filename, diags.Error())
	}

	if len(parsed.Sites) != 1 {
		return nil, fmt.Errorf("%w: site config %s must define exactly one site block, found %d",
			domain.ErrConfiguration, filename, len(parsed.Sites))
	}
	hs := parsed.Sites[0]

	site := &Site{Name: hs.Name}
	for _, l := range hs.Layers {
		site.Profile.Depths = append(site.Profile.Depths, l.Depth)
		site.Profile.Boundaries = append(site.Profile.Boundaries, domain.Boundary{Start: l.Start, End: l.End})
		site.Profile.ThetaFC = append(site.Profile.ThetaFC, l.ThetaFC)
		site.Profile.ThetaInitial = append(site.Profile.ThetaInitial, l.ThetaInitial)
		site.Profile.ThetaWP = append(site.Profile.ThetaWP, l.ThetaWP)
	}

	switch {
	case hs.MaxRootDepth != nil:
		if *hs.MaxRootDepth <= 0 {
			return nil, fmt.Errorf("%w: site %q: max_root_depth must be positive", domain.ErrConfiguration, hs.Name)
		}
		site.MaxRootDepth = *hs.MaxRootDepth
	case len(hs.Layers) > 0:
		site.MaxRootDepth = hs.Layers[len(hs.Layers)-1].End
	}

	return site, nil
}

// BuildProfile validates the site's layers into a LayerProfile.
func (s *Site) BuildProfile() (domain.LayerProfile, error) {
	p, err := domain.BuildProfile(s.Profile)
	if err != nil {
		return domain.LayerProfile{}, fmt.Errorf("site %q: %w", s.Name, err)
	}
	return p, nil
}
