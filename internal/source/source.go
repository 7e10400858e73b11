// Package source reads directory exports from disk and links each
// practitioner to its roles and locations.
package source

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/provdir/internal/config"
	"github.com/sells-group/provdir/internal/reconcile"
	"github.com/sells-group/provdir/internal/standardize"
	"github.com/sells-group/provdir/pkg/fhir"
)

// maxParallelReads bounds concurrent bundle file reads.
const maxParallelReads = 4

// ReadBundle decodes one bundle document.
func ReadBundle(r io.Reader) (*fhir.Bundle, error) {
	var b fhir.Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, eris.Wrap(err, "source: decode bundle")
	}
	if b.ResourceType != "" && b.ResourceType != "Bundle" {
		return nil, eris.Errorf("source: expected Bundle, got %s", b.ResourceType)
	}
	return &b, nil
}

// Link builds one standardizer input per practitioner in bundle order,
// using the richest shape the bundle supports: roles with resolvable
// locations, then roles alone, then the bare identity. Entries that fail
// to decode are logged and skipped.
func Link(b *fhir.Bundle) []standardize.Raw {
	res, errs := b.Split()
	for _, err := range errs {
		zap.L().Warn("source: skipping bundle entry", zap.Error(err))
	}

	out := make([]standardize.Raw, 0, len(res.Practitioners))
	for _, p := range res.Practitioners {
		out = append(out, link(&res, p))
	}
	return out
}

func link(res *fhir.Resources, p fhir.Practitioner) standardize.Raw {
	roles := res.RolesFor(p)
	if len(roles) == 0 {
		return standardize.Identity{Practitioner: p}
	}

	var located []standardize.RoleLocations
	for _, role := range roles {
		if locs := res.LocationsFor(role); len(locs) > 0 {
			located = append(located, standardize.RoleLocations{Role: role, Locations: locs})
		}
	}
	if len(located) == 0 {
		return standardize.IdentityRoles{Practitioner: p, Roles: roles}
	}
	return standardize.IdentityRoleLocations{Practitioner: p, Roles: located}
}

// LoadFile reads and links the bundle at path.
func LoadFile(path string) ([]standardize.Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	b, err := ReadBundle(f)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read %s", path)
	}
	return Link(b), nil
}

// LoadDir reads every configured source's bundle in parallel. The result
// keeps the order of sources.
func LoadDir(ctx context.Context, sources []config.SourceConfig) ([]reconcile.SourceRaw, error) {
	out := make([]reconcile.SourceRaw, len(sources))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)

	for i, src := range sources {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			raws, err := LoadFile(src.Path)
			if err != nil {
				return eris.Wrapf(err, "source: load %s", src.Name)
			}
			zap.L().Debug("source: loaded",
				zap.String("source", src.Name),
				zap.String("path", src.Path),
				zap.Int("practitioners", len(raws)),
			)
			out[i] = reconcile.SourceRaw{Source: src.Name, Raws: raws}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
