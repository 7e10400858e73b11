package match

import (
	"context"
	"strings"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/provdir/internal/model"
	"github.com/sells-group/provdir/pkg/geocode"
)

// Address is the lookup key for a geocode request.
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

func (a Address) empty() bool {
	return a.Street == "" && a.City == "" && a.State == "" && a.Zip == ""
}

// Geocoder resolves an address to coordinates. ok is false when the
// address has no match.
type Geocoder interface {
	Geocode(ctx context.Context, addr Address) (lat, lng float64, ok bool, err error)
}

// GeocoderFunc adapts a function to the Geocoder interface.
type GeocoderFunc func(ctx context.Context, addr Address) (lat, lng float64, ok bool, err error)

// Geocode calls f.
func (f GeocoderFunc) Geocode(ctx context.Context, addr Address) (float64, float64, bool, error) {
	return f(ctx, addr)
}

// FromClient adapts a geocode.Client.
func FromClient(c geocode.Client) GeocoderFunc {
	return func(ctx context.Context, addr Address) (float64, float64, bool, error) {
		res, err := c.Geocode(ctx, geocode.AddressInput{
			Street:  addr.Street,
			City:    addr.City,
			State:   addr.State,
			ZipCode: addr.Zip,
		})
		if err != nil {
			return 0, 0, false, err
		}
		return res.Latitude, res.Longitude, res.Matched, nil
	}
}

// resolved is one memoized lookup; nil point means no usable coordinates.
type resolved struct {
	point *geom.Point
}

// coordMemo caches geocode outcomes, misses included, for one Group call.
type coordMemo struct {
	geocoder Geocoder
	seen     map[Address]resolved
	lookups  int
}

func newCoordMemo(g Geocoder) *coordMemo {
	return &coordMemo{geocoder: g, seen: make(map[Address]resolved)}
}

func addressOf(rec model.Record) Address {
	get := func(f string) string {
		s, _ := rec.String(f)
		return strings.TrimSpace(s)
	}
	return Address{
		Street: get(model.FieldADD1),
		City:   get(model.FieldCity),
		State:  get(model.FieldState),
		Zip:    get(model.FieldZip),
	}
}

// locate returns rec's coordinates, geocoding and writing them onto rec
// when absent. rec must be a record the matcher owns.
func (m *coordMemo) locate(ctx context.Context, rec model.Record) *geom.Point {
	lat, latOK := rec.Float(model.FieldLat)
	lng, lngOK := rec.Float(model.FieldLng)
	if latOK && lngOK {
		return Point(lat, lng)
	}

	addr := addressOf(rec)
	if m.geocoder == nil || addr.empty() {
		return nil
	}

	r, ok := m.seen[addr]
	if !ok {
		r = m.lookup(ctx, addr)
		m.seen[addr] = r
	}
	if r.point != nil {
		rec.Set(model.FieldLat, r.point.Y())
		rec.Set(model.FieldLng, r.point.X())
	}
	return r.point
}

func (m *coordMemo) lookup(ctx context.Context, addr Address) resolved {
	m.lookups++
	lat, lng, ok, err := m.geocoder.Geocode(ctx, addr)
	if err != nil {
		zap.L().Warn("match: geocode failed",
			zap.String("city", addr.City),
			zap.String("state", addr.State),
			zap.String("zip", addr.Zip),
			zap.Error(err),
		)
		return resolved{}
	}
	if !ok {
		zap.L().Debug("match: address not geocoded", zap.String("city", addr.City), zap.String("zip", addr.Zip))
		return resolved{}
	}
	return resolved{point: Point(lat, lng)}
}
