package neotoma

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/neotomadb/neotoma-loader/internal/value"
)

// SRID is WGS 84, the reference system of Neotoma site geometries.
const SRID = 4326

// ValidCoordinates reports whether c lies within latitude and longitude range.
func ValidCoordinates(c value.Coordinates) bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Long >= -180 && c.Long <= 180
}

// Hemisphere returns the two-letter quadrant ("NW", "SE", ...) of c.
func Hemisphere(c value.Coordinates) string {
	h := "N"
	if c.Lat < 0 {
		h = "S"
	}
	if c.Long < 0 {
		return h + "W"
	}
	return h + "E"
}

// EncodePoint converts a lat/long pair to EWKB with SRID 4326. The point is
// stored x=longitude, y=latitude.
func EncodePoint(c value.Coordinates) ([]byte, error) {
	if !ValidCoordinates(c) {
		return nil, eris.Errorf("neotoma: coordinates (%g, %g) out of range", c.Lat, c.Long)
	}
	p := geom.NewPointFlat(geom.XY, []float64{c.Long, c.Lat}).SetSRID(SRID)
	data, err := ewkb.Marshal(p, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "neotoma: encode point")
	}
	return data, nil
}
