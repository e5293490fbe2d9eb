package neotoma

import (
	"context"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/neotomadb/neotoma-loader/internal/value"
)

// Batch holds the resolved parameter sets of one upload file.
type Batch struct {
	Site           *value.Map
	CollectionUnit *value.Map
	Chronologies   *value.Map
}

// Result lists the ids created by an upload.
type Result struct {
	SiteID           int64   `json:"siteid"`
	CollectionUnitID int64   `json:"collectionunitid"`
	ChronologyIDs    []int64 `json:"chronologyids,omitempty"`
}

// Uploader maps resolved parameters onto the Neotoma insert procedures.
type Uploader struct {
	sink *Sink
	log  *zap.Logger
}

// NewUploader returns an Uploader writing through sink.
func NewUploader(sink *Sink) *Uploader {
	return &Uploader{sink: sink, log: zap.L().With(zap.String("component", "neotoma"))}
}

// Upload inserts the site, its collection unit and every chronology in a
// single transaction.
func (u *Uploader) Upload(ctx context.Context, b Batch) (*Result, error) {
	var res *Result
	err := u.sink.InTx(ctx, func(ctx context.Context, tx *Sink) error {
		up := &Uploader{sink: tx, log: u.log}
		r := &Result{}

		var err error
		if r.SiteID, err = up.InsertSite(ctx, b.Site); err != nil {
			return err
		}
		if b.CollectionUnit != nil {
			if r.CollectionUnitID, err = up.InsertCollectionUnit(ctx, r.SiteID, b.CollectionUnit); err != nil {
				return err
			}
		}
		if b.Chronologies != nil {
			if r.ChronologyIDs, err = up.InsertChronologies(ctx, r.CollectionUnitID, b.Chronologies); err != nil {
				return err
			}
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("upload complete",
		zap.Int64("siteid", res.SiteID),
		zap.Int64("collectionunitid", res.CollectionUnitID),
		zap.Int("chronologies", len(res.ChronologyIDs)),
	)
	return res, nil
}

// InsertSite calls ts.insertsite. The site name is title-cased and the point
// coordinates fill both bounding box edges.
func (u *Uploader) InsertSite(ctx context.Context, site *value.Map) (int64, error) {
	if site == nil {
		return 0, eris.New("neotoma: site: no parameters")
	}
	name, ok := firstString(site.Value("sitename"))
	if !ok {
		return 0, eris.New("neotoma: site: sitename is required")
	}

	args := value.NewMap()
	args.Set("sitename", value.Scalar(cases.Title(language.Und).String(strings.ToLower(name))))
	args.Set("altitude", first(site.Value("altitude")))
	args.Set("area", first(site.Value("area")))
	args.Set("descript", first(site.Value("sitedescription")))
	args.Set("notes", first(site.Value("notes")))

	lat, long := value.Null(), value.Null()
	if sc, ok := site.Value("geog").Scalar(); ok {
		if c, ok := sc.(value.Coordinates); ok {
			if !ValidCoordinates(c) {
				return 0, eris.Errorf("neotoma: site: coordinates (%g, %g) out of range", c.Lat, c.Long)
			}
			lat, long = value.Scalar(c.Lat), value.Scalar(c.Long)
		}
	}
	args.Set("east", long)
	args.Set("west", long)
	args.Set("north", lat)
	args.Set("south", lat)

	return u.sink.Call(ctx, "insertsite", args)
}

var collectionUnitArgs = []string{
	"handle", "colltypeid", "depenvtid", "collunitname", "colldate", "colldevice",
	"gpsaltitude", "gpserror", "waterdepth", "substrateid", "slopeaspect", "slopeangle",
	"location", "notes",
}

// InsertCollectionUnit calls ts.insertcollectionunit for siteID.
func (u *Uploader) InsertCollectionUnit(ctx context.Context, siteID int64, cu *value.Map) (int64, error) {
	if _, ok := firstString(cu.Value("handle")); !ok {
		return 0, eris.New("neotoma: collection unit: handle is required")
	}

	args := value.NewMap()
	args.Set("siteid", value.Scalar(siteID))
	for _, k := range collectionUnitArgs {
		args.Set(k, first(cu.Value(k)))
	}
	lat, long := value.Null(), value.Null()
	if sc, ok := cu.Value("geog").Scalar(); ok {
		if c, ok := sc.(value.Coordinates); ok {
			lat, long = value.Scalar(c.Lat), value.Scalar(c.Long)
		}
	}
	args.Set("gpslatitude", lat)
	args.Set("gpslongitude", long)

	return u.sink.Call(ctx, "insertcollectionunit", args)
}

// InsertChronologies calls ts.insertchronology once per named chronology in
// resolved. Age bounds come from the explicit bound fields when both are
// present, otherwise from the extremes of the chronology's ages.
func (u *Uploader) InsertChronologies(ctx context.Context, collUnitID int64, resolved *value.Map) ([]int64, error) {
	chrons, ok := resolved.Value("chronologies").Group()
	if !ok {
		return nil, nil
	}

	var ids []int64
	for _, name := range chrons.Keys() {
		chron, _ := chrons.Value(name).Group()
		younger, older, err := AgeBounds(chron)
		if err != nil {
			return nil, eris.Wrapf(err, "neotoma: chronology %s", name)
		}

		args := value.NewMap()
		args.Set("collectionunitid", value.Scalar(collUnitID))
		args.Set("agetypeid", first(resolved.Value("agetypeid")))
		args.Set("contactid", first(resolved.Value("contactid")))
		args.Set("isdefault", chron.Value("isdefault"))
		args.Set("chronologyname", value.Scalar(name))
		args.Set("dateprepared", first(resolved.Value("dateprepared")))
		args.Set("agemodel", first(pick(chron, resolved, "agemodel")))
		args.Set("ageboundyounger", younger)
		args.Set("ageboundolder", older)
		args.Set("notes", first(pick(chron, resolved, "notes")))

		id, err := u.sink.Call(ctx, "insertchronology", args)
		if err != nil {
			return nil, err
		}
		u.log.Debug("inserted chronology", zap.String("chronologyname", name), zap.Int64("chronologyid", id))
		ids = append(ids, id)
	}
	return ids, nil
}

// AgeBounds returns the (younger, older) bounds of one chronology, truncated
// to whole years. It rejects younger > older.
func AgeBounds(chron *value.Map) (value.Value, value.Value, error) {
	var lo, hi float64
	var ok bool
	if y, yok := extreme(chron.Value("ageboundyounger"), math.Min); yok {
		if o, ook := extreme(chron.Value("ageboundolder"), math.Max); ook {
			lo, hi, ok = y, o, true
		}
	}
	if !ok {
		lo, ok = extreme(chron.Value("age"), math.Min)
		hi, _ = extreme(chron.Value("age"), math.Max)
	}
	if !ok {
		return value.Null(), value.Null(), nil
	}
	if lo > hi {
		return value.Null(), value.Null(), eris.Errorf("ageboundyounger %g is older than ageboundolder %g", lo, hi)
	}
	return value.Scalar(int64(lo)), value.Scalar(int64(hi)), nil
}

// extreme folds the numeric elements of v with f.
func extreme(v value.Value, f func(a, b float64) float64) (float64, bool) {
	var nums []float64
	if seq, ok := v.Sequence(); ok {
		for _, el := range seq {
			if n, ok := number(el); ok {
				nums = append(nums, n)
			}
		}
	} else if sc, ok := v.Scalar(); ok {
		if n, ok := number(sc); ok {
			nums = append(nums, n)
		}
	}
	if len(nums) == 0 {
		return 0, false
	}
	out := nums[0]
	for _, n := range nums[1:] {
		out = f(out, n)
	}
	return out, true
}

func number(x any) (float64, bool) {
	switch n := x.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case value.Date:
		return float64(n.Year), true
	default:
		return 0, false
	}
}

// first reduces a per-row sequence to its first non-nil element.
func first(v value.Value) value.Value {
	seq, ok := v.Sequence()
	if !ok {
		return v
	}
	for _, el := range seq {
		if el != nil {
			return value.Scalar(el)
		}
	}
	return value.Null()
}

func firstString(v value.Value) (string, bool) {
	sc, ok := first(v).Scalar()
	if !ok {
		return "", false
	}
	s, ok := sc.(string)
	return s, ok && strings.TrimSpace(s) != ""
}

// pick prefers the chronology's own value over the shared top-level one.
func pick(chron, shared *value.Map, key string) value.Value {
	if v := chron.Value(key); !v.IsNull() {
		return v
	}
	return shared.Value(key)
}
