package query

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrBadJSON dikembalikan jika parameter where/sort/select bukan JSON valid.
// Pesannya dikirim apa adanya ke client sebagai response 400.
var ErrBadJSON = errors.New("Badly formatted JSON in query string.")

// List adalah hasil terjemahan query string untuk endpoint listing:
// filter, sorting, proyeksi field, skip/limit, dan flag count.
type List struct {
	Filter     bson.D
	Sort       bson.D
	Projection bson.D
	Skip       *int64
	Limit      *int64
	Count      bool
}

// ParseList menerjemahkan parameter where/sort/select/skip/limit/count.
// defaultLimit dipakai jika limit tidak ada atau bukan angka; nilai 0
// berarti tanpa batas default.
func ParseList(c *fiber.Ctx, defaultLimit int64) (*List, error) {
	filter, err := parseJSONParam(c.Query("where"))
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = bson.D{}
	}

	sort, err := parseJSONParam(c.Query("sort"))
	if err != nil {
		return nil, err
	}

	projection, err := parseJSONParam(c.Query("select"))
	if err != nil {
		return nil, err
	}

	lq := &List{
		Filter:     filter,
		Sort:       sort,
		Projection: projection,
		Count:      strings.ToLower(c.Query("count")) == "true",
	}

	// skip yang bukan angka diabaikan begitu saja
	if raw := c.Query("skip"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			lq.Skip = &n
		}
	}

	// limit yang bukan angka jatuh kembali ke default milik caller
	limit := defaultLimit
	hasLimit := defaultLimit > 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			limit = n
			hasLimit = true
		}
	}
	if hasLimit {
		lq.Limit = &limit
	}

	return lq, nil
}

// ParseSelect menerjemahkan parameter select untuk lookup by-id,
// satu-satunya parameter query yang didukung endpoint tersebut.
func ParseSelect(c *fiber.Ctx) (bson.D, error) {
	return parseJSONParam(c.Query("select"))
}

// FindOptions membangun opsi find dari sort/select/skip/limit yang terisi.
func (l *List) FindOptions() *options.FindOptions {
	opts := options.Find()
	if l.Sort != nil {
		opts.SetSort(l.Sort)
	}
	if l.Projection != nil {
		opts.SetProjection(l.Projection)
	}
	if l.Skip != nil {
		opts.SetSkip(*l.Skip)
	}
	if l.Limit != nil {
		opts.SetLimit(*l.Limit)
	}
	return opts
}

// parseJSONParam membaca dokumen bson.D dari string JSON; urutan key
// dipertahankan supaya sort multi-field tetap benar.
func parseJSONParam(raw string) (bson.D, error) {
	if raw == "" {
		return nil, nil
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON([]byte(raw), false, &doc); err != nil {
		return nil, ErrBadJSON
	}
	return doc, nil
}
