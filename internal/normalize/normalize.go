package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// epochMillisCutoff: angka di bawah 1e11 dianggap detik, bukan milidetik.
const epochMillisCutoff = 1e11

// Layout tanggal yang dicoba untuk input deadline berupa string non-numerik.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	time.RFC1123,
}

// Bool menormalkan input boolean yang longgar dari wire:
// boolean asli lolos apa adanya, "true"/"1"/"yes" menjadi true,
// "false"/"0"/"no" menjadi false, sisanya memakai default caller.
func Bool(value interface{}, defaultVal bool) bool {
	switch v := value.(type) {
	case bool:
		return v
	case nil:
		return defaultVal
	}
	switch strings.ToLower(strings.TrimSpace(fmt.Sprint(value))) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultVal
	}
}

// Deadline menormalkan input deadline: angka (atau string angka) di bawah
// 1e11 dianggap epoch detik dan dikali 1000, selebihnya epoch milidetik;
// string non-numerik dicoba sebagai tanggal. Mengembalikan false jika
// input sama sekali tidak bisa diparse — caller wajib menolaknya.
func Deadline(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case nil:
		return time.Time{}, false
	case float64:
		return fromEpoch(v), true
	case int:
		return fromEpoch(float64(v)), true
	case int64:
		return fromEpoch(float64(v)), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return fromEpoch(f), true
		}
		return time.Time{}, false
	case string:
		s := strings.TrimSpace(v)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromEpoch(f), true
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func fromEpoch(n float64) time.Time {
	if n < epochMillisCutoff {
		n = n * 1000
	}
	return time.UnixMilli(int64(n)).UTC()
}
