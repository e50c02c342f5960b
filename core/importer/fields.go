package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/trezcool/vitrine/core"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindBool
	kindTime
	kindStrings // list of strings
	kindObjects // list of objects
)

// field maps a canonical JSON name to the names seen in old exports.
type field struct {
	name    string
	aliases []string
	kind    fieldKind
	// max is the rune limit of strings (the byte limit when bytes is set), or the item cap of lists. 0 means none.
	max   int
	bytes bool
	items fields
}

type fields []field

func str(name string, max int, aliases ...string) field {
	return field{name: name, aliases: append([]string{name}, aliases...), kind: kindString, max: max}
}

// text is a string stored in a TEXT column, which caps bytes rather than characters.
func text(name string, aliases ...string) field {
	return field{name: name, aliases: append([]string{name}, aliases...), kind: kindString, max: textMaxBytes, bytes: true}
}

func num(name string, aliases ...string) field {
	return field{name: name, aliases: append([]string{name}, aliases...), kind: kindInt}
}

func flag(name string, aliases ...string) field {
	return field{name: name, aliases: append([]string{name}, aliases...), kind: kindBool}
}

func when(name string, aliases ...string) field {
	return field{name: name, aliases: append([]string{name}, aliases...), kind: kindTime}
}

func strList(name string, max, itemMax int, aliases ...string) field {
	return field{
		name: name, aliases: append([]string{name}, aliases...), kind: kindStrings, max: max,
		items: fields{{max: itemMax}},
	}
}

func objList(name string, max int, items fields, aliases ...string) field {
	return field{name: name, aliases: append([]string{name}, aliases...), kind: kindObjects, max: max, items: items}
}

const textMaxBytes = 65535

var itemTextAliases = []string{"text", "title", "value", "name", "description"}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// resolver turns loosely shaped JSON into canonical maps and records what it changed.
type resolver struct {
	truncate bool
	warnings []string
	// oversized fields found while truncation is off
	errs []core.FieldError
}

func (r *resolver) lookup(obj gjson.Result, aliases []string) (gjson.Result, bool) {
	for _, alias := range aliases {
		if v := obj.Get(gjson.Escape(alias)); v.Exists() && v.Type != gjson.Null {
			return v, true
		}
	}
	return gjson.Result{}, false
}

// resolve maps obj through fs. path prefixes field names in warnings and errors.
func (r *resolver) resolve(obj gjson.Result, fs fields, path string) map[string]interface{} {
	out := make(map[string]interface{}, len(fs))
	for _, f := range fs {
		v, ok := r.lookup(obj, f.aliases)
		if !ok {
			continue
		}
		name := path + f.name
		switch f.kind {
		case kindString:
			out[f.name] = r.fitString(name, valueString(v), f)
		case kindInt:
			if n, ok := r.toInt(name, v); ok {
				out[f.name] = n
			}
		case kindBool:
			out[f.name] = v.Bool()
		case kindTime:
			if t, ok := parseTime(v); ok {
				out[f.name] = t
			} else if s := valueString(v); s != "" {
				r.warnings = append(r.warnings, fmt.Sprintf("%s: unrecognised date %q, left empty", name, s))
			}
		case kindStrings:
			list := make([]string, 0)
			for i, item := range listItems(v) {
				if item.IsObject() {
					item, _ = r.lookup(item, itemTextAliases)
				}
				s := core.CleanString(valueString(item))
				if s == "" {
					continue
				}
				list = append(list, r.fitString(fmt.Sprintf("%s[%d]", name, i), s, f.items[0]))
			}
			out[f.name] = fitList(r, name, list, f.max)
		case kindObjects:
			list := make([]map[string]interface{}, 0)
			for i, item := range listItems(v) {
				if !item.IsObject() {
					continue
				}
				list = append(list, r.resolve(item, f.items, fmt.Sprintf("%s[%d].", name, i)))
			}
			out[f.name] = fitList(r, name, list, f.max)
		}
	}
	return out
}

// fitString applies the length limit of f to s: an error, or a cut when truncating.
func (r *resolver) fitString(name, s string, f field) string {
	unit, size, cut := "characters", utf8.RuneCountInString(s), core.Truncate
	if f.bytes {
		unit, size, cut = "bytes", len(s), core.TruncateBytes
	}
	if f.max <= 0 || size <= f.max {
		return s
	}
	if !r.truncate {
		r.errs = append(r.errs, core.FieldError{Field: name, Error: fmt.Sprintf("%s must be a maximum of %d %s in length", name, f.max, unit)})
		return s
	}
	r.warnings = append(r.warnings, fmt.Sprintf("%s truncated from %d to %d %s", name, size, f.max, unit))
	return cut(s, f.max)
}

// toInt reads whole numbers. Fractions are cut toward zero and anything else is dropped, both with a warning.
func (r *resolver) toInt(name string, v gjson.Result) (int64, bool) {
	num := v.Num
	switch v.Type {
	case gjson.Number:
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			r.warnings = append(r.warnings, fmt.Sprintf("%s: %q is not a number, ignored", name, v.Str))
			return 0, false
		}
		num = f
	default:
		r.warnings = append(r.warnings, fmt.Sprintf("%s: %s is not a number, ignored", name, v.Raw))
		return 0, false
	}
	n := int64(num)
	if float64(n) != num {
		r.warnings = append(r.warnings, fmt.Sprintf("%s: %v is not a whole number, imported as %d", name, num, n))
	}
	return n, true
}

func fitList[T any](r *resolver, name string, list []T, max int) []T {
	if max <= 0 || len(list) <= max {
		return list
	}
	if !r.truncate {
		r.errs = append(r.errs, core.FieldError{Field: name, Error: fmt.Sprintf("%s must contain at maximum %d items", name, max)})
		return list
	}
	r.warnings = append(r.warnings, fmt.Sprintf("%s truncated from %d to %d items", name, len(list), max))
	return list[:max]
}

// listItems returns the elements of an array, or of a JSON array held in a string.
func listItems(v gjson.Result) []gjson.Result {
	if v.Type == gjson.String {
		if s := strings.TrimSpace(v.Str); strings.HasPrefix(s, "[") && gjson.Valid(s) {
			v = gjson.Parse(s)
		} else {
			lines := strings.Split(v.Str, "\n")
			items := make([]gjson.Result, 0, len(lines))
			for _, l := range lines {
				items = append(items, gjson.Result{Type: gjson.String, Str: l})
			}
			return items
		}
	}
	if !v.IsArray() {
		return nil
	}
	return v.Array()
}

func valueString(v gjson.Result) string {
	if v.Type == gjson.String {
		return core.CleanString(v.Str)
	}
	if v.IsObject() || v.IsArray() {
		return ""
	}
	return core.CleanString(v.String())
}

func parseTime(v gjson.Result) (time.Time, bool) {
	if v.Type == gjson.Number {
		// JS timestamps are in milliseconds
		return time.UnixMilli(v.Int()).UTC(), true
	}
	s := strings.TrimSpace(v.String())
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
