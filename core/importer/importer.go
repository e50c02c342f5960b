// Package importer copies content saved in a browser's localStorage into the database.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/section"
	"github.com/trezcool/vitrine/core/showcase"
)

var (
	ErrInvalidDump = errors.New("the dump is not a JSON object")

	errDryRun = errors.New("dry run")
)

// Transactor runs fn with repositories bound to a single transaction.
// The transaction is rolled back when fn returns an error.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(sections section.Repository, items showcase.Repository) error) error
}

type Options struct {
	DryRun bool
	// Truncate cuts oversized fields to their limit instead of rejecting the record.
	Truncate bool
}

// RecordError locates the record that aborted an import.
type RecordError struct {
	Target string
	Key    string
	Index  int // -1 for sections
	Err    error
}

func (e *RecordError) Error() string {
	where := fmt.Sprintf("%s (from %q)", e.Target, e.Key)
	if e.Index >= 0 {
		where = fmt.Sprintf("%s item #%d (from %q)", e.Target, e.Index+1, e.Key)
	}
	var vErr *core.ValidationError
	if errors.As(e.Err, &vErr) && len(vErr.Fields) > 0 {
		msgs := make([]string, 0, len(vErr.Fields))
		for _, f := range vErr.Fields {
			msgs = append(msgs, f.Field+": "+f.Error)
		}
		return where + ": " + strings.Join(msgs, "; ")
	}
	return where + ": " + e.Err.Error()
}

func (e *RecordError) Unwrap() error { return e.Err }

type Importer struct {
	tx       Transactor
	validate *core.Validator
	logger   core.Logger
}

func New(tx Transactor, validate *core.Validator, logger core.Logger) *Importer {
	return &Importer{tx: tx, validate: validate, logger: logger}
}

// Import loads dump, a JSON object of localStorage keys, in one transaction.
// Sections are replaced; collection items already stored under the same natural key are skipped.
func (im *Importer) Import(ctx context.Context, dump []byte, opts Options) (*Report, error) {
	if !gjson.ValidBytes(dump) {
		return nil, ErrInvalidDump
	}
	root := gjson.ParseBytes(dump)
	if !root.IsObject() {
		return nil, ErrInvalidDump
	}

	report := &Report{DryRun: opts.DryRun}
	sources, unmatched := matchKeys(root)
	report.Unmatched = unmatched

	err := im.tx.WithinTx(ctx, func(sections section.Repository, items showcase.Repository) error {
		run := &run{
			opts:     opts,
			sections: section.NewService(sections, im.validate),
			items:    showcase.NewService(items, im.validate),
		}
		for _, t := range targets {
			for _, src := range sources[t.name] {
				row, err := run.load(ctx, t, src)
				if err != nil {
					return err
				}
				report.add(row)
			}
		}
		if opts.DryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && err != errDryRun {
		return nil, err
	}
	if im.logger != nil {
		im.logger.Info(fmt.Sprintf("import done: %d imported, %d skipped, dry run: %t", report.Imported(), report.Skipped(), opts.DryRun))
	}
	return report, nil
}

type source struct {
	key   string
	value gjson.Result
}

// matchKeys groups the dump entries by target, in dump order.
func matchKeys(root gjson.Result) (map[string][]source, []string) {
	byKey := make(map[string]string)
	for _, t := range targets {
		for _, k := range t.keys {
			byKey[strings.ToLower(k)] = t.name
		}
	}

	sources := make(map[string][]source)
	var unmatched []string
	root.ForEach(func(k, v gjson.Result) bool {
		name, ok := byKey[strings.ToLower(k.String())]
		if !ok {
			unmatched = append(unmatched, k.String())
			return true
		}
		sources[name] = append(sources[name], source{key: k.String(), value: decodeValue(v)})
		return true
	})
	sort.Strings(unmatched)
	return sources, unmatched
}

// decodeValue unwraps values that localStorage kept as JSON strings.
func decodeValue(v gjson.Result) gjson.Result {
	for v.Type == gjson.String {
		s := strings.TrimSpace(v.Str)
		if !(strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") || strings.HasPrefix(s, `"`)) || !gjson.Valid(s) {
			break
		}
		v = gjson.Parse(s)
	}
	return v
}

type run struct {
	opts     Options
	sections *section.Service
	items    *showcase.Service
}

func (r *run) load(ctx context.Context, t target, src source) (Row, error) {
	if t.isSection() {
		return r.loadSection(ctx, t, src)
	}
	return r.loadItems(ctx, t, src)
}

func (r *run) loadSection(ctx context.Context, t target, src source) (Row, error) {
	row := Row{Target: t.name, Key: src.key}
	obj := src.value
	if data := obj.Get("data"); data.IsObject() {
		obj = data
	}
	if !obj.IsObject() {
		row.Warnings = append(row.Warnings, "value is not an object, ignored")
		return row, nil
	}
	row.Found = 1

	res := &resolver{truncate: r.opts.Truncate}
	values := res.resolve(obj, t.fields, "")
	recErr := func(err error) (Row, error) {
		return row, &RecordError{Target: t.name, Key: src.key, Index: -1, Err: err}
	}
	if len(res.errs) > 0 {
		return recErr(core.NewValidationError(nil, res.errs...))
	}

	// start from the stored row so that fields missing from the dump are kept
	s, err := r.sections.Get(ctx, t.section)
	if err != nil {
		return row, err
	}
	if err := decodeInto(values, s); err != nil {
		return recErr(err)
	}
	if err := r.sections.Save(ctx, s); err != nil {
		if isValidation(err) {
			return recErr(err)
		}
		return row, err
	}
	row.Imported = 1
	row.Warnings = append(row.Warnings, res.warnings...)
	return row, nil
}

func (r *run) loadItems(ctx context.Context, t target, src source) (Row, error) {
	row := Row{Target: t.name, Key: src.key}
	list, ok := collectionItems(src.value, t)
	if !ok {
		row.Warnings = append(row.Warnings, "value is not a list, ignored")
		return row, nil
	}
	row.Found = len(list)

	for i, item := range list {
		recErr := func(err error) (Row, error) {
			return row, &RecordError{Target: t.name, Key: src.key, Index: i, Err: err}
		}

		res := &resolver{truncate: r.opts.Truncate}
		var values map[string]interface{}
		if item.IsObject() {
			values = res.resolve(item, t.fields, "")
		} else if t.bare != "" && item.Type == gjson.String {
			values = map[string]interface{}{}
			values[t.bare] = res.fitString(t.bare, valueString(item), fieldNamed(t.fields, t.bare))
		} else {
			row.Warnings = append(row.Warnings, fmt.Sprintf("item #%d has an unexpected shape, ignored", i+1))
			continue
		}
		if len(res.errs) > 0 {
			return recErr(core.NewValidationError(nil, res.errs...))
		}
		if _, ok := values["sort_order"]; !ok {
			values["sort_order"] = i
		}

		rec, err := r.items.New(t.kind)
		if err != nil {
			return row, err
		}
		if err := decodeInto(values, rec); err != nil {
			return recErr(err)
		}
		rec.Clean()

		exists, err := r.items.Exists(ctx, rec)
		if err != nil {
			return row, err
		}
		if exists {
			row.Skipped++
			continue
		}
		if err := r.items.Create(ctx, rec); err != nil {
			if isValidation(err) {
				return recErr(err)
			}
			return row, err
		}
		row.Imported++
		for _, w := range res.warnings {
			row.Warnings = append(row.Warnings, fmt.Sprintf("item #%d: %s", i+1, w))
		}
	}
	return row, nil
}

// collectionItems finds the list in v: v itself, or the first list held by a wrapper object.
func collectionItems(v gjson.Result, t target) ([]gjson.Result, bool) {
	if v.IsArray() {
		return v.Array(), true
	}
	if !v.IsObject() {
		return nil, false
	}
	for _, k := range append([]string{"items", "data", "list", t.name}, t.keys...) {
		if inner := decodeValue(v.Get(gjson.Escape(k))); inner.IsArray() {
			return inner.Array(), true
		}
	}
	// an object keyed by id
	var items []gjson.Result
	v.ForEach(func(_, val gjson.Result) bool {
		if val.IsObject() {
			items = append(items, val)
		}
		return true
	})
	return items, true
}

func fieldNamed(fs fields, name string) field {
	for _, f := range fs {
		if f.name == name {
			return f
		}
	}
	return field{name: name}
}

func decodeInto(values map[string]interface{}, dest interface{}) error {
	b, err := json.Marshal(values)
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return core.NewValidationError(errors.Wrap(err, "decoding record"))
	}
	return nil
}

func isValidation(err error) bool {
	_, ok := errors.Cause(err).(*core.ValidationError)
	return ok
}
