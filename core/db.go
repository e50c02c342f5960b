package core

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderByClause renders orderings restricted to the allowed fields; unknown fields are dropped.
// fallback is returned when nothing is left.
func OrderByClause(ordering []DBOrdering, allowed []string, fallback string) string {
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		for _, f := range allowed {
			if ord.Field == f {
				list = append(list, ord.String())
				break
			}
		}
	}
	if len(list) == 0 {
		return fallback
	}
	return strings.Join(list, ", ")
}

// JSONList is a list stored as a JSON array in a TEXT column.
// NULL and blank columns scan into an empty list; nil lists are written as "[]".
type JSONList[T any] []T

var (
	_ driver.Valuer  = JSONList[string]{}
	_ json.Marshaler = JSONList[string]{}
)

func (l JSONList[T]) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]T(l))
	if err != nil {
		return nil, errors.Wrap(err, "encoding json column")
	}
	return string(b), nil
}

func (l *JSONList[T]) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = JSONList[T]{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Errorf("json column: unsupported source type %T", src)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		*l = JSONList[T]{}
		return nil
	}
	items := make([]T, 0)
	if err := json.Unmarshal(data, &items); err != nil {
		return errors.Wrap(err, "decoding json column")
	}
	*l = items
	return nil
}

func (l JSONList[T]) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]T(l))
}
