package pdfcpudoc

import (
	"fmt"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/pagemark/pagemark/internal/engine"
)

// dictAdapter implements engine.Dict over an annotation's pdfcpu
// dictionary, normalizing each primitive at the boundary.
type dictAdapter struct {
	annot *Annotation
}

// Get implements engine.Dict.
func (d *dictAdapter) Get(key string) (engine.Value, bool) {
	obj, found := d.annot.dict.Find(key)
	if !found {
		return engine.Null(), false
	}
	v, err := toValue(d.annot.page.doc.ctx.XRefTable, obj)
	if err != nil {
		return engine.Null(), false
	}
	return v, true
}

// Put implements engine.Dict. A null value deletes the entry.
func (d *dictAdapter) Put(key string, v engine.Value) error {
	if !d.annot.attached() {
		return engine.ErrDetached
	}
	if v.IsNull() {
		delete(d.annot.dict, key)
		return nil
	}
	obj, err := fromValue(v)
	if err != nil {
		return err
	}
	d.annot.dict.Update(key, obj)
	return nil
}

// Delete implements engine.Dict.
func (d *dictAdapter) Delete(key string) {
	delete(d.annot.dict, key)
}

// Keys implements engine.Dict, sorted for deterministic iteration.
func (d *dictAdapter) Keys() []string {
	keys := make([]string, 0, len(d.annot.dict))
	for k := range d.annot.dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// toValue normalizes a pdfcpu object into the contract's value type,
// resolving indirect references.
func toValue(xref *model.XRefTable, obj types.Object) (engine.Value, error) {
	resolved, err := xref.Dereference(obj)
	if err != nil {
		return engine.Null(), fmt.Errorf("dereference: %w", err)
	}
	switch v := resolved.(type) {
	case nil:
		return engine.Null(), nil
	case types.Boolean:
		return engine.Bool(v.Value()), nil
	case types.Integer:
		return engine.Int(int64(v.Value())), nil
	case types.Float:
		return engine.Real(v.Value()), nil
	case types.Name:
		return engine.Name(v.Value()), nil
	case types.StringLiteral:
		s, err := types.StringLiteralToString(v)
		if err != nil {
			return engine.Null(), fmt.Errorf("decode string literal: %w", err)
		}
		return engine.String(s), nil
	case types.HexLiteral:
		b, err := v.Bytes()
		if err != nil {
			return engine.Null(), fmt.Errorf("decode hex literal: %w", err)
		}
		return engine.String(string(b)), nil
	case types.Array:
		items := make([]engine.Value, 0, len(v))
		for _, entry := range v {
			item, err := toValue(xref, entry)
			if err != nil {
				return engine.Null(), err
			}
			items = append(items, item)
		}
		return engine.Array(items...), nil
	case types.Dict:
		entries := make(map[string]engine.Value, len(v))
		for k, entry := range v {
			item, err := toValue(xref, entry)
			if err != nil {
				return engine.Null(), err
			}
			entries[k] = item
		}
		return engine.DictValue(entries), nil
	default:
		return engine.Null(), fmt.Errorf("unsupported pdf object type %T", resolved)
	}
}

// fromValue encodes a contract value as a pdfcpu object. Strings become
// hex literals so arbitrary payload bytes survive serialization.
func fromValue(v engine.Value) (types.Object, error) {
	switch v.Kind() {
	case engine.KindBool:
		b, _ := v.Flag()
		return types.Boolean(b), nil
	case engine.KindInt:
		i, _ := v.Integer()
		return types.Integer(int(i)), nil
	case engine.KindReal:
		f, _ := v.Number()
		return types.Float(f), nil
	case engine.KindName:
		s, _ := v.Text()
		return types.Name(s), nil
	case engine.KindString:
		s, _ := v.Text()
		return types.NewHexLiteral([]byte(s)), nil
	case engine.KindArray:
		items, _ := v.Items()
		arr := make(types.Array, 0, len(items))
		for _, item := range items {
			obj, err := fromValue(item)
			if err != nil {
				return nil, err
			}
			arr = append(arr, obj)
		}
		return arr, nil
	case engine.KindDict:
		entries, _ := v.Entries()
		d := types.NewDict()
		for k, item := range entries {
			obj, err := fromValue(item)
			if err != nil {
				return nil, err
			}
			d.Update(k, obj)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("cannot encode value kind %d", v.Kind())
	}
}
