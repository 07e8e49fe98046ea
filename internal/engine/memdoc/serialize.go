package memdoc

import (
	"github.com/pagemark/pagemark/internal/engine"
	"github.com/pagemark/pagemark/internal/geom"
)

// docFormat guards Open against arbitrary JSON: only buffers produced by
// Save reconstruct into a document.
const docFormat = "memdoc/1"

type docJSON struct {
	Format string     `json:"format"`
	Pages  []pageJSON `json:"pages"`
}

type pageJSON struct {
	Width    float64     `json:"width"`
	Height   float64     `json:"height"`
	Rotation int         `json:"rotation,omitempty"`
	Annots   []annotJSON `json:"annots,omitempty"`
	Redacted []geom.Rect `json:"redacted,omitempty"`
}

type annotJSON struct {
	Subtype     engine.Subtype       `json:"subtype"`
	Rect        geom.Rect            `json:"rect"`
	Color       []float64            `json:"color,omitempty"`
	HasColor    bool                 `json:"hasColor,omitempty"`
	BorderWidth float64              `json:"borderWidth,omitempty"`
	Opacity     *float64             `json:"opacity,omitempty"`
	Quads       []float64            `json:"quads,omitempty"`
	Ink         [][]float64          `json:"ink,omitempty"`
	HasLine     bool                 `json:"hasLine,omitempty"`
	LineStart   geom.Point           `json:"lineStart,omitempty"`
	LineEnd     geom.Point           `json:"lineEnd,omitempty"`
	Contents    string               `json:"contents,omitempty"`
	Entries     map[string]valueJSON `json:"entries,omitempty"`
}

// valueJSON is the wire form of engine.Value. Kind tags keep name,
// string, and boolean representations distinct across a save/reload so
// the loader's normalization paths stay honest.
type valueJSON struct {
	Kind string               `json:"kind"`
	B    bool                 `json:"b,omitempty"`
	N    float64              `json:"n,omitempty"`
	S    string               `json:"s,omitempty"`
	A    []valueJSON          `json:"a,omitempty"`
	D    map[string]valueJSON `json:"d,omitempty"`
}

func valueToJSON(v engine.Value) valueJSON {
	switch v.Kind() {
	case engine.KindBool:
		b, _ := v.Flag()
		return valueJSON{Kind: "bool", B: b}
	case engine.KindInt:
		i, _ := v.Integer()
		return valueJSON{Kind: "int", N: float64(i)}
	case engine.KindReal:
		f, _ := v.Number()
		return valueJSON{Kind: "real", N: f}
	case engine.KindName:
		s, _ := v.Text()
		return valueJSON{Kind: "name", S: s}
	case engine.KindString:
		s, _ := v.Text()
		return valueJSON{Kind: "string", S: s}
	case engine.KindArray:
		items, _ := v.Items()
		out := make([]valueJSON, len(items))
		for i, item := range items {
			out[i] = valueToJSON(item)
		}
		return valueJSON{Kind: "array", A: out}
	case engine.KindDict:
		entries, _ := v.Entries()
		out := make(map[string]valueJSON, len(entries))
		for k, e := range entries {
			out[k] = valueToJSON(e)
		}
		return valueJSON{Kind: "dict", D: out}
	default:
		return valueJSON{Kind: "null"}
	}
}

func valueFromJSON(v valueJSON) engine.Value {
	switch v.Kind {
	case "bool":
		return engine.Bool(v.B)
	case "int":
		return engine.Int(int64(v.N))
	case "real":
		return engine.Real(v.N)
	case "name":
		return engine.Name(v.S)
	case "string":
		return engine.String(v.S)
	case "array":
		items := make([]engine.Value, len(v.A))
		for i, a := range v.A {
			items[i] = valueFromJSON(a)
		}
		return engine.Array(items...)
	case "dict":
		entries := make(map[string]engine.Value, len(v.D))
		for k, e := range v.D {
			entries[k] = valueFromJSON(e)
		}
		return engine.DictValue(entries)
	default:
		return engine.Null()
	}
}

func pageToJSON(ps *pageState) pageJSON {
	pj := pageJSON{
		Width:    ps.Width,
		Height:   ps.Height,
		Rotation: ps.Rotation,
		Redacted: ps.Redacted,
	}
	for _, st := range ps.Annots {
		aj := annotJSON{
			Subtype:     st.Subtype,
			Rect:        st.Rect,
			HasColor:    st.HasColor,
			Color:       st.Color,
			BorderWidth: st.BorderWidth,
			Quads:       st.Quads,
			Ink:         st.Ink,
			HasLine:     st.HasLine,
			LineStart:   st.LineStart,
			LineEnd:     st.LineEnd,
			Contents:    st.Contents,
		}
		if st.HasOpacity {
			op := st.Opacity
			aj.Opacity = &op
		}
		if len(st.Entries) > 0 {
			aj.Entries = make(map[string]valueJSON, len(st.Entries))
			for k, v := range st.Entries {
				aj.Entries[k] = valueToJSON(v)
			}
		}
		pj.Annots = append(pj.Annots, aj)
	}
	return pj
}

func (pj pageJSON) toState() *pageState {
	ps := &pageState{
		Width:    pj.Width,
		Height:   pj.Height,
		Rotation: pj.Rotation,
		Redacted: pj.Redacted,
	}
	for _, aj := range pj.Annots {
		st := &annotState{
			Subtype:     aj.Subtype,
			Rect:        aj.Rect,
			HasColor:    aj.HasColor,
			Color:       aj.Color,
			BorderWidth: aj.BorderWidth,
			Quads:       aj.Quads,
			Ink:         aj.Ink,
			HasLine:     aj.HasLine,
			LineStart:   aj.LineStart,
			LineEnd:     aj.LineEnd,
			Contents:    aj.Contents,
			Entries:     map[string]engine.Value{},
		}
		if aj.Opacity != nil {
			st.HasOpacity = true
			st.Opacity = *aj.Opacity
		}
		for k, v := range aj.Entries {
			st.Entries[k] = valueFromJSON(v)
		}
		ps.Annots = append(ps.Annots, st)
	}
	return ps
}
