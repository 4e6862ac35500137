package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"reflect"
)

var ErrNotRecord = errors.New("value is not a record")

// Normalize convierte v a su forma JSON genérica (map[string]any, []any,
// json.Number, string, bool, nil). Los montos decimal se serializan en forma canónica.
func Normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return out, nil
}

// Equal compara a y b estructuralmente.
func Equal[T any](a, b T) bool {
	na, err := Normalize(a)
	if err != nil {
		return false
	}
	nb, err := Normalize(b)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(na, nb)
}

// ComputePatch devuelve los campos de edited que difieren de original.
// Los registros anidados se comparan recursivamente y solo se incluyen si
// tienen diferencias; los arrays se comparan por valor, sin diff recursivo.
func ComputePatch(edited, original map[string]any) map[string]any {
	patch := make(map[string]any)
	for key, ev := range edited {
		ov := original[key]
		if em, ok := ev.(map[string]any); ok {
			om, _ := ov.(map[string]any)
			if nested := ComputePatch(em, om); len(nested) > 0 {
				patch[key] = nested
			}
			continue
		}
		if !reflect.DeepEqual(ev, ov) {
			patch[key] = ev
		}
	}
	return patch
}

// DiffRecords calcula el patch entre dos registros del mismo tipo. Un campo
// que omitempty quita de edited pero existe en original viaja con su valor cero.
func DiffRecords[T any](edited, original T) (map[string]any, error) {
	e, err := toRecord(edited)
	if err != nil {
		return nil, err
	}
	o, err := toRecord(original)
	if err != nil {
		return nil, err
	}
	fillCleared(e, o)
	return ComputePatch(e, o), nil
}

// fillCleared agrega a edited las claves de original que faltan, con el valor
// cero del mismo tipo JSON.
func fillCleared(edited, original map[string]any) {
	for key, ov := range original {
		ev, ok := edited[key]
		if !ok {
			edited[key] = zeroLike(ov)
			continue
		}
		em, eok := ev.(map[string]any)
		om, ook := ov.(map[string]any)
		if eok && ook {
			fillCleared(em, om)
		}
	}
}

func zeroLike(v any) any {
	switch tv := v.(type) {
	case string:
		return ""
	case bool:
		return false
	case json.Number:
		return json.Number("0")
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, nv := range tv {
			out[k] = zeroLike(nv)
		}
		return out
	default:
		return nil
	}
}

// ApplyPatch devuelve una copia de original con patch fusionado campo a campo.
func ApplyPatch(original, patch map[string]any) map[string]any {
	out := maps.Clone(original)
	if out == nil {
		out = make(map[string]any, len(patch))
	}
	for key, pv := range patch {
		if pm, ok := pv.(map[string]any); ok {
			om, _ := out[key].(map[string]any)
			out[key] = ApplyPatch(om, pm)
			continue
		}
		out[key] = pv
	}
	return out
}

func toRecord(v any) (map[string]any, error) {
	n, err := Normalize(v)
	if err != nil {
		return nil, err
	}
	m, ok := n.(map[string]any)
	if !ok {
		return nil, ErrNotRecord
	}
	return m, nil
}
