package cache

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputePatchNested(t *testing.T) {
	original := map[string]any{
		"description": "Coffee",
		"amount":      "4.5",
		"details":     map[string]any{"category": "food", "processing_status": "complete"},
		"tags":        []any{"a", "b"},
	}
	edited := map[string]any{
		"description": "Coffee",
		"amount":      "5",
		"details":     map[string]any{"category": "food", "processing_status": "pending"},
		"tags":        []any{"a", "b"},
	}

	patch := ComputePatch(edited, original)
	want := map[string]any{
		"amount":  "5",
		"details": map[string]any{"processing_status": "pending"},
	}
	if !reflect.DeepEqual(patch, want) {
		t.Fatalf("unexpected patch: %#v", patch)
	}
}

func TestComputePatchArraysByValue(t *testing.T) {
	original := map[string]any{"tags": []any{"a", "b"}}
	edited := map[string]any{"tags": []any{"a", "c"}}

	patch := ComputePatch(edited, original)
	if !reflect.DeepEqual(patch, map[string]any{"tags": []any{"a", "c"}}) {
		t.Fatalf("arrays should be sent whole, got %#v", patch)
	}
}

func TestComputePatchIdempotent(t *testing.T) {
	records := []map[string]any{
		{},
		{"a": "1"},
		{"a": "1", "n": map[string]any{"x": true, "y": nil}},
		{"list": []any{"1", map[string]any{"k": "v"}}},
	}
	for _, r := range records {
		if patch := ComputePatch(r, r); len(patch) != 0 {
			t.Fatalf("patch of %v with itself should be empty, got %v", r, patch)
		}
	}
}

func TestApplyPatchReconstructsEdited(t *testing.T) {
	original := map[string]any{
		"description": "Rent",
		"details":     map[string]any{"category": "housing", "processing_status": "complete"},
	}
	edited := map[string]any{
		"description": "Rent May",
		"details":     map[string]any{"category": "home", "processing_status": "complete"},
	}

	merged := ApplyPatch(original, ComputePatch(edited, original))
	if !reflect.DeepEqual(merged, edited) {
		t.Fatalf("merge mismatch: %#v", merged)
	}
	if original["description"] != "Rent" {
		t.Fatalf("ApplyPatch must not mutate the original")
	}
}

func TestDiffRecordsRejectsNonRecords(t *testing.T) {
	if _, err := DiffRecords([]int{1}, []int{2}); err != ErrNotRecord {
		t.Fatalf("expected ErrNotRecord, got %v", err)
	}
}

func TestEqualIgnoresDecimalScale(t *testing.T) {
	a := tx("1", "food", "10.00")
	b := tx("1", "food", "10")
	if !Equal(a, b) {
		t.Fatalf("amounts with different scale should compare equal")
	}
	b.Description = "other"
	if Equal(a, b) {
		t.Fatalf("different descriptions should not compare equal")
	}
}

func TestDiffRecordsKeepsClearedFields(t *testing.T) {
	original := tx("1", "food", "10")
	balance := decimal.RequireFromString("120.5")
	original.Type = "card_payment"
	original.RunningBalance = &balance

	edited := original
	edited.Details.Category = ""
	edited.Type = ""
	edited.RunningBalance = nil

	patch, err := DiffRecords(edited, original)
	if err != nil {
		t.Fatalf("DiffRecords: %v", err)
	}
	want := map[string]any{
		"details":         map[string]any{"category": ""},
		"type":            "",
		"running_balance": nil,
	}
	if !reflect.DeepEqual(patch, want) {
		t.Fatalf("unexpected patch: %#v", patch)
	}

	o, _ := toRecord(original)
	e, _ := toRecord(edited)
	if merged := ApplyPatch(o, patch); !reflect.DeepEqual(merged, e) {
		t.Fatalf("merge mismatch: %#v", merged)
	}
}

func TestDiffRecordsZeroFillsOmittedKeys(t *testing.T) {
	type inner struct {
		Label string `json:"label,omitempty"`
		Count int    `json:"count,omitempty"`
	}
	type record struct {
		Name   string `json:"name,omitempty"`
		Active bool   `json:"active,omitempty"`
		Inner  inner  `json:"inner"`
	}
	original := record{Name: "a", Active: true, Inner: inner{Label: "x", Count: 3}}
	edited := record{Inner: inner{Label: "x"}}

	patch, err := DiffRecords(edited, original)
	if err != nil {
		t.Fatalf("DiffRecords: %v", err)
	}
	want := map[string]any{
		"name":   "",
		"active": false,
		"inner":  map[string]any{"count": json.Number("0")},
	}
	if !reflect.DeepEqual(patch, want) {
		t.Fatalf("unexpected patch: %#v", patch)
	}
}
