package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/apperror"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/imaging"
)

func TestDefaultLayout(t *testing.T) {
	layout := DefaultLayout()
	if err := layout.Validate(); err != nil {
		t.Fatalf("default layout invalid: %v", err)
	}

	keys := layout.Keys()
	if len(keys) != 3 || keys[0] != "antes" || keys[1] != "depois" || keys[2] != "placa" {
		t.Errorf("keys = %v", keys)
	}
	placa, ok := layout.Spec("placa")
	if !ok || placa.MaxImages != 1 || placa.Label != "PLACA DE IDENTIFICAÇÃO" {
		t.Errorf("placa = %+v", placa)
	}
	if got := layout.SizeFor(placa); got != DefaultSize {
		t.Errorf("SizeFor = %v, want %v", got, DefaultSize)
	}
}

func TestParseLayout(t *testing.T) {
	data := []byte(`
default_size: {width_cm: 6, height_cm: 4.5}
categories:
  - key: depois
    label: FOTOS - DEPOIS
  - key: antes
    label: FOTOS - ANTES
    size: {width_cm: 8, height_cm: 6}
`)

	layout, err := ParseLayout(data)
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}
	if keys := layout.Keys(); len(keys) != 2 || keys[0] != "depois" {
		t.Errorf("keys = %v", keys)
	}

	depois, _ := layout.Spec("depois")
	if got := layout.SizeFor(depois); got != (imaging.Size{WidthCM: 6, HeightCM: 4.5}) {
		t.Errorf("depois size = %v", got)
	}
	antes, _ := layout.Spec("antes")
	if got := layout.SizeFor(antes); got != (imaging.Size{WidthCM: 8, HeightCM: 6}) {
		t.Errorf("antes size = %v", got)
	}
}

func TestParseLayout_DefaultSizeWhenOmitted(t *testing.T) {
	layout, err := ParseLayout([]byte("categories:\n  - {key: antes, label: ANTES}\n"))
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}
	if layout.DefaultSize != DefaultSize {
		t.Errorf("DefaultSize = %v", layout.DefaultSize)
	}
}

func TestParseLayout_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "categories: [unterminated"},
		{"no categories", "categories: []"},
		{"blank label", "categories:\n  - {key: antes, label: '  '}"},
		{"bad key", "categories:\n  - {key: 'Antes!', label: ANTES}"},
		{"duplicate key", "categories:\n  - {key: antes, label: A}\n  - {key: antes, label: B}"},
		{"negative limit", "categories:\n  - {key: antes, label: A, max_images: -1}"},
		{"zero size", "categories:\n  - {key: antes, label: A, size: {width_cm: 0, height_cm: 4}}"},
		{"negative default", "default_size: {width_cm: -5, height_cm: 4}\ncategories:\n  - {key: antes, label: A}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLayout([]byte(tt.yaml))
			if !apperror.IsKind(err, apperror.KindValidation) {
				t.Errorf("error = %v, want validation kind", err)
			}
		})
	}
}

func TestLoadLayout(t *testing.T) {
	layout, err := LoadLayout("")
	if err != nil || len(layout.Categories) != 3 {
		t.Fatalf("LoadLayout(\"\") = %v, %v", layout, err)
	}

	path := filepath.Join(t.TempDir(), "layout.yaml")
	if err := os.WriteFile(path, []byte("categories:\n  - {key: unica, label: FOTOS}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	layout, err = LoadLayout(path)
	if err != nil {
		t.Fatalf("LoadLayout: %v", err)
	}
	if layout.Categories[0].Label != "FOTOS" {
		t.Errorf("label = %q", layout.Categories[0].Label)
	}

	if _, err := LoadLayout(filepath.Join(t.TempDir(), "missing.yaml")); !apperror.IsKind(err, apperror.KindResource) {
		t.Errorf("missing file error = %v, want resource kind", err)
	}
}

func TestLayout_Assemble(t *testing.T) {
	layout := DefaultLayout()
	a := imaging.Asset{Name: "a.jpg", Data: []byte{1}}

	categories, err := layout.Assemble(map[string][]imaging.Asset{
		"placa": {a},
		"antes": {a, a},
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(categories) != 3 {
		t.Fatalf("categories = %d, want 3", len(categories))
	}
	if categories[0].Key != "antes" || len(categories[0].Images) != 2 {
		t.Errorf("first = %+v", categories[0])
	}
	if !categories[1].Empty() {
		t.Errorf("depois should be empty")
	}
	if categories[2].Size == nil || *categories[2].Size != DefaultSize {
		t.Errorf("placa size = %v", categories[2].Size)
	}

	_, err = layout.Assemble(map[string][]imaging.Asset{"placa": {a, a}})
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("plate limit error = %v, want validation kind", err)
	}
	if _, ok := apperror.DetailsOf(err)["placa"]; !ok {
		t.Errorf("details = %v", apperror.DetailsOf(err))
	}

	_, err = layout.Assemble(map[string][]imaging.Asset{"durante": {a}})
	if _, ok := apperror.DetailsOf(err)["durante"]; !ok {
		t.Errorf("unknown category details = %v", apperror.DetailsOf(err))
	}
}

func TestGenerateRequest_ToMetadata(t *testing.T) {
	req := GenerateRequest{SiteID: " S1 ", ExecutionDate: "05/03/2024", Location: "são paulo - sp"}

	meta, err := req.ToMetadata()
	if err != nil {
		t.Fatalf("ToMetadata: %v", err)
	}
	if meta.SiteID != "S1" {
		t.Errorf("SiteID = %q", meta.SiteID)
	}
	if !meta.ExecutionDate.Equal(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ExecutionDate = %v", meta.ExecutionDate)
	}

	lines := meta.Lines()
	if lines[2] != "Localização: SÃO PAULO - SP" {
		t.Errorf("location line = %q", lines[2])
	}
	if meta.FileName() != "RLT. ZELADORIA - S1 - 2024-03-05.docx" {
		t.Errorf("FileName = %q", meta.FileName())
	}
}

func TestGenerateRequest_Invalid(t *testing.T) {
	req := GenerateRequest{SiteID: "", ExecutionDate: "2024-02-30", Location: " "}

	_, err := req.ToMetadata()
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("error = %v, want validation kind", err)
	}
	details := apperror.DetailsOf(err)
	for _, field := range []string{"site_id", "execution_date", "location"} {
		if _, ok := details[field]; !ok {
			t.Errorf("missing detail for %s in %v", field, details)
		}
	}
}

func TestStorageKey(t *testing.T) {
	if got := StorageKey(`RLT. ZELADORIA - a\b - 2024-03-05.docx`); got != "RLT. ZELADORIA - a_b - 2024-03-05.docx" {
		t.Errorf("StorageKey = %q", got)
	}
}
