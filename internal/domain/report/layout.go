package report

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/apperror"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/imaging"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/validator"
)

// DefaultSize is the display size of a photograph when neither the category
// nor the layout sets one.
var DefaultSize = imaging.Size{WidthCM: 5, HeightCM: 4}

// CategorySpec describes one photo category of a layout. MaxImages 0 means unlimited.
type CategorySpec struct {
	Key       string        `yaml:"key" json:"key" validate:"category_key"`
	Label     string        `yaml:"label" json:"label" validate:"notblank"`
	MaxImages int           `yaml:"max_images" json:"max_images" validate:"gte=0"`
	Size      *imaging.Size `yaml:"size,omitempty" json:"size,omitempty"`
}

// Layout lists the categories of a report in display order.
type Layout struct {
	DefaultSize imaging.Size   `yaml:"default_size" json:"default_size"`
	Categories  []CategorySpec `yaml:"categories" json:"categories" validate:"required,min=1,dive"`
}

// DefaultLayout returns the before / after / identification plate layout.
func DefaultLayout() *Layout {
	return &Layout{
		DefaultSize: DefaultSize,
		Categories: []CategorySpec{
			{Key: "antes", Label: "FOTOS - ANTES"},
			{Key: "depois", Label: "FOTOS - DEPOIS"},
			{Key: "placa", Label: "PLACA DE IDENTIFICAÇÃO", MaxImages: 1},
		},
	}
}

// LoadLayout reads a YAML layout file. An empty path returns DefaultLayout.
func LoadLayout(path string) (*Layout, error) {
	if path == "" {
		return DefaultLayout(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindResource, "load layout", path, fmt.Errorf("%w: %v", ErrLayoutUnreadable, err))
	}
	return ParseLayout(data)
}

// ParseLayout decodes and validates a YAML layout.
func ParseLayout(data []byte) (*Layout, error) {
	layout := &Layout{}
	if err := yaml.Unmarshal(data, layout); err != nil {
		return nil, apperror.Validation("parse layout", "layout is not valid YAML", map[string]string{"layout": err.Error()})
	}
	if layout.DefaultSize == (imaging.Size{}) {
		layout.DefaultSize = DefaultSize
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return layout, nil
}

// Validate checks keys, labels and sizes.
func (l *Layout) Validate() error {
	if errs := validator.Validate(l); errs != nil {
		return apperror.Validation("validate layout", "invalid layout", errs)
	}

	details := map[string]string{}
	if !l.DefaultSize.Valid() {
		details["default_size"] = ErrInvalidSize.Error()
	}

	seen := make(map[string]bool, len(l.Categories))
	for i, c := range l.Categories {
		if seen[c.Key] {
			details[fmt.Sprintf("categories[%d].key", i)] = fmt.Sprintf("%s: %s", ErrDuplicateKey, c.Key)
		}
		seen[c.Key] = true

		if c.Size != nil && !c.Size.Valid() {
			details[fmt.Sprintf("categories[%d].size", i)] = ErrInvalidSize.Error()
		}
	}

	if len(details) > 0 {
		return apperror.Validation("validate layout", "invalid layout", details)
	}
	return nil
}

// Spec returns the category with the given key.
func (l *Layout) Spec(key string) (CategorySpec, bool) {
	for _, c := range l.Categories {
		if c.Key == key {
			return c, true
		}
	}
	return CategorySpec{}, false
}

// Keys returns the category keys in display order.
func (l *Layout) Keys() []string {
	keys := make([]string, len(l.Categories))
	for i, c := range l.Categories {
		keys[i] = c.Key
	}
	return keys
}

// SizeFor resolves the display size of a category.
func (l *Layout) SizeFor(spec CategorySpec) imaging.Size {
	if spec.Size != nil {
		return *spec.Size
	}
	return l.DefaultSize
}

// Assemble orders uploads by layout and enforces per-category limits.
// Every layout category is returned, empty ones included.
func (l *Layout) Assemble(images map[string][]imaging.Asset) ([]Category, error) {
	details := map[string]string{}
	for key := range images {
		if _, ok := l.Spec(key); !ok {
			details[key] = ErrUnknownCategory.Error()
		}
	}

	categories := make([]Category, 0, len(l.Categories))
	for _, spec := range l.Categories {
		assets := images[spec.Key]
		if spec.MaxImages > 0 && len(assets) > spec.MaxImages {
			details[spec.Key] = fmt.Sprintf("%s (%d > %d)", ErrTooManyImages, len(assets), spec.MaxImages)
		}

		size := l.SizeFor(spec)
		categories = append(categories, Category{
			Key:    spec.Key,
			Label:  spec.Label,
			Images: assets,
			Size:   &size,
		})
	}

	if len(details) > 0 {
		return nil, apperror.Validation("assemble categories", "uploads do not fit the layout", details)
	}
	return categories, nil
}
