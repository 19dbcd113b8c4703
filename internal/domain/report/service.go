package report

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/apperror"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/docx"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/imaging"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/logger"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/validator"
)

const creator = "geradorDeRelatorio"

// Normalizer resizes one photograph to a physical size.
type Normalizer interface {
	Normalize(ctx context.Context, asset imaging.Asset, size imaging.Size) (*imaging.NormalizedImage, error)
}

// BuilderConfig for report generation
type BuilderConfig struct {
	Workers     int          // concurrent normalizations (default 1)
	DefaultSize imaging.Size // size of categories without one (default 5x4 cm)
}

// Builder assembles reports
type Builder struct {
	normalizer  Normalizer
	workers     int
	defaultSize imaging.Size
}

// NewBuilder creates a report builder
func NewBuilder(normalizer Normalizer, cfg BuilderConfig) *Builder {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if !cfg.DefaultSize.Valid() {
		cfg.DefaultSize = DefaultSize
	}
	return &Builder{
		normalizer:  normalizer,
		workers:     cfg.Workers,
		defaultSize: cfg.DefaultSize,
	}
}

// Build normalizes every photograph and serializes the report. Empty
// categories are skipped. Any failure aborts the build and no report is returned.
func (b *Builder) Build(ctx context.Context, meta Metadata, categories []Category) (*Report, error) {
	if errs := validator.Validate(&meta); errs != nil {
		return nil, apperror.Validation("build report", "invalid report metadata", errs)
	}
	for i, c := range categories {
		if !c.Empty() && c.Label == "" {
			return nil, apperror.Validation("build report", "invalid category",
				map[string]string{fmt.Sprintf("categories[%d].label", i): "This field is required"})
		}
		if c.Size != nil && !c.Size.Valid() {
			return nil, apperror.Validation("build report", "invalid category",
				map[string]string{fmt.Sprintf("categories[%d].size", i): ErrInvalidSize.Error()})
		}
	}

	log := logger.FromContext(ctx)
	started := time.Now()

	normalized, err := b.normalizeAll(ctx, categories)
	if err != nil {
		log.Error().Err(err).Str("site_id", meta.SiteID).Msg("report normalization failed")
		return nil, err
	}

	blocks := []Block{
		{Kind: BlockTitle, Heading: Title},
		{Kind: BlockMetadata, Lines: meta.Lines()},
	}
	for i, c := range categories {
		if c.Empty() {
			continue
		}
		blocks = append(blocks, Block{
			Kind:    BlockCategory,
			Heading: c.Label,
			Lines:   []string{Separator},
			Images:  normalized[i],
		})
	}

	content, err := render(meta, blocks)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindEncode, "build report", "failed to serialize document", err)
	}

	out := &Report{
		Blocks:      blocks,
		FileName:    meta.FileName(),
		ContentType: ContentType,
		Content:     content,
	}

	log.Info().
		Str("site_id", meta.SiteID).
		Str("file_name", out.FileName).
		Int("blocks", len(out.Blocks)).
		Int("images", out.ImageCount()).
		Int("bytes", len(content)).
		Dur("elapsed", time.Since(started)).
		Msg("report built")

	return out, nil
}

// normalizeAll runs normalizations on up to b.workers goroutines. Results
// are stored by position so output order never depends on scheduling.
func (b *Builder) normalizeAll(ctx context.Context, categories []Category) ([][]*imaging.NormalizedImage, error) {
	results := make([][]*imaging.NormalizedImage, len(categories))
	for i, c := range categories {
		results[i] = make([]*imaging.NormalizedImage, len(c.Images))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

launch:
	for ci, c := range categories {
		ci, c := ci, c
		size := b.defaultSize
		if c.Size != nil {
			size = *c.Size
		}

		for ii, asset := range c.Images {
			ii, asset := ii, asset
			if gctx.Err() != nil {
				break launch
			}
			g.Go(func() error {
				img, err := b.normalizer.Normalize(gctx, asset, size)
				if err != nil {
					return fmt.Errorf("category %q image %d (%s): %w", c.Label, ii+1, asset.Name, err)
				}
				logger.LogDebug(ctx, "image normalized",
					"category", c.Label, "image", asset.Name,
					"width", img.Width, "height", img.Height, "dpi", img.Resolution)
				results[ci][ii] = img
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// the parent may be cancelled after the last normalization returned
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func render(meta Metadata, blocks []Block) ([]byte, error) {
	doc := docx.New()
	doc.SetProperties(meta.FileName(), creator)

	for _, block := range blocks {
		switch block.Kind {
		case BlockTitle:
			if err := doc.AddHeading(block.Heading, 1); err != nil {
				return nil, err
			}
		case BlockMetadata:
			for _, line := range block.Lines {
				doc.AddParagraph(line)
			}
		case BlockCategory:
			for _, line := range block.Lines {
				doc.AddParagraph(line)
			}
			if err := doc.AddHeading(block.Heading, 2); err != nil {
				return nil, err
			}

			pictures := make([]docx.Picture, len(block.Images))
			for i, img := range block.Images {
				pictures[i] = docx.Picture{
					Name:        fmt.Sprintf("%s %d", block.Heading, i+1),
					Data:        img.Data,
					ContentType: img.ContentType,
					Width:       docx.Cm(img.Size.WidthCM),
					Height:      docx.Cm(img.Size.HeightCM),
				}
			}
			if err := doc.AddPictures(pictures...); err != nil {
				return nil, err
			}
		}
	}

	return doc.Bytes()
}
