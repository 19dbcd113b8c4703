package report

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/docx"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/imaging"
)

const (
	// Title is the heading of every report.
	Title = "RELATÓRIO FOTOGRÁFICO DE ZELADORIA"

	// Separator opens every category block.
	Separator = "------------------------------------------"

	// FileNamePrefix starts every report file name.
	FileNamePrefix = "RLT. ZELADORIA"

	// ContentType is the MIME type of a generated report.
	ContentType = docx.ContentType

	displayDateLayout = "02/01/2006"
	fileDateLayout    = "2006-01-02"
)

// Metadata holds the form fields printed under the title.
type Metadata struct {
	SiteID        string    `json:"site_id" validate:"notblank,excludesall=/\\"`
	ExecutionDate time.Time `json:"execution_date" validate:"required"`
	Location      string    `json:"location" validate:"notblank"`
}

// Lines returns the metadata paragraphs in display order.
func (m Metadata) Lines() []string {
	return []string{
		"Site ID: " + m.SiteID,
		"Data da Execução: " + m.ExecutionDate.Format(displayDateLayout),
		"Localização: " + cases.Upper(language.BrazilianPortuguese).String(m.Location),
	}
}

// FileName returns the report file name for m.
func (m Metadata) FileName() string {
	return fmt.Sprintf("%s - %s - %s.%s", FileNamePrefix, m.SiteID, m.ExecutionDate.Format(fileDateLayout), docx.Extension)
}

// Category is a labeled, ordered group of photographs. A nil Size uses the
// builder default.
type Category struct {
	Key    string
	Label  string
	Images []imaging.Asset
	Size   *imaging.Size
}

// Empty reports whether the category has no photographs.
func (c Category) Empty() bool {
	return len(c.Images) == 0
}

// BlockKind identifies a contiguous unit of document content.
type BlockKind string

const (
	BlockTitle    BlockKind = "title"
	BlockMetadata BlockKind = "metadata"
	BlockCategory BlockKind = "category"
)

// Block is one unit of the generated document.
type Block struct {
	Kind    BlockKind
	Heading string
	Lines   []string
	Images  []*imaging.NormalizedImage
}

// Report is a generated document.
type Report struct {
	Blocks      []Block
	FileName    string
	ContentType string
	Content     []byte
}

// CategoryBlocks returns the category blocks in document order.
func (r *Report) CategoryBlocks() []Block {
	var blocks []Block
	for _, b := range r.Blocks {
		if b.Kind == BlockCategory {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// ImageCount returns the number of embedded photographs.
func (r *Report) ImageCount() int {
	n := 0
	for _, b := range r.Blocks {
		n += len(b.Images)
	}
	return n
}

// StorageKey returns the file name with path separators replaced.
func StorageKey(fileName string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(fileName)
}
