// Package docx writes WordprocessingML (.docx) packages made of headings,
// plain paragraphs and paragraphs of inline pictures, and reads them back as
// an outline.
package docx

import (
	"archive/zip"
	"bytes"
	"embed"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"text/template"
	"time"
)

// ContentType is the MIME type of a .docx package.
const ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Extension is the file extension of a .docx package, without the dot.
const Extension = "docx"

//go:embed templates
var templateFS embed.FS

var templates = template.Must(
	template.New("docx").Funcs(template.FuncMap{"xml": escapeXML}).ParseFS(templateFS, "templates/*.tmpl"),
)

// zip entries carry a fixed timestamp so identical documents produce identical bytes
var entryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

var (
	ErrInvalidHeadingLevel = errors.New("heading level must be between 0 and 3")
	ErrUnsupportedMedia    = errors.New("picture content type is not supported")
	ErrEmptyPicture        = errors.New("picture has no data")
	ErrInvalidExtent       = errors.New("picture extent must be positive")
)

// EMU is an English Metric Unit, the DrawingML length unit.
type EMU int64

const emuPerCm = 360000

// Cm converts centimetres to EMU.
func Cm(v float64) EMU {
	return EMU(math.Round(v * emuPerCm))
}

// Picture is an image placed inline at a fixed display size.
type Picture struct {
	Name        string
	Data        []byte
	ContentType string
	Width       EMU
	Height      EMU
}

// Document is an in-memory .docx body. The zero value is not usable; call New.
type Document struct {
	title      string
	creator    string
	paragraphs []paragraph
	media      []media
	drawings   int
}

type paragraph struct {
	Style string
	Runs  []run
}

type run struct {
	Text    string
	Drawing *drawing
}

type drawing struct {
	ID    int
	RelID string
	Name  string
	CX    EMU
	CY    EMU
}

type media struct {
	RelID    string
	FileName string
	Data     []byte
}

// New creates an empty document.
func New() *Document {
	return &Document{}
}

// SetProperties sets the package title and creator.
func (d *Document) SetProperties(title, creator string) {
	d.title = title
	d.creator = creator
}

// AddHeading appends a heading. Level 0 uses the Title style.
func (d *Document) AddHeading(text string, level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("%w: %d", ErrInvalidHeadingLevel, level)
	}
	style := "Title"
	if level > 0 {
		style = fmt.Sprintf("Heading%d", level)
	}
	d.paragraphs = append(d.paragraphs, paragraph{Style: style, Runs: []run{{Text: text}}})
	return nil
}

// AddParagraph appends a plain paragraph.
func (d *Document) AddParagraph(text string) {
	d.paragraphs = append(d.paragraphs, paragraph{Runs: []run{{Text: text}}})
}

// AddPictures appends one paragraph holding every picture, in order, one run each.
// Nothing is appended when a picture is rejected.
func (d *Document) AddPictures(pictures ...Picture) error {
	runs := make([]run, 0, len(pictures))
	added := make([]media, 0, len(pictures))

	for i, pic := range pictures {
		ext, err := extensionFor(pic.ContentType)
		if err != nil {
			return fmt.Errorf("picture %d: %w", i+1, err)
		}
		if len(pic.Data) == 0 {
			return fmt.Errorf("picture %d: %w", i+1, ErrEmptyPicture)
		}
		if pic.Width <= 0 || pic.Height <= 0 {
			return fmt.Errorf("picture %d: %w", i+1, ErrInvalidExtent)
		}

		index := len(d.media) + len(added) + 1
		m := media{
			RelID:    fmt.Sprintf("rId%d", index+1),
			FileName: fmt.Sprintf("image%d.%s", index, ext),
			Data:     pic.Data,
		}
		name := pic.Name
		if name == "" {
			name = m.FileName
		}

		added = append(added, m)
		runs = append(runs, run{Drawing: &drawing{
			ID:    d.drawings + len(added),
			RelID: m.RelID,
			Name:  name,
			CX:    pic.Width,
			CY:    pic.Height,
		}})
	}

	d.media = append(d.media, added...)
	d.drawings += len(added)
	d.paragraphs = append(d.paragraphs, paragraph{Runs: runs})
	return nil
}

// WriteTo serializes the package.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	static := []struct{ name, file string }{
		{"[Content_Types].xml", "templates/content_types.xml"},
		{"_rels/.rels", "templates/rels.xml"},
	}
	for _, part := range static {
		if err := d.writeStatic(zw, part.name, part.file); err != nil {
			return cw.n, err
		}
	}

	core := struct{ Title, Creator string }{d.title, d.creator}
	if err := d.writeTemplate(zw, "docProps/core.xml", "core.xml.tmpl", core); err != nil {
		return cw.n, err
	}
	if err := d.writeStatic(zw, "docProps/app.xml", "templates/app.xml"); err != nil {
		return cw.n, err
	}
	if err := d.writeTemplate(zw, "word/document.xml", "document.xml.tmpl", struct{ Paragraphs []paragraph }{d.paragraphs}); err != nil {
		return cw.n, err
	}
	if err := d.writeStatic(zw, "word/styles.xml", "templates/styles.xml"); err != nil {
		return cw.n, err
	}
	if err := d.writeTemplate(zw, "word/_rels/document.xml.rels", "document_rels.xml.tmpl", struct{ Media []media }{d.media}); err != nil {
		return cw.n, err
	}

	for _, m := range d.media {
		entry, err := create(zw, "word/media/"+m.FileName, zip.Store)
		if err != nil {
			return cw.n, err
		}
		if _, err := entry.Write(m.Data); err != nil {
			return cw.n, fmt.Errorf("failed to write %s: %w", m.FileName, err)
		}
	}

	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("failed to finish package: %w", err)
	}
	return cw.n, nil
}

// Bytes serializes the package into memory.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *Document) writeStatic(zw *zip.Writer, name, file string) error {
	data, err := templateFS.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}
	entry, err := create(zw, name, zip.Deflate)
	if err != nil {
		return err
	}
	if _, err := entry.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (d *Document) writeTemplate(zw *zip.Writer, name, tmpl string, data any) error {
	entry, err := create(zw, name, zip.Deflate)
	if err != nil {
		return err
	}
	if err := templates.ExecuteTemplate(entry, tmpl, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return nil
}

func create(zw *zip.Writer, name string, method uint16) (io.Writer, error) {
	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: entryTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	return entry, nil
}

func extensionFor(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg":
		return "jpeg", nil
	case "image/png":
		return "png", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMedia, contentType)
	}
}

func escapeXML(s string) (string, error) {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return "", err
	}
	return b.String(), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
