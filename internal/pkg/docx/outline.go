package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	wordNS    = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	drawingNS = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
)

var ErrNoDocumentPart = errors.New("package has no word/document.xml")

// Extent is the display size of an inline picture.
type Extent struct {
	CX EMU
	CY EMU
}

// OutlineParagraph is one body paragraph: its style, its concatenated text
// and the extents of its inline pictures.
type OutlineParagraph struct {
	Style    string
	Text     string
	Pictures []Extent
}

// Outline is the body structure of a .docx package.
type Outline struct {
	Paragraphs []OutlineParagraph
	MediaCount int
}

// Styled returns the text of every paragraph with the given style, in order.
func (o *Outline) Styled(style string) []string {
	var texts []string
	for _, p := range o.Paragraphs {
		if p.Style == style {
			texts = append(texts, p.Text)
		}
	}
	return texts
}

// PictureCount returns the number of inline pictures in the body.
func (o *Outline) PictureCount() int {
	n := 0
	for _, p := range o.Paragraphs {
		n += len(p.Pictures)
	}
	return n
}

// ReadOutline parses the body of a .docx package.
func ReadOutline(data []byte) (*Outline, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open package: %w", err)
	}

	outline := &Outline{}
	var body *zip.File
	for _, f := range zr.File {
		switch {
		case f.Name == "word/document.xml":
			body = f
		case strings.HasPrefix(f.Name, "word/media/"):
			outline.MediaCount++
		}
	}
	if body == nil {
		return nil, ErrNoDocumentPart
	}

	rc, err := body.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open document part: %w", err)
	}
	defer rc.Close()

	paragraphs, err := readParagraphs(rc)
	if err != nil {
		return nil, err
	}
	outline.Paragraphs = paragraphs
	return outline, nil
}

func readParagraphs(r io.Reader) ([]OutlineParagraph, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []OutlineParagraph
		current    *OutlineParagraph
		text       strings.Builder
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return paragraphs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse document part: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Space == wordNS && t.Name.Local == "p":
				current = &OutlineParagraph{}
				text.Reset()
			case current == nil:
			case t.Name.Space == wordNS && t.Name.Local == "pStyle":
				current.Style = attr(t, wordNS, "val")
			case t.Name.Space == wordNS && t.Name.Local == "t":
				inText = true
			case t.Name.Space == drawingNS && t.Name.Local == "extent":
				cx, _ := strconv.ParseInt(attr(t, "", "cx"), 10, 64)
				cy, _ := strconv.ParseInt(attr(t, "", "cy"), 10, 64)
				current.Pictures = append(current.Pictures, Extent{CX: EMU(cx), CY: EMU(cy)})
			}
		case xml.EndElement:
			switch {
			case t.Name.Space == wordNS && t.Name.Local == "t":
				inText = false
			case t.Name.Space == wordNS && t.Name.Local == "p" && current != nil:
				current.Text = text.String()
				paragraphs = append(paragraphs, *current)
				current = nil
			}
		case xml.CharData:
			if inText && current != nil {
				text.Write(t)
			}
		}
	}
}

func attr(el xml.StartElement, space, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local && (space == "" || a.Name.Space == space) {
			return a.Value
		}
	}
	return ""
}
