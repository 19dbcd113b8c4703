package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
)

func samplePicture(name string) Picture {
	return Picture{
		Name:        name,
		Data:        []byte{0xFF, 0xD8, 0xFF, 0xD9},
		ContentType: "image/jpeg",
		Width:       Cm(5),
		Height:      Cm(4),
	}
}

func buildSample(t *testing.T) []byte {
	t.Helper()

	doc := New()
	doc.SetProperties("Relatório", "zeladoria")
	if err := doc.AddHeading("RELATÓRIO FOTOGRÁFICO", 0); err != nil {
		t.Fatalf("AddHeading: %v", err)
	}
	doc.AddParagraph("Site: S1")
	if err := doc.AddHeading("FOTOS - ANTES", 1); err != nil {
		t.Fatalf("AddHeading: %v", err)
	}
	if err := doc.AddPictures(samplePicture("a.jpg"), samplePicture("b.jpg")); err != nil {
		t.Fatalf("AddPictures: %v", err)
	}

	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	return data
}

func TestCm(t *testing.T) {
	tests := []struct {
		cm   float64
		want EMU
	}{
		{1, 360000},
		{5, 1800000},
		{4.5, 1620000},
		{2.54, 914400},
	}

	for _, tt := range tests {
		if got := Cm(tt.cm); got != tt.want {
			t.Errorf("Cm(%v) = %d, want %d", tt.cm, got, tt.want)
		}
	}
}

func TestDocument_RoundTrip(t *testing.T) {
	outline, err := ReadOutline(buildSample(t))
	if err != nil {
		t.Fatalf("ReadOutline: %v", err)
	}

	if len(outline.Paragraphs) != 4 {
		t.Fatalf("paragraphs = %d, want 4", len(outline.Paragraphs))
	}
	if got := outline.Styled("Title"); len(got) != 1 || got[0] != "RELATÓRIO FOTOGRÁFICO" {
		t.Errorf("Title paragraphs = %q", got)
	}
	if got := outline.Styled("Heading1"); len(got) != 1 || got[0] != "FOTOS - ANTES" {
		t.Errorf("Heading1 paragraphs = %q", got)
	}
	if p := outline.Paragraphs[1]; p.Style != "" || p.Text != "Site: S1" {
		t.Errorf("paragraph 1 = %+v", p)
	}

	pics := outline.Paragraphs[3].Pictures
	if len(pics) != 2 {
		t.Fatalf("pictures = %d, want 2", len(pics))
	}
	for i, ext := range pics {
		if ext.CX != Cm(5) || ext.CY != Cm(4) {
			t.Errorf("picture %d extent = %+v", i, ext)
		}
	}
	if outline.MediaCount != 2 {
		t.Errorf("MediaCount = %d, want 2", outline.MediaCount)
	}
}

func TestDocument_PackageLayout(t *testing.T) {
	data := buildSample(t)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	if zr.File[0].Name != "[Content_Types].xml" {
		t.Errorf("first entry = %q, want [Content_Types].xml", zr.File[0].Name)
	}

	want := map[string]bool{
		"_rels/.rels":                  false,
		"docProps/core.xml":            false,
		"docProps/app.xml":             false,
		"word/document.xml":            false,
		"word/styles.xml":              false,
		"word/_rels/document.xml.rels": false,
		"word/media/image1.jpeg":       false,
		"word/media/image2.jpeg":       false,
	}
	for _, f := range zr.File {
		if _, ok := want[f.Name]; ok {
			want[f.Name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing part %s", name)
		}
	}
}

func TestDocument_Deterministic(t *testing.T) {
	first := buildSample(t)
	second := buildSample(t)
	if !bytes.Equal(first, second) {
		t.Error("identical documents produced different bytes")
	}
}

func TestDocument_EscapesText(t *testing.T) {
	doc := New()
	doc.AddParagraph(`Rua "A" & <B>`)

	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	outline, err := ReadOutline(data)
	if err != nil {
		t.Fatalf("ReadOutline: %v", err)
	}
	if got := outline.Paragraphs[0].Text; got != `Rua "A" & <B>` {
		t.Errorf("text = %q", got)
	}
}

func TestDocument_WriteToCountsBytes(t *testing.T) {
	doc := New()
	doc.AddParagraph("x")

	var buf bytes.Buffer
	n, err := doc.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("WriteTo returned %d, buffer holds %d", n, buf.Len())
	}
}

func TestDocument_Rejections(t *testing.T) {
	tests := []struct {
		name string
		run  func(d *Document) error
		want error
	}{
		{
			name: "heading level too deep",
			run:  func(d *Document) error { return d.AddHeading("x", 4) },
			want: ErrInvalidHeadingLevel,
		},
		{
			name: "negative heading level",
			run:  func(d *Document) error { return d.AddHeading("x", -1) },
			want: ErrInvalidHeadingLevel,
		},
		{
			name: "unsupported media",
			run: func(d *Document) error {
				p := samplePicture("a.gif")
				p.ContentType = "image/gif"
				return d.AddPictures(p)
			},
			want: ErrUnsupportedMedia,
		},
		{
			name: "empty picture",
			run: func(d *Document) error {
				p := samplePicture("a.jpg")
				p.Data = nil
				return d.AddPictures(p)
			},
			want: ErrEmptyPicture,
		},
		{
			name: "zero extent",
			run: func(d *Document) error {
				p := samplePicture("a.jpg")
				p.Height = 0
				return d.AddPictures(samplePicture("ok.jpg"), p)
			},
			want: ErrInvalidExtent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := New()
			err := tt.run(doc)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if len(doc.paragraphs) != 0 || len(doc.media) != 0 {
				t.Errorf("rejected call modified the document")
			}
		})
	}
}

func TestReadOutline_NotAPackage(t *testing.T) {
	if _, err := ReadOutline([]byte("not a zip")); err == nil {
		t.Fatal("expected error")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("other.xml"); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadOutline(buf.Bytes()); !errors.Is(err, ErrNoDocumentPart) {
		t.Errorf("error = %v, want ErrNoDocumentPart", err)
	}
}
