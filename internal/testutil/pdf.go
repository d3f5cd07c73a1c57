package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// OutlineEntry describes one bookmark of a generated PDF. Page is 1-based;
// zero leaves the entry without a destination.
type OutlineEntry struct {
	Title    string
	Page     int
	Children []OutlineEntry
}

// PDFSpec describes a minimal document for WritePDF.
type PDFSpec struct {
	Pages   int
	Title   string
	Outline []OutlineEntry
	// Pad appends a comment of this many bytes, to vary size without
	// changing structure.
	Pad int
}

type pdfBuilder struct {
	objects []string // objects[i] is the body of object i+1
}

func (b *pdfBuilder) reserve() int {
	b.objects = append(b.objects, "")
	return len(b.objects)
}

func (b *pdfBuilder) set(id int, body string) {
	b.objects[id-1] = body
}

// BuildPDF renders doc as a well-formed PDF 1.4 file with a correct xref
// table.
func BuildPDF(doc PDFSpec) []byte {
	if doc.Pages < 1 {
		doc.Pages = 1
	}
	b := &pdfBuilder{}
	catalog := b.reserve()
	pages := b.reserve()

	pageIDs := make([]int, doc.Pages)
	kids := make([]string, doc.Pages)
	for i := range pageIDs {
		pageIDs[i] = b.reserve()
		kids[i] = fmt.Sprintf("%d 0 R", pageIDs[i])
		b.set(pageIDs[i], fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] >>", pages))
	}
	b.set(pages, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), doc.Pages))

	catalogBody := fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R", pages)
	if len(doc.Outline) > 0 {
		root := b.reserve()
		first, last, count := b.outlineLevel(doc.Outline, root, pageIDs)
		b.set(root, fmt.Sprintf("<< /Type /Outlines /First %d 0 R /Last %d 0 R /Count %d >>", first, last, count))
		catalogBody += fmt.Sprintf(" /Outlines %d 0 R", root)
	}
	b.set(catalog, catalogBody+" >>")

	info := 0
	if doc.Title != "" {
		info = b.reserve()
		b.set(info, fmt.Sprintf("<< /Title (%s) /Producer (folio tests) >>", escapePDFString(doc.Title)))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(b.objects))
	for i, body := range b.objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	if doc.Pad > 0 {
		buf.WriteString("%" + strings.Repeat("x", doc.Pad) + "\n")
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(b.objects)+1)
	buf.WriteString("0000000000 65535 f\r\n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n\r\n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R", len(b.objects)+1, catalog)
	if info != 0 {
		fmt.Fprintf(&buf, " /Info %d 0 R", info)
	}
	fmt.Fprintf(&buf, " >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

func (b *pdfBuilder) outlineLevel(items []OutlineEntry, parent int, pageIDs []int) (first, last, count int) {
	ids := make([]int, len(items))
	for i := range items {
		ids[i] = b.reserve()
	}
	for i, it := range items {
		body := fmt.Sprintf("<< /Title (%s) /Parent %d 0 R", escapePDFString(it.Title), parent)
		if i > 0 {
			body += fmt.Sprintf(" /Prev %d 0 R", ids[i-1])
		}
		if i < len(items)-1 {
			body += fmt.Sprintf(" /Next %d 0 R", ids[i+1])
		}
		if it.Page > 0 && it.Page <= len(pageIDs) {
			body += fmt.Sprintf(" /Dest [%d 0 R /Fit]", pageIDs[it.Page-1])
		}
		if len(it.Children) > 0 {
			cf, cl, cc := b.outlineLevel(it.Children, ids[i], pageIDs)
			body += fmt.Sprintf(" /First %d 0 R /Last %d 0 R /Count %d", cf, cl, cc)
			count += cc
		}
		b.set(ids[i], body+" >>")
		count++
	}
	return ids[0], ids[len(ids)-1], count
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// WritePDF writes a generated PDF named name into dir and returns its path.
func WritePDF(t *testing.T, dir, name string, doc PDFSpec) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, BuildPDF(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}
