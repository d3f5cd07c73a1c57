// Package pdfdoc reads the parts of a PDF the library needs: page count,
// embedded title and the outline tree.
package pdfdoc

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// MaxOutlineDepth caps outline recursion. Deeper levels are dropped.
const MaxOutlineDepth = 32

// maxSiblings guards against /Next cycles in damaged files.
const maxSiblings = 10000

// Info is what the document parser yields for one file.
type Info struct {
	PageCount uint32
	Title     string // empty when the document has none
}

// Parser is the document-parser collaborator of the metadata cache.
type Parser interface {
	Info(path string) (Info, error)
	Outline(path string) ([]models.OutlineItem, error)
}

// PDF implements Parser with github.com/ledongthuc/pdf.
type PDF struct{}

var _ Parser = PDF{}

// Info returns the page count and embedded /Title of the document at path.
func (PDF) Info(path string) (info Info, err error) {
	err = withReader(path, func(r *pdf.Reader) error {
		n := r.NumPage()
		if n < 0 {
			return fmt.Errorf("negative page count %d", n)
		}
		info.PageCount = uint32(n)
		info.Title = strings.TrimSpace(r.Trailer().Key("Info").Key("Title").Text())
		return nil
	})
	return info, err
}

// Outline returns the bookmark tree of the document at path. Entries whose
// destination cannot be resolved point at page 1.
func (PDF) Outline(path string) (items []models.OutlineItem, err error) {
	err = withReader(path, func(r *pdf.Reader) error {
		root := r.Trailer().Key("Root").Key("Outlines")
		if root.Kind() != pdf.Dict {
			return nil
		}
		w := &outlineWalker{r: r}
		items = w.level(root.Key("First"), 1)
		return nil
	})
	if items == nil && err == nil {
		items = []models.OutlineItem{}
	}
	return items, err
}

// withReader opens path and runs fn. The pdf package panics on some damaged
// inputs; those panics become parse errors.
func withReader(path string, fn func(*pdf.Reader) error) (err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		return apperr.IO("stat_failed", statErr)
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = apperr.Parse("parse_failed", fmt.Errorf("pdfdoc: %v", rec))
		}
	}()

	f, r, openErr := pdf.Open(path)
	if openErr != nil {
		return apperr.Parse("parse_failed", openErr)
	}
	defer f.Close()

	if err := fn(r); err != nil {
		return apperr.Parse("parse_failed", err)
	}
	return nil
}

type outlineWalker struct {
	r     *pdf.Reader
	pages []pdf.Value // lazily built page list for destination lookup
}

func (w *outlineWalker) level(node pdf.Value, depth int) []models.OutlineItem {
	if depth > MaxOutlineDepth {
		return nil
	}
	var out []models.OutlineItem
	for i := 0; node.Kind() == pdf.Dict && i < maxSiblings; i++ {
		item := models.OutlineItem{
			Title:    strings.TrimSpace(node.Key("Title").Text()),
			Page:     w.page(node),
			Children: w.level(node.Key("First"), depth+1),
		}
		if item.Children == nil {
			item.Children = []models.OutlineItem{}
		}
		out = append(out, item)
		node = node.Key("Next")
	}
	return out
}

// page resolves the 1-based target page of an outline node. Explicit
// destinations (/Dest or a GoTo action's /D) are supported; named
// destinations fall back to 1.
func (w *outlineWalker) page(node pdf.Value) uint32 {
	dest := node.Key("Dest")
	if dest.Kind() != pdf.Array {
		dest = node.Key("A").Key("D")
	}
	if dest.Kind() != pdf.Array || dest.Len() == 0 {
		return 1
	}
	target := dest.Index(0)
	switch target.Kind() {
	case pdf.Integer:
		// Page index form, used by remote destinations.
		if n := target.Int64(); n >= 0 {
			return uint32(n) + 1
		}
	case pdf.Dict:
		if w.pages == nil {
			n := w.r.NumPage()
			w.pages = make([]pdf.Value, 0, n)
			for i := 1; i <= n; i++ {
				w.pages = append(w.pages, w.r.Page(i).V)
			}
		}
		for i, p := range w.pages {
			// Values carry the object reference they were resolved from,
			// so equal values are the same page object.
			if reflect.DeepEqual(p, target) {
				return uint32(i) + 1
			}
		}
	}
	return 1
}
