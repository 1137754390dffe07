// Package dream shapes a finished selection into the pages of the shared dream.
// This package is PURE and must NOT import any infrastructure packages.
package dream

// PageSize is the number of ingredients narrated per page.
const PageSize = 3

// PageKind is the medium a page is rendered in.
type PageKind string

const (
	KindPhoto PageKind = "photo"
	KindVideo PageKind = "video"
	KindAudio PageKind = "audio"
)

var kindCycle = []PageKind{KindPhoto, KindVideo, KindAudio}

// Page is one narrative segment of the dream.
type Page struct {
	Number      int      `json:"number"`
	Kind        PageKind `json:"kind"`
	Ingredients []string `json:"ingredients"`
}

// PageOf returns the 1-based page that ingredient index i belongs to.
func PageOf(i int) int {
	return i/PageSize + 1
}

// Pages splits labels into pages in order. The last page may be short.
func Pages(labels []string) []Page {
	var pages []Page
	for i := 0; i < len(labels); i += PageSize {
		end := i + PageSize
		if end > len(labels) {
			end = len(labels)
		}
		n := len(pages)
		chunk := make([]string, end-i)
		copy(chunk, labels[i:end])
		pages = append(pages, Page{
			Number:      n + 1,
			Kind:        kindCycle[n%len(kindCycle)],
			Ingredients: chunk,
		})
	}
	return pages
}
