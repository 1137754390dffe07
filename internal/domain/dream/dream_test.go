package dream

import "testing"

func TestPagesSplitsInOrder(t *testing.T) {
	labels := []string{"Tired", "Happy", "Happy", "Creative", "Peaceful", "Excited", "Playful", "Dreamy"}
	pages := Pages(labels)

	if len(pages) != 3 {
		t.Fatalf("Expected 3 pages for 8 ingredients, got %d", len(pages))
	}
	if pages[0].Kind != KindPhoto || pages[1].Kind != KindVideo || pages[2].Kind != KindAudio {
		t.Errorf("Unexpected page kinds: %s %s %s", pages[0].Kind, pages[1].Kind, pages[2].Kind)
	}
	if len(pages[2].Ingredients) != 2 || pages[2].Ingredients[1] != "Dreamy" {
		t.Errorf("Expected short last page ending in Dreamy, got %v", pages[2].Ingredients)
	}

	for i := range labels {
		p := pages[PageOf(i)-1]
		if p.Ingredients[i%PageSize] != labels[i] {
			t.Errorf("Ingredient %d not on page %d", i, PageOf(i))
		}
	}
}

func TestPagesEmpty(t *testing.T) {
	if got := Pages(nil); len(got) != 0 {
		t.Errorf("Expected no pages, got %v", got)
	}
}
