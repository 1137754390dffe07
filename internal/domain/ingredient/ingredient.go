// Package ingredient defines the dream ingredients actors can contribute.
// This package is PURE and must NOT import any infrastructure packages.
package ingredient

// FallbackColor is used for custom ingredients not found in the catalog.
const FallbackColor = "from-purple-300 to-pink-300"

// Ingredient is a selectable label with its display color.
type Ingredient struct {
	Label string `json:"label" yaml:"label"`
	Color string `json:"color" yaml:"color"`
}

// Catalog is an ordered set of preset ingredients.
type Catalog []Ingredient

// DefaultCatalog contains the stock presets offered in the selection sheet.
var DefaultCatalog = Catalog{
	{Label: "Tired", Color: "from-blue-300 to-blue-400"},
	{Label: "Happy", Color: "from-yellow-300 to-amber-300"},
	{Label: "Work", Color: "from-slate-300 to-gray-300"},
	{Label: "Excited", Color: "from-orange-300 to-rose-300"},
	{Label: "Calm", Color: "from-emerald-300 to-teal-300"},
	{Label: "Creative", Color: "from-purple-300 to-violet-300"},
	{Label: "Anxious", Color: "from-indigo-300 to-blue-300"},
	{Label: "Peaceful", Color: "from-cyan-300 to-sky-300"},
	{Label: "Energetic", Color: "from-lime-300 to-green-300"},
	{Label: "Dreamy", Color: "from-pink-300 to-fuchsia-300"},
	{Label: "Focused", Color: "from-amber-300 to-orange-300"},
	{Label: "Playful", Color: "from-rose-300 to-pink-300"},
	{Label: "Curious", Color: "from-violet-300 to-purple-300"},
	{Label: "Grateful", Color: "from-teal-300 to-cyan-300"},
	{Label: "Inspired", Color: "from-fuchsia-300 to-purple-300"},
}

// Lookup returns the preset with the given label.
func (c Catalog) Lookup(label string) (Ingredient, bool) {
	for _, ing := range c {
		if ing.Label == label {
			return ing, true
		}
	}
	return Ingredient{}, false
}

// ColorOf returns the preset color for label, or FallbackColor.
func (c Catalog) ColorOf(label string) string {
	if ing, ok := c.Lookup(label); ok {
		return ing.Color
	}
	return FallbackColor
}

// Labels lists the catalog labels in order.
func (c Catalog) Labels() []string {
	out := make([]string, len(c))
	for i, ing := range c {
		out[i] = ing.Label
	}
	return out
}
