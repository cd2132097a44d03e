package calibration

import "sort"

// Card is a reference object of known physical size.
type Card struct {
	Name string `json:"name" yaml:"name"`
	// WidthMM is the long side, HeightMM the short side.
	WidthMM  float64 `json:"width_mm" yaml:"width_mm"`
	HeightMM float64 `json:"height_mm" yaml:"height_mm"`
	// Aspect is the nominal long/short ratio used for candidate filtering.
	Aspect float64 `json:"aspect_ratio" yaml:"aspect_ratio"`
}

// DefaultCard is used when a card name is unknown.
const DefaultCard = "credit_card"

// Cards lists the supported reference objects by name.
var Cards = map[string]Card{
	"credit_card":   {Name: "credit_card", WidthMM: 85.6, HeightMM: 53.98, Aspect: 1.586},
	"business_card": {Name: "business_card", WidthMM: 91.0, HeightMM: 55.0, Aspect: 1.655},
	"custom_card":   {Name: "custom_card", WidthMM: 85.6, HeightMM: 54.0, Aspect: 1.585},
}

// CardByName looks up a card. Unknown names return the credit card and false.
func CardByName(name string) (Card, bool) {
	if c, ok := Cards[name]; ok {
		return c, true
	}
	return Cards[DefaultCard], false
}

// CardNames returns the supported card names in sorted order.
func CardNames() []string {
	names := make([]string, 0, len(Cards))
	for name := range Cards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
