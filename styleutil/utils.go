package styleutil

import (
	"math/rand"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var TitleCaser = cases.Title(language.English)
var LowerCaser = cases.Lower(language.English)

// adjectives for generated outfit display names
var Adjs []string = []string{
	"sharp",
	"bold",
	"crisp",
	"sleek",
	"breezy",
	"polished",
	"effortless",
	"vivid",
	"timeless",
	"relaxed",
	"daring",
	"refined",
	"playful",
	"understated",
	"radiant",
	"moody",
	"fresh",
	"vintage",
	"modern",
	"cozy",
}

var Nouns []string = []string{
	"ensemble",
	"look",
	"combination",
	"silhouette",
	"statement",
	"classic",
	"staple",
	"number",
	"fit",
	"pairing",
}

// OutfitName generates a friendly two-word display name like "Crisp
// Silhouette" for composed outfits.
func OutfitName() string {
	adj := Adjs[rand.Intn(len(Adjs))]
	noun := Nouns[rand.Intn(len(Nouns))]
	return TitleCaser.String(adj + " " + noun)
}

// Label title-cases an enum-ish value for display, "smart_casual" becomes
// "Smart Casual".
func Label(value string) string {
	return TitleCaser.String(strings.ReplaceAll(value, "_", " "))
}
