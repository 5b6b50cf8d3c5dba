package models

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator"
)

type GarmentCategory string

const (
	CategoryTop       GarmentCategory = "top"
	CategoryBottom    GarmentCategory = "bottom"
	CategoryOuterwear GarmentCategory = "outerwear"
	CategoryFootwear  GarmentCategory = "footwear"
	CategoryAccessory GarmentCategory = "accessory"
	CategoryDress     GarmentCategory = "dress"
	CategorySuit      GarmentCategory = "suit"
)

func (c *GarmentCategory) Scan(value interface{}) error {
	*c = GarmentCategory(value.(string))
	return nil
}

func (c GarmentCategory) Value() string {
	return string(c)
}

var categoryPattern = "^(top|bottom|outerwear|footwear|accessory|dress|suit)$"

func ValidateCategory(fl validator.FieldLevel) bool {
	matched, _ := regexp.MatchString(categoryPattern, fl.Field().String())
	return matched
}

// Formality is the six-level dress-code scale. Rank ordering matters:
// scoring uses the absolute rank distance between two garments.
type Formality string

const (
	FormalityAthletic    Formality = "athletic"
	FormalityCasual      Formality = "casual"
	FormalitySmartCasual Formality = "smart_casual"
	FormalityParty       Formality = "party"
	FormalityBusiness    Formality = "business"
	FormalityFormal      Formality = "formal"
)

var formalityRanks = map[Formality]int{
	FormalityAthletic:    0,
	FormalityCasual:      1,
	FormalitySmartCasual: 2,
	FormalityParty:       3,
	FormalityBusiness:    4,
	FormalityFormal:      5,
}

// Rank returns the ordinal position on the scale, casual for unknown values.
func (f Formality) Rank() int {
	if rank, ok := formalityRanks[Formality(strings.ToLower(string(f)))]; ok {
		return rank
	}
	return formalityRanks[FormalityCasual]
}

func FormalityFromRank(rank int) Formality {
	for f, r := range formalityRanks {
		if r == rank {
			return f
		}
	}
	return FormalityCasual
}

func (f *Formality) Scan(value interface{}) error {
	*f = Formality(value.(string))
	return nil
}

func (f Formality) Value() string {
	return string(f)
}

func ValidateFormality(fl validator.FieldLevel) bool {
	matched, _ := regexp.MatchString("^(athletic|casual|smart_casual|party|business|formal)$", fl.Field().String())
	return matched
}

type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonAutumn Season = "autumn"
	SeasonWinter Season = "winter"
	SeasonAll    Season = "all"
)

func (s *Season) Scan(value interface{}) error {
	*s = Season(value.(string))
	return nil
}

func (s Season) Value() string {
	return string(s)
}

func ValidateSeason(fl validator.FieldLevel) bool {
	matched, _ := regexp.MatchString("^(spring|summer|autumn|winter|all)$", fl.Field().String())
	return matched
}

// StyleVibe is the requested styling direction for a recommendation.
type StyleVibe string

const (
	VibeClassic      StyleVibe = "classic"
	VibeTrendy       StyleVibe = "trendy"
	VibeMinimalist   StyleVibe = "minimalist"
	VibeBold         StyleVibe = "bold"
	VibeCasual       StyleVibe = "casual"
	VibeProfessional StyleVibe = "professional"
	VibeRomantic     StyleVibe = "romantic"
	VibeEdgy         StyleVibe = "edgy"
	VibeAny          StyleVibe = "any"
)

func ValidateStyleVibe(fl validator.FieldLevel) bool {
	matched, _ := regexp.MatchString("^(classic|trendy|minimalist|bold|casual|professional|romantic|edgy|any)$", fl.Field().String())
	return matched
}

type ColorFamily string

const (
	ColorFamilyNeutral ColorFamily = "neutral"
	ColorFamilyWarm    ColorFamily = "warm"
	ColorFamilyCool    ColorFamily = "cool"
	ColorFamilyBright  ColorFamily = "bright"
	ColorFamilyDark    ColorFamily = "dark"
	ColorFamilyPastel  ColorFamily = "pastel"
	ColorFamilyAny     ColorFamily = "any"
)

func ValidateColorFamily(fl validator.FieldLevel) bool {
	matched, _ := regexp.MatchString("^(neutral|warm|cool|bright|dark|pastel|any)$", fl.Field().String())
	return matched
}
