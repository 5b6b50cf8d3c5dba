package recommender

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"prismstyleapi/models"
)

// HSL color, hue in degrees [0,360), saturation and lightness in [0,1].
type HSL struct {
	H float64
	S float64
	L float64
}

// NeutralHSL is what unknown or broken hex strings resolve to. Scoring has
// to stay total, a bad color must never fail a recommendation.
var NeutralHSL = HSL{H: 0, S: 0, L: 0.5}

type ColorTemperature string

const (
	TemperatureWarm    ColorTemperature = "warm"
	TemperatureCool    ColorTemperature = "cool"
	TemperatureNeutral ColorTemperature = "neutral"
)

// ParseHex converts "#RRGGBB" (leading # optional) to HSL. Anything it
// cannot parse resolves to NeutralHSL.
func ParseHex(hex string) HSL {
	cleaned := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(cleaned) != 6 {
		return NeutralHSL
	}
	value, err := strconv.ParseUint(cleaned, 16, 32)
	if err != nil {
		return NeutralHSL
	}
	r := float64((value>>16)&0xFF) / 255.0
	g := float64((value>>8)&0xFF) / 255.0
	b := float64(value&0xFF) / 255.0

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	l := (maxC + minC) / 2

	if maxC == minC {
		return HSL{H: 0, S: 0, L: l}
	}

	d := maxC - minC
	var s float64
	if l > 0.5 {
		s = d / (2 - maxC - minC)
	} else {
		s = d / (maxC + minC)
	}

	var h float64
	switch maxC {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	h *= 60

	return HSL{H: h, S: s, L: l}
}

// Hex renders the color back to "#RRGGBB".
func (c HSL) Hex() string {
	h := math.Mod(c.H, 360)
	if h < 0 {
		h += 360
	}

	chroma := (1 - math.Abs(2*c.L-1)) * c.S
	x := chroma * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := c.L - chroma/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = chroma, x, 0
	case h < 120:
		r, g, b = x, chroma, 0
	case h < 180:
		r, g, b = 0, chroma, x
	case h < 240:
		r, g, b = 0, x, chroma
	case h < 300:
		r, g, b = x, 0, chroma
	default:
		r, g, b = chroma, 0, x
	}

	toByte := func(v float64) int {
		return int(math.Round((v + m) * 255))
	}
	return fmt.Sprintf("#%02X%02X%02X", toByte(r), toByte(g), toByte(b))
}

// ColorDistance is a perceptually weighted distance in [0,1], 0 for
// identical colors. Symmetric in its arguments.
func ColorDistance(hexA, hexB string) float64 {
	a := ParseHex(hexA)
	b := ParseHex(hexB)

	hueDiff := math.Abs(a.H - b.H)
	hueDistance := math.Min(hueDiff, 360-hueDiff) / 180

	avgLightness := (a.L + b.L) / 2
	avgSaturation := (a.S + b.S) / 2
	lightnessWeight := 1 - math.Abs(avgLightness-0.5)*0.5
	saturationWeight := math.Min(1, avgSaturation*2)
	perceptualWeight := lightnessWeight * saturationWeight

	distance := 0.6*hueDistance*perceptualWeight +
		0.3*math.Abs(a.S-b.S) +
		0.1*math.Abs(a.L-b.L)
	return math.Min(1, distance)
}

// ColorHarmony scores how well a color sits with a palette, 1.0 for an
// empty palette.
func ColorHarmony(hex string, palette []string) float64 {
	if len(palette) == 0 {
		return 1.0
	}
	var total float64
	for _, p := range palette {
		total += math.Max(0, 1-ColorDistance(hex, p))
	}
	return total / float64(len(palette))
}

// Complementary rotates the hue by 180 degrees keeping saturation and
// lightness.
func Complementary(hex string) string {
	c := ParseHex(hex)
	c.H = math.Mod(c.H+180, 360)
	return c.Hex()
}

// Triadic returns the two colors at hue +/- 120 degrees.
func Triadic(hex string) []string {
	c := ParseHex(hex)
	plus := HSL{H: math.Mod(c.H+120, 360), S: c.S, L: c.L}
	minus := HSL{H: math.Mod(c.H+240, 360), S: c.S, L: c.L}
	return []string{plus.Hex(), minus.Hex()}
}

// Analogous returns the two colors at hue +/- 30 degrees.
func Analogous(hex string) []string {
	c := ParseHex(hex)
	plus := HSL{H: math.Mod(c.H+30, 360), S: c.S, L: c.L}
	minus := HSL{H: math.Mod(c.H+330, 360), S: c.S, L: c.L}
	return []string{plus.Hex(), minus.Hex()}
}

// Temperature classifies the hue band. Desaturated colors read as neutral
// regardless of hue, the sentinel gray included.
func Temperature(hex string) ColorTemperature {
	c := ParseHex(hex)
	if c.S < 0.05 {
		return TemperatureNeutral
	}
	switch {
	case c.H <= 60 || c.H >= 300:
		return TemperatureWarm
	case c.H >= 120 && c.H <= 240:
		return TemperatureCool
	default:
		return TemperatureNeutral
	}
}

func garmentColors(g models.Garment) (string, *string) {
	return g.PrimaryColor, g.SecondaryColor
}

// OutfitHarmony scores the full palette of an outfit in [0,1]: weighted
// pairwise harmony across every garment pair plus a warm/cool balance term.
func OutfitHarmony(garments []models.Garment) float64 {
	if len(garments) < 2 {
		pairwise := 1.0
		return 0.7*pairwise + 0.3*temperatureBalance(garments)
	}

	var weighted, weightTotal float64
	for i := 0; i < len(garments); i++ {
		for j := i + 1; j < len(garments); j++ {
			pa, sa := garmentColors(garments[i])
			pb, sb := garmentColors(garments[j])

			pairScore := ColorHarmony(pa, []string{pb})
			pairWeight := 1.0
			score := pairScore * pairWeight
			weight := pairWeight

			if sa != nil && sb != nil {
				score += ColorHarmony(*sa, []string{*sb}) * 0.7
				weight += 0.7
			}
			if sa != nil {
				score += ColorHarmony(*sa, []string{pb}) * 0.5
				weight += 0.5
			}
			if sb != nil {
				score += ColorHarmony(pa, []string{*sb}) * 0.5
				weight += 0.5
			}

			pair := score / weight
			// the same-temperature bonus only applies to warm and cool
			// pairs: unparsed colors read as neutral gray, so a neutral
			// match carries no real temperature signal
			if Temperature(pa) == Temperature(pb) && Temperature(pa) != TemperatureNeutral {
				pair = math.Min(1, pair+0.1)
			}
			weighted += pair
			weightTotal++
		}
	}

	pairwiseAverage := weighted / weightTotal
	return 0.7*pairwiseAverage + 0.3*temperatureBalance(garments)
}

func temperatureBalance(garments []models.Garment) float64 {
	var warm, cool int
	count := func(hex string) {
		switch Temperature(hex) {
		case TemperatureWarm:
			warm++
		case TemperatureCool:
			cool++
		}
	}
	for _, g := range garments {
		primary, secondary := garmentColors(g)
		count(primary)
		if secondary != nil {
			count(*secondary)
		}
	}
	if warm+cool == 0 {
		return 0
	}
	return 1 - math.Abs(float64(warm-cool))/float64(warm+cool)
}
