package macros

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

type nutrientKeys struct {
	calories, protein, carbs, fats string
}

var (
	per100gKeys = nutrientKeys{
		calories: "energy-kcal_100g",
		protein:  "proteins_100g",
		carbs:    "carbohydrates_100g",
		fats:     "fat_100g",
	}
	perServingKeys = nutrientKeys{
		calories: "energy-kcal_serving",
		protein:  "proteins_serving",
		carbs:    "carbohydrates_serving",
		fats:     "fat_serving",
	}

	servingGramsRegex = regexp.MustCompile(`(?i)([0-9]+)\s*g`)
)

// ServingGrams extracts the integer gram quantity from a free-text serving
// size such as "30 g" or "1 cup (240g)".
func ServingGrams(servingSize string) (int, bool) {
	m := servingGramsRegex.FindStringSubmatch(servingSize)
	if m == nil {
		return 0, false
	}
	grams, err := strconv.Atoi(m[1])
	if err != nil || grams <= 0 {
		return 0, false
	}
	return grams, true
}

func (n Nutriments) extract(keys nutrientKeys) (Macros, bool) {
	calories, hasCalories := n.Number(keys.calories)
	protein, hasProtein := n.Number(keys.protein)
	carbs, hasCarbs := n.Number(keys.carbs)
	fats, hasFats := n.Number(keys.fats)

	return Macros{
		Calories: calories,
		Protein:  protein,
		Carbs:    carbs,
		Fats:     fats,
	}, hasCalories || hasProtein || hasCarbs || hasFats
}

func (m Macros) scale(factor float64) Macros {
	return Macros{
		Calories: m.Calories * factor,
		Protein:  m.Protein * factor,
		Carbs:    m.Carbs * factor,
		Fats:     m.Fats * factor,
	}
}

// Normalize scales the nutrients of p to the given serving size. Per-100g
// values are preferred; per-serving values are used only when the declared
// serving size has a gram quantity. Otherwise ErrNoUsableData is returned.
func Normalize(p Product, grams float64) (MacroData, error) {
	if math.IsNaN(grams) || math.IsInf(grams, 0) || grams <= 0 {
		return MacroData{}, fmt.Errorf("%w: %v", ErrInvalidServing, grams)
	}

	if per100g, ok := p.Nutriments.extract(per100gKeys); ok {
		return MacroData{
			Description: Describe(p, grams),
			Macros:      per100g.scale(grams / 100).Rounded(),
		}, nil
	}

	if servingGrams, ok := ServingGrams(p.ServingSize); ok {
		if perServing, ok := p.Nutriments.extract(perServingKeys); ok {
			return MacroData{
				Description: Describe(p, grams),
				Macros:      perServing.scale(grams / float64(servingGrams)).Rounded(),
			}, nil
		}
	}

	return MacroData{}, ErrNoUsableData
}

// Describe renders "<name> (<brands>) - <grams>g".
func Describe(p Product, grams float64) string {
	name := p.Name
	if name == "" {
		name = "Food"
	}
	if p.Brands != "" {
		name = fmt.Sprintf("%s (%s)", name, p.Brands)
	}
	return fmt.Sprintf("%s - %sg", name, strconv.FormatFloat(grams, 'f', -1, 64))
}

// Compact returns a copy of p holding only the nutrients Normalize reads.
func (p Product) Compact() Product {
	compact := p
	compact.Nutriments = Nutriments{}
	for _, keys := range []nutrientKeys{per100gKeys, perServingKeys} {
		for _, key := range []string{keys.calories, keys.protein, keys.carbs, keys.fats} {
			if v, ok := p.Nutriments[key]; ok {
				compact.Nutriments[key] = v
			}
		}
	}
	return compact
}
