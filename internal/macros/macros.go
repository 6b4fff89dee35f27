package macros

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNoUsableData   = errors.New("no usable nutrition data")
	ErrInvalidServing = errors.New("serving size must be a positive number of grams")
	ErrInvalidMacros  = errors.New("macros must be finite and non-negative")
)

type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
}

type MacroData struct {
	Description string `json:"description"`
	Macros      Macros `json:"macros"`
}

func (m Macros) Validate() error {
	for name, v := range map[string]float64{
		"calories": m.Calories,
		"protein":  m.Protein,
		"carbs":    m.Carbs,
		"fats":     m.Fats,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidMacros, name, v)
		}
	}
	return nil
}

func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		Protein:  m.Protein + o.Protein,
		Carbs:    m.Carbs + o.Carbs,
		Fats:     m.Fats + o.Fats,
	}
}

// Rounded rounds calories to a whole number and the rest to one decimal.
func (m Macros) Rounded() Macros {
	return Macros{
		Calories: math.Round(m.Calories),
		Protein:  roundOneDecimal(m.Protein),
		Carbs:    roundOneDecimal(m.Carbs),
		Fats:     roundOneDecimal(m.Fats),
	}
}

// Sum adds up the given macros, keeping one decimal of precision.
func Sum(all ...Macros) Macros {
	total := Macros{}
	for _, m := range all {
		total = total.Add(m)
	}
	return Macros{
		Calories: roundOneDecimal(total.Calories),
		Protein:  roundOneDecimal(total.Protein),
		Carbs:    roundOneDecimal(total.Carbs),
		Fats:     roundOneDecimal(total.Fats),
	}
}

func (d MacroData) Validate() error {
	if d.Description == "" {
		return errors.New("description is empty")
	}
	return d.Macros.Validate()
}

func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
