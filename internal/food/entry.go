package food

import (
	"fmt"
	"time"

	"github.com/2beens/ninjatraining/internal/macros"

	"github.com/google/uuid"
)

type Source string

const (
	SourceImage   Source = "image"
	SourceSearch  Source = "search"
	SourceBarcode Source = "barcode"
	SourceManual  Source = "manual"
)

func ParseSource(s string) (Source, error) {
	switch src := Source(s); src {
	case SourceImage, SourceSearch, SourceBarcode, SourceManual:
		return src, nil
	case "":
		return SourceManual, nil
	default:
		return "", fmt.Errorf("%w: unknown source %q", ErrInvalidEntry, s)
	}
}

type Entry struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"userId"`
	Description string        `json:"description"`
	Macros      macros.Macros `json:"macros"`
	Source      Source        `json:"source"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func (e Entry) MacroData() macros.MacroData {
	return macros.MacroData{
		Description: e.Description,
		Macros:      e.Macros,
	}
}

// DailyTotals sums the entries of one calendar day.
type DailyTotals struct {
	Date   string        `json:"date"`
	Totals macros.Macros `json:"totals"`
	Count  int           `json:"count"`
	Latest *Entry        `json:"latest"`
}

// SearchResult is a food database product with its macros scaled to the requested grams.
// Preview is nil and NoData set when the product carries no usable nutrition data.
type SearchResult struct {
	Code        string            `json:"code"`
	Name        string            `json:"name"`
	Brands      string            `json:"brands,omitempty"`
	ServingSize string            `json:"servingSize,omitempty"`
	Grams       float64           `json:"grams"`
	Preview     *macros.MacroData `json:"preview"`
	NoData      bool              `json:"noData"`
}
