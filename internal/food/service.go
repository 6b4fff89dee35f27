package food

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/2beens/ninjatraining/internal/macros"
	"github.com/2beens/ninjatraining/internal/telemetry/metrics"
	"github.com/2beens/ninjatraining/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=food_test

var (
	ErrEntryNotFound = errors.New("food entry not found")
	ErrInvalidEntry  = errors.New("invalid food entry")
)

const maxDescriptionLength = 500

type entriesRepo interface {
	Add(ctx context.Context, entry Entry) (*Entry, error)
	Update(ctx context.Context, entry Entry) (*Entry, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]Entry, error)
	ListSince(ctx context.Context, userID uuid.UUID, from time.Time) ([]Entry, error)
}

type foodDatabase interface {
	Search(ctx context.Context, query string) ([]macros.Product, error)
	LookupBarcode(ctx context.Context, code string) (*macros.Product, error)
}

type imageAnalyzer interface {
	Analyze(ctx context.Context, image []byte) (*macros.MacroData, error)
}

type Service struct {
	repo           entriesRepo
	foodDB         foodDatabase
	analyzer       imageAnalyzer
	metricsManager *metrics.Manager
	now            func() time.Time
}

func NewService(
	repo entriesRepo,
	foodDB foodDatabase,
	analyzer imageAnalyzer,
	metricsManager *metrics.Manager,
) *Service {
	return &Service{
		repo:           repo,
		foodDB:         foodDB,
		analyzer:       analyzer,
		metricsManager: metricsManager,
		now:            time.Now,
	}
}

func validateMacroData(data macros.MacroData) error {
	data.Description = strings.TrimSpace(data.Description)
	if len(data.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description too long", ErrInvalidEntry)
	}
	if err := data.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	return nil
}

func validateGrams(grams float64) error {
	if math.IsNaN(grams) || math.IsInf(grams, 0) || grams <= 0 {
		return fmt.Errorf("%w: %v", macros.ErrInvalidServing, grams)
	}
	return nil
}

func (s *Service) AddEntry(ctx context.Context, userID uuid.UUID, source Source, data macros.MacroData) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.food.add")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("source", string(source)))

	if err := validateMacroData(data); err != nil {
		return nil, err
	}

	entry, err := s.repo.Add(ctx, Entry{
		UserID:      userID,
		Description: strings.TrimSpace(data.Description),
		Macros:      data.Macros,
		Source:      source,
	})
	if err != nil {
		return nil, fmt.Errorf("add entry: %w", err)
	}

	if s.metricsManager != nil {
		s.metricsManager.CounterFoodEntries.WithLabelValues(string(source)).Inc()
	}
	log.Debugf("food entry %s added for user %s from %s", entry.ID, userID, source)

	return entry, nil
}

// AddFromImage stores the macros estimated from a food photo.
func (s *Service) AddFromImage(ctx context.Context, userID uuid.UUID, image []byte) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.food.add.image")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.Int("image.size", len(image)))

	data, err := s.analyzer.Analyze(ctx, image)
	if err != nil {
		return nil, err
	}

	return s.AddEntry(ctx, userID, SourceImage, *data)
}

func searchResult(p macros.Product, grams float64) SearchResult {
	res := SearchResult{
		Code:        p.Code,
		Name:        p.Name,
		Brands:      p.Brands,
		ServingSize: p.ServingSize,
		Grams:       grams,
	}
	data, err := macros.Normalize(p, grams)
	if err != nil {
		res.NoData = true
		return res
	}
	res.Preview = &data
	return res
}

// Search looks the query up in the food database and previews every product at the given grams.
func (s *Service) Search(ctx context.Context, query string, grams float64) (_ []SearchResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.food.search")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("query", query))

	if err := validateGrams(grams); err != nil {
		return nil, err
	}

	products, err := s.foodDB.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(products))
	for _, p := range products {
		results = append(results, searchResult(p, grams))
	}
	return results, nil
}

func (s *Service) LookupBarcode(ctx context.Context, code string, grams float64) (_ *SearchResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.food.barcode")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("barcode", code))

	if err := validateGrams(grams); err != nil {
		return nil, err
	}

	p, err := s.foodDB.LookupBarcode(ctx, code)
	if err != nil {
		return nil, err
	}

	res := searchResult(*p, grams)
	return &res, nil
}

// AddFromBarcode stores the macros of a scanned product. Products without usable
// nutrition data yield macros.ErrNoUsableData.
func (s *Service) AddFromBarcode(ctx context.Context, userID uuid.UUID, code string, grams float64) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.food.add.barcode")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	res, err := s.LookupBarcode(ctx, code, grams)
	if err != nil {
		return nil, err
	}
	if res.NoData {
		return nil, macros.ErrNoUsableData
	}

	return s.AddEntry(ctx, userID, SourceBarcode, *res.Preview)
}

func (s *Service) UpdateEntry(ctx context.Context, userID, id uuid.UUID, data macros.MacroData) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.food.update")
	defer func() {
		if err != nil && !errors.Is(err, ErrEntryNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := validateMacroData(data); err != nil {
		return nil, err
	}

	return s.repo.Update(ctx, Entry{
		ID:          id,
		UserID:      userID,
		Description: strings.TrimSpace(data.Description),
		Macros:      data.Macros,
	})
}

func (s *Service) DeleteEntry(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Entry, error) {
	return s.repo.List(ctx, userID)
}

// TodayTotals sums the entries created since midnight in loc.
func (s *Service) TodayTotals(ctx context.Context, userID uuid.UUID, loc *time.Location) (_ *DailyTotals, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.food.totals.today")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if loc == nil {
		loc = time.UTC
	}
	now := s.now().In(loc)
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)

	entries, err := s.repo.ListSince(ctx, userID, midnight)
	if err != nil {
		return nil, fmt.Errorf("list today's entries: %w", err)
	}

	all := make([]macros.Macros, 0, len(entries))
	for _, e := range entries {
		all = append(all, e.Macros)
	}

	totals := &DailyTotals{
		Date:   midnight.Format(time.DateOnly),
		Totals: macros.Sum(all...),
		Count:  len(entries),
	}
	if len(entries) > 0 {
		latest := entries[0]
		totals.Latest = &latest
	}

	return totals, nil
}
