package food

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/ninjatraining/internal/auth"
	"github.com/2beens/ninjatraining/internal/foodfacts"
	"github.com/2beens/ninjatraining/internal/macros"
	"github.com/2beens/ninjatraining/internal/telemetry/tracing"
	"github.com/2beens/ninjatraining/internal/vision"
	"github.com/2beens/ninjatraining/pkg"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=food_test

const (
	defaultGrams     = 100
	imageFormField   = "image"
	multipartReserve = 1 << 20
)

type foodService interface {
	AddEntry(ctx context.Context, userID uuid.UUID, source Source, data macros.MacroData) (*Entry, error)
	AddFromImage(ctx context.Context, userID uuid.UUID, image []byte) (*Entry, error)
	AddFromBarcode(ctx context.Context, userID uuid.UUID, code string, grams float64) (*Entry, error)
	Search(ctx context.Context, query string, grams float64) ([]SearchResult, error)
	LookupBarcode(ctx context.Context, code string, grams float64) (*SearchResult, error)
	UpdateEntry(ctx context.Context, userID, id uuid.UUID, data macros.MacroData) (*Entry, error)
	DeleteEntry(ctx context.Context, userID, id uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]Entry, error)
	TodayTotals(ctx context.Context, userID uuid.UUID, loc *time.Location) (*DailyTotals, error)
}

type locationResolver interface {
	Location(ctx context.Context, r *http.Request) *time.Location
}

type MacrosRequest struct {
	Calories *float64 `json:"calories" validate:"required,gte=0"`
	Protein  *float64 `json:"protein" validate:"required,gte=0"`
	Carbs    *float64 `json:"carbs" validate:"required,gte=0"`
	Fats     *float64 `json:"fats" validate:"required,gte=0"`
}

type EntryRequest struct {
	Description string        `json:"description" validate:"required,max=500"`
	Macros      MacrosRequest `json:"macros"`
	Source      string        `json:"source,omitempty" validate:"omitempty,oneof=manual search"`
}

func (r EntryRequest) MacroData() macros.MacroData {
	return macros.MacroData{
		Description: r.Description,
		Macros: macros.Macros{
			Calories: *r.Macros.Calories,
			Protein:  *r.Macros.Protein,
			Carbs:    *r.Macros.Carbs,
			Fats:     *r.Macros.Fats,
		},
	}
}

type BarcodeEntryRequest struct {
	Barcode string  `json:"barcode" validate:"required,numeric,min=4,max=20"`
	Grams   float64 `json:"grams" validate:"omitempty,gt=0,lte=10000"`
}

type Handler struct {
	service       foodService
	locResolver   locationResolver
	maxImageBytes int64
	validate      *validator.Validate
}

func NewHandler(service foodService, locResolver locationResolver, maxImageSizeMB int) *Handler {
	return &Handler{
		service:       service,
		locResolver:   locResolver,
		maxImageBytes: int64(maxImageSizeMB) << 20,
		validate:      validator.New(),
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if !pkg.IsJSONRequest(r) {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Debugf("food, unmarshal json params: %s", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			http.Error(w, "invalid field: "+validationErrs[0].Field(), http.StatusBadRequest)
			return false
		}
		http.Error(w, "invalid request", http.StatusBadRequest)
		return false
	}
	return true
}

func gramsParam(r *http.Request) (float64, bool) {
	raw := r.URL.Query().Get("grams")
	if raw == "" {
		return defaultGrams, true
	}
	grams, err := strconv.ParseFloat(raw, 64)
	if err != nil || grams <= 0 || grams > 10000 {
		return 0, false
	}
	return grams, true
}

func entryIDParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func writeLookupError(w http.ResponseWriter, err error, failedMsg string) {
	switch {
	case errors.Is(err, foodfacts.ErrProductNotFound):
		http.Error(w, "Product not found for this barcode.", http.StatusNotFound)
	case errors.Is(err, macros.ErrNoUsableData):
		http.Error(w, "No nutrition data available for this product.", http.StatusUnprocessableEntity)
	case errors.Is(err, foodfacts.ErrEmptyQuery):
		http.Error(w, "search query is empty", http.StatusBadRequest)
	case errors.Is(err, foodfacts.ErrInvalidBarcode):
		http.Error(w, "invalid barcode", http.StatusBadRequest)
	case errors.Is(err, macros.ErrInvalidServing):
		http.Error(w, "invalid grams", http.StatusBadRequest)
	case errors.Is(err, foodfacts.ErrUpstream):
		log.Errorf("food database: %s", err)
		http.Error(w, failedMsg, http.StatusBadGateway)
	default:
		log.Errorf("food lookup: %s", err)
		http.Error(w, failedMsg, http.StatusInternalServerError)
	}
}

func writeAnalyzeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vision.ErrUnsupportedImageFormat), errors.Is(err, vision.ErrBadRequest):
		http.Error(w, "Invalid request. Please check the image format and try again.", http.StatusBadRequest)
	case errors.Is(err, vision.ErrRateLimited):
		http.Error(w, "Rate limit exceeded. Please try again in a few moments.", http.StatusTooManyRequests)
	case errors.Is(err, vision.ErrEmptyResponse), errors.Is(err, vision.ErrInvalidResponseFormat):
		log.Warnf("analyze image: %s", err)
		http.Error(w, "Invalid response format", http.StatusBadGateway)
	case errors.Is(err, vision.ErrUnauthorized):
		log.Errorf("analyze image: %s", err)
		http.Error(w, "Failed to analyze image. Please try again.", http.StatusBadGateway)
	default:
		log.Errorf("add entry from image: %s", err)
		http.Error(w, "Failed to process image. Please try again.", http.StatusInternalServerError)
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.food.list")
	defer span.End()

	userID, ok := auth.UserIDFrom(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	entries, err := h.service.List(ctx, userID)
	if err != nil {
		log.Errorf("list food entries: %s", err)
		http.Error(w, "Failed to load food entries. Please try again.", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, entries, http.StatusOK)
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.food.add")
	defer span.End()

	userID, ok := auth.UserIDFrom(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req EntryRequest
	if !h.decode(w, r, &req) {
		return
	}
	source, err := ParseSource(req.Source)
	if err != nil {
		http.Error(w, "invalid source", http.StatusBadRequest)
		return
	}

	entry, err := h.service.AddEntry(ctx, userID, source, req.MacroData())
	if err != nil {
		if errors.Is(err, ErrInvalidEntry) {
			http.Error(w, "invalid food entry", http.StatusBadRequest)
			return
		}
		log.Errorf("add food entry: %s", err)
		http.Error(w, "Failed to add entry. Please try again.", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, entry, http.StatusCreated)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.food.update")
	defer span.End()

	userID, ok := auth.UserIDFrom(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	id, ok := entryIDParam(r)
	if !ok {
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return
	}

	var req EntryRequest
	if !h.decode(w, r, &req) {
		return
	}

	entry, err := h.service.UpdateEntry(ctx, userID, id, req.MacroData())
	if err != nil {
		switch {
		case errors.Is(err, ErrEntryNotFound):
			http.Error(w, "entry not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidEntry):
			http.Error(w, "invalid food entry", http.StatusBadRequest)
		default:
			log.Errorf("update food entry %s: %s", id, err)
			http.Error(w, "Failed to update entry. Please try again.", http.StatusInternalServerError)
		}
		return
	}

	pkg.WriteJSON(w, entry, http.StatusOK)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.food.delete")
	defer span.End()

	userID, ok := auth.UserIDFrom(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	id, ok := entryIDParam(r)
	if !ok {
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteEntry(ctx, userID, id); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete food entry %s: %s", id, err)
		http.Error(w, "Failed to delete entry. Please try again.", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, "deleted")
}

func (h *Handler) HandleTodayTotals(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.food.totals.today")
	defer span.End()

	userID, ok := auth.UserIDFrom(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	totals, err := h.service.TodayTotals(ctx, userID, h.locResolver.Location(ctx, r))
	if err != nil {
		log.Errorf("today totals: %s", err)
		http.Error(w, "Failed to load food entries. Please try again.", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, totals, http.StatusOK)
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.food.search")
	defer span.End()

	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "search query is empty", http.StatusBadRequest)
		return
	}
	grams, ok := gramsParam(r)
	if !ok {
		http.Error(w, "invalid grams", http.StatusBadRequest)
		return
	}

	results, err := h.service.Search(ctx, query, grams)
	if err != nil {
		writeLookupError(w, err, "Failed to search foods. Please try again.")
		return
	}

	pkg.WriteJSON(w, results, http.StatusOK)
}

func (h *Handler) HandleBarcode(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.food.barcode")
	defer span.End()

	grams, ok := gramsParam(r)
	if !ok {
		http.Error(w, "invalid grams", http.StatusBadRequest)
		return
	}

	res, err := h.service.LookupBarcode(ctx, mux.Vars(r)["code"], grams)
	if err != nil {
		writeLookupError(w, err, "Failed to lookup barcode. Please try again.")
		return
	}

	pkg.WriteJSON(w, res, http.StatusOK)
}

func (h *Handler) HandleAddFromBarcode(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.food.add.barcode")
	defer span.End()

	userID, ok := auth.UserIDFrom(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req BarcodeEntryRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Grams == 0 {
		req.Grams = defaultGrams
	}

	entry, err := h.service.AddFromBarcode(ctx, userID, req.Barcode, req.Grams)
	if err != nil {
		writeLookupError(w, err, "Failed to add entry. Please try again.")
		return
	}

	pkg.WriteJSON(w, entry, http.StatusCreated)
}

func (h *Handler) HandleAddFromImage(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.food.add.image")
	defer span.End()

	userID, ok := auth.UserIDFrom(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxImageBytes+multipartReserve)
	if err := r.ParseMultipartForm(h.maxImageBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			http.Error(w, "image too large", http.StatusRequestEntityTooLarge)
			return
		}
		log.Debugf("add from image, parse multipart form: %s", err)
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Warnf("remove multipart form files: %s", err)
		}
	}()

	file, header, err := r.FormFile(imageFormField)
	if err != nil {
		http.Error(w, "image missing", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > h.maxImageBytes {
		http.Error(w, "image too large", http.StatusRequestEntityTooLarge)
		return
	}

	image, err := io.ReadAll(io.LimitReader(file, h.maxImageBytes+1))
	if err != nil {
		log.Errorf("add from image, read image: %s", err)
		http.Error(w, "Failed to process image. Please try again.", http.StatusInternalServerError)
		return
	}
	if int64(len(image)) > h.maxImageBytes {
		http.Error(w, "image too large", http.StatusRequestEntityTooLarge)
		return
	}
	if len(image) == 0 {
		http.Error(w, "image missing", http.StatusBadRequest)
		return
	}

	entry, err := h.service.AddFromImage(ctx, userID, image)
	if err != nil {
		if errors.Is(err, ErrInvalidEntry) {
			log.Warnf("add from image, invalid estimate: %s", err)
			http.Error(w, "Invalid response format", http.StatusBadGateway)
			return
		}
		writeAnalyzeError(w, err)
		return
	}

	pkg.WriteJSON(w, entry, http.StatusCreated)
}

// SetupRoutes registers the food routes. imageUploadLimit guards the image
// analysis route, which calls the paid vision API.
func (h *Handler) SetupRoutes(r *mux.Router, imageUploadLimit mux.MiddlewareFunc) {
	imageRouter := r.PathPrefix("/food/entries/image").Subrouter()
	imageRouter.HandleFunc("", h.HandleAddFromImage).Methods("POST", "OPTIONS").Name("add-food-image")
	imageRouter.Use(imageUploadLimit)

	r.HandleFunc("/food/entries", h.HandleList).Methods("GET", "OPTIONS").Name("list-food")
	r.HandleFunc("/food/entries", h.HandleAdd).Methods("POST", "OPTIONS").Name("add-food")
	r.HandleFunc("/food/entries/barcode", h.HandleAddFromBarcode).Methods("POST", "OPTIONS").Name("add-food-barcode")
	r.HandleFunc("/food/entries/{id}", h.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-food")
	r.HandleFunc("/food/entries/{id}", h.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-food")
	r.HandleFunc("/food/totals/today", h.HandleTodayTotals).Methods("GET", "OPTIONS").Name("food-totals-today")
	r.HandleFunc("/food/search", h.HandleSearch).Methods("GET", "OPTIONS").Name("food-search")
	r.HandleFunc("/food/barcode/{code}", h.HandleBarcode).Methods("GET", "OPTIONS").Name("food-barcode")
}
