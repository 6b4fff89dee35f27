package workouts

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/ninjatraining/internal/auth"
	"github.com/2beens/ninjatraining/internal/progress"
	"github.com/2beens/ninjatraining/internal/telemetry/tracing"
	"github.com/2beens/ninjatraining/pkg"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=workouts_test

type workoutsService interface {
	Catalog() progress.Catalog
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*progress.Progress, error)
	MarkWorkout(ctx context.Context, userID uuid.UUID, checkIn progress.CheckIn) (*progress.CheckInResult, error)
	ChangeAvatar(ctx context.Context, userID uuid.UUID, avatarID int) (*progress.Progress, error)
	Calendar(ctx context.Context, userID uuid.UUID, year int, month time.Month) ([]progress.WorkoutDay, error)
}

type locationResolver interface {
	Location(ctx context.Context, r *http.Request) *time.Location
}

// ScrollPasswordHeader unlocks back-dated check-ins and custom experience awards.
const ScrollPasswordHeader = "X-Scroll-Password"

type CheckInRequest struct {
	Completed  *bool  `json:"completed" validate:"required"`
	Date       string `json:"date,omitempty"`
	Experience *int   `json:"experience,omitempty" validate:"omitempty,gt=0,lte=1000"`
}

type ChangeAvatarRequest struct {
	AvatarID int `json:"avatarId" validate:"required,gt=0"`
}

type ProgressResponse struct {
	Level                 int                   `json:"level"`
	Experience            int                   `json:"experience"`
	ExperienceToNextLevel int                   `json:"experienceToNextLevel"`
	Streak                int                   `json:"streak"`
	CurrentAvatar         progress.Avatar       `json:"currentAvatar"`
	AvailableAvatars      []progress.Avatar     `json:"availableAvatars"`
	WorkoutDays           []progress.WorkoutDay `json:"workoutDays"`
}

type CheckInResponse struct {
	Recorded        bool              `json:"recorded"`
	LevelsGained    int               `json:"levelsGained"`
	UnlockedAvatars []progress.Avatar `json:"unlockedAvatars"`
	Progress        ProgressResponse  `json:"progress"`
}

type CalendarResponse struct {
	Year  int                   `json:"year"`
	Month int                   `json:"month"`
	Days  []progress.WorkoutDay `json:"days"`
}

type Handler struct {
	service           workoutsService
	locResolver       locationResolver
	defaultExperience int
	scrollPassword    string
	validate          *validator.Validate
	now               func() time.Time
}

// NewHandler creates the workouts handler. An empty scrollPassword disables
// back-dated check-ins and custom experience awards.
func NewHandler(service workoutsService, locResolver locationResolver, defaultExperience int, scrollPassword string) *Handler {
	return &Handler{
		service:           service,
		locResolver:       locResolver,
		defaultExperience: defaultExperience,
		scrollPassword:    scrollPassword,
		validate:          validator.New(),
		now:               time.Now,
	}
}

// scrollUnlocked reports whether the request carries the scroll password.
// A present but wrong password is reported separately.
func (h *Handler) scrollUnlocked(r *http.Request) (unlocked bool, wrong bool) {
	given := r.Header.Get(ScrollPasswordHeader)
	if given == "" {
		return false, false
	}
	if h.scrollPassword == "" {
		return false, true
	}
	if subtle.ConstantTimeCompare([]byte(given), []byte(h.scrollPassword)) != 1 {
		return false, true
	}
	return true, false
}

func (h *Handler) progressResponse(p progress.Progress) ProgressResponse {
	catalog := h.service.Catalog()
	currentAvatar, _ := catalog.Get(p.CurrentAvatarID)
	days := p.WorkoutDays
	if days == nil {
		days = []progress.WorkoutDay{}
	}
	return ProgressResponse{
		Level:                 p.Level,
		Experience:            p.Experience,
		ExperienceToNextLevel: p.ExperienceToNextLevel(),
		Streak:                p.Streak,
		CurrentAvatar:         currentAvatar,
		AvailableAvatars:      catalog.Available(p.Level),
		WorkoutDays:           days,
	}
}

func (h *Handler) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.progress")
	defer span.End()

	userID, ok := auth.UserIDFrom(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	p, err := h.service.GetOrCreate(ctx, userID)
	if err != nil {
		log.Errorf("get progress: %s", err)
		http.Error(w, "failed to get progress", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, h.progressResponse(*p), http.StatusOK)
}

func (h *Handler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.checkin")
	defer span.End()

	userID, ok := auth.UserIDFrom(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	if !pkg.IsJSONRequest(r) {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debugf("check-in, unmarshal json params: %s", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "invalid check-in", http.StatusBadRequest)
		return
	}

	unlocked, wrongPassword := h.scrollUnlocked(r)
	if wrongPassword {
		log.Warnf("check-in, wrong scroll password from user %s", userID)
		http.Error(w, "wrong scroll password", http.StatusForbidden)
		return
	}

	checkIn := progress.CheckIn{
		Completed:       *req.Completed,
		ExperienceAward: h.defaultExperience,
	}
	if req.Experience != nil {
		if *req.Experience != h.defaultExperience && !unlocked {
			http.Error(w, "custom experience needs the secret scroll", http.StatusForbidden)
			return
		}
		checkIn.ExperienceAward = *req.Experience
	}

	today := progress.Today(h.now(), h.locResolver.Location(ctx, r))
	checkIn.Date = today
	if req.Date != "" {
		date, err := progress.ParseDate(req.Date)
		if err != nil {
			http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		if !date.Equal(today) && !unlocked {
			http.Error(w, "other days need the secret scroll", http.StatusForbidden)
			return
		}
		checkIn.Date = date
	}

	result, err := h.service.MarkWorkout(ctx, userID, checkIn)
	if err != nil {
		switch {
		case errors.Is(err, progress.ErrDuplicateDay):
			http.Error(w, "workout already recorded for this day", http.StatusConflict)
		case errors.Is(err, ErrProgressChanged):
			http.Error(w, "progress changed meanwhile, try again", http.StatusConflict)
		case errors.Is(err, progress.ErrInvalidDate), errors.Is(err, progress.ErrInvalidExperienceAward):
			http.Error(w, "invalid check-in", http.StatusBadRequest)
		default:
			log.Errorf("mark workout: %s", err)
			http.Error(w, "failed to mark workout", http.StatusInternalServerError)
		}
		return
	}

	unlockedAvatars := result.UnlockedAvatars
	if unlockedAvatars == nil {
		unlockedAvatars = []progress.Avatar{}
	}
	status := http.StatusCreated
	if !result.Recorded {
		status = http.StatusOK
	}
	pkg.WriteJSON(w, CheckInResponse{
		Recorded:        result.Recorded,
		LevelsGained:    result.LevelsGained,
		UnlockedAvatars: unlockedAvatars,
		Progress:        h.progressResponse(result.Progress),
	}, status)
}

func (h *Handler) HandleChangeAvatar(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.avatar")
	defer span.End()

	userID, ok := auth.UserIDFrom(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	if !pkg.IsJSONRequest(r) {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req ChangeAvatarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "invalid avatar id", http.StatusBadRequest)
		return
	}

	p, err := h.service.ChangeAvatar(ctx, userID, req.AvatarID)
	if err != nil {
		switch {
		case errors.Is(err, progress.ErrAvatarNotFound):
			http.Error(w, "avatar not found", http.StatusNotFound)
		case errors.Is(err, progress.ErrAvatarLocked):
			http.Error(w, "avatar not unlocked yet", http.StatusForbidden)
		default:
			log.Errorf("change avatar: %s", err)
			http.Error(w, "failed to change avatar", http.StatusInternalServerError)
		}
		return
	}

	pkg.WriteJSON(w, h.progressResponse(*p), http.StatusOK)
}

func (h *Handler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.calendar")
	defer span.End()

	userID, ok := auth.UserIDFrom(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	year, err := strconv.Atoi(vars["year"])
	if err != nil || year < 1970 || year > 9999 {
		http.Error(w, "invalid year", http.StatusBadRequest)
		return
	}
	month, err := strconv.Atoi(vars["month"])
	if err != nil || month < 1 || month > 12 {
		http.Error(w, "invalid month", http.StatusBadRequest)
		return
	}

	days, err := h.service.Calendar(ctx, userID, year, time.Month(month))
	if err != nil {
		log.Errorf("calendar: %s", err)
		http.Error(w, "failed to get calendar", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, CalendarResponse{Year: year, Month: month, Days: days}, http.StatusOK)
}

func (h *Handler) HandleAvatars(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.avatars")
	defer span.End()

	pkg.WriteJSON(w, h.service.Catalog(), http.StatusOK)
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/avatars", h.HandleAvatars).Methods("GET", "OPTIONS").Name("avatars")
	r.HandleFunc("/progress", h.HandleGetProgress).Methods("GET", "OPTIONS").Name("get-progress")
	r.HandleFunc("/progress/avatar", h.HandleChangeAvatar).Methods("PUT", "OPTIONS").Name("change-avatar")
	r.HandleFunc("/workouts/checkin", h.HandleCheckIn).Methods("POST", "OPTIONS").Name("check-in")
	r.HandleFunc("/workouts/calendar/{year}/{month}", h.HandleCalendar).Methods("GET", "OPTIONS").Name("calendar")
}
