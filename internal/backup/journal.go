package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/2beens/ninjatraining/internal/food"
	"github.com/2beens/ninjatraining/internal/telemetry/metrics"
	"github.com/2beens/ninjatraining/internal/telemetry/tracing"
	"github.com/2beens/ninjatraining/internal/workouts"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	RootFolderName = "ninja-journal-backup"
	// number of records in one backup file
	recordsChunkSize = 350
)

const (
	KindFood    = "food"
	KindWorkout = "workout"
)

type fileStore interface {
	FindFolder(ctx context.Context, name string) (string, error)
	CreateFolder(ctx context.Context, name string) (string, error)
	Delete(ctx context.Context, id string) error
	ListFiles(ctx context.Context, folderID string) ([]File, error)
	Upload(ctx context.Context, folderID, name string, content []byte) (string, error)
}

type foodRecords interface {
	ListRecordsSince(ctx context.Context, since time.Time) ([]food.Entry, error)
}

type workoutRecords interface {
	ListRecordsSince(ctx context.Context, since time.Time) ([]workouts.DayRecord, error)
}

// Record is one journal line in a backup file.
type Record struct {
	Kind      string              `json:"kind"`
	CreatedAt time.Time           `json:"createdAt"`
	Food      *food.Entry         `json:"food,omitempty"`
	Workout   *workouts.DayRecord `json:"workout,omitempty"`
}

// JournalBackup incrementally exports food entries and workout days. The
// creation time of the newest backup file is the watermark for the next run.
type JournalBackup struct {
	store          fileStore
	foodRecords    foodRecords
	workoutRecords workoutRecords
	metricsManager *metrics.Manager
	folderID       string
}

func NewJournalBackup(
	ctx context.Context,
	store fileStore,
	foodRecords foodRecords,
	workoutRecords workoutRecords,
	metricsManager *metrics.Manager,
) (*JournalBackup, error) {
	folderID, err := store.FindFolder(ctx, RootFolderName)
	if err != nil {
		return nil, fmt.Errorf("find root backups folder: %w", err)
	}

	b := &JournalBackup{
		store:          store,
		foodRecords:    foodRecords,
		workoutRecords: workoutRecords,
		metricsManager: metricsManager,
	}

	if folderID == "" {
		log.Println("root backups folder not found, recreating ...")
		folderID, err = store.CreateFolder(ctx, RootFolderName)
		if err != nil {
			return nil, fmt.Errorf("create root backups folder: %w", err)
		}
		log.Printf("new root backups folder created: %s", folderID)
	} else {
		log.Printf("found backups folder ID: %s", folderID)
	}
	b.folderID = folderID

	return b, nil
}

// Reinit drops the backups folder with all its files and backs everything up again.
func (b *JournalBackup) Reinit(ctx context.Context, baseTime time.Time) (int, error) {
	log.Println("journal backup reinit starting ...")

	if err := b.store.Delete(ctx, b.folderID); err != nil {
		return 0, fmt.Errorf("delete backups folder: %w", err)
	}

	folderID, err := b.store.CreateFolder(ctx, RootFolderName)
	if err != nil {
		return 0, fmt.Errorf("create root backups folder: %w", err)
	}
	log.Printf("new root backups folder created: %s", folderID)
	b.folderID = folderID

	return b.DoBackup(ctx, baseTime)
}

// DoBackup uploads the records created since the newest existing backup file and
// returns how many were backed up.
func (b *JournalBackup) DoBackup(ctx context.Context, baseTime time.Time) (_ int, err error) {
	ctx, span := tracing.GlobalJournalBackupTracer.Start(ctx, "backup.journal")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	files, err := b.store.ListFiles(ctx, b.folderID)
	if err != nil {
		return 0, fmt.Errorf("list backup files: %w", err)
	}

	var since time.Time
	for _, f := range files {
		log.Debugf(" -- [%v]: %s (%s)", f.CreatedAt, f.Name, f.ID)
		if f.CreatedAt.After(since) {
			since = f.CreatedAt
		}
	}

	records, err := b.recordsSince(ctx, since)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		log.Println("no new journal records to backup, done")
		return 0, nil
	}

	prefix := "journal"
	if len(files) == 0 {
		prefix = "initial"
	}
	baseName := nextBaseName(fmt.Sprintf("%s-%s", prefix, baseTime.Format("2006-01-02")), files)

	log.Printf("backing up %d journal records since %v into %s", len(records), since, baseName)
	if err := b.upload(ctx, records, baseName); err != nil {
		return 0, err
	}

	span.SetAttributes(attribute.Int("records", len(records)))
	b.metricsManager.CounterJournalBackedUp.Add(float64(len(records)))
	log.Printf("backup since %v successfully saved: %s", since, baseName)

	return len(records), nil
}

func (b *JournalBackup) recordsSince(ctx context.Context, since time.Time) ([]Record, error) {
	entries, err := b.foodRecords.ListRecordsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list food entries: %w", err)
	}
	days, err := b.workoutRecords.ListRecordsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list workout days: %w", err)
	}

	records := make([]Record, 0, len(entries)+len(days))
	for i := range entries {
		records = append(records, Record{Kind: KindFood, CreatedAt: entries[i].CreatedAt, Food: &entries[i]})
	}
	for i := range days {
		records = append(records, Record{Kind: KindWorkout, CreatedAt: days[i].CreatedAt, Workout: &days[i]})
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	return records, nil
}

func (b *JournalBackup) upload(ctx context.Context, records []Record, baseName string) error {
	chunks := Chunk(records, recordsChunkSize)
	for i, chunk := range chunks {
		name := fmt.Sprintf("%s_%d.json", baseName, i+1)

		content, err := json.Marshal(chunk)
		if err != nil {
			return fmt.Errorf("%s: marshal records: %w", name, err)
		}

		id, err := b.store.Upload(ctx, b.folderID, name, content)
		if err != nil {
			return fmt.Errorf("%s: upload: %w", name, err)
		}
		log.Printf("%s: backup file with %d records saved: %s", name, len(chunk), id)
	}
	return nil
}

// nextBaseName suffixes base with a counter until no existing file uses it.
func nextBaseName(base string, files []File) string {
	taken := func(name string) bool {
		for _, f := range files {
			if strings.HasPrefix(f.Name, name+"_") {
				return true
			}
		}
		return false
	}

	name := base
	for counter := 2; taken(name); counter++ {
		name = fmt.Sprintf("%s-%d", base, counter)
	}
	return name
}

func Chunk(records []Record, size int) [][]Record {
	chunks := make([][]Record, 0, (len(records)+size-1)/size)
	for from := 0; from < len(records); from += size {
		to := min(from+size, len(records))
		chunks = append(chunks, records[from:to])
	}
	return chunks
}
