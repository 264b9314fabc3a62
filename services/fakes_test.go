package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Dosada05/cricket-slots/models"
	"github.com/Dosada05/cricket-slots/repositories"
	"github.com/Dosada05/cricket-slots/storage"
)

var testRetry = RetryPolicy{Attempts: 3, Backoff: 0}

var baseTime = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(v int) *int { return &v }

func cloneSlot(s *models.Slot) *models.Slot {
	c := *s
	if s.PlayerID != nil {
		c.PlayerID = ptr(*s.PlayerID)
	}
	return &c
}

// fakeSlotRepo keeps slots in memory and enforces the same uniqueness and
// conditional-update rules as the Postgres repository.
type fakeSlotRepo struct {
	mu     sync.Mutex
	slots  map[int]*models.Slot
	nextID int

	// totals backs the stored procedure; a missing tournament yields not found.
	totals             map[int]int
	procedureAvailable bool
	atomicErr          error
	listErr            error

	// beforeMove runs before each conditional move; a non-nil error is
	// returned instead of applying it.
	beforeMove func(id, from, to int) error
	moveCalls  int

	// beforeDelete runs under the lock right before a delete, e.g. to
	// simulate a concurrent withdrawal of the same row.
	beforeDelete func(id int)
}

func newFakeSlotRepo() *fakeSlotRepo {
	return &fakeSlotRepo{slots: make(map[int]*models.Slot), totals: make(map[int]int)}
}

// seed inserts a row with an explicit id, bypassing validation hooks.
func (f *fakeSlotRepo) seed(s *models.Slot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.RequestedAt.IsZero() {
		s.RequestedAt = baseTime
	}
	f.slots[s.ID] = cloneSlot(s)
	if s.ID > f.nextID {
		f.nextID = s.ID
	}
}

func (f *fakeSlotRepo) snapshot(tournamentID int) []*models.Slot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rowsLocked(tournamentID)
}

func (f *fakeSlotRepo) rowsLocked(tournamentID int) []*models.Slot {
	var out []*models.Slot
	for _, s := range f.slots {
		if s.TournamentID == tournamentID {
			out = append(out, cloneSlot(s))
		}
	}
	slices.SortFunc(out, func(a, b *models.Slot) int { return a.SlotNumber - b.SlotNumber })
	return out
}

func (f *fakeSlotRepo) numberTakenLocked(tournamentID, number, exceptID int) bool {
	for _, s := range f.slots {
		if s.TournamentID == tournamentID && s.SlotNumber == number && s.ID != exceptID {
			return true
		}
	}
	return false
}

func (f *fakeSlotRepo) ListByTournament(_ context.Context, tournamentID int) ([]*models.Slot, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.snapshot(tournamentID), nil
}

func (f *fakeSlotRepo) ListWaitlist(_ context.Context, tournamentID int) ([]*models.Slot, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Slot
	for _, s := range f.snapshot(tournamentID) {
		if s.Status == models.SlotWaitlist {
			if s.HasPlayer() {
				s.Player = &models.User{ID: *s.PlayerID, FullName: "Player " + string(rune('A'+*s.PlayerID%26))}
			}
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b *models.Slot) int {
		if c := a.RequestedAt.Compare(b.RequestedAt); c != 0 {
			return c
		}
		return a.ID - b.ID
	})
	return out, nil
}

func (f *fakeSlotRepo) GetByID(_ context.Context, id int) (*models.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok {
		return nil, repositories.ErrSlotNotFound
	}
	return cloneSlot(s), nil
}

func (f *fakeSlotRepo) FindByPlayer(_ context.Context, tournamentID, playerID int) (*models.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.slots {
		if s.TournamentID == tournamentID && s.HasPlayer() && *s.PlayerID == playerID {
			return cloneSlot(s), nil
		}
	}
	return nil, repositories.ErrSlotNotFound
}

func (f *fakeSlotRepo) Create(_ context.Context, slot *models.Slot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.numberTakenLocked(slot.TournamentID, slot.SlotNumber, 0) {
		return repositories.ErrSlotNumberTaken
	}
	for _, s := range f.slots {
		if s.TournamentID == slot.TournamentID && s.HasPlayer() && slot.HasPlayer() && *s.PlayerID == *slot.PlayerID {
			return repositories.ErrSlotPlayerRegistered
		}
	}
	f.nextID++
	slot.ID = f.nextID
	f.slots[slot.ID] = cloneSlot(slot)
	return nil
}

func (f *fakeSlotRepo) UpdateStatusIfUnchanged(_ context.Context, id int, from, to models.SlotStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok {
		return repositories.ErrSlotNotFound
	}
	if s.Status != from {
		return repositories.ErrSlotStatusConflict
	}
	s.Status = to
	return nil
}

func (f *fakeSlotRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.beforeDelete != nil {
		f.beforeDelete(id)
	}
	if _, ok := f.slots[id]; !ok {
		return repositories.ErrSlotNotFound
	}
	delete(f.slots, id)
	return nil
}

func (f *fakeSlotRepo) MoveIfUnchanged(_ context.Context, id, fromNumber, toNumber int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moveCalls++
	if f.beforeMove != nil {
		if err := f.beforeMove(id, fromNumber, toNumber); err != nil {
			return err
		}
	}
	return f.moveLocked(id, fromNumber, toNumber)
}

func (f *fakeSlotRepo) moveLocked(id, fromNumber, toNumber int) error {
	s, ok := f.slots[id]
	if !ok || s.SlotNumber != fromNumber || s.Status != models.SlotWaitlist {
		return repositories.ErrSlotMoveConflict
	}
	if f.numberTakenLocked(s.TournamentID, toNumber, id) {
		return repositories.ErrSlotNumberTaken
	}
	s.SlotNumber = toNumber
	s.Status = models.SlotPending
	return nil
}

func (f *fakeSlotRepo) PromoteNextAtomic(_ context.Context, tournamentID int) (models.PromotionResult, error) {
	if f.atomicErr != nil {
		return models.PromotionResult{}, f.atomicErr
	}
	if !f.procedureAvailable {
		return models.PromotionResult{}, repositories.ErrProcedureUnavailable
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	total, ok := f.totals[tournamentID]
	if !ok {
		return models.PromotionResult{}, repositories.ErrTournamentNotFound
	}
	result := ComputePromotion(f.rowsLocked(tournamentID), total)
	if result.Promoted() {
		if err := f.moveLocked(result.SlotID, result.FromSlot, result.NewSlot); err != nil {
			return models.PromotionResult{}, err
		}
	}
	return result, nil
}

type fakeTournamentRepo struct {
	mu          sync.Mutex
	tournaments map[int]*models.Tournament
	getErr      error
	getCalls    int

	// appendConflicts makes that many appends fail before one succeeds.
	appendConflicts int
	appendCalls     int
}

func newFakeTournamentRepo(ts ...*models.Tournament) *fakeTournamentRepo {
	f := &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament)}
	for _, t := range ts {
		f.tournaments[t.ID] = t
	}
	return f
}

func (f *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	t, ok := f.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	c := *t
	c.ScheduleImages = slices.Clone(t.ScheduleImages)
	return &c, nil
}

func (f *fakeTournamentRepo) ListWithPendingPromotions(context.Context) ([]*models.Tournament, error) {
	return nil, errors.New("not used")
}

func (f *fakeTournamentRepo) AppendScheduleImageIfUnchanged(_ context.Context, id int, expected []string, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendCalls++
	t, ok := f.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if f.appendConflicts > 0 {
		f.appendConflicts--
		// Someone else attached an image in between.
		t.ScheduleImages = append(t.ScheduleImages, "concurrent-"+key)
		return repositories.ErrScheduleImagesConflict
	}
	if !slices.Equal(t.ScheduleImages, expected) {
		return repositories.ErrScheduleImagesConflict
	}
	t.ScheduleImages = append(t.ScheduleImages, key)
	return nil
}

type fakeNotificationRepo struct {
	mu        sync.Mutex
	created   []*models.Notification
	createErr error
	markErr   error
	lastLimit int
}

func (f *fakeNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	n.ID = len(f.created) + 1
	n.CreatedAt = baseTime
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotificationRepo) ListByUser(_ context.Context, userID, limit int) ([]*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	var out []*models.Notification
	for _, n := range f.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, id, userID int) error {
	if f.markErr != nil {
		return f.markErr
	}
	return nil
}

func (f *fakeNotificationRepo) forUser(userID int) []*models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Notification
	for _, n := range f.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []broadcastCall
}

type broadcastCall struct {
	room    string
	message interface{}
}

func (f *fakeBroadcaster) BroadcastToRoom(roomID string, message interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, broadcastCall{room: roomID, message: message})
}

type promotionObservation struct {
	path    string
	outcome models.PromotionOutcome
}

type fakeRecorder struct {
	mu           sync.Mutex
	observations []promotionObservation
}

func (f *fakeRecorder) ObservePromotion(path string, outcome models.PromotionOutcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observations = append(f.observations, promotionObservation{path, outcome})
}

type fakeUploader struct {
	mu        sync.Mutex
	uploaded  map[string][]byte
	deleted   []string
	uploadErr error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploaded: make(map[string][]byte)}
}

func (f *fakeUploader) Upload(_ context.Context, key, _ string, r io.Reader) (*storage.UploadResult, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded[key] = data
	return &storage.UploadResult{Key: key, Location: f.GetPublicURL(key)}, nil
}

func (f *fakeUploader) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	delete(f.uploaded, key)
	return nil
}

func (f *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.example/" + key
}
