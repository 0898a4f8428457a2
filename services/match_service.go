package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/matchgrid/matchgrid/bracket"
	"github.com/matchgrid/matchgrid/live"
	"github.com/matchgrid/matchgrid/models"
	"github.com/matchgrid/matchgrid/repositories"
	"github.com/matchgrid/matchgrid/schedule"
)

// BulkMutationRequest is one atomic batch of bracket edits: any mix of
// updates, creates with caller correlation ids, and deletes.
type BulkMutationRequest struct {
	Matches []models.MatchUpdate `json:"matches"`
	Creates []models.MatchCreate `json:"creates"`
	Deletes []string             `json:"deletes"`
}

type BulkMutationResult struct {
	Matches []*models.Match   `json:"matches"`
	Created map[string]string `json:"created"`
	Deleted []string          `json:"deleted"`
}

type MatchService interface {
	GetByID(ctx context.Context, id string) (*models.Match, error)
	ListByEvent(ctx context.Context, eventID int, filter repositories.MatchFilter) ([]*models.Match, error)
	BulkMutate(ctx context.Context, eventID int, req BulkMutationRequest) (*BulkMutationResult, error)
}

type matchService struct {
	db           *sqlx.DB
	matchRepo    repositories.MatchRepository
	divisionRepo repositories.DivisionRepository
	profileRepo  repositories.ProfileRepository
	bookingRepo  repositories.BookingRepository
	hub          Broadcaster
	logger       *slog.Logger

	eventLocks *keyedMutex
}

func NewMatchService(
	db *sqlx.DB,
	matchRepo repositories.MatchRepository,
	divisionRepo repositories.DivisionRepository,
	profileRepo repositories.ProfileRepository,
	bookingRepo repositories.BookingRepository,
	hub Broadcaster,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		db:           db,
		matchRepo:    matchRepo,
		divisionRepo: divisionRepo,
		profileRepo:  profileRepo,
		bookingRepo:  bookingRepo,
		hub:          hub,
		logger:       logger,
		eventLocks:   newKeyedMutex(),
	}
}

func (s *matchService) GetByID(ctx context.Context, id string) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, s.db, id)
	return m, mapRepoNotFound(err, ErrMatchNotFound)
}

func (s *matchService) ListByEvent(ctx context.Context, eventID int, filter repositories.MatchFilter) ([]*models.Match, error) {
	return s.matchRepo.ListByEvent(ctx, s.db, eventID, filter)
}

// BulkMutate applies the whole batch or none of it. The event's bracket is
// loaded once, mutated in memory with every structural and lock rule checked,
// and only a fully valid result is persisted.
func (s *matchService) BulkMutate(ctx context.Context, eventID int, req BulkMutationRequest) (*BulkMutationResult, error) {
	unlock := s.eventLocks.Lock("event:" + strconv.Itoa(eventID))
	defer unlock()

	var result *BulkMutationResult
	err := runInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		existing, err := s.matchRepo.ListByEvent(ctx, tx, eventID, repositories.MatchFilter{})
		if err != nil {
			return err
		}

		batch := &bulkBatch{
			graph:   bracket.NewGraph(existing),
			dirty:   make(map[string]bool),
			created: make(map[string]string),
		}

		if err := s.applyDeletes(batch, req.Deletes); err != nil {
			return err
		}
		if err := s.applyCreates(batch, eventID, req.Creates); err != nil {
			return err
		}
		if err := s.applyUpdates(ctx, tx, batch, req.Matches); err != nil {
			return err
		}
		resolveClientLinks(batch)

		if err := batch.graph.Validate(); err != nil {
			return fmt.Errorf("%w: %s", ErrValidationFailed, err)
		}
		if err := s.checkSchedules(ctx, tx, batch); err != nil {
			return err
		}
		if err := s.persist(ctx, tx, batch, req.Deletes); err != nil {
			return err
		}

		result = &BulkMutationResult{
			Matches: batch.affected(),
			Created: batch.created,
			Deleted: req.Deletes,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	room := strconv.Itoa(eventID)
	s.hub.BroadcastToRoom(room, live.Message{
		Type:    live.MessageBracketUpdated,
		Payload: result.Matches,
		RoomID:  room,
	})
	return result, nil
}

type bulkBatch struct {
	graph      *bracket.Graph
	dirty      map[string]bool   // ids needing a row write
	createdIDs []string          // ids needing an insert, in request order
	created    map[string]string // clientId -> persisted id
}

func (b *bulkBatch) affected() []*models.Match {
	out := make([]*models.Match, 0, len(b.dirty))
	for _, m := range b.graph.All() {
		if b.dirty[m.ID] {
			out = append(out, m)
		}
	}
	return out
}

// markNeighbors flags the downstream matches whose participant slots a
// finalize or unlock just rewrote.
func (b *bulkBatch) markNeighbors(m *models.Match) {
	for _, ref := range []*string{m.WinnerNextMatchID, m.LoserNextMatchID} {
		if ref == nil {
			continue
		}
		if _, ok := b.graph.Get(*ref); ok {
			b.dirty[*ref] = true
		}
	}
}

func (s *matchService) applyDeletes(b *bulkBatch, deletes []string) error {
	deleting := make(map[string]bool, len(deletes))
	for _, id := range deletes {
		deleting[id] = true
	}
	for _, id := range deletes {
		m, ok := b.graph.Get(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrMatchNotFound, id)
		}
		if m.Locked {
			return fmt.Errorf("%w: %s", ErrMatchDeleteLocked, id)
		}
		// A surviving match may not keep an edge into the deleted one.
		for _, other := range b.graph.All() {
			if other.ID == id || deleting[other.ID] {
				continue
			}
			for _, ref := range []*string{other.WinnerNextMatchID, other.LoserNextMatchID, other.PreviousLeftID, other.PreviousRightID} {
				if ref != nil && *ref == id {
					return fmt.Errorf("%w: %s is referenced by %s", ErrMatchDeleteReferenced, id, other.ID)
				}
			}
		}
		b.graph.Remove(id)
		delete(b.dirty, id)
	}
	return nil
}

func (s *matchService) applyCreates(b *bulkBatch, eventID int, creates []models.MatchCreate) error {
	for _, c := range creates {
		if c.ClientID == "" {
			return ErrClientIDRequired
		}
		if _, dup := b.created[c.ClientID]; dup {
			return fmt.Errorf("%w: %s", ErrClientIDDuplicate, c.ClientID)
		}
		m := &models.Match{
			ID:      uuid.NewString(),
			EventID: eventID,
		}
		c.MatchUpdate.Apply(m)
		if m.Locked {
			return fmt.Errorf("%w: created match cannot start locked", ErrValidationFailed)
		}
		b.graph.Add(m)
		b.created[c.ClientID] = m.ID
		b.createdIDs = append(b.createdIDs, m.ID)
		b.dirty[m.ID] = true
	}
	return nil
}

func (s *matchService) applyUpdates(ctx context.Context, tx *sqlx.Tx, b *bulkBatch, updates []models.MatchUpdate) error {
	rules := newRulesCache(s.divisionRepo, s.profileRepo)
	for _, u := range updates {
		m, ok := b.graph.Get(u.ID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrMatchNotFound, u.ID)
		}

		wantsLock := u.Locked.Defined && u.Locked.Value != nil && *u.Locked.Value
		wantsUnlock := u.Locked.Defined && u.Locked.Value != nil && !*u.Locked.Value
		unlocking := wantsUnlock && m.Locked
		locking := wantsLock && !m.Locked

		if m.Locked && !unlocking {
			return fmt.Errorf("%w: %s", ErrMatchLockedEdit, u.ID)
		}
		if unlocking {
			if err := bracket.Unlock(b.graph, u.ID); err != nil {
				return fmt.Errorf("%w: %s", ErrValidationFailed, err)
			}
			b.markNeighbors(m)
		}

		// The lock flag moves through Finalize/Unlock, never merged raw.
		u.Locked = models.Opt[bool]{}
		u.Apply(m)
		b.dirty[m.ID] = true

		if locking {
			r, err := rules.forMatch(ctx, tx, m)
			if err != nil {
				return err
			}
			if err := bracket.Finalize(b.graph, m.ID, r); err != nil {
				return fmt.Errorf("%w: %s", ErrValidationFailed, err)
			}
			b.markNeighbors(m)
		}
	}
	return nil
}

// resolveClientLinks rewrites edge fields that name a batch clientId to the
// persisted uuid, so a created match can link to another created match.
func resolveClientLinks(b *bulkBatch) {
	if len(b.created) == 0 {
		return
	}
	for _, m := range b.graph.All() {
		if !b.dirty[m.ID] {
			continue
		}
		for _, ref := range []**string{&m.WinnerNextMatchID, &m.LoserNextMatchID, &m.PreviousLeftID, &m.PreviousRightID} {
			if *ref == nil {
				continue
			}
			if id, ok := b.created[**ref]; ok {
				resolved := id
				*ref = &resolved
			}
		}
	}
}

// checkSchedules re-validates field occupation for every dirty match placed
// on a field, against other matches and confirmed rentals.
func (s *matchService) checkSchedules(ctx context.Context, tx *sqlx.Tx, b *bulkBatch) error {
	for _, m := range b.graph.All() {
		if !b.dirty[m.ID] || m.FieldID == nil || m.Start == nil || m.End == nil {
			continue
		}
		block := models.BusyBlock{
			SourceID: m.ID,
			Kind:     models.BusyMatch,
			FieldID:  *m.FieldID,
			Start:    *m.Start,
			End:      *m.End,
		}
		busy, err := s.busyBlocksAround(ctx, tx, b, block)
		if err != nil {
			return err
		}
		if err := schedule.CheckBlock(block, busy); err != nil {
			return fmt.Errorf("%w: match %s: %s", ErrBookingConflict, m.ID, err)
		}
	}
	return nil
}

func (s *matchService) busyBlocksAround(ctx context.Context, tx *sqlx.Tx, b *bulkBatch, block models.BusyBlock) ([]models.BusyBlock, error) {
	day := block.Start.Truncate(24 * time.Hour)
	busy := make([]models.BusyBlock, 0)

	others, err := s.matchRepo.ListScheduledByField(ctx, tx, block.FieldID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	for _, o := range others {
		// In-memory state supersedes stored rows for batch members.
		if b.dirty[o.ID] {
			continue
		}
		busy = append(busy, models.BusyBlock{
			SourceID: o.ID, Kind: models.BusyMatch, FieldID: block.FieldID, Start: *o.Start, End: *o.End,
		})
	}
	for _, m := range b.graph.All() {
		if !b.dirty[m.ID] || m.ID == block.SourceID || m.FieldID == nil || m.Start == nil || m.End == nil || *m.FieldID != block.FieldID {
			continue
		}
		busy = append(busy, models.BusyBlock{
			SourceID: m.ID, Kind: models.BusyMatch, FieldID: block.FieldID, Start: *m.Start, End: *m.End,
		})
	}

	rentals, err := s.bookingRepo.ListRentalsByFieldBetween(ctx, tx, block.FieldID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	for _, r := range rentals {
		busy = append(busy, r.Block())
	}
	return busy, nil
}

// persist writes the validated in-memory state: inserts first without edges,
// then every dirty row including edges, then deletes.
func (s *matchService) persist(ctx context.Context, tx *sqlx.Tx, b *bulkBatch, deletes []string) error {
	for _, id := range b.createdIDs {
		m, _ := b.graph.Get(id)
		if err := s.matchRepo.Create(ctx, tx, m); err != nil {
			return err
		}
	}
	for _, m := range b.graph.All() {
		if !b.dirty[m.ID] {
			continue
		}
		if err := s.matchRepo.Update(ctx, tx, m); err != nil {
			return err
		}
		if err := s.matchRepo.UpdateLinks(ctx, tx, m); err != nil {
			return err
		}
	}
	for _, id := range deletes {
		if err := s.matchRepo.Delete(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

// rulesCache resolves a match's division to its profile rules once per batch.
type rulesCache struct {
	divisionRepo repositories.DivisionRepository
	profileRepo  repositories.ProfileRepository
	byDivision   map[int]models.ProfileRules
}

func newRulesCache(d repositories.DivisionRepository, p repositories.ProfileRepository) *rulesCache {
	return &rulesCache{divisionRepo: d, profileRepo: p, byDivision: make(map[int]models.ProfileRules)}
}

func (c *rulesCache) forMatch(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) (models.ProfileRules, error) {
	if m.DivisionID == nil {
		return models.ProfileRules{WinCondition: models.WinBySets, WinnerSetCount: 1, PointsToVictory: 1}, nil
	}
	if r, ok := c.byDivision[*m.DivisionID]; ok {
		return r, nil
	}
	division, err := c.divisionRepo.GetByID(ctx, exec, *m.DivisionID)
	if err != nil {
		if errors.Is(err, repositories.ErrDivisionNotFound) {
			return models.ProfileRules{}, fmt.Errorf("%w: division %d", ErrDivisionNotFound, *m.DivisionID)
		}
		return models.ProfileRules{}, err
	}
	profile, err := c.profileRepo.GetByID(ctx, exec, division.ProfileID)
	if err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			return models.ProfileRules{}, fmt.Errorf("%w: profile %d", ErrProfileNotFound, division.ProfileID)
		}
		return models.ProfileRules{}, err
	}
	c.byDivision[*m.DivisionID] = profile.Rules
	return profile.Rules, nil
}
