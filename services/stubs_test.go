package services

import (
	"context"
	"sort"
	"time"

	"github.com/matchgrid/matchgrid/models"
	"github.com/matchgrid/matchgrid/repositories"
)

// memStore is the shared in-memory backing for the repository stubs. The
// stubs ignore the executor argument; transactional behavior is what the
// tests assert, so writes reaching the store before a failure would be a bug
// in the service, not in the stub.
type memStore struct {
	events     map[int]*models.Event
	matches    map[string]*models.Match
	divisions  map[int]*models.Division
	profiles   map[int]*models.ScoringProfile
	teams      map[int]*models.Team
	candidates map[string]*models.BookingCandidate
	rentals    map[string]*models.Rental
	slots      []models.TimeSlot
	overrides  map[[2]int]int

	matchWrites int

	// candidateReads counts GetCandidate calls; onGetCandidate, when set,
	// runs against the stored row before it is cloned, letting a test
	// interleave a concurrent mutation at an exact read.
	candidateReads int
	onGetCandidate func(read int, c *models.BookingCandidate)
}

func newMemStore() *memStore {
	return &memStore{
		events:     make(map[int]*models.Event),
		matches:    make(map[string]*models.Match),
		divisions:  make(map[int]*models.Division),
		profiles:   make(map[int]*models.ScoringProfile),
		teams:      make(map[int]*models.Team),
		candidates: make(map[string]*models.BookingCandidate),
		rentals:    make(map[string]*models.Rental),
		overrides:  make(map[[2]int]int),
	}
}

func cloneMatch(m *models.Match) *models.Match {
	c := *m
	return &c
}

type stubMatchRepo struct{ store *memStore }

func (r *stubMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	if _, ok := r.store.matches[m.ID]; ok {
		return repositories.ErrMatchIDConflict
	}
	r.store.matches[m.ID] = cloneMatch(m)
	r.store.matchWrites++
	return nil
}

func (r *stubMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id string) (*models.Match, error) {
	m, ok := r.store.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return cloneMatch(m), nil
}

func (r *stubMatchRepo) ListByEvent(_ context.Context, _ repositories.SQLExecutor, eventID int, filter repositories.MatchFilter) ([]*models.Match, error) {
	out := make([]*models.Match, 0)
	for _, m := range r.store.matches {
		if m.EventID != eventID {
			continue
		}
		if filter.DivisionID != nil && (m.DivisionID == nil || *m.DivisionID != *filter.DivisionID) {
			continue
		}
		out = append(out, cloneMatch(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchID < out[j].MatchID })
	return out, nil
}

func (r *stubMatchRepo) ListScheduledByField(_ context.Context, _ repositories.SQLExecutor, fieldID int, from, to time.Time) ([]*models.Match, error) {
	out := make([]*models.Match, 0)
	for _, m := range r.store.matches {
		if m.FieldID == nil || m.Start == nil || m.End == nil || *m.FieldID != fieldID {
			continue
		}
		if m.Start.Before(to) && from.Before(*m.End) {
			out = append(out, cloneMatch(m))
		}
	}
	return out, nil
}

func (r *stubMatchRepo) Update(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	if _, ok := r.store.matches[m.ID]; !ok {
		return repositories.ErrMatchNotFound
	}
	r.store.matches[m.ID] = cloneMatch(m)
	r.store.matchWrites++
	return nil
}

func (r *stubMatchRepo) UpdateLinks(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	stored, ok := r.store.matches[m.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	stored.WinnerNextMatchID = m.WinnerNextMatchID
	stored.LoserNextMatchID = m.LoserNextMatchID
	stored.PreviousLeftID = m.PreviousLeftID
	stored.PreviousRightID = m.PreviousRightID
	return nil
}

func (r *stubMatchRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id string) error {
	if _, ok := r.store.matches[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(r.store.matches, id)
	r.store.matchWrites++
	return nil
}

type stubEventRepo struct{ store *memStore }

func (r *stubEventRepo) Create(_ context.Context, _ repositories.SQLExecutor, e *models.Event) error {
	e.ID = len(r.store.events) + 1
	c := *e
	r.store.events[e.ID] = &c
	return nil
}

func (r *stubEventRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Event, error) {
	e, ok := r.store.events[id]
	if !ok {
		return nil, repositories.ErrEventNotFound
	}
	c := *e
	return &c, nil
}

func (r *stubEventRepo) List(_ context.Context, _ repositories.SQLExecutor, filter repositories.EventFilter) ([]*models.Event, error) {
	out := make([]*models.Event, 0)
	for _, e := range r.store.events {
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		c := *e
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubEventRepo) Update(_ context.Context, _ repositories.SQLExecutor, e *models.Event) error {
	if _, ok := r.store.events[e.ID]; !ok {
		return repositories.ErrEventNotFound
	}
	c := *e
	r.store.events[e.ID] = &c
	return nil
}

func (r *stubEventRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.EventStatus) error {
	e, ok := r.store.events[id]
	if !ok {
		return repositories.ErrEventNotFound
	}
	e.Status = status
	return nil
}

func (r *stubEventRepo) UpdatePhotoKey(_ context.Context, _ repositories.SQLExecutor, id int, key *string) error {
	e, ok := r.store.events[id]
	if !ok {
		return repositories.ErrEventNotFound
	}
	e.PhotoKey = key
	return nil
}

func (r *stubEventRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	if _, ok := r.store.events[id]; !ok {
		return repositories.ErrEventNotFound
	}
	delete(r.store.events, id)
	return nil
}

type stubDivisionRepo struct{ store *memStore }

func (r *stubDivisionRepo) Create(_ context.Context, _ repositories.SQLExecutor, d *models.Division) error {
	d.ID = len(r.store.divisions) + 1
	c := *d
	r.store.divisions[d.ID] = &c
	return nil
}

func (r *stubDivisionRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Division, error) {
	d, ok := r.store.divisions[id]
	if !ok {
		return nil, repositories.ErrDivisionNotFound
	}
	c := *d
	return &c, nil
}

func (r *stubDivisionRepo) ListByEvent(_ context.Context, _ repositories.SQLExecutor, eventID int) ([]*models.Division, error) {
	out := make([]*models.Division, 0)
	for _, d := range r.store.divisions {
		if d.EventID == eventID {
			c := *d
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubDivisionRepo) Update(_ context.Context, _ repositories.SQLExecutor, d *models.Division) error {
	if _, ok := r.store.divisions[d.ID]; !ok {
		return repositories.ErrDivisionNotFound
	}
	c := *d
	r.store.divisions[d.ID] = &c
	return nil
}

func (r *stubDivisionRepo) SetConfirmed(_ context.Context, _ repositories.SQLExecutor, id int, at *time.Time, by *int) error {
	d, ok := r.store.divisions[id]
	if !ok {
		return repositories.ErrDivisionNotFound
	}
	d.StandingsConfirmedAt = at
	d.StandingsConfirmedBy = by
	return nil
}

func (r *stubDivisionRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	if _, ok := r.store.divisions[id]; !ok {
		return repositories.ErrDivisionNotFound
	}
	delete(r.store.divisions, id)
	return nil
}

func (r *stubDivisionRepo) ListOverrides(_ context.Context, _ repositories.SQLExecutor, divisionID int) ([]models.StandingsOverride, error) {
	out := make([]models.StandingsOverride, 0)
	for key, delta := range r.store.overrides {
		if key[0] == divisionID {
			out = append(out, models.StandingsOverride{DivisionID: key[0], TeamID: key[1], PointsDelta: delta})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })
	return out, nil
}

func (r *stubDivisionRepo) UpsertOverride(_ context.Context, _ repositories.SQLExecutor, o models.StandingsOverride) error {
	r.store.overrides[[2]int{o.DivisionID, o.TeamID}] = o.PointsDelta
	return nil
}

func (r *stubDivisionRepo) DeleteOverride(_ context.Context, _ repositories.SQLExecutor, divisionID, teamID int) error {
	key := [2]int{divisionID, teamID}
	if _, ok := r.store.overrides[key]; !ok {
		return repositories.ErrOverrideNotFound
	}
	delete(r.store.overrides, key)
	return nil
}

type stubProfileRepo struct{ store *memStore }

func (r *stubProfileRepo) Create(_ context.Context, _ repositories.SQLExecutor, p *models.ScoringProfile) error {
	p.ID = len(r.store.profiles) + 1
	c := *p
	r.store.profiles[p.ID] = &c
	return nil
}

func (r *stubProfileRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.ScoringProfile, error) {
	p, ok := r.store.profiles[id]
	if !ok {
		return nil, repositories.ErrProfileNotFound
	}
	c := *p
	return &c, nil
}

func (r *stubProfileRepo) ListBySport(_ context.Context, _ repositories.SQLExecutor, sportID int) ([]*models.ScoringProfile, error) {
	out := make([]*models.ScoringProfile, 0)
	for _, p := range r.store.profiles {
		if p.SportID == sportID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *stubProfileRepo) Update(_ context.Context, _ repositories.SQLExecutor, p *models.ScoringProfile) error {
	if _, ok := r.store.profiles[p.ID]; !ok {
		return repositories.ErrProfileNotFound
	}
	c := *p
	r.store.profiles[p.ID] = &c
	return nil
}

func (r *stubProfileRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	delete(r.store.profiles, id)
	return nil
}

type stubTeamRepo struct{ store *memStore }

func (r *stubTeamRepo) Create(_ context.Context, _ repositories.SQLExecutor, t *models.Team) error {
	t.ID = len(r.store.teams) + 1
	c := *t
	r.store.teams[t.ID] = &c
	return nil
}

func (r *stubTeamRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Team, error) {
	t, ok := r.store.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	c := *t
	return &c, nil
}

func (r *stubTeamRepo) ListByEvent(_ context.Context, _ repositories.SQLExecutor, eventID int) ([]models.Team, error) {
	out := make([]models.Team, 0)
	for _, t := range r.store.teams {
		if t.EventID == eventID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubTeamRepo) ListByDivision(_ context.Context, _ repositories.SQLExecutor, divisionID int) ([]models.Team, error) {
	out := make([]models.Team, 0)
	for _, t := range r.store.teams {
		if t.DivisionID != nil && *t.DivisionID == divisionID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Seed != nil && b.Seed != nil && *a.Seed != *b.Seed:
			return *a.Seed < *b.Seed
		case a.Seed != nil && b.Seed == nil:
			return true
		case a.Seed == nil && b.Seed != nil:
			return false
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r *stubTeamRepo) Update(_ context.Context, _ repositories.SQLExecutor, t *models.Team) error {
	if _, ok := r.store.teams[t.ID]; !ok {
		return repositories.ErrTeamNotFound
	}
	c := *t
	r.store.teams[t.ID] = &c
	return nil
}

func (r *stubTeamRepo) UpdatePlacement(_ context.Context, _ repositories.SQLExecutor, teamID int, divisionID *int, seed *int) error {
	t, ok := r.store.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	t.DivisionID = divisionID
	t.Seed = seed
	return nil
}

func (r *stubTeamRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	if _, ok := r.store.teams[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	delete(r.store.teams, id)
	return nil
}

type stubBookingRepo struct{ store *memStore }

func (r *stubBookingRepo) CreateCandidate(_ context.Context, _ repositories.SQLExecutor, c *models.BookingCandidate) error {
	if _, ok := r.store.candidates[c.ID]; ok {
		return repositories.ErrCandidateIDConflict
	}
	c.CreatedAt = time.Now()
	cp := *c
	r.store.candidates[c.ID] = &cp
	return nil
}

func (r *stubBookingRepo) GetCandidate(_ context.Context, _ repositories.SQLExecutor, id string) (*models.BookingCandidate, error) {
	c, ok := r.store.candidates[id]
	if !ok {
		return nil, repositories.ErrCandidateNotFound
	}
	r.store.candidateReads++
	if r.store.onGetCandidate != nil {
		r.store.onGetCandidate(r.store.candidateReads, c)
	}
	cp := *c
	return &cp, nil
}

func (r *stubBookingRepo) ListCandidatesByField(_ context.Context, _ repositories.SQLExecutor, fieldID int, date time.Time) ([]models.BookingCandidate, error) {
	day := date.Truncate(24 * time.Hour)
	out := make([]models.BookingCandidate, 0)
	for _, c := range r.store.candidates {
		if c.FieldID == fieldID && c.Date.Truncate(24*time.Hour).Equal(day) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartMin < out[j].StartMin })
	return out, nil
}

func (r *stubBookingRepo) UpdateCandidate(_ context.Context, _ repositories.SQLExecutor, c *models.BookingCandidate) error {
	if _, ok := r.store.candidates[c.ID]; !ok {
		return repositories.ErrCandidateNotFound
	}
	cp := *c
	r.store.candidates[c.ID] = &cp
	return nil
}

func (r *stubBookingRepo) DeleteCandidate(_ context.Context, _ repositories.SQLExecutor, id string) error {
	if _, ok := r.store.candidates[id]; !ok {
		return repositories.ErrCandidateNotFound
	}
	delete(r.store.candidates, id)
	return nil
}

func (r *stubBookingRepo) CreateRental(_ context.Context, _ repositories.SQLExecutor, rental *models.Rental) error {
	rental.CreatedAt = time.Now()
	cp := *rental
	r.store.rentals[rental.ID] = &cp
	return nil
}

func (r *stubBookingRepo) GetRental(_ context.Context, _ repositories.SQLExecutor, id string) (*models.Rental, error) {
	rental, ok := r.store.rentals[id]
	if !ok {
		return nil, repositories.ErrRentalNotFound
	}
	cp := *rental
	return &cp, nil
}

func (r *stubBookingRepo) ListRentalsByFieldBetween(_ context.Context, _ repositories.SQLExecutor, fieldID int, from, to time.Time) ([]models.Rental, error) {
	out := make([]models.Rental, 0)
	for _, rental := range r.store.rentals {
		day := rental.Date.Truncate(24 * time.Hour)
		if rental.FieldID == fieldID && rental.Status == models.RentalConfirmed && !day.Before(from) && day.Before(to) {
			out = append(out, *rental)
		}
	}
	return out, nil
}

func (r *stubBookingRepo) ListRentalsByUser(_ context.Context, _ repositories.SQLExecutor, userID int) ([]models.Rental, error) {
	out := make([]models.Rental, 0)
	for _, rental := range r.store.rentals {
		if rental.UserID == userID {
			out = append(out, *rental)
		}
	}
	return out, nil
}

func (r *stubBookingRepo) UpdateRentalStatus(_ context.Context, _ repositories.SQLExecutor, id string, status models.RentalStatus) error {
	rental, ok := r.store.rentals[id]
	if !ok {
		return repositories.ErrRentalNotFound
	}
	rental.Status = status
	return nil
}

type stubFieldRepo struct{ store *memStore }

func (r *stubFieldRepo) Create(_ context.Context, _ repositories.SQLExecutor, f *models.Field) error {
	f.ID = 1
	return nil
}

func (r *stubFieldRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Field, error) {
	return &models.Field{ID: id, Number: id, Name: "Field"}, nil
}

func (r *stubFieldRepo) ListByOrganization(_ context.Context, _ repositories.SQLExecutor, _ int) ([]*models.Field, error) {
	return nil, nil
}

func (r *stubFieldRepo) Update(_ context.Context, _ repositories.SQLExecutor, _ *models.Field) error {
	return nil
}

func (r *stubFieldRepo) UpdatePhotoKey(_ context.Context, _ repositories.SQLExecutor, _ int, _ *string) error {
	return nil
}

func (r *stubFieldRepo) Delete(_ context.Context, _ repositories.SQLExecutor, _ int) error {
	return nil
}

func (r *stubFieldRepo) CreateTimeSlot(_ context.Context, _ repositories.SQLExecutor, slot *models.TimeSlot) error {
	slot.ID = len(r.store.slots) + 1
	r.store.slots = append(r.store.slots, *slot)
	return nil
}

func (r *stubFieldRepo) ListTimeSlots(_ context.Context, _ repositories.SQLExecutor, fieldID int) ([]models.TimeSlot, error) {
	out := make([]models.TimeSlot, 0)
	for _, s := range r.store.slots {
		if s.FieldID == fieldID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *stubFieldRepo) ListTimeSlotsOnDate(_ context.Context, _ repositories.SQLExecutor, fieldID int, date time.Time) ([]models.TimeSlot, error) {
	out := make([]models.TimeSlot, 0)
	for _, s := range r.store.slots {
		if s.FieldID == fieldID && s.AppliesTo(date) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *stubFieldRepo) DeleteTimeSlot(_ context.Context, _ repositories.SQLExecutor, id int) error {
	for i, s := range r.store.slots {
		if s.ID == id {
			r.store.slots = append(r.store.slots[:i], r.store.slots[i+1:]...)
			return nil
		}
	}
	return repositories.ErrTimeSlotNotFound
}

// fakeHub records room broadcasts.
type fakeHub struct {
	rooms    []string
	payloads []interface{}
}

func (h *fakeHub) BroadcastToRoom(roomID string, message interface{}) {
	h.rooms = append(h.rooms, roomID)
	h.payloads = append(h.payloads, message)
}
