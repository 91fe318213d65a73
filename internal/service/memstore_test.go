package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/parking-reservation/internal/model"
	"github.com/iliyamo/parking-reservation/internal/repository"
)

// memStore is an in-memory Store.  Transactions are serialised by a
// single mutex and work on a private copy of the data that replaces
// the shared copy on Commit, so Rollback discards every change.
type memStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data memData
	// fail makes the named Tx method return the error.
	fail map[string]error
}

type memData struct {
	lots     map[uint64]model.ParkingLot
	spots    map[uint64]model.ParkingSpot
	res      map[uint64]model.Reservation
	nextLot  uint64
	nextSpot uint64
	nextRes  uint64
}

func newMemStore() *memStore {
	return &memStore{
		data: memData{
			lots:  map[uint64]model.ParkingLot{},
			spots: map[uint64]model.ParkingSpot{},
			res:   map[uint64]model.Reservation{},
		},
		fail: map[string]error{},
	}
}

func (d memData) clone() memData {
	c := d
	c.lots = make(map[uint64]model.ParkingLot, len(d.lots))
	for k, v := range d.lots {
		c.lots[k] = v
	}
	c.spots = make(map[uint64]model.ParkingSpot, len(d.spots))
	for k, v := range d.spots {
		c.spots[k] = v
	}
	c.res = make(map[uint64]model.Reservation, len(d.res))
	for k, v := range d.res {
		if v.ReleaseTime != nil {
			t := *v.ReleaseTime
			v.ReleaseTime = &t
		}
		c.res[k] = v
	}
	return c
}

func (s *memStore) snapshot() memData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.clone()
}

func (s *memStore) BeginTx(ctx context.Context) (Tx, error) {
	if err := s.fail["BeginTx"]; err != nil {
		return nil, err
	}
	s.txMu.Lock()
	return &memTx{s: s, d: s.snapshot()}, nil
}

func (s *memStore) GetLot(ctx context.Context, id uint64) (*model.ParkingLot, error) {
	d := s.snapshot()
	lot, ok := d.lots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &lot, nil
}

func (s *memStore) ListLots(ctx context.Context) ([]model.ParkingLot, error) {
	d := s.snapshot()
	out := make([]model.ParkingLot, 0, len(d.lots))
	for _, l := range d.lots {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GetSpot(ctx context.Context, id uint64) (*model.ParkingSpot, error) {
	d := s.snapshot()
	sp, ok := d.spots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sp, nil
}

func (s *memStore) SpotsByLot(ctx context.Context, f model.SpotFilter) ([]model.ParkingSpot, error) {
	d := s.snapshot()
	return d.lotSpots(f.LotID, f.Status), nil
}

func (s *memStore) ActiveReservationBySpot(ctx context.Context, spotID uint64) (*model.Reservation, error) {
	d := s.snapshot()
	for _, r := range d.res {
		if r.SpotID == spotID && r.IsActive() {
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) GetReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	d := s.snapshot()
	r, ok := d.res[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s *memStore) ListReservations(ctx context.Context, f model.ReservationFilter) ([]model.Reservation, error) {
	d := s.snapshot()
	var out []model.Reservation
	for _, r := range d.res {
		if f.Email != "" && r.Email != f.Email {
			continue
		}
		if f.LotID != 0 && r.LotID != f.LotID {
			continue
		}
		if f.State == model.ReservationsActive && !r.IsActive() {
			continue
		}
		if f.State == model.ReservationsHistory && r.IsActive() {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (d memData) lotSpots(lotID uint64, status string) []model.ParkingSpot {
	var out []model.ParkingSpot
	for _, sp := range d.spots {
		if sp.LotID != lotID {
			continue
		}
		if status != "" && sp.Status != status {
			continue
		}
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memTx struct {
	s    *memStore
	d    memData
	done bool
}

func (t *memTx) finish() {
	if !t.done {
		t.done = true
		t.s.txMu.Unlock()
	}
}

func (t *memTx) Commit() error {
	if err := t.s.fail["Commit"]; err != nil {
		return err
	}
	if t.done {
		return nil
	}
	t.s.mu.Lock()
	t.s.data = t.d
	t.s.mu.Unlock()
	t.finish()
	return nil
}

func (t *memTx) Rollback() error {
	t.finish()
	return nil
}

func (t *memTx) InsertLot(ctx context.Context, lot *model.ParkingLot) error {
	if err := t.s.fail["InsertLot"]; err != nil {
		return err
	}
	t.d.nextLot++
	lot.ID = t.d.nextLot
	lot.CreatedAt = time.Now().UTC()
	lot.UpdatedAt = lot.CreatedAt
	t.d.lots[lot.ID] = *lot
	return nil
}

func (t *memTx) LockLot(ctx context.Context, id uint64) (*model.ParkingLot, error) {
	lot, ok := t.d.lots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &lot, nil
}

func (t *memTx) UpdateLot(ctx context.Context, lot *model.ParkingLot) error {
	cur, ok := t.d.lots[lot.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Location, cur.Address, cur.Pincode = lot.Location, lot.Address, lot.Pincode
	cur.Price, cur.MaxSpots = lot.Price, lot.MaxSpots
	t.d.lots[lot.ID] = cur
	return nil
}

func (t *memTx) DeleteLot(ctx context.Context, id uint64) error {
	delete(t.d.lots, id)
	return nil
}

func (t *memTx) AdjustOccupied(ctx context.Context, lotID uint64, delta int) error {
	if err := t.s.fail["AdjustOccupied"]; err != nil {
		return err
	}
	lot, ok := t.d.lots[lotID]
	if !ok {
		return repository.ErrNotFound
	}
	next := lot.Occupied + delta
	if next < 0 || next > lot.MaxSpots {
		return repository.ErrOccupancyOutOfRange
	}
	lot.Occupied = next
	t.d.lots[lotID] = lot
	return nil
}

func (t *memTx) CountSpots(ctx context.Context, lotID uint64) (int, error) {
	return len(t.d.lotSpots(lotID, "")), nil
}

func (t *memTx) CountSpotsByStatus(ctx context.Context, lotID uint64, status string) (int, error) {
	return len(t.d.lotSpots(lotID, status)), nil
}

func (t *memTx) InsertSpots(ctx context.Context, lotID uint64, n int) error {
	if err := t.s.fail["InsertSpots"]; err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		t.d.nextSpot++
		t.d.spots[t.d.nextSpot] = model.ParkingSpot{ID: t.d.nextSpot, LotID: lotID, Status: model.SpotAvailable}
	}
	return nil
}

func (t *memTx) FirstAvailableSpot(ctx context.Context, lotID uint64) (*model.ParkingSpot, error) {
	free := t.d.lotSpots(lotID, model.SpotAvailable)
	if len(free) == 0 {
		return nil, repository.ErrNotFound
	}
	return &free[0], nil
}

func (t *memTx) RemovableSpots(ctx context.Context, lotID uint64, limit int) ([]uint64, error) {
	used := map[uint64]bool{}
	for _, r := range t.d.res {
		used[r.SpotID] = true
	}
	var ids []uint64
	for _, sp := range t.d.lotSpots(lotID, model.SpotAvailable) {
		if len(ids) == limit {
			break
		}
		if !used[sp.ID] {
			ids = append(ids, sp.ID)
		}
	}
	return ids, nil
}

func (t *memTx) OccupySpot(ctx context.Context, spotID uint64, vehicle string) error {
	sp, ok := t.d.spots[spotID]
	if !ok || sp.Status != model.SpotAvailable {
		return repository.ErrStatusConflict
	}
	sp.Status = model.SpotOccupied
	sp.VehicleNumber = vehicle
	t.d.spots[spotID] = sp
	return nil
}

func (t *memTx) VacateSpot(ctx context.Context, spotID uint64) error {
	sp, ok := t.d.spots[spotID]
	if !ok || sp.Status != model.SpotOccupied {
		return repository.ErrStatusConflict
	}
	sp.Status = model.SpotAvailable
	sp.VehicleNumber = ""
	t.d.spots[spotID] = sp
	return nil
}

func (t *memTx) DeleteSpots(ctx context.Context, ids []uint64) error {
	for _, id := range ids {
		delete(t.d.spots, id)
	}
	return nil
}

func (t *memTx) DeleteSpotsByLot(ctx context.Context, lotID uint64) (int64, error) {
	var n int64
	for id, sp := range t.d.spots {
		if sp.LotID == lotID {
			delete(t.d.spots, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	if err := t.s.fail["InsertReservation"]; err != nil {
		return err
	}
	t.d.nextRes++
	r.ID = t.d.nextRes
	t.d.res[r.ID] = *r
	return nil
}

func (t *memTx) LockReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	r, ok := t.d.res[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (t *memTx) CloseReservation(ctx context.Context, r *model.Reservation) error {
	if err := t.s.fail["CloseReservation"]; err != nil {
		return err
	}
	cur, ok := t.d.res[r.ID]
	if !ok || !cur.IsActive() {
		return repository.ErrConflict
	}
	cur.ReleaseTime = r.ReleaseTime
	cur.Cost = r.Cost
	cur.Paid = r.Paid
	t.d.res[r.ID] = cur
	return nil
}

func (t *memTx) DeleteReservationsByLot(ctx context.Context, lotID uint64) (int64, error) {
	spots := map[uint64]bool{}
	for _, sp := range t.d.spots {
		if sp.LotID == lotID {
			spots[sp.ID] = true
		}
	}
	var n int64
	for id, r := range t.d.res {
		if r.LotID == lotID || spots[r.SpotID] {
			delete(t.d.res, id)
			n++
		}
	}
	return n, nil
}
