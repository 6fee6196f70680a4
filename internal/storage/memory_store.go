package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/medride/internal/models"
)

// MemoryStore keeps everything in maps behind one mutex. It exists for tests
// and local runs and mirrors the Postgres semantics, including uniqueness
// checks and the assignment compare-and-swap.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	drivers  map[string]*models.Driver
	vehicles map[string]*models.Vehicle
	rides    map[string]*models.Ride
	samples  map[string][]models.TrackingSample // by ride id, append order
	payments map[string]*models.Payment
	events   map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*models.User),
		drivers:  make(map[string]*models.Driver),
		vehicles: make(map[string]*models.Vehicle),
		rides:    make(map[string]*models.Ride),
		samples:  make(map[string][]models.TrackingSample),
		payments: make(map[string]*models.Payment),
		events:   make(map[string]bool),
	}
}

func (m *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertUserLocked(u)
}

func (m *MemoryStore) insertUserLocked(u *models.User) error {
	for _, ex := range m.users {
		if strings.EqualFold(ex.Email, u.Email) {
			return ErrConflict
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) CreateUserWithDriver(ctx context.Context, u *models.User, d *models.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.insertUserLocked(u); err != nil {
		return err
	}
	if err := m.insertDriverLocked(d); err != nil {
		delete(m.users, u.ID) // roll back the user half
		return err
	}
	return nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return page(all, limit, offset), nil
}

func (m *MemoryStore) CreateDriver(ctx context.Context, d *models.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertDriverLocked(d)
}

func (m *MemoryStore) insertDriverLocked(d *models.Driver) error {
	for _, ex := range m.drivers {
		if ex.LicenseNumber == d.LicenseNumber || ex.UserID == d.UserID {
			return ErrConflict
		}
	}
	cp := *d
	m.drivers[d.ID] = &cp
	return nil
}

func (m *MemoryStore) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) GetDriverByUser(ctx context.Context, userID string) (*models.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.drivers {
		if d.UserID == userID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateDriver(ctx context.Context, d *models.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drivers[d.ID]; !ok {
		return ErrNotFound
	}
	d.UpdatedAt = time.Now()
	cp := *d
	m.drivers[d.ID] = &cp
	return nil
}

func (m *MemoryStore) ListDrivers(ctx context.Context, limit, offset int) ([]models.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]models.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		all = append(all, *d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return page(all, limit, offset), nil
}

func (m *MemoryStore) ListAvailableDrivers(ctx context.Context, vehicleType string, limit int) ([]models.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Driver, 0)
	for _, d := range m.drivers {
		if !d.Available {
			continue
		}
		if vehicleType != "" && d.VehicleType != vehicleType {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.vehicles {
		if ex.LicensePlate == v.LicensePlate || ex.DriverID == v.DriverID {
			return ErrConflict
		}
	}
	if _, ok := m.drivers[v.DriverID]; !ok {
		return ErrNotFound
	}
	cp := *v
	m.vehicles[v.ID] = &cp
	return nil
}

func (m *MemoryStore) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vehicles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *MemoryStore) GetVehicleByDriver(ctx context.Context, driverID string) (*models.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vehicleByDriverLocked(driverID)
}

func (m *MemoryStore) vehicleByDriverLocked(driverID string) (*models.Vehicle, error) {
	for _, v := range m.vehicles {
		if v.DriverID == driverID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vehicles[v.ID]; !ok {
		return ErrNotFound
	}
	v.UpdatedAt = time.Now()
	cp := *v
	m.vehicles[v.ID] = &cp
	return nil
}

func (m *MemoryStore) CreateRide(ctx context.Context, r *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rides[r.ID] = &cp
	return nil
}

func matches(r *models.Ride, f RideFilter) bool {
	if f.MatchNone {
		return false
	}
	if f.RequesterID != "" && r.UserID != f.RequesterID {
		return false
	}
	if f.DriverID != "" && (r.DriverID == nil || *r.DriverID != f.DriverID) {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

func (m *MemoryStore) GetRide(ctx context.Context, id string, f RideFilter) (*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok || !matches(r, f) {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) ListRides(ctx context.Context, f RideFilter) ([]models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Ride, 0)
	for _, r := range m.rides {
		if matches(r, f) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), nil
}

func (m *MemoryStore) UpdateRide(ctx context.Context, r *models.Ride, readStatus models.RideStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rides[r.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Status != readStatus {
		return ErrConflict
	}
	r.UpdatedAt = time.Now()
	cp := *r
	m.rides[r.ID] = &cp
	return nil
}

func (m *MemoryStore) AssignRide(ctx context.Context, rideID, driverID string) (*models.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[rideID]
	if !ok {
		return nil, ErrNotFound
	}
	d, ok := m.drivers[driverID]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != models.RidePending || !d.Available {
		return nil, ErrConflict
	}
	r.DriverID = &d.ID
	if v, err := m.vehicleByDriverLocked(d.ID); err == nil {
		r.VehicleID = &v.ID
	}
	r.Status = models.RideAccepted
	r.UpdatedAt = time.Now()
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) ForceCompleteRide(ctx context.Context, rideID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[rideID]
	if !ok {
		return false, ErrNotFound
	}
	if r.Status.Terminal() {
		return false, nil
	}
	r.Status = models.RideCompleted
	r.UpdatedAt = time.Now()
	return true, nil
}

func (m *MemoryStore) AppendSample(ctx context.Context, s *models.TrackingSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples[s.RideID] = append(m.samples[s.RideID], *s)
	return nil
}

func (m *MemoryStore) ListSamples(ctx context.Context, rideID string, limit int) ([]models.TrackingSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.samples[rideID]
	out := make([]models.TrackingSample, len(all))
	copy(out, all)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *MemoryStore) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) GetPaymentByExternalRef(ctx context.Context, ref string) (*models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.ExternalRef == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdatePayment(ctx context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[p.ID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now()
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *MemoryStore) MarkEventProcessed(ctx context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.events[eventID] {
		return false, nil
	}
	m.events[eventID] = true
	return true, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }
func (m *MemoryStore) Close() error                   { return nil }

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}
