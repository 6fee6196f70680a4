package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/example/medride/internal/models"
)

// PostgresStore implements Store on database/sql + lib/pq. Every operation
// runs under a bounded timeout so a sick database surfaces as an error, not
// a hung request.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db, timeout: 5 * time.Second}, nil
}

func (p *PostgresStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.timeout)
}

// mapErr translates driver errors into the store taxonomy so raw pq errors
// never leak past this package.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqe *pq.Error
	if errors.As(err, &pqe) {
		switch pqe.Code {
		case "23505": // unique_violation
			return ErrConflict
		case "23503": // foreign_key_violation
			return ErrNotFound
		case "23502": // not_null_violation
			return fmt.Errorf("%w: %s", ErrConflict, pqe.Column)
		}
	}
	return err
}

const userCols = `id, email, password_hash, name, phone, role, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (p *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO users(id, email, password_hash, name, phone, role, created_at, updated_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Phone, u.Role, u.CreatedAt, u.UpdatedAt)
	return mapErr(err)
}

func (p *PostgresStore) CreateUserWithDriver(ctx context.Context, u *models.User, d *models.Driver) error {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users(id, email, password_hash, name, phone, role, created_at, updated_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Phone, u.Role, u.CreatedAt, u.UpdatedAt); err != nil {
		return mapErr(err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO drivers(id, user_id, license_number, vehicle_type, available, rating, created_at, updated_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
		d.ID, d.UserID, d.LicenseNumber, d.VehicleType, d.Available, d.Rating, d.CreatedAt, d.UpdatedAt); err != nil {
		return mapErr(err)
	}
	return mapErr(tx.Commit())
}

func (p *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	return scanUser(p.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
}

func (p *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	return scanUser(p.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE lower(email)=lower($1)`, email))
}

func (p *PostgresStore) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+userCols+` FROM users ORDER BY created_at LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, mapErr(rows.Err())
}

const driverCols = `id, user_id, license_number, vehicle_type, available, rating, created_at, updated_at`

func scanDriver(row interface{ Scan(...any) error }) (*models.Driver, error) {
	var d models.Driver
	err := row.Scan(&d.ID, &d.UserID, &d.LicenseNumber, &d.VehicleType, &d.Available, &d.Rating, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &d, nil
}

func (p *PostgresStore) CreateDriver(ctx context.Context, d *models.Driver) error {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO drivers(id, user_id, license_number, vehicle_type, available, rating, created_at, updated_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
		d.ID, d.UserID, d.LicenseNumber, d.VehicleType, d.Available, d.Rating, d.CreatedAt, d.UpdatedAt)
	return mapErr(err)
}

func (p *PostgresStore) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	return scanDriver(p.db.QueryRowContext(ctx, `SELECT `+driverCols+` FROM drivers WHERE id=$1`, id))
}

func (p *PostgresStore) GetDriverByUser(ctx context.Context, userID string) (*models.Driver, error) {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	return scanDriver(p.db.QueryRowContext(ctx, `SELECT `+driverCols+` FROM drivers WHERE user_id=$1`, userID))
}

func (p *PostgresStore) UpdateDriver(ctx context.Context, d *models.Driver) error {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	res, err := p.db.ExecContext(ctx,
		`UPDATE drivers SET vehicle_type=$1, available=$2, rating=$3, updated_at=$4 WHERE id=$5`,
		d.VehicleType, d.Available, d.Rating, time.Now(), d.ID)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

func (p *PostgresStore) ListDrivers(ctx context.Context, limit, offset int) ([]models.Driver, error) {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+driverCols+` FROM drivers ORDER BY created_at LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	out := []models.Driver{}
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, mapErr(rows.Err())
}

func (p *PostgresStore) ListAvailableDrivers(ctx context.Context, vehicleType string, limit int) ([]models.Driver, error) {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	q := `SELECT ` + driverCols + ` FROM drivers WHERE available = TRUE`
	args := []any{}
	if vehicleType != "" {
		args = append(args, vehicleType)
		q += fmt.Sprintf(` AND vehicle_type = $%d`, len(args))
	}
	args = append(args, limit)
	q += fmt.Sprintf(` ORDER BY rating DESC LIMIT $%d`, len(args))
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	out := []models.Driver{}
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, mapErr(rows.Err())
}

const vehicleCols = `id, driver_id, license_plate, capacity, make, model, year, available, created_at, updated_at`

func scanVehicle(row interface{ Scan(...any) error }) (*models.Vehicle, error) {
	var v models.Vehicle
	err := row.Scan(&v.ID, &v.DriverID, &v.LicensePlate, &v.Capacity, &v.Make, &v.Model, &v.Year, &v.Available, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &v, nil
}

func (p *PostgresStore) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	// driver_id carries a unique index, so the one-vehicle-per-driver rule
	// holds even under concurrent creates.
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO vehicles(id, driver_id, license_plate, capacity, make, model, year, available, created_at, updated_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		v.ID, v.DriverID, v.LicensePlate, v.Capacity, v.Make, v.Model, v.Year, v.Available, v.CreatedAt, v.UpdatedAt)
	return mapErr(err)
}

func (p *PostgresStore) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	return scanVehicle(p.db.QueryRowContext(ctx, `SELECT `+vehicleCols+` FROM vehicles WHERE id=$1`, id))
}

func (p *PostgresStore) GetVehicleByDriver(ctx context.Context, driverID string) (*models.Vehicle, error) {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	return scanVehicle(p.db.QueryRowContext(ctx, `SELECT `+vehicleCols+` FROM vehicles WHERE driver_id=$1`, driverID))
}

func (p *PostgresStore) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	res, err := p.db.ExecContext(ctx,
		`UPDATE vehicles SET capacity=$1, make=$2, model=$3, year=$4, available=$5, updated_at=$6 WHERE id=$7`,
		v.Capacity, v.Make, v.Model, v.Year, v.Available, time.Now(), v.ID)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

const rideCols = `id, user_id, driver_id, vehicle_id, start_location, end_location,
	start_lat, start_lon, end_lat, end_lon, ride_date, status, fare,
	distance_miles, duration_minutes, special_requirements, emergency_contact,
	created_at, updated_at`

func scanRide(row interface{ Scan(...any) error }) (*models.Ride, error) {
	var (
		r                            models.Ride
		driverID, vehicleID          sql.NullString
		sLat, sLon, eLat, eLon       sql.NullFloat64
		specialReq, emergencyContact sql.NullString
	)
	err := row.Scan(&r.ID, &r.UserID, &driverID, &vehicleID, &r.StartLocation, &r.EndLocation,
		&sLat, &sLon, &eLat, &eLon, &r.RideDate, &r.Status, &r.Fare,
		&r.DistanceMiles, &r.DurationMinutes, &specialReq, &emergencyContact,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	if driverID.Valid {
		r.DriverID = &driverID.String
	}
	if vehicleID.Valid {
		r.VehicleID = &vehicleID.String
	}
	if sLat.Valid && sLon.Valid {
		r.StartCoord = &models.Coord{Lat: sLat.Float64, Lon: sLon.Float64}
	}
	if eLat.Valid && eLon.Valid {
		r.EndCoord = &models.Coord{Lat: eLat.Float64, Lon: eLon.Float64}
	}
	r.SpecialRequirements = specialReq.String
	r.EmergencyContact = emergencyContact.String
	return &r, nil
}

func (p *PostgresStore) CreateRide(ctx context.Context, r *models.Ride) error {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	var sLat, sLon, eLat, eLon any
	if r.StartCoord != nil {
		sLat, sLon = r.StartCoord.Lat, r.StartCoord.Lon
	}
	if r.EndCoord != nil {
		eLat, eLon = r.EndCoord.Lat, r.EndCoord.Lon
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO rides(id, user_id, start_location, end_location, start_lat, start_lon,
		   end_lat, end_lon, ride_date, status, fare, distance_miles, duration_minutes,
		   special_requirements, emergency_contact, created_at, updated_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		r.ID, r.UserID, r.StartLocation, r.EndLocation, sLat, sLon, eLat, eLon,
		r.RideDate, r.Status, r.Fare, r.DistanceMiles, r.DurationMinutes,
		nullIfEmpty(r.SpecialRequirements), nullIfEmpty(r.EmergencyContact),
		r.CreatedAt, r.UpdatedAt)
	return mapErr(err)
}

// ridePredicates renders a RideFilter into WHERE clauses with positional
// parameters. The filter is the only source of predicates; handlers never
// assemble SQL.
func ridePredicates(f RideFilter, args *[]any) []string {
	preds := []string{}
	if f.MatchNone {
		preds = append(preds, "FALSE")
		return preds
	}
	if f.RequesterID != "" {
		*args = append(*args, f.RequesterID)
		preds = append(preds, fmt.Sprintf("user_id = $%d", len(*args)))
	}
	if f.DriverID != "" {
		*args = append(*args, f.DriverID)
		preds = append(preds, fmt.Sprintf("driver_id = $%d", len(*args)))
	}
	if f.Status != "" {
		*args = append(*args, f.Status)
		preds = append(preds, fmt.Sprintf("status = $%d", len(*args)))
	}
	return preds
}

func (p *PostgresStore) GetRide(ctx context.Context, id string, f RideFilter) (*models.Ride, error) {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	args := []any{id}
	preds := append([]string{"id = $1"}, ridePredicates(f, &args)...)
	q := `SELECT ` + rideCols + ` FROM rides WHERE ` + strings.Join(preds, " AND ")
	return scanRide(p.db.QueryRowContext(ctx, q, args...))
}

func (p *PostgresStore) ListRides(ctx context.Context, f RideFilter) ([]models.Ride, error) {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	args := []any{}
	preds := ridePredicates(f, &args)
	q := `SELECT ` + rideCols + ` FROM rides`
	if len(preds) > 0 {
		q += ` WHERE ` + strings.Join(preds, " AND ")
	}
	q += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(` OFFSET $%d`, len(args))
	}
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	out := []models.Ride{}
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, mapErr(rows.Err())
}

func (p *PostgresStore) UpdateRide(ctx context.Context, r *models.Ride, readStatus models.RideStatus) error {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	// Compare-and-swap on the status the caller read so a concurrent
	// transition (payment completion, assignment) is never reverted.
	res, err := p.db.ExecContext(ctx,
		`UPDATE rides SET status=$1, fare=$2, distance_miles=$3, duration_minutes=$4, updated_at=$5
		 WHERE id=$6 AND status=$7`,
		r.Status, r.Fare, r.DistanceMiles, r.DurationMinutes, time.Now(), r.ID, readStatus)
	if err != nil {
		return mapErr(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		var exists bool
		if err := p.db.QueryRowContext(ctx, `SELECT TRUE FROM rides WHERE id=$1`, r.ID).Scan(&exists); err != nil {
			return mapErr(err)
		}
		return ErrConflict
	}
	return nil
}

func (p *PostgresStore) AssignRide(ctx context.Context, rideID, driverID string) (*models.Ride, error) {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapErr(err)
	}
	defer tx.Rollback()

	// Lock the driver row so availability cannot flip mid-assignment.
	var available bool
	err = tx.QueryRowContext(ctx,
		`SELECT available FROM drivers WHERE id=$1 FOR UPDATE`, driverID).Scan(&available)
	if err != nil {
		return nil, mapErr(err)
	}
	if !available {
		return nil, ErrConflict
	}

	var vehicleID sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM vehicles WHERE driver_id=$1`, driverID).Scan(&vehicleID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, mapErr(err)
	}

	// Compare-and-swap on status: of two concurrent assignments exactly one
	// sees the pending row.
	res, err := tx.ExecContext(ctx,
		`UPDATE rides SET driver_id=$1, vehicle_id=$2, status=$3, updated_at=$4
		 WHERE id=$5 AND status=$6`,
		driverID, vehicleID, models.RideAccepted, time.Now(), rideID, models.RidePending)
	if err != nil {
		return nil, mapErr(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// Distinguish a missing ride from a lost race.
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT TRUE FROM rides WHERE id=$1`, rideID).Scan(&exists); err != nil {
			return nil, mapErr(err)
		}
		return nil, ErrConflict
	}
	ride, err := scanRide(tx.QueryRowContext(ctx, `SELECT `+rideCols+` FROM rides WHERE id=$1`, rideID))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, mapErr(err)
	}
	return ride, nil
}

func (p *PostgresStore) ForceCompleteRide(ctx context.Context, rideID string) (bool, error) {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	res, err := p.db.ExecContext(ctx,
		`UPDATE rides SET status=$1, updated_at=$2 WHERE id=$3 AND status NOT IN ($4,$5)`,
		models.RideCompleted, time.Now(), rideID, models.RideCompleted, models.RideCanceled)
	if err != nil {
		return false, mapErr(err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (p *PostgresStore) AppendSample(ctx context.Context, s *models.TrackingSample) error {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO ride_tracking(id, ride_id, lat, lon, speed_mph, heading, ts)
		 VALUES($1,$2,$3,$4,$5,$6,$7)`,
		s.ID, s.RideID, s.Lat, s.Lon, s.SpeedMph, s.Heading, s.Timestamp)
	return mapErr(err)
}

func (p *PostgresStore) ListSamples(ctx context.Context, rideID string, limit int) ([]models.TrackingSample, error) {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, ride_id, lat, lon, speed_mph, heading, ts
		 FROM ride_tracking WHERE ride_id=$1 ORDER BY ts DESC LIMIT $2`, rideID, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	out := []models.TrackingSample{}
	for rows.Next() {
		var s models.TrackingSample
		if err := rows.Scan(&s.ID, &s.RideID, &s.Lat, &s.Lon, &s.SpeedMph, &s.Heading, &s.Timestamp); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, s)
	}
	return out, mapErr(rows.Err())
}

const paymentCols = `id, ride_id, payer_id, amount, currency, method, status, external_ref, paid_at, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	var (
		pm   models.Payment
		ref  sql.NullString
		paid sql.NullTime
	)
	err := row.Scan(&pm.ID, &pm.RideID, &pm.PayerID, &pm.Amount, &pm.Currency, &pm.Method, &pm.Status, &ref, &paid, &pm.CreatedAt, &pm.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	pm.ExternalRef = ref.String
	if paid.Valid {
		pm.PaidAt = &paid.Time
	}
	return &pm, nil
}

func (p *PostgresStore) CreatePayment(ctx context.Context, pm *models.Payment) error {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO payments(id, ride_id, payer_id, amount, currency, method, status, external_ref, created_at, updated_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		pm.ID, pm.RideID, pm.PayerID, pm.Amount, pm.Currency, pm.Method, pm.Status,
		nullIfEmpty(pm.ExternalRef), pm.CreatedAt, pm.UpdatedAt)
	return mapErr(err)
}

func (p *PostgresStore) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	return scanPayment(p.db.QueryRowContext(ctx, `SELECT `+paymentCols+` FROM payments WHERE id=$1`, id))
}

func (p *PostgresStore) GetPaymentByExternalRef(ctx context.Context, ref string) (*models.Payment, error) {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	return scanPayment(p.db.QueryRowContext(ctx, `SELECT `+paymentCols+` FROM payments WHERE external_ref=$1`, ref))
}

func (p *PostgresStore) UpdatePayment(ctx context.Context, pm *models.Payment) error {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	res, err := p.db.ExecContext(ctx,
		`UPDATE payments SET status=$1, external_ref=$2, paid_at=$3, updated_at=$4 WHERE id=$5`,
		pm.Status, nullIfEmpty(pm.ExternalRef), pm.PaidAt, time.Now(), pm.ID)
	if err != nil {
		return mapErr(err)
	}
	return checkAffected(res)
}

func (p *PostgresStore) MarkEventProcessed(ctx context.Context, eventID string) (bool, error) {
	ctx, cancel := p.opCtx(ctx)
	defer cancel()
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO payment_events(event_id, processed_at) VALUES($1,$2) ON CONFLICT (event_id) DO NOTHING`,
		eventID, time.Now())
	if err != nil {
		return false, mapErr(err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.db.PingContext(ctx)
}

func (p *PostgresStore) Close() error { return p.db.Close() }

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
