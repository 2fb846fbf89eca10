package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/medlocator/hospital-map/backend/internal/domain/entities"
	"github.com/medlocator/hospital-map/backend/internal/domain/repositories"
	"github.com/medlocator/hospital-map/backend/internal/infrastructure/clients/postgres"
	"github.com/medlocator/hospital-map/backend/internal/infrastructure/observability"
	apperrors "github.com/medlocator/hospital-map/backend/pkg/errors"
)

const hospitalsTable = "hospitals"

// hospitalRow is the scan target for a hospitals row with its location unpacked.
type hospitalRow struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Type      string    `db:"type"`
	Status    string    `db:"status"`
	Latitude  float64   `db:"latitude"`
	Longitude float64   `db:"longitude"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type nearbyRow struct {
	hospitalRow
	Distance float64 `db:"distance"`
}

func (r hospitalRow) toEntity() *entities.Hospital {
	return &entities.Hospital{
		ID:     r.ID,
		Name:   r.Name,
		Type:   entities.HospitalType(r.Type),
		Status: entities.HospitalStatus(r.Status),
		Location: entities.Location{
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// HospitalAdapter implements HospitalRepository on PostgreSQL with PostGIS
type HospitalAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	metrics *observability.Metrics
}

// NewHospitalAdapter creates a new hospital adapter
func NewHospitalAdapter(client *postgres.Client, metrics *observability.Metrics) repositories.HospitalRepository {
	return &HospitalAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		metrics: metrics,
	}
}

func hospitalColumns() []interface{} {
	return []interface{}{
		goqu.C("id"),
		goqu.C("name"),
		goqu.C("type"),
		goqu.C("status"),
		goqu.L("ST_Y(location::geometry)").As("latitude"),
		goqu.L("ST_X(location::geometry)").As("longitude"),
		goqu.C("created_at"),
		goqu.C("updated_at"),
	}
}

// pointHex encodes a WGS84 point as hex EWKB, the form PostGIS decodes with ST_GeomFromEWKB.
func pointHex(loc entities.Location) (string, error) {
	p := geom.NewPointFlat(geom.XY, []float64{loc.Longitude, loc.Latitude}).SetSRID(4326)
	data, err := ewkb.Marshal(p, ewkb.NDR)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(data), nil
}

func geographyFromHex(pointHex string) exp.LiteralExpression {
	return goqu.L("ST_GeomFromEWKB(decode(?, 'hex'))::geography", pointHex)
}

func filterExpressions(filter repositories.HospitalFilter) []exp.Expression {
	var conds []exp.Expression
	if filter.Type != "" {
		conds = append(conds, goqu.C("type").Eq(string(filter.Type)))
	}
	if filter.Status != "" {
		conds = append(conds, goqu.C("status").Eq(string(filter.Status)))
	}
	return conds
}

func (a *HospitalAdapter) observe(ctx context.Context, operation string, start time.Time) {
	observability.RecordDBMetric(ctx, a.metrics, operation, time.Since(start))
}

// Create inserts a hospital and returns the stored row
func (a *HospitalAdapter) Create(ctx context.Context, hospital *entities.Hospital) (*entities.Hospital, error) {
	defer a.observe(ctx, "hospitals.create", time.Now())

	point, err := pointHex(hospital.Location)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode location", err)
	}

	query, args, err := a.db.Insert(hospitalsTable).
		Rows(goqu.Record{
			"name":     hospital.Name,
			"type":     string(hospital.Type),
			"status":   string(hospital.Status),
			"location": geographyFromHex(point),
		}).
		Returning(hospitalColumns()...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build insert query", err)
	}

	var row hospitalRow
	if err := a.client.DBx().QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return nil, apperrors.NewInternalError("failed to create hospital", err)
	}
	return row.toEntity(), nil
}

// FindByID retrieves a hospital by ID
func (a *HospitalAdapter) FindByID(ctx context.Context, id int64) (*entities.Hospital, error) {
	defer a.observe(ctx, "hospitals.find_by_id", time.Now())

	query, args, err := a.db.From(hospitalsTable).
		Select(hospitalColumns()...).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var row hospitalRow
	err = a.client.DBx().GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("Hôpital %d non trouvé", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get hospital", err)
	}
	return row.toEntity(), nil
}

// FindAll lists hospitals matching filter, newest first
func (a *HospitalAdapter) FindAll(ctx context.Context, filter repositories.HospitalFilter, page repositories.Pagination) ([]*entities.Hospital, error) {
	defer a.observe(ctx, "hospitals.find_all", time.Now())

	ds := a.db.From(hospitalsTable).
		Select(hospitalColumns()...).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc())
	if conds := filterExpressions(filter); len(conds) > 0 {
		ds = ds.Where(conds...)
	}
	if page.Limit > 0 {
		ds = ds.Limit(uint(page.Limit))
	}
	if page.Offset > 0 {
		ds = ds.Offset(uint(page.Offset))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var rows []hospitalRow
	if err := a.client.DBx().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list hospitals", err)
	}

	hospitals := make([]*entities.Hospital, 0, len(rows))
	for _, r := range rows {
		hospitals = append(hospitals, r.toEntity())
	}
	return hospitals, nil
}

// FindNearby lists hospitals within the radius of a point, closest first
func (a *HospitalAdapter) FindNearby(ctx context.Context, q repositories.NearbyQuery) ([]*entities.HospitalWithDistance, error) {
	defer a.observe(ctx, "hospitals.find_nearby", time.Now())

	point, err := pointHex(entities.Location{Latitude: q.Latitude, Longitude: q.Longitude})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode location", err)
	}

	cols := append(hospitalColumns(),
		goqu.L("ST_Distance(location, ST_GeomFromEWKB(decode(?, 'hex'))::geography)", point).As("distance"))
	conds := append([]exp.Expression{
		goqu.L("ST_DWithin(location, ST_GeomFromEWKB(decode(?, 'hex'))::geography, ?)", point, q.RadiusMeters),
	}, filterExpressions(q.Filter)...)

	ds := a.db.From(hospitalsTable).
		Select(cols...).
		Where(conds...).
		Order(goqu.I("distance").Asc())
	if q.Limit > 0 {
		ds = ds.Limit(uint(q.Limit))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build nearby query", err)
	}

	var rows []nearbyRow
	if err := a.client.DBx().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to search nearby hospitals", err)
	}

	out := make([]*entities.HospitalWithDistance, 0, len(rows))
	for _, r := range rows {
		out = append(out, &entities.HospitalWithDistance{
			Hospital:       *r.toEntity(),
			DistanceMeters: r.Distance,
		})
	}
	return out, nil
}

// Update applies a partial update and returns the stored row
func (a *HospitalAdapter) Update(ctx context.Context, id int64, patch entities.HospitalPatch) (*entities.Hospital, error) {
	defer a.observe(ctx, "hospitals.update", time.Now())

	record := goqu.Record{}
	if patch.Name != nil {
		record["name"] = *patch.Name
	}
	if patch.Type != nil {
		record["type"] = string(*patch.Type)
	}
	if patch.Status != nil {
		record["status"] = string(*patch.Status)
	}
	if patch.Location != nil {
		point, err := pointHex(*patch.Location)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to encode location", err)
		}
		record["location"] = geographyFromHex(point)
	}
	if len(record) == 0 {
		return nil, apperrors.NewValidationError("Aucun champ à mettre à jour")
	}

	query, args, err := a.db.Update(hospitalsTable).
		Set(record).
		Where(goqu.C("id").Eq(id)).
		Returning(hospitalColumns()...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	var row hospitalRow
	err = a.client.DBx().QueryRowxContext(ctx, query, args...).StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("Hôpital %d non trouvé", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to update hospital", err)
	}
	return row.toEntity(), nil
}

// Delete removes a hospital and reports whether a row was deleted
func (a *HospitalAdapter) Delete(ctx context.Context, id int64) (bool, error) {
	defer a.observe(ctx, "hospitals.delete", time.Now())

	query, args, err := a.db.Delete(hospitalsTable).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewInternalError("failed to delete hospital", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to read affected rows", err)
	}
	return affected > 0, nil
}

// Count counts hospitals matching filter
func (a *HospitalAdapter) Count(ctx context.Context, filter repositories.HospitalFilter) (int64, error) {
	defer a.observe(ctx, "hospitals.count", time.Now())

	ds := a.db.From(hospitalsTable).Select(goqu.COUNT("*"))
	if conds := filterExpressions(filter); len(conds) > 0 {
		ds = ds.Where(conds...)
	}
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var count int64
	if err := a.client.DBx().GetContext(ctx, &count, query, args...); err != nil {
		return 0, apperrors.NewInternalError("failed to count hospitals", err)
	}
	return count, nil
}
