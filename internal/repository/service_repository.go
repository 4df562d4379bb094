package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/healing-center/internal/model"
)

// ServiceRepo provides CRUD operations for the bookable service catalog.
type ServiceRepo struct{ db *sql.DB }

func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{db: db} }

func (r *ServiceRepo) DB() *sql.DB { return r.db }

const serviceCols = `id, name_ar, name_en, description_ar, description_en, price, currency,
       duration_minutes, service_type, is_active, is_online, created_at`

// ListActive returns all services visible in the public catalog.
func (r *ServiceRepo) ListActive(ctx context.Context) ([]model.Service, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+serviceCols+` FROM services WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	services := make([]model.Service, 0)
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

// GetByID returns a single service. Missing rows surface as sql.ErrNoRows.
func (r *ServiceRepo) GetByID(ctx context.Context, id uint64) (model.Service, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+serviceCols+` FROM services WHERE id = ?`, id)
	return scanService(row)
}

// Create inserts a new service and populates the generated ID.
func (r *ServiceRepo) Create(ctx context.Context, s *model.Service) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO services (name_ar, name_en, description_ar, description_en, price, currency,
		        duration_minutes, service_type, is_active, is_online)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		s.NameAR, s.NameEN, s.DescriptionAR, s.DescriptionEN, s.Price, s.Currency,
		s.DurationMinutes, s.ServiceType, s.IsActive, s.IsOnline)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// Update rewrites every editable column of an existing service.
func (r *ServiceRepo) Update(ctx context.Context, s *model.Service) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE services
		    SET name_ar = ?, name_en = ?, description_ar = ?, description_en = ?,
		        price = ?, currency = ?, duration_minutes = ?, service_type = ?,
		        is_active = ?, is_online = ?
		  WHERE id = ?`,
		s.NameAR, s.NameEN, s.DescriptionAR, s.DescriptionEN, s.Price, s.Currency,
		s.DurationMinutes, s.ServiceType, s.IsActive, s.IsOnline, s.ID)
	return err
}

type rowScanner interface{ Scan(dest ...any) error }

func scanService(row rowScanner) (model.Service, error) {
	var (
		s          model.Service
		descAR     sql.NullString
		descEN     sql.NullString
	)
	err := row.Scan(&s.ID, &s.NameAR, &s.NameEN, &descAR, &descEN, &s.Price, &s.Currency,
		&s.DurationMinutes, &s.ServiceType, &s.IsActive, &s.IsOnline, &s.CreatedAt)
	if err != nil {
		return model.Service{}, err
	}
	s.DescriptionAR = descAR.String
	s.DescriptionEN = descEN.String
	return s, nil
}
