package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"menu-api/domain"
)

// BusinessRow maps the businesses table.
type BusinessRow struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Description *string
	Image       string
	ImgBanner   *string
	Location    *string
	Phone       *string
	Website     *string
	Rating      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (BusinessRow) TableName() string { return "businesses" }

// ProductRow maps the business_products table.
type ProductRow struct {
	ID          string `gorm:"primaryKey"`
	BusinessID  string `gorm:"index;not null"`
	Name        string `gorm:"not null"`
	Description *string
	Price       *float64
	Image       *string
	IsAvailable *bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ProductRow) TableName() string { return "business_products" }

// Postgres reads businesses and products through gorm.
type Postgres struct {
	db *gorm.DB
}

// NewPostgres wraps an open gorm connection.
func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

// OpenPostgres connects to dsn, retrying with exponential backoff while the
// database comes up.
func OpenPostgres(ctx context.Context, dsn string, attempts int) (*gorm.DB, error) {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		var db *gorm.DB
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err == nil {
			err = ping(ctx, db)
			if err == nil {
				log.WithField("attempt", i).Info("database connected")
				return db, nil
			}
		}
		log.WithError(err).WithField("attempt", i).Warn("database connection failed")

		wait := time.Duration(1<<uint(i-1)) * time.Second
		if wait > 10*time.Second {
			wait = 10 * time.Second
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("connect to database after %d attempts: %w", attempts, err)
}

// Migrate creates the catalog tables when they are missing.
func (p *Postgres) Migrate() error {
	for _, model := range []any{&BusinessRow{}, &ProductRow{}} {
		if err := p.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	return nil
}

// FetchBusiness loads the business profile.
func (p *Postgres) FetchBusiness(ctx context.Context, businessID string) (domain.Business, error) {
	var row BusinessRow
	err := p.db.WithContext(ctx).Where("id = ?", businessID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Business{}, ErrNotFound
	}
	if err != nil {
		return domain.Business{}, err
	}
	return domain.Business{
		ID:          row.ID,
		Name:        row.Name,
		Description: deref(row.Description),
		Image:       row.Image,
		Banner:      deref(row.ImgBanner),
		Location:    deref(row.Location),
		Phone:       deref(row.Phone),
		Website:     deref(row.Website),
		Rating:      row.Rating,
	}, nil
}

// FetchAvailableProducts lists the products of a business flagged available,
// oldest first.
func (p *Postgres) FetchAvailableProducts(ctx context.Context, businessID string) ([]domain.Product, error) {
	var rows []ProductRow
	err := p.db.WithContext(ctx).
		Where("business_id = ? AND is_available = ?", businessID, true).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, domain.Product{
			ID:          r.ID,
			BusinessID:  r.BusinessID,
			Name:        r.Name,
			Description: r.Description,
			Price:       r.Price,
			Image:       r.Image,
			IsAvailable: r.IsAvailable,
		})
	}
	return products, nil
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
