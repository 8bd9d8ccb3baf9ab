package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"bookstore/pkg/domain"
)

const migrateLockID int64 = 50005000

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB, verifies the connection, and runs auto-migrations.
func NewGormStore(ctx context.Context, dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &GormStore{db: db}
	if err := s.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := withMigrationLock(ctx, db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &BookModel{}, &OrderModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func withMigrationLock(ctx context.Context, db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

func (s *GormStore) CreateBook(ctx context.Context, b domain.Book) (domain.Book, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	model := bookToModel(b)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Book{}, fmt.Errorf("create book: %w", err)
	}
	return bookFromModel(model), nil
}

func (s *GormStore) GetBook(ctx context.Context, id string) (domain.Book, bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Book{}, false, nil
	}
	var model BookModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// ListBooks returns matching books ordered by created_at desc.
func (s *GormStore) ListBooks(ctx context.Context, filter BookFilter) ([]domain.Book, error) {
	var models []BookModel
	if err := s.scopeBooks(ctx, filter).Order("created_at desc").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, nil
}

func (s *GormStore) CountBooks(ctx context.Context, filter BookFilter) (int64, error) {
	var count int64
	if err := s.scopeBooks(ctx, filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *GormStore) scopeBooks(ctx context.Context, filter BookFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&BookModel{})
	if c := filter.normalizedCategory(); c != "" {
		q = q.Where("LOWER(TRIM(category)) = ?", c)
	}
	if filter.Trending != nil {
		q = q.Where("trending = ?", *filter.Trending)
	}
	return q
}

// UpdateBook writes only the patched columns.
func (s *GormStore) UpdateBook(ctx context.Context, id string, patch domain.BookPatch, updatedAt time.Time) (domain.Book, bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Book{}, false, nil
	}
	updates := bookPatchColumns(patch)
	updates["updated_at"] = updatedAt
	res := s.db.WithContext(ctx).Model(&BookModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return domain.Book{}, false, fmt.Errorf("update book: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Book{}, false, nil
	}
	return s.GetBook(ctx, id)
}

func (s *GormStore) DeleteBook(ctx context.Context, id string) (domain.Book, bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Book{}, false, nil
	}
	var model BookModel
	res := s.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Delete(&model)
	if res.Error != nil {
		return domain.Book{}, false, fmt.Errorf("delete book: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Book{}, false, nil
	}
	return bookFromModel(model), true, nil
}

func (s *GormStore) CreateOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	model := orderToModel(o)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}
	return orderFromModel(model), nil
}

// ListOrdersByEmail uses an exact, case-sensitive email comparison.
func (s *GormStore) ListOrdersByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	var models []OrderModel
	if err := s.db.WithContext(ctx).Where("email = ?", email).Order("created_at desc").Find(&models).Error; err != nil {
		return nil, err
	}
	return ordersFromModels(models), nil
}

func (s *GormStore) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var models []OrderModel
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&models).Error; err != nil {
		return nil, err
	}
	return ordersFromModels(models), nil
}

func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SaveUser registers or updates a user keyed by username.
func (s *GormStore) SaveUser(ctx context.Context, u domain.User) (domain.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	model := userToModel(u)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"password", "role", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	saved, _, err := s.GetUserByUsername(ctx, u.Username)
	return saved, err
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func bookPatchColumns(p domain.BookPatch) map[string]any {
	updates := map[string]any{}
	if p.Title != nil {
		updates["title"] = *p.Title
	}
	if p.Author != nil {
		updates["author"] = *p.Author
	}
	if p.Category != nil {
		updates["category"] = *p.Category
	}
	if p.Description != nil {
		updates["description"] = *p.Description
	}
	if p.CoverImage != nil {
		updates["cover_image"] = *p.CoverImage
	}
	if p.Price != nil {
		updates["price"] = *p.Price
	}
	if p.OldPrice != nil {
		updates["old_price"] = *p.OldPrice
	}
	if p.Trending != nil {
		updates["trending"] = *p.Trending
	}
	return updates
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:        u.ID,
		Username:  u.Username,
		Password:  u.Password,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	role := domain.UserRole(m.Role)
	if role == "" {
		role = domain.RoleUser
	}
	return domain.User{
		ID:        m.ID,
		Username:  m.Username,
		Password:  m.Password,
		Role:      role,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func bookToModel(b domain.Book) BookModel {
	return BookModel{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Category:    b.Category,
		Description: b.Description,
		CoverImage:  b.CoverImage,
		Price:       b.Price,
		OldPrice:    b.OldPrice,
		Trending:    b.Trending,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func bookFromModel(m BookModel) domain.Book {
	return domain.Book{
		ID:          m.ID,
		Title:       m.Title,
		Author:      m.Author,
		Category:    m.Category,
		Description: m.Description,
		CoverImage:  m.CoverImage,
		Price:       m.Price,
		OldPrice:    m.OldPrice,
		Trending:    m.Trending,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func orderToModel(o domain.Order) OrderModel {
	return OrderModel{
		ID:    o.ID,
		Name:  o.Name,
		Email: o.Email,
		Address: datatypes.NewJSONType(addressModel{
			City:    o.Address.City,
			Country: o.Address.Country,
			State:   o.Address.State,
			Zipcode: o.Address.Zipcode,
		}),
		Phone:      o.Phone,
		ProductIDs: datatypes.NewJSONSlice(o.ProductIDs),
		TotalPrice: o.TotalPrice,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

func orderFromModel(m OrderModel) domain.Order {
	addr := m.Address.Data()
	return domain.Order{
		ID:    m.ID,
		Name:  m.Name,
		Email: m.Email,
		Address: domain.Address{
			City:    addr.City,
			Country: addr.Country,
			State:   addr.State,
			Zipcode: addr.Zipcode,
		},
		Phone:      m.Phone,
		ProductIDs: []string(m.ProductIDs),
		TotalPrice: m.TotalPrice,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func ordersFromModels(models []OrderModel) []domain.Order {
	res := make([]domain.Order, 0, len(models))
	for _, m := range models {
		res = append(res, orderFromModel(m))
	}
	return res
}
