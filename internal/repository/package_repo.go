package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/credit_go_server/internal/model"
)

type PackageRepository struct {
	db *gorm.DB
}

func NewPackageRepository(db *gorm.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

// ListActive 上架中的积分包，按 sort_order 排序
func (r *PackageRepository) ListActive(ctx context.Context) ([]model.CreditPackage, error) {
	var pkgs []model.CreditPackage
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&pkgs).Error
	return pkgs, err
}

// GetActive 获取上架中的积分包
func (r *PackageRepository) GetActive(ctx context.Context, id string) (*model.CreditPackage, error) {
	var pkg model.CreditPackage
	err := r.db.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&pkg).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// Upsert 按 id 写入或更新
func (r *PackageRepository) Upsert(ctx context.Context, pkg *model.CreditPackage) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "credits", "price", "active", "sort_order", "updated_at"}),
	}).Create(pkg).Error
}

func (r *PackageRepository) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.CreditPackage{}).
		Where("id = ?", id).
		Update("active", active)
	return result.RowsAffected > 0, result.Error
}
