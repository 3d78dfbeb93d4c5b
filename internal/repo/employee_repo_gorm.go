package repo

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"gin-gorm-employees/internal/domain"
)

type EmployeeRepo struct {
	db       *gorm.DB
	validate *validator.Validate
}

func NewEmployeeRepo(db *gorm.DB) *EmployeeRepo {
	return &EmployeeRepo{
		db:       db,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ListAll 按 id 升序返回全部员工
func (r *EmployeeRepo) ListAll(ctx context.Context) (_ []domain.Employee, err error) {
	defer func() { observe(opList, err) }()

	out := make([]domain.Employee, 0)
	if err = classify(r.db.WithContext(ctx).Order("id ASC").Find(&out).Error, "list employees"); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID 最多取两行：两行说明 id 唯一性已被破坏，不能静默取第一条
func (r *EmployeeRepo) GetByID(ctx context.Context, id int64) (_ *domain.Employee, err error) {
	defer func() { observe(opGet, err) }()

	var found []domain.Employee
	if err = classify(r.db.WithContext(ctx).Where("id = ?", id).Limit(2).Find(&found).Error, "get employee"); err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, errors.Wrapf(domain.ErrNotFound, "get employee %d", id)
	case 1:
		return &found[0], nil
	default:
		return nil, errors.Wrapf(domain.ErrInvariantViolation, "get employee %d", id)
	}
}

// Insert 由存储分配 id，并回写到 e.ID
func (r *EmployeeRepo) Insert(ctx context.Context, e *domain.Employee) (_ int64, err error) {
	defer func() { observe(opInsert, err) }()

	if err = r.check(e); err != nil {
		return 0, errors.WithMessage(err, "insert employee")
	}
	e.ID = 0
	if err = classify(r.db.WithContext(ctx).Create(e).Error, "insert employee"); err != nil {
		return 0, err
	}
	return e.ID, nil
}

// Update 整体覆盖（含零值字段），不是部分补丁
func (r *EmployeeRepo) Update(ctx context.Context, e *domain.Employee) (err error) {
	defer func() { observe(opUpdate, err) }()

	if err = r.check(e); err != nil {
		return errors.WithMessage(err, "update employee")
	}
	if e.ID <= 0 {
		return errors.Wrapf(domain.ErrNotFound, "update employee %d", e.ID)
	}
	tx := r.db.WithContext(ctx)
	res := tx.Model(e).Select("*").Omit("created_at").Updates(e)
	if err = classify(res.Error, "update employee"); err != nil {
		return err
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// MySQL 对值未变化的行返回 0，需再确认是否存在
	var n int64
	if err = classify(tx.Model(&domain.Employee{}).Where("id = ?", e.ID).Count(&n).Error, "update employee"); err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(domain.ErrNotFound, "update employee %d", e.ID)
	}
	return nil
}

// Delete 物理删除
func (r *EmployeeRepo) Delete(ctx context.Context, id int64) (err error) {
	defer func() { observe(opDelete, err) }()

	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Employee{})
	if err = classify(res.Error, "delete employee"); err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(domain.ErrNotFound, "delete employee %d", id)
	}
	return nil
}

func (r *EmployeeRepo) check(e *domain.Employee) error {
	if e == nil {
		return errors.Wrap(domain.ErrValidation, "nil employee")
	}
	err := r.validate.Struct(e)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return errors.Wrap(domain.ErrValidation, err.Error())
	}
	fields := make([]string, 0, len(ves))
	for _, fe := range ves {
		fields = append(fields, fe.Field()+" "+fe.Tag())
	}
	return errors.Wrap(domain.ErrValidation, strings.Join(fields, ", "))
}

var _ domain.EmployeeRepository = (*EmployeeRepo)(nil)
