package domain

import (
	"context"
	"time"
)

type Employee struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	FullName  string     `gorm:"size:100;not null" json:"fullName" validate:"required,max=100"`
	Email     string     `gorm:"size:100" json:"email" validate:"omitempty,email,max=100"`
	Position  string     `gorm:"size:100;not null" json:"position" validate:"required,max=100"`
	Salary    float64    `gorm:"type:decimal(12,2);not null;default:0" json:"salary" validate:"gte=0,lt=10000000000"`
	HireDate  *time.Time `json:"hireDate"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (Employee) TableName() string { return "employees" }

// EmployeeRepository is the persistence gateway for employees. Every
// operation touches a single record and commits before returning.
type EmployeeRepository interface {
	ListAll(ctx context.Context) ([]Employee, error)
	GetByID(ctx context.Context, id int64) (*Employee, error)
	Insert(ctx context.Context, e *Employee) (int64, error)
	Update(ctx context.Context, e *Employee) error
	Delete(ctx context.Context, id int64) error
}
