package models

import "time"

type ResourceType string

const (
	ResourcePersonnel  ResourceType = "PERSONNEL"
	ResourceTool       ResourceType = "TOOL"
	ResourceConsumable ResourceType = "CONSUMABLE"
)

// Resource - единица пула TOOL/CONSUMABLE. Quantity задаёт ёмкость пула.
type Resource struct {
	ID        int64        `json:"id" yaml:"id"`
	CompanyID int64        `json:"company_id" yaml:"company_id"`
	Name      string       `json:"name" yaml:"name"`
	Type      ResourceType `json:"type" yaml:"type"`
	Quantity  int64        `json:"quantity" yaml:"quantity"`
	IsActive  bool         `json:"is_active" yaml:"is_active"`
	CreatedAt time.Time    `json:"created_at" yaml:"-"`
	UpdatedAt time.Time    `json:"updated_at" yaml:"-"`
}

// Service - бронируемая услуга с набором требований к ресурсам.
type Service struct {
	ID           int64                        `json:"id"`
	CompanyID    int64                        `json:"company_id"`
	Name         string                       `json:"name"`
	Requirements []ServiceResourceRequirement `json:"requirements"`
	CreatedAt    time.Time                    `json:"created_at"`
	UpdatedAt    time.Time                    `json:"updated_at"`
}

// ServiceResourceRequirement - статический шаблон потребления ресурса услугой.
// Для PERSONNEL заполняется PersonnelIDs, для TOOL/CONSUMABLE - ResourceID.
type ServiceResourceRequirement struct {
	ID                  int64        `json:"id"`
	ServiceID           int64        `json:"service_id"`
	CompanyID           int64        `json:"company_id"`
	Type                ResourceType `json:"type"`
	Name                string       `json:"name"`
	RequiredQuantity    int64        `json:"required_quantity"`
	PreparationMinutes  int64        `json:"preparation_minutes"`
	FinalizationMinutes int64        `json:"finalization_minutes"`
	ResourceID          int64        `json:"resource_id,omitempty"`
	PersonnelIDs        []int64      `json:"personnel_ids,omitempty"`
}

// PoolResourceID возвращает идентификатор конкретного пула или 0 для PERSONNEL.
func (r ServiceResourceRequirement) PoolResourceID() int64 {
	if r.Type == ResourcePersonnel {
		return 0
	}
	return r.ResourceID
}

// Personnel - сотрудник компании, участник пула PERSONNEL.
type Personnel struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
