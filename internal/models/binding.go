package models

import "time"

// ScheduleResourceBinding - конкретное назначение ресурса на расписание.
// Буферы копируются из требования в момент аллокации и дальше не меняются.
type ScheduleResourceBinding struct {
	ID                  int64        `json:"id"`
	ScheduleID          int64        `json:"schedule_id"`
	Type                ResourceType `json:"type"`
	ResourceID          int64        `json:"resource_id"`
	AllocatedQuantity   int64        `json:"allocated_quantity"`
	PreparationMinutes  int64        `json:"preparation_minutes"`
	FinalizationMinutes int64        `json:"finalization_minutes"`
	CompanyID           int64        `json:"company_id"`
	CreatedAt           time.Time    `json:"created_at"`
}
