package models

const (
	ConflictReasonCapacity = "capacity_exceeded"
	ConflictReasonNotFound = "not_found"
)

// ResourceConflict описывает одно нарушенное требование в проверяемом окне.
type ResourceConflict struct {
	RequirementID        int64        `json:"requirement_id"`
	Type                 ResourceType `json:"type"`
	ResourceID           int64        `json:"resource_id,omitempty"`
	ResourceName         string       `json:"resource_name"`
	RequiredQuantity     int64        `json:"required_quantity"`
	AlreadyAllocated     int64        `json:"already_allocated"`
	AvailableQuantity    int64        `json:"available_quantity"`
	AllocatedResourceIDs []int64      `json:"allocated_resource_ids,omitempty"`
	Reason               string       `json:"reason"`
}

// AvailabilityResult - агрегат по всем требованиям услуги.
// Available == true тогда и только тогда, когда конфликтов нет.
type AvailabilityResult struct {
	Available bool               `json:"available"`
	Conflicts []ResourceConflict `json:"conflicts,omitempty"`
}
