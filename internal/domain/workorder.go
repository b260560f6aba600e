package domain

import "time"

// WorkOrder is the client-side working copy of a job assignment.
// Persistent storage lives entirely server-side.
type WorkOrder struct {
	ID            string    `json:"id"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	Address       string    `json:"address"`
	BuildingType  string    `json:"building_type,omitempty"`
	Model         string    `json:"model"`
	Quantity      int       `json:"quantity"`
	ScheduledDate string    `json:"scheduled_date"` // YYYY-MM-DD
	WorkerID      string    `json:"worker_id,omitempty"`
	Status        string    `json:"status"` // scheduled | in_progress | completed
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// WorkReport collects the outcome of a work order: notes, photos and
// used materials, submitted once at the end of the job.
type WorkReport struct {
	ID          string    `json:"id"`
	WorkOrderID string    `json:"work_order_id"`
	Notes       string    `json:"notes,omitempty"`
	Status      string    `json:"status"` // draft | submitted
	SubmittedAt time.Time `json:"submitted_at,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PhotoType classifies a construction photo within a report.
type PhotoType string

const (
	PhotoBefore  PhotoType = "before"
	PhotoDuring  PhotoType = "during"
	PhotoAfter   PhotoType = "after"
	PhotoTrouble PhotoType = "trouble"
)

type WorkPhoto struct {
	ID           string    `json:"id"`
	WorkReportID string    `json:"work_report_id"`
	PhotoType    PhotoType `json:"photo_type"`
	Caption      string    `json:"caption,omitempty"`
	URL          string    `json:"url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type UsedMaterial struct {
	ID           string  `json:"id"`
	WorkReportID string  `json:"work_report_id"`
	Name         string  `json:"name"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit,omitempty"`
	CreatedAt    string  `json:"created_at,omitempty"`
}
