package models

type Task struct {
	ID        uint64 `gorm:"primarykey" json:"id"`
	UserID    uint64 `gorm:"not null;index" json:"user_id"`
	Content   string `gorm:"type:varchar(128);not null" json:"content"`
	Completed bool   `gorm:"not null;default:false" json:"completed"`
}

// TaskPatch holds the task fields an update may change. Nil fields are left untouched.
type TaskPatch struct {
	Content   *string
	Completed *bool
}

// Apply copies the set fields onto t and returns the affected columns.
func (p TaskPatch) Apply(t *Task) []string {
	var columns []string
	if p.Content != nil {
		t.Content = *p.Content
		columns = append(columns, "content")
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
		columns = append(columns, "completed")
	}
	return columns
}
