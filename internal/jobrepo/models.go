package jobrepo

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ClusterRun is the clustering_run table row backing Run.
type ClusterRun struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement"`
	JobUUID       string     `gorm:"column:job_uuid;type:varchar(64);uniqueIndex"`
	InputPath     string     `gorm:"column:input_path;type:varchar(512)"`
	Codelength    float64    `gorm:"column:codelength"`
	NumLevels     int        `gorm:"column:num_levels"`
	NumTopModules int        `gorm:"column:num_top_modules"`
	TopModules    JSONField  `gorm:"column:top_modules;type:json"`
	Seed          int64      `gorm:"column:seed"`
	Status        string     `gorm:"column:status;type:varchar(16)"`
	ErrorInfo     string     `gorm:"column:error_info;type:text"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	CompletedAt   *time.Time `gorm:"column:completed_at"`
}

// TableName returns the table name for ClusterRun.
func (ClusterRun) TableName() string {
	return "clustering_run"
}

// ToRun converts a ClusterRun row to a Run.
func (r *ClusterRun) ToRun() *Run {
	run := &Run{
		JobUUID:       r.JobUUID,
		InputPath:     r.InputPath,
		Codelength:    r.Codelength,
		NumLevels:     r.NumLevels,
		NumTopModules: r.NumTopModules,
		Seed:          r.Seed,
		Status:        r.Status,
		Error:         r.ErrorInfo,
	}
	if r.TopModules != nil {
		_ = json.Unmarshal(r.TopModules, &run.TopModules)
	}
	return run
}

// FromRun builds a ClusterRun row from a Run.
func FromRun(run *Run) (*ClusterRun, error) {
	topModulesJSON, err := json.Marshal(run.TopModules)
	if err != nil {
		return nil, err
	}
	return &ClusterRun{
		JobUUID:       run.JobUUID,
		InputPath:     run.InputPath,
		Codelength:    run.Codelength,
		NumLevels:     run.NumLevels,
		NumTopModules: run.NumTopModules,
		TopModules:    topModulesJSON,
		Seed:          run.Seed,
		Status:        run.Status,
		ErrorInfo:     run.Error,
	}, nil
}

// JSONField stores an arbitrary JSON document as a driver-compatible
// byte slice for a gorm JSON column.
type JSONField []byte

func (j JSONField) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
		return nil
	case string:
		*j = []byte(v)
		return nil
	default:
		return errors.New("jobrepo: unsupported type for JSONField")
	}
}
