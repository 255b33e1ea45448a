package sql

// sessionEntity is the persistence shape of model.Session.
type sessionEntity struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string `gorm:"column:name"`
	ConfigGroup string `gorm:"column:config_group"`
	WhereClause string `gorm:"column:where_clause"`
	Date        string `gorm:"column:date"`
}

func (sessionEntity) TableName() string {
	return sessionsTable
}

// jobEntity is the persistence shape of model.Job.
type jobEntity struct {
	SessionID int64   `gorm:"column:session_id;primaryKey;autoIncrement:false"`
	ConfigID  int64   `gorm:"column:config_id"`
	JobID     string  `gorm:"column:job_id;primaryKey"`
	Status    string  `gorm:"column:status"`
	TimeLog   *string `gorm:"column:time_log"`
	Runtime   string  `gorm:"column:runtime"`
}

func (jobEntity) TableName() string {
	return jobsTable
}

// summaryEntity receives one row of the session/status aggregation.
type summaryEntity struct {
	ID          int64  `gorm:"column:id"`
	Name        string `gorm:"column:name"`
	ConfigGroup string `gorm:"column:config_group"`
	WhereClause string `gorm:"column:where_clause"`
	Date        string `gorm:"column:date"`
	Status      string `gorm:"column:status"`
	Count       int64  `gorm:"column:job_count"`
}

const (
	sessionsTable = "sessions"
	jobsTable     = "jobs"
	stagingInfix  = "__staging_"
)
