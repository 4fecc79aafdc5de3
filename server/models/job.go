package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrDuplicateJob = errors.New("job with the given name already exists in queue")

type Job struct {
	BaseModel
	Fails       int        `json:"fails"`
	Name        string     `json:"name" gorm:"index"`
	Handler     string     `json:"handler"`
	Args        string     `json:"args"`
	LastError   string     `json:"last_error"`
	Claimed     bool       `json:"claimed" gorm:"default:false"`
	EnqueuedAt  time.Time  `json:"enqueued_at"`
	JobStatusID uint       `json:"job_status_id"`
	JobStatus   *JobStatus `json:"status,omitempty"`
}

// MarkAsClaimed claims an unclaimed job & moves it to 'in-progress'.
// It returns false if another worker got to the job first.
func (job *Job) MarkAsClaimed() (bool, error) {
	inProgressStatus, err := FindJobStatus(IN_PROGRESS_JOB)
	if err != nil {
		return false, err
	}

	res := db.Model(&Job{}).Where("id = ? AND claimed = ?", job.ID, false).Updates(map[string]interface{}{
		"claimed":       true,
		"job_status_id": inProgressStatus.ID,
		"updated_at":    time.Now(),
	})

	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

func (job *Job) Update(data map[string]interface{}) error {
	data["updated_at"] = time.Now()
	return db.Model(&Job{}).Where("id = ?", job.ID).Updates(data).Error
}

// CreateUniqueJobByName enqueues a job unless one with the same name is
// already in one of 'uniqueWithin' statuses, in which case ErrDuplicateJob is returned.
// With no statuses given, jobs are unique across enqueued & in-progress.
func CreateUniqueJobByName(name string, handler string, args string, uniqueWithin ...string) error {
	if len(uniqueWithin) == 0 {
		uniqueWithin = []string{ENQUEUED_JOB, IN_PROGRESS_JOB}
	}

	enqueuedJobStatus, err := FindJobStatus(ENQUEUED_JOB)
	if err != nil {
		return err
	}

	statusIDs := []uint{}
	err = db.Model(&JobStatus{}).Where("name IN ?", uniqueWithin).Pluck("id", &statusIDs).Error
	if err != nil {
		return err
	}

	if len(statusIDs) != len(uniqueWithin) {
		return errors.New("job statuses have not been seeded")
	}

	results := db.Where("name = ? AND job_status_id IN ?", name, statusIDs).Limit(1).Find(&[]Job{})
	if results.Error != nil {
		return results.Error
	}

	if results.RowsAffected > 0 {
		return ErrDuplicateJob
	}

	return db.Create(&Job{
		Name:        name,
		Handler:     handler,
		Args:        args,
		EnqueuedAt:  time.Now(),
		JobStatusID: enqueuedJobStatus.ID,
	}).Error
}

// NextJob returns the oldest job with 'status' & 'claimed'
func NextJob(status string, claimed bool) (*Job, error) {
	jobStatus, err := FindJobStatus(status)
	if err != nil {
		return nil, err
	}

	job := Job{}
	err = db.Where("job_status_id = ? AND claimed = ?", jobStatus.ID, claimed).
		Order("enqueued_at asc").Order("id asc").First(&job).Error
	if err != nil {
		return nil, err
	}

	return &job, nil
}

func FetchJobs(page int, status string) ([]Job, *Paging, error) {
	var total int64
	jobs := []Job{}

	query := func(tx *gorm.DB) *gorm.DB { return tx }
	if status != "" {
		jobStatus, err := FindJobStatus(status)
		if err != nil {
			return nil, nil, err
		}
		query = func(tx *gorm.DB) *gorm.DB { return tx.Where("job_status_id = ?", jobStatus.ID) }
	}

	err := db.Model(&Job{}).Scopes(query).Count(&total).Error
	if err != nil {
		return nil, nil, err
	}

	err = db.Scopes(query, paginate(page, MAX_PAGE_SIZE)).
		Preload("JobStatus").Order("id desc").Find(&jobs).Error
	if err != nil {
		return nil, nil, err
	}

	return jobs, newPaging(int64(page), MAX_PAGE_SIZE, total), nil
}

func CurrentJobsStats() (*JobsStats, error) {
	stats := JobsStats{}
	counts := map[string]*int64{
		ENQUEUED_JOB:    &stats.EnqueuedJobCount,
		IN_PROGRESS_JOB: &stats.InProgressJobCount,
		SUCCESSFUL_JOB:  &stats.SuccessfulJobCount,
		DEAD_JOB:        &stats.DeadJobCount,
	}

	for status, count := range counts {
		jobStatus, err := FindJobStatus(status)
		if err != nil {
			return nil, err
		}

		err = db.Model(&Job{}).Where("job_status_id = ?", jobStatus.ID).Count(count).Error
		if err != nil {
			return nil, err
		}
	}

	return &stats, nil
}

// LastJobLastUpdated returns the last job with 'status' which was last updated
// at least 'minutesAgo' minutes ago.
func LastJobLastUpdated(minutesAgo uint, status string) (*Job, error) {
	jobStatus, err := FindJobStatus(status)
	if err != nil {
		return nil, err
	}

	cutOff := time.Now().Add(-time.Duration(minutesAgo) * time.Minute)

	job := Job{}
	err = db.Where("job_status_id = ? AND updated_at <= ?", jobStatus.ID, cutOff).Last(&job).Error
	if err != nil {
		return nil, err
	}

	return &job, nil
}
