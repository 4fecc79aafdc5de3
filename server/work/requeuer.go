package work

import (
	"errors"
	"fmt"
	"time"

	"github.com/Daskott/safepoint/colors"
	"github.com/Daskott/safepoint/server/models"
	"gorm.io/gorm"
)

// STUCK_JOB_MINUTES is how long a job can stay in-progress before it's requeued
const STUCK_JOB_MINUTES = 10

type requeuer struct {
	stuckAfterMinutes uint
	stopChan          chan struct{}
}

func newRequeuer(stuckAfterMinutes uint) *requeuer {
	return &requeuer{
		stuckAfterMinutes: stuckAfterMinutes,
		stopChan:          make(chan struct{}),
	}
}

// start starts the requeuer loop that pulls jobs from 'in-progress'
// that are stuck(i.e stayed too long in-progress) and requeue them
func (r *requeuer) start() {
	go r.loop()
}

func (r *requeuer) stop() {
	r.stopChan <- struct{}{}
}

func (r *requeuer) loop() {
	var job *models.Job
	var err error

	// At some point we may need an expnential back-off,
	// but for now keep it simple
	sleepBackOff := 30
	rateLimiter := time.NewTicker(DefaultTickerDuration)
	defer rateLimiter.Stop()

	logg.Infof("Starting %s job requeuer", models.IN_PROGRESS_JOB)
	for {
		select {
		case <-r.stopChan:
			logg.Infof("Stopping %s job requeuer", models.IN_PROGRESS_JOB)
			return
		case <-rateLimiter.C:
			job, err = models.LastJobLastUpdated(r.stuckAfterMinutes, models.IN_PROGRESS_JOB)

			// If no job found, sleep for 'sleepBackOff' seconds
			if errors.Is(err, gorm.ErrRecordNotFound) {
				rateLimiter.Reset(time.Duration(sleepBackOff) * time.Second)
				continue
			}

			if err != nil {
				r.logError(err)
				rateLimiter.Reset(TickerDurationOnError)
				continue
			}

			r.logInfof("fetched stuck job with id=%v, status_id=%v, job.claimed=%v",
				job.ID, job.JobStatusID, job.Claimed)

			r.requeue(job)
			rateLimiter.Reset(DefaultTickerDuration)
		}
	}
}

func (r *requeuer) requeue(job *models.Job) {
	jobStatus, err := models.FindJobStatus(models.ENQUEUED_JOB)
	if err != nil {
		r.logError(err)
		return
	}

	err = job.Update(map[string]interface{}{
		"claimed":       false,
		"job_status_id": jobStatus.ID,
		"enqueued_at":   time.Now(),
	})
	if err != nil {
		r.logError(err)
		return
	}

	r.logInfof("job with id=%v requeued", job.ID)
}

func (r *requeuer) logInfof(template string, args ...interface{}) {
	prefix := colors.Yellow(fmt.Sprintf("[%s job requeuer] ", models.IN_PROGRESS_JOB))
	logg.Infof(prefix+template, args...)
}

func (r *requeuer) logError(args ...interface{}) {
	prefix := colors.Red(fmt.Sprintf("[%s job requeuer] ", models.IN_PROGRESS_JOB))
	logg.Error(prefix, fmt.Sprint(args...))
}
