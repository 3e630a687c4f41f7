// Package jobs turns fire-and-forget Biome jobs into user-visible notifications.
//
// A Poller watches one job until it leaves the queued/started states and then
// pushes exactly one job_response notification. A Registry owns the
// goroutines running pollers so the session can list, await or cancel them.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/petasbytes/biome-agent/internal/biome"
	"github.com/petasbytes/biome-agent/internal/notify"
	"github.com/petasbytes/biome-agent/internal/telemetry"
	"github.com/sirupsen/logrus"
)

// DefaultInterval is the wait between two status checks.
const DefaultInterval = time.Second

// Kind names the remote job type; it only affects labels and messages.
type Kind string

const (
	KindQuery Kind = "query"
	KindScan  Kind = "scan"
)

// Outcome is how a poll ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeError     Outcome = "error"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeCanceled  Outcome = "canceled"
)

// Formatter renders the result payload of a finished job.
type Formatter func(result json.RawMessage) (string, error)

// StatusChecker is the part of the Biome client a poller needs.
type StatusChecker interface {
	JobStatus(ctx context.Context, jobID string) (biome.Job, error)
}

type Poller struct {
	Client   StatusChecker
	Channel  notify.Channel
	Interval time.Duration
	// Timeout bounds the whole poll; zero waits as long as the job runs.
	Timeout time.Duration
	Metrics *Metrics
	Log     logrus.FieldLogger
}

// Poll checks jobID until its status is neither queued nor started, then
// pushes one notification: format(result) on finished, a failure message on
// anything else. Status-check errors are not retried.
func (p *Poller) Poll(ctx context.Context, jobID string, kind Kind, format Formatter) Outcome {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	log := p.logger().WithFields(logrus.Fields{"job_id": jobID, "kind": kind})

	var (
		job   biome.Job
		err   error
		timer *time.Timer
	)
	for {
		job, err = p.Client.JobStatus(ctx, jobID)
		if p.Metrics != nil {
			p.Metrics.Polls.Inc()
		}
		if err != nil {
			if ctx.Err() != nil {
				return p.interrupted(ctx, log, jobID, kind, job.Status)
			}
			log.WithError(err).Warn("job status check failed")
			return p.fail(log, jobID, kind, job.Status, OutcomeError, fmt.Sprintf("status check failed: %v", err))
		}
		log.WithField("status", job.Status).Debug("job polled")
		if !job.Status.Pending() {
			break
		}

		if timer == nil {
			timer = time.NewTimer(interval)
			defer timer.Stop()
		} else {
			timer.Reset(interval)
		}
		select {
		case <-ctx.Done():
			return p.interrupted(ctx, log, jobID, kind, job.Status)
		case <-timer.C:
		}
	}

	if job.Status != biome.JobFinished {
		return p.fail(log, jobID, kind, job.Status, OutcomeFailed, "")
	}
	text, err := format(job.Result)
	if err != nil {
		log.WithError(err).Warn("job result could not be rendered")
		return p.fail(log, jobID, kind, job.Status, OutcomeError, fmt.Sprintf("unreadable result: %v", err))
	}
	p.push(log, jobID, kind, job.Status, text)
	log.Info("job finished")
	return OutcomeSucceeded
}

func (p *Poller) interrupted(ctx context.Context, log logrus.FieldLogger, jobID string, kind Kind, last biome.JobStatus) Outcome {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return p.fail(log, jobID, kind, last, OutcomeTimeout, "gave up waiting for the job")
	}
	return p.fail(log, jobID, kind, last, OutcomeCanceled, "stopped waiting for the job")
}

func (p *Poller) fail(log logrus.FieldLogger, jobID string, kind Kind, status biome.JobStatus, outcome Outcome, reason string) Outcome {
	p.push(log, jobID, kind, status, FailureMessage(jobID, status, reason))
	log.WithFields(logrus.Fields{"status": status, "outcome": outcome}).Info("job did not succeed")
	return outcome
}

func (p *Poller) push(log logrus.FieldLogger, jobID string, kind Kind, status biome.JobStatus, text string) {
	payload := map[string]any{
		"job_id":   jobID,
		"kind":     string(kind),
		"status":   string(status),
		"response": text,
	}
	if err := p.Channel.Push(notify.ChannelIOPub, notify.TopicJobResponse, payload); err != nil {
		log.WithError(err).Error("job notification not delivered")
	}
}

func (p *Poller) logger() logrus.FieldLogger {
	if p.Log != nil {
		return p.Log
	}
	return telemetry.Log()
}

// FailureMessage is the text pushed for a job that did not finish successfully.
func FailureMessage(jobID string, status biome.JobStatus, reason string) string {
	msg := fmt.Sprintf("# JOB %s FAILED", jobID)
	if status != "" {
		msg += fmt.Sprintf("\n\nStatus: %s", status)
	}
	if reason != "" {
		msg += fmt.Sprintf("\n\nReason: %s", reason)
	}
	return msg
}
