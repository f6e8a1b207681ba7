// Package scheduler runs the recurring background jobs
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ashish-0314/Traffic-Management/databases"
	"github.com/ashish-0314/Traffic-Management/models"
)

const (
	// fines unpaid for longer than this get a reminder
	reminderAge = 7 * 24 * time.Hour
	jobTimeout  = 2 * time.Minute
)

// Scheduler owns the cron runner and the stores its jobs touch
type Scheduler struct {
	cron       *cron.Cron
	instanceID string

	fines         databases.FineDatabase
	notifications databases.NotificationDatabase
}

// New builds a scheduler with all jobs registered but not yet running
func New(fines databases.FineDatabase, notifications databases.NotificationDatabase) (*Scheduler, error) {
	s := &Scheduler{
		cron:          cron.New(cron.WithLocation(time.UTC)),
		instanceID:    uuid.NewString(),
		fines:         fines,
		notifications: notifications,
	}

	// daily 09:00 UTC
	if _, err := s.cron.AddFunc("0 9 * * *", s.remindUnpaidFines); err != nil {
		return nil, fmt.Errorf("failed to register unpaid fine reminder: %w", err)
	}

	return s, nil
}

// Start begins running jobs on their schedules
func (s *Scheduler) Start() {
	s.cron.Start()
	zap.S().Infow("scheduler started", "instanceId", s.instanceID)
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	zap.S().Infow("scheduler stopped", "instanceId", s.instanceID)
}

// remindUnpaidFines sends one reminder notification per user holding fines
// that have sat unpaid for over a week. Reminders are batched per user so a
// driver with three overdue fines gets one message, not three.
func (s *Scheduler) remindUnpaidFines() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	cutoff := primitive.NewDateTimeFromTime(time.Now().Add(-reminderAge))
	fines, err := s.fines.Find(ctx, bson.M{
		"fine.status": models.FineStatusUnpaid,
		"fine.date":   bson.M{"$lte": cutoff},
	})
	if err != nil {
		zap.S().Errorw("unpaid fine reminder query failed", "error", err)
		return
	}
	if len(fines) == 0 {
		return
	}

	type overdue struct {
		count int
		total float64
	}
	byUser := make(map[primitive.ObjectID]overdue)
	for _, fine := range fines {
		o := byUser[fine.Details.User]
		o.count++
		o.total += fine.Details.Amount
		byUser[fine.Details.User] = o
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	notifications := make([]models.Notification, 0, len(byUser))
	for userID, o := range byUser {
		message := fmt.Sprintf("Reminder: you have %d unpaid fine(s) totalling ₹%.2f. Please pay at your earliest convenience.", o.count, o.total)
		notifications = append(notifications, models.Notification{
			ID: primitive.NewObjectID(),
			Details: models.NotificationDetails{
				User:      userID,
				Type:      models.NotificationTypeSystem,
				Message:   message,
				CreatedAt: now,
			},
		})
	}

	if _, err := s.notifications.InsertMany(ctx, notifications); err != nil {
		zap.S().Errorw("failed to insert fine reminders", "error", err, "count", len(notifications))
		return
	}

	zap.S().Infow("unpaid fine reminders sent",
		"users", len(notifications),
		"fines", len(fines),
	)
}
