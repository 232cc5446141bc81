package statusnotification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	awsclient "accelerator-admin/internal/common/aws"
	"accelerator-admin/internal/common/errors"
	"accelerator-admin/internal/common/logger"
	"accelerator-admin/internal/common/metrics"
	"accelerator-admin/internal/common/validation"
	"accelerator-admin/internal/models"
	"accelerator-admin/internal/notify"
)

const (
	TaskType = "send-status-notification"
)

// JobRecorder receives the outcome of every handled job.
type JobRecorder interface {
	RecordJob(ctx context.Context, taskType, status string, duration time.Duration)
}

type Handler struct {
	config       *Config
	mailer       *notify.Mailer
	snsClient    awsclient.SNSService
	errorHandler *errors.ErrorHandler
	recorder     JobRecorder
	logger       logger.Logger
	now          func() time.Time
}

func NewHandler(config *Config, ses awsclient.SESService, sns awsclient.SNSService, recorder JobRecorder, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		mailer:       notify.NewMailer(ses, config.FromEmail, config.EmailEnabled),
		snsClient:    sns,
		errorHandler: errors.NewErrorHandler(log),
		recorder:     recorder,
		logger:       log,
		now:          time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, start, errors.NewInvalidArgumentError("variables", fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, start, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.fail(ctx, client, job, start, err)
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error":  err.Error(),
			"jobKey": job.Key,
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.record(ctx, "completed", start)
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, start time.Time, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.KindOf(err))).Inc()
	h.record(ctx, "failed", start)
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) record(ctx context.Context, status string, start time.Time) {
	if h.recorder != nil {
		h.recorder.RecordJob(ctx, TaskType, status, time.Since(start))
	}
}

// execute mails the applicant and, when SMS is enabled and the record has a
// usable number, texts them. A failed email fails the job so it is retried;
// a failed SMS after a delivered email does not, since a retry would mail
// the applicant twice.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.RecordID) == "" {
		return nil, errors.NewInvalidArgumentError("recordId", "record id is required")
	}
	status, ok := models.ParseStatus(string(input.Status))
	if !ok {
		return nil, errors.NewInvalidArgumentError("status", "unknown status "+string(input.Status))
	}
	input.Status = status
	if input.NotificationID == "" {
		input.NotificationID = uuid.New().String()
	}

	emailStatus, err := h.mailer.Send(ctx, *input)
	metrics.NotificationsDispatched.WithLabelValues("email", emailStatus).Inc()
	if err != nil {
		return nil, err
	}

	smsStatus := h.sendSMS(ctx, input)
	metrics.NotificationsDispatched.WithLabelValues("sms", smsStatus).Inc()

	out := &Output{
		NotificationID: input.NotificationID,
		Status:         overallStatus(emailStatus, smsStatus),
		EmailStatus:    emailStatus,
		SMSStatus:      smsStatus,
		SentAt:         h.now().UTC().Format(time.RFC3339),
	}

	h.logger.Info("status notification processed", map[string]interface{}{
		"notificationId": out.NotificationID,
		"recordId":       input.RecordID,
		"email":          emailStatus,
		"sms":            smsStatus,
	})
	return out, nil
}

func (h *Handler) sendSMS(ctx context.Context, input *Input) string {
	phone := strings.TrimSpace(input.Phone)
	if !h.config.SMSEnabled || h.snsClient == nil || phone == "" {
		return models.NotificationDisabled
	}
	if !validation.ValidateE164(phone) {
		h.logger.Warn("skipping SMS to non E.164 number", map[string]interface{}{
			"recordId": input.RecordID,
		})
		return models.NotificationDisabled
	}

	if _, err := h.snsClient.Publish(ctx, awsclient.SMSInput(phone, smsMessage(input), h.config.SMSSenderID)); err != nil {
		h.logger.Error("SMS send failed", map[string]interface{}{
			"error":    err.Error(),
			"recordId": input.RecordID,
		})
		return models.NotificationFailed
	}
	return models.NotificationSent
}

func smsMessage(input *Input) string {
	name := input.DisplayName
	if name == "" {
		name = "your application"
	}
	return fmt.Sprintf("Update on %s (%s application): status is now %s. Check your email for details.",
		name, input.SourceType, input.Status)
}

func overallStatus(results ...string) string {
	status := models.NotificationDisabled
	for _, r := range results {
		switch r {
		case models.NotificationSent:
			status = models.NotificationSent
		case models.NotificationFailed:
			if status != models.NotificationSent {
				status = models.NotificationFailed
			}
		}
	}
	return status
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
