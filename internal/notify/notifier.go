package notify

import (
	"context"

	"accelerator-admin/internal/common/logger"
	"accelerator-admin/internal/common/metrics"
	"accelerator-admin/internal/models"
)

// Notifier hands a notification request to a delivery channel.
type Notifier interface {
	Notify(ctx context.Context, req models.NotificationRequest) error
}

// ProcessStarter starts a workflow instance; *camunda.Client implements it.
type ProcessStarter interface {
	StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error)
}

// WorkflowNotifier starts the notification process in Zeebe and lets the
// status-notification worker deliver it.
type WorkflowNotifier struct {
	starter   ProcessStarter
	processID string
	logger    logger.Logger
}

func NewWorkflowNotifier(starter ProcessStarter, processID string, log logger.Logger) *WorkflowNotifier {
	return &WorkflowNotifier{
		starter:   starter,
		processID: processID,
		logger:    log.WithFields(map[string]interface{}{"component": "workflow-notifier", "processId": processID}),
	}
}

func (n *WorkflowNotifier) Notify(ctx context.Context, req models.NotificationRequest) error {
	key, err := n.starter.StartProcess(ctx, n.processID, req)
	if err != nil {
		metrics.NotificationsDispatched.WithLabelValues("workflow", models.NotificationFailed).Inc()
		return err
	}

	metrics.NotificationsDispatched.WithLabelValues("workflow", models.NotificationSent).Inc()
	n.logger.Info("notification process started", map[string]interface{}{
		"notificationId":     req.NotificationID,
		"recordId":           req.RecordID,
		"processInstanceKey": key,
	})
	return nil
}

// DirectNotifier mails the applicant inline. Used when the workflow engine is
// disabled.
type DirectNotifier struct {
	mailer *Mailer
	logger logger.Logger
}

func NewDirectNotifier(mailer *Mailer, log logger.Logger) *DirectNotifier {
	return &DirectNotifier{
		mailer: mailer,
		logger: log.WithFields(map[string]interface{}{"component": "direct-notifier"}),
	}
}

func (n *DirectNotifier) Notify(ctx context.Context, req models.NotificationRequest) error {
	result, err := n.mailer.Send(ctx, req)
	metrics.NotificationsDispatched.WithLabelValues("email", result).Inc()
	if err != nil {
		return err
	}

	n.logger.Info("notification delivered", map[string]interface{}{
		"notificationId": req.NotificationID,
		"recordId":       req.RecordID,
		"result":         result,
	})
	return nil
}
