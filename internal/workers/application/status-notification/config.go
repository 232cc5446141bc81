package statusnotification

import (
	"time"

	"accelerator-admin/internal/common/config"
)

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	SMSSenderID  string
	Timeout      time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{Timeout: 30 * time.Second}
	if cfg == nil {
		return c
	}
	aws := cfg.Integrations.AWS
	c.EmailEnabled = aws.SES.Enabled
	c.FromEmail = aws.SES.FromEmail
	c.SMSEnabled = aws.SNS.Enabled
	c.SMSSenderID = aws.SNS.DefaultSMSSenderID
	if wc := config.GetWorkerConfig(cfg, TaskType); wc.Timeout > 0 {
		c.Timeout = config.GetDuration(wc.Timeout)
	}
	return c
}
