package email_notifier_config

import (
	common "github.com/NordCoder/Ratewatch/internal/config/common"
)

func Load(path string) (*Config, error) {
	v := common.NewViper(path)
	common.SetSharedDefaults(v, "email-notifier")

	v.SetDefault("kafka_in.brokers", []string{"localhost:9094"})
	v.SetDefault("kafka_in.topic", "ratewatch.alerts.fired")
	v.SetDefault("kafka_in.group_id", "email-notifier")
	v.SetDefault("kafka_in.from_beginning", false)

	v.SetDefault("smtp.addr", "localhost:1025")
	v.SetDefault("smtp.from", "noreply@ratewatch.dev")
	v.SetDefault("smtp.use_tls", false)
	v.SetDefault("smtp.timeout", "5s")
	v.SetDefault("smtp.subj_prefix", "[Ratewatch]")

	v.SetDefault("server.metrics_addr", ":8084")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.In.Brokers) == 0 {
		return nil, common.ErrConfig("kafka_in.brokers is empty")
	}
	return &cfg, nil
}
