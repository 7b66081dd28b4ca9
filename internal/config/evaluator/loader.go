package evaluator_config

import (
	common "github.com/NordCoder/Ratewatch/internal/config/common"
)

func Load(path string) (*Config, error) {
	v := common.NewViper(path)
	common.SetSharedDefaults(v, "evaluator")

	v.SetDefault("kafka.brokers", []string{"localhost:9094"})
	v.SetDefault("kafka.topic", "ratewatch.alerts.fired")

	v.SetDefault("eval.tick", "1m")
	v.SetDefault("eval.lock_key", 7_420_001)
	v.SetDefault("eval.metrics_addr", ":8082")

	v.SetDefault("outbox.workers", 1)
	v.SetDefault("outbox.batch_size", 50)
	v.SetDefault("outbox.wait", "1s")
	v.SetDefault("outbox.in_progress_ttl", "30s")

	v.SetDefault("quotes.base_url", "https://economia.awesomeapi.com.br")
	v.SetDefault("quotes.quote_currency", "BRL")

	v.SetDefault("http.timeout", "10s")
	v.SetDefault("http.user_agent", "ratewatch-evaluator/1.0")
	v.SetDefault("http.follow_redirects", false)
	v.SetDefault("http.verify_tls", true)

	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("webhook.concurrency", 16)
	v.SetDefault("webhook.user_agent", "ratewatch-webhooks/1.0")

	v.SetDefault("markup.default_percent", 1.0)
	v.SetDefault("markup.rates", map[string]float64{})

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Eval.Tick <= 0 {
		return nil, common.ErrConfig("eval.tick must be positive")
	}
	if cfg.Quotes.BaseURL == "" {
		return nil, common.ErrConfig("quotes.base_url is empty")
	}
	return &cfg, nil
}
