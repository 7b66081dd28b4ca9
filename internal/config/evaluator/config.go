package evaluator_config

import (
	"time"

	common "github.com/NordCoder/Ratewatch/internal/config/common"
	"github.com/NordCoder/Ratewatch/internal/httpx"
	"github.com/NordCoder/Ratewatch/internal/markup"
	pginfra "github.com/NordCoder/Ratewatch/internal/repository/postgres"
	"github.com/NordCoder/Ratewatch/internal/repository/quotes"
	"github.com/NordCoder/Ratewatch/internal/webhook"
)

type KafkaCfg struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type EvalCfg struct {
	Tick        time.Duration `mapstructure:"tick"`
	LockKey     int64         `mapstructure:"lock_key"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
}

type OutboxCfg struct {
	Workers       int           `mapstructure:"workers"`
	BatchSize     int           `mapstructure:"batch_size"`
	Wait          time.Duration `mapstructure:"wait"`
	InProgressTTL time.Duration `mapstructure:"in_progress_ttl"`
}

type MarkupCfg struct {
	DefaultPercent float64            `mapstructure:"default_percent"`
	Rates          map[string]float64 `mapstructure:"rates"`
}

func (m MarkupCfg) Table() markup.Table {
	return markup.NewTable(m.DefaultPercent, m.Rates)
}

type Config struct {
	App     common.App     `mapstructure:"app"`
	DB      pginfra.Config `mapstructure:"db"`
	Kafka   KafkaCfg       `mapstructure:"kafka"`
	Eval    EvalCfg        `mapstructure:"eval"`
	Outbox  OutboxCfg      `mapstructure:"outbox"`
	Quotes  quotes.Config  `mapstructure:"quotes"`
	HTTP    httpx.Config   `mapstructure:"http"`
	Webhook webhook.Config `mapstructure:"webhook"`
	Markup  MarkupCfg      `mapstructure:"markup"`
	OTEL    common.OTEL    `mapstructure:"otel"`
	Log     common.Log     `mapstructure:"log"`
}
