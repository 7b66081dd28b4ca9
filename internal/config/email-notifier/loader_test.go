package email_notifier_config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "ratewatch.alerts.fired", cfg.In.Topic)
	assert.Equal(t, "email-notifier", cfg.In.GroupID)
	assert.Equal(t, 5*time.Second, cfg.SMTP.Timeout)
	assert.Equal(t, "email-notifier", cfg.App.Name)

	cc := cfg.In.AsConsumerConfig()
	assert.Equal(t, cfg.In.Brokers, cc.Brokers)
	assert.False(t, cc.FromBeginning)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifier.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
kafka_in:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
  from_beginning: true
smtp:
  addr: smtp.example.com:465
  use_tls: true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.In.Brokers)
	assert.True(t, cfg.In.FromBeginning)
	assert.True(t, cfg.SMTP.UseTLS)
	assert.Equal(t, "smtp.example.com:465", cfg.SMTP.Addr)
}
