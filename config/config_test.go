package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvDefaults(t *testing.T) {
	t.Setenv("FEED_TRANSPORT", "local")
	var s Settings
	require.NoError(t, ParseEnv(&s))
	assert.Equal(t, "8002", s.Port)
	assert.Equal(t, 60*time.Minute, s.UpcomingWindow)
	assert.Equal(t, []string{"test", "demo"}, s.DemoIdentifiers)
	assert.Equal(t, 5*time.Minute, s.OrphanRepairEvery)
	assert.NoError(t, s.Validate())
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("DB_PORT", "6543")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DEMO_IDENTIFIERS", " Test , ,DEMO")
	t.Setenv("UPCOMING_WINDOW", "45m")

	var s Settings
	require.NoError(t, ParseEnv(&s))
	assert.Equal(t, uint(6543), s.DBPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, s.KafkaBrokers)
	assert.Equal(t, []string{"test", "demo"}, s.NormalizedDemoIdentifiers())
	assert.Equal(t, 45*time.Minute, s.UpcomingWindow)
	assert.Contains(t, s.PostgresURL(), "@localhost:6543/")
}

func TestParseEnvRejectsBadValues(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")
	var s Settings
	assert.Error(t, ParseEnv(&s))
}

func TestValidate(t *testing.T) {
	s := Settings{FeedTransport: "carrier-pigeon", UpcomingWindow: time.Hour}
	assert.Error(t, s.Validate())

	s = Settings{FeedTransport: "redis", UpcomingWindow: time.Hour, DemoMode: true}
	assert.Error(t, s.Validate())

	s.DemoIdentifiers = []string{"demo"}
	assert.NoError(t, s.Validate())
}

func TestLocation(t *testing.T) {
	loc, err := Settings{Timezone: "UTC"}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}
