package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(overrides map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(newTestViper(nil))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "local", cfg.StorageDriver)
	assert.Equal(t, 30*time.Second, cfg.ServerTimeout)
	assert.Equal(t, 60*time.Minute, cfg.DBConnMaxLifetime)
	assert.Equal(t, 24*time.Hour, cfg.MessageReapGrace)
	assert.Equal(t, time.Minute, cfg.RealtimeTicketTTL)
	assert.True(t, cfg.ClaimProofCopyAdmins)
	assert.Equal(t, "@hourly", cfg.MessageReapJobSchedule)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Empty(t, cfg.AdminEmails)
}

func TestFromViper_AdminEmails(t *testing.T) {
	cfg, err := fromViper(newTestViper(map[string]interface{}{
		"ADMIN_EMAILS": " Admin@Example.com , ops@example.com,,",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"Admin@Example.com", "ops@example.com"}, cfg.AdminEmails)
	assert.True(t, cfg.IsAdminEmail("admin@example.com"))
	assert.True(t, cfg.IsAdminEmail("OPS@example.com"))
	assert.False(t, cfg.IsAdminEmail("someone@example.com"))
	assert.False(t, cfg.IsAdminEmail(""))
}

func TestFromViper_RejectsUnknownDBDriver(t *testing.T) {
	_, err := fromViper(newTestViper(map[string]interface{}{"DB_DRIVER": "oracle"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
}

func TestFromViper_MySQLDriverAccepted(t *testing.T) {
	cfg, err := fromViper(newTestViper(map[string]interface{}{"DB_DRIVER": "MySQL"}))
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.DBDriver)
}

func TestFromViper_CloudinaryRequiresCredentials(t *testing.T) {
	_, err := fromViper(newTestViper(map[string]interface{}{"STORAGE_DRIVER": "cloudinary"}))
	require.Error(t, err)

	cfg, err := fromViper(newTestViper(map[string]interface{}{
		"STORAGE_DRIVER":        "cloudinary",
		"CLOUDINARY_CLOUD_NAME": "demo",
		"CLOUDINARY_API_KEY":    "key",
		"CLOUDINARY_API_SECRET": "secret",
	}))
	require.NoError(t, err)
	assert.Equal(t, "cloudinary", cfg.StorageDriver)
}
