package adminapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() ServeConfig {
	return ServeConfig{
		RSPAddr:          "0.0.0.0:9000",
		AdminAddr:        "0.0.0.0:9001",
		PacketBufferSize: 4096,
		DemoRAMSize:      1 << 20,
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestValidateRejectsMissingRSPAddr(t *testing.T) {
	cfg := validConfig()
	cfg.RSPAddr = ""

	require.Error(t, Validate(cfg))
}

func TestValidateRejectsUndersizedPacketBuffer(t *testing.T) {
	cfg := validConfig()
	cfg.PacketBufferSize = 10

	require.Error(t, Validate(cfg))
}

func TestValidateRejectsTinyJWTSecret(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = "short"

	require.Error(t, Validate(cfg))
}

func TestValidateAllowsEmptyJWTSecret(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = ""

	require.NoError(t, Validate(cfg))
}

func TestValidateAllowsOmittedAdminAddr(t *testing.T) {
	cfg := validConfig()
	cfg.AdminAddr = ""

	require.NoError(t, Validate(cfg))
}
