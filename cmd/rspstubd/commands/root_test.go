package commands

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestSetDefaultsPopulatesExpectedKeys(t *testing.T) {
	viper.Reset()
	setDefaults()

	require.Equal(t, ":9000", viper.GetString("rsp_addr"))
	require.Equal(t, ":9001", viper.GetString("admin_addr"))
	require.Equal(t, 4096, viper.GetInt("packet_buffer_size"))
	require.Equal(t, 1<<20, viper.GetInt("demo_ram_size"))
	require.Equal(t, "", viper.GetString("jwt_secret"))
	require.False(t, viper.GetBool("quic"))
	require.Equal(t, "", viper.GetString("image_path"))
	require.Equal(t, "info", viper.GetString("log_level"))
	require.Equal(t, "text", viper.GetString("log_format"))
}
