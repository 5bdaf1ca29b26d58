package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "rspstubd",
	Short: "A GDB Remote Serial Protocol stub daemon",
	Long: `rspstubd serves the GDB Remote Serial Protocol (the wire format
gdbserver and qemu's -gdb stub speak) against an in-memory demo target,
alongside a small admin HTTP surface for health checks and session
listing.

Configuration can come from a file (--config), environment variables
prefixed RSPSTUBD_, or flags; flags take precedence.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./rspstubd.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("rspstubd")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("RSPSTUBD")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			fmt.Fprintln(os.Stderr, "warning: reading config file:", err)
		}
	}
}

func setDefaults() {
	viper.SetDefault("rsp_addr", ":9000")
	viper.SetDefault("admin_addr", ":9001")
	viper.SetDefault("packet_buffer_size", 4096)
	viper.SetDefault("demo_ram_size", 1<<20)
	viper.SetDefault("jwt_secret", "")
	viper.SetDefault("quic", false)
	viper.SetDefault("image_path", "")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
}
