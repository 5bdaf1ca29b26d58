package adminapi

import "github.com/go-playground/validator/v10"

// ServeConfig is the validated shape of cmd/rspstubd's `serve` command
// flags/config file, per SPEC_FULL.md §4.12: listen addresses, packet
// buffer size, and the demo target's RAM size are checked before anything
// is wired up, rather than failing lazily mid-dial.
type ServeConfig struct {
	RSPAddr          string `mapstructure:"rsp_addr"           validate:"required,hostname_port"`
	AdminAddr        string `mapstructure:"admin_addr"         validate:"omitempty,hostname_port"`
	PacketBufferSize int    `mapstructure:"packet_buffer_size" validate:"gte=64,lte=1048576"`
	DemoRAMSize      int    `mapstructure:"demo_ram_size"      validate:"gte=4096"`
	JWTSecret        string `mapstructure:"jwt_secret"         validate:"omitempty,min=16"`
	QUIC             bool   `mapstructure:"quic"`
	ImagePath        string `mapstructure:"image_path"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg and returns validator's aggregated field errors, if
// any.
func Validate(cfg ServeConfig) error {
	return validate.Struct(cfg)
}
