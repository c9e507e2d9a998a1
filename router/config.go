package router

import "time"

// Config holds the router settings that usually come from a config file.
type Config struct {
	Timeout         time.Duration `yaml:"timeout"`
	CORS            CORSConfig    `yaml:"cors"`
	QuietdownRoutes []string      `yaml:"quietdown_routes"`
	HideHeaders     []string      `yaml:"hide_headers"`
}

// CORSConfig lists the cross-origin requests the router answers. CORS
// handling is off while Origins is empty; "*" allows any origin.
type CORSConfig struct {
	Origins          []string `yaml:"origins"`
	Methods          []string `yaml:"methods"`
	Headers          []string `yaml:"headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}
