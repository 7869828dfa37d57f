package config

import (
	"os"
)

type TextractConfig struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
}

// Configured reports whether static credentials were provided
func (c TextractConfig) Configured() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

func applyTextractEnv(c *TextractConfig) {
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY"); v != "" {
		c.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_KEY"); v != "" {
		c.SecretKey = v
	}
}
