package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				// Verify some key fields are populated
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "reportq", cfg.Database.Database)
				assert.Equal(t, "http", cfg.Trigger.Mode)
				assert.Equal(t, "job_wake", cfg.RabbitMQ.Queue)
				assert.Equal(t, "http://localhost:9090/v1/generate", cfg.Generation.Endpoint)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "reportq",
		},
		RabbitMQ: RabbitMQConfig{
			Host:  "localhost",
			Port:  5672,
			Queue: "job_wake",
		},
		Trigger: TriggerConfig{
			Mode: "http",
			URL:  "http://localhost:8082/api/v1/trigger",
		},
		Worker: WorkerConfig{
			JobTimeout: 2 * time.Minute,
		},
		Generation: GenerationConfig{
			Endpoint: "http://localhost:9090/v1/generate",
		},
	}
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "invalid server port - too low",
			mutate: func(c *Config) {
				c.Server.Port = 0
			},
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name: "invalid server port - too high",
			mutate: func(c *Config) {
				c.Server.Port = 70000
			},
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name: "empty database host",
			mutate: func(c *Config) {
				c.Database.Host = ""
			},
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name: "empty database name",
			mutate: func(c *Config) {
				c.Database.Database = ""
			},
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name: "http trigger mode without url",
			mutate: func(c *Config) {
				c.Trigger.Mode = "http"
				c.Trigger.URL = ""
			},
			wantErr:   true,
			errString: "trigger url is required",
		},
		{
			name: "amqp trigger mode requires rabbitmq",
			mutate: func(c *Config) {
				c.Trigger.Mode = "amqp"
				c.RabbitMQ.Host = ""
			},
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name: "amqp trigger mode with empty queue",
			mutate: func(c *Config) {
				c.Trigger.Mode = "amqp"
				c.RabbitMQ.Queue = ""
			},
			wantErr:   true,
			errString: "rabbitmq queue name is required",
		},
		{
			name: "unknown trigger mode",
			mutate: func(c *Config) {
				c.Trigger.Mode = "carrier-pigeon"
			},
			wantErr:   true,
			errString: "invalid trigger mode",
		},
		{
			name: "trigger mode none needs no wake transport",
			mutate: func(c *Config) {
				c.Trigger.Mode = "none"
				c.Trigger.URL = ""
				c.RabbitMQ = RabbitMQConfig{}
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name: "missing generation endpoint",
			mutate: func(c *Config) {
				c.Generation.Endpoint = ""
			},
			wantErr:   true,
			errString: "generation endpoint is required",
		},
		{
			name: "zero job timeout",
			mutate: func(c *Config) {
				c.Worker.JobTimeout = 0
			},
			wantErr:   true,
			errString: "job_timeout must be greater than 0",
		},
		{
			name: "rabbitmq disabled skips validation",
			mutate: func(c *Config) {
				c.RabbitMQ = RabbitMQConfig{Enabled: false}
			},
			wantErr: false,
		},
		{
			name: "rabbitmq enabled validates broker settings",
			mutate: func(c *Config) {
				c.RabbitMQ.Enabled = true
				c.RabbitMQ.Host = ""
			},
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateTriggerConfig(t *testing.T) {
	t.Run("only the server section is required", func(t *testing.T) {
		cfg := &Config{Server: ServerConfig{Port: 8082}}
		require.NoError(t, cfg.ValidateTriggerConfig())
	})

	t.Run("missing wake url is not a startup failure", func(t *testing.T) {
		cfg := &Config{Server: ServerConfig{Port: 8082}}
		cfg.Trigger.WakeURL = ""
		require.NoError(t, cfg.ValidateTriggerConfig())
	})

	t.Run("invalid port rejected", func(t *testing.T) {
		cfg := &Config{Server: ServerConfig{Port: 0}}
		err := cfg.ValidateTriggerConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		require.NoError(t, cfg.ValidateAPIConfig())
		require.NoError(t, cfg.ValidateWorkerConfig())
		require.NoError(t, cfg.ValidateTriggerConfig())
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}
