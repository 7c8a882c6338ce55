package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/hospital/config"
	ConfigFileName    = "hospital.yml"
)

// ValidAlgorithms is the list of JWT signing algorithms the server accepts.
var ValidAlgorithms = []string{"HS256", "HS384", "HS512"}

// HospitalConfig holds all server configuration settings.
type HospitalConfig struct {
	// SecretKey is the HMAC key used to sign access and refresh tokens
	SecretKey string `yaml:"secret_key" json:"-"`

	// Algorithm is the JWT signing algorithm (HS256 by default)
	Algorithm string `yaml:"algorithm" json:"algorithm"`

	// AccessTokenExpireMinutes is the access token TTL in minutes
	AccessTokenExpireMinutes int `yaml:"access_token_expire_minutes" json:"access_token_expire_minutes"`

	// RefreshTokenExpireDays is the refresh token TTL in days
	RefreshTokenExpireDays int `yaml:"refresh_token_expire_days" json:"refresh_token_expire_days"`

	// APIListLimitMax is the maximum page size for listing requests
	APIListLimitMax int `yaml:"api_list_limit_max" json:"api_list_limit_max"`

	// HospitalName is the display name used on rendered documents
	HospitalName string `yaml:"hospital_name" json:"hospital_name"`

	// PDFOutputPath is the directory where rendered PDFs are written
	PDFOutputPath string `yaml:"pdf_output_path" json:"pdf_output_path"`

	// SMTPHost and friends configure the outbound mailer. Mailing is
	// disabled when SMTPHost is empty.
	SMTPHost     string `yaml:"smtp_host" json:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port" json:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user" json:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password" json:"-"`

	// RedisAddr configures the recovery-code cache. Recovery endpoints
	// are disabled when RedisAddr is empty.
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"-"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source.
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *HospitalConfig
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary.
func Get() *HospitalConfig {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment.
func Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

func newDefault() *HospitalConfig {
	return &HospitalConfig{
		Algorithm:                "HS256",
		AccessTokenExpireMinutes: 30,
		RefreshTokenExpireDays:   7,
		APIListLimitMax:          1000,
		HospitalName:             "Hospital Digital",
		PDFOutputPath:            "./temp_pdfs",
		SMTPPort:                 587,
		sources:                  make(map[string]string),
	}
}

// Load loads configuration from file and environment variables.
// Environment variables take precedence over file values.
func Load() (*HospitalConfig, error) {
	config := newDefault()

	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}

	configPath := os.Getenv("HOSPITAL_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var fileConfig HospitalConfig
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&fileConfig)
	}

	config.applyEnvConfig()

	return config, nil
}

func attributeNames() []string {
	return []string{
		"secret_key", "algorithm", "access_token_expire_minutes",
		"refresh_token_expire_days", "api_list_limit_max", "hospital_name",
		"pdf_output_path", "smtp_host", "smtp_port", "smtp_user",
		"smtp_password", "redis_addr", "redis_password", "redis_db",
	}
}

func (c *HospitalConfig) applyFileConfig(file *HospitalConfig) {
	if file.SecretKey != "" {
		c.SecretKey = file.SecretKey
		c.sources["secret_key"] = "file"
	}
	if file.Algorithm != "" {
		c.Algorithm = file.Algorithm
		c.sources["algorithm"] = "file"
	}
	if file.AccessTokenExpireMinutes != 0 {
		c.AccessTokenExpireMinutes = file.AccessTokenExpireMinutes
		c.sources["access_token_expire_minutes"] = "file"
	}
	if file.RefreshTokenExpireDays != 0 {
		c.RefreshTokenExpireDays = file.RefreshTokenExpireDays
		c.sources["refresh_token_expire_days"] = "file"
	}
	if file.APIListLimitMax != 0 {
		c.APIListLimitMax = file.APIListLimitMax
		c.sources["api_list_limit_max"] = "file"
	}
	if file.HospitalName != "" {
		c.HospitalName = file.HospitalName
		c.sources["hospital_name"] = "file"
	}
	if file.PDFOutputPath != "" {
		c.PDFOutputPath = file.PDFOutputPath
		c.sources["pdf_output_path"] = "file"
	}
	if file.SMTPHost != "" {
		c.SMTPHost = file.SMTPHost
		c.sources["smtp_host"] = "file"
	}
	if file.SMTPPort != 0 {
		c.SMTPPort = file.SMTPPort
		c.sources["smtp_port"] = "file"
	}
	if file.SMTPUser != "" {
		c.SMTPUser = file.SMTPUser
		c.sources["smtp_user"] = "file"
	}
	if file.SMTPPassword != "" {
		c.SMTPPassword = file.SMTPPassword
		c.sources["smtp_password"] = "file"
	}
	if file.RedisAddr != "" {
		c.RedisAddr = file.RedisAddr
		c.sources["redis_addr"] = "file"
	}
	if file.RedisPassword != "" {
		c.RedisPassword = file.RedisPassword
		c.sources["redis_password"] = "file"
	}
	if file.RedisDB != 0 {
		c.RedisDB = file.RedisDB
		c.sources["redis_db"] = "file"
	}
}

func (c *HospitalConfig) applyEnvConfig() {
	if val := os.Getenv("SECRET_KEY"); val != "" {
		c.SecretKey = val
		c.sources["secret_key"] = "environment"
	}
	if val := os.Getenv("ALGORITHM"); val != "" {
		c.Algorithm = val
		c.sources["algorithm"] = "environment"
	}
	if val := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.AccessTokenExpireMinutes = i
			c.sources["access_token_expire_minutes"] = "environment"
		}
	}
	if val := os.Getenv("REFRESH_TOKEN_EXPIRE_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.RefreshTokenExpireDays = i
			c.sources["refresh_token_expire_days"] = "environment"
		}
	}
	if val := os.Getenv("API_LIST_LIMIT_MAX"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.APIListLimitMax = i
			c.sources["api_list_limit_max"] = "environment"
		}
	}
	if val := os.Getenv("HOSPITAL_NAME"); val != "" {
		c.HospitalName = val
		c.sources["hospital_name"] = "environment"
	}
	if val := os.Getenv("PDF_OUTPUT_PATH"); val != "" {
		c.PDFOutputPath = val
		c.sources["pdf_output_path"] = "environment"
	}
	if val := os.Getenv("SMTP_HOST"); val != "" {
		c.SMTPHost = val
		c.sources["smtp_host"] = "environment"
	}
	if val := os.Getenv("SMTP_PORT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.SMTPPort = i
			c.sources["smtp_port"] = "environment"
		}
	}
	if val := os.Getenv("SMTP_USER"); val != "" {
		c.SMTPUser = val
		c.sources["smtp_user"] = "environment"
	}
	if val := os.Getenv("SMTP_PASSWORD"); val != "" {
		c.SMTPPassword = val
		c.sources["smtp_password"] = "environment"
	}
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.RedisAddr = val
		c.sources["redis_addr"] = "environment"
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.RedisPassword = val
		c.sources["redis_password"] = "environment"
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.RedisDB = i
			c.sources["redis_db"] = "environment"
		}
	}
}

// ConfigFilePath returns the path to the config file.
func (c *HospitalConfig) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute.
func (c *HospitalConfig) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// AccessTokenTTL returns the access token TTL as a duration.
func (c *HospitalConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL as a duration.
func (c *HospitalConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpireDays) * 24 * time.Hour
}

// MailEnabled reports whether the outbound mailer is configured.
func (c *HospitalConfig) MailEnabled() bool {
	return c.SMTPHost != ""
}

// RecoveryEnabled reports whether the recovery-code cache is configured.
func (c *HospitalConfig) RecoveryEnabled() bool {
	return c.RedisAddr != ""
}

// Validate validates the configuration.
func (c *HospitalConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("secret_key is required")
	}

	valid := false
	for _, a := range ValidAlgorithms {
		if c.Algorithm == a {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid algorithm: %s", c.Algorithm)
	}

	if c.AccessTokenExpireMinutes <= 0 {
		return fmt.Errorf("access_token_expire_minutes must be positive")
	}
	if c.RefreshTokenExpireDays <= 0 {
		return fmt.Errorf("refresh_token_expire_days must be positive")
	}

	return nil
}

// Attributes returns all configuration attributes with their values and
// sources. Secret values are masked.
func (c *HospitalConfig) Attributes() []Attribute {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}

	return []Attribute{
		{Name: "secret_key", Value: mask(c.SecretKey), Source: c.Source("secret_key")},
		{Name: "algorithm", Value: c.Algorithm, Source: c.Source("algorithm")},
		{Name: "access_token_expire_minutes", Value: strconv.Itoa(c.AccessTokenExpireMinutes), Source: c.Source("access_token_expire_minutes")},
		{Name: "refresh_token_expire_days", Value: strconv.Itoa(c.RefreshTokenExpireDays), Source: c.Source("refresh_token_expire_days")},
		{Name: "api_list_limit_max", Value: strconv.Itoa(c.APIListLimitMax), Source: c.Source("api_list_limit_max")},
		{Name: "hospital_name", Value: c.HospitalName, Source: c.Source("hospital_name")},
		{Name: "pdf_output_path", Value: c.PDFOutputPath, Source: c.Source("pdf_output_path")},
		{Name: "smtp_host", Value: c.SMTPHost, Source: c.Source("smtp_host")},
		{Name: "smtp_port", Value: strconv.Itoa(c.SMTPPort), Source: c.Source("smtp_port")},
		{Name: "smtp_user", Value: c.SMTPUser, Source: c.Source("smtp_user")},
		{Name: "smtp_password", Value: mask(c.SMTPPassword), Source: c.Source("smtp_password")},
		{Name: "redis_addr", Value: c.RedisAddr, Source: c.Source("redis_addr")},
		{Name: "redis_password", Value: mask(c.RedisPassword), Source: c.Source("redis_password")},
		{Name: "redis_db", Value: strconv.Itoa(c.RedisDB), Source: c.Source("redis_db")},
	}
}

// FormatText returns a text representation of the configuration.
func (c *HospitalConfig) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-32s %-30s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-32s %-30s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-32s %-30s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration.
func (c *HospitalConfig) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
