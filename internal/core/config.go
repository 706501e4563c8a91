package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/sitesnap/internal/models"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Crawl   models.CrawlConfig `mapstructure:"crawl"`
	Logging LoggingConfig      `mapstructure:"logging"`
	Output  OutputConfig       `mapstructure:"output"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// LoadConfig 加载配置文件
// 配置文件缺失不是错误,全部字段回落到默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		// 使用指定的配置文件
		v.SetConfigFile(configPath)
	} else {
		// 搜索默认位置
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		// 用户主目录
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".sitesnap"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在,使用默认值
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	defaults := models.DefaultCrawlConfig()

	// 爬取配置默认值
	v.SetDefault("crawl.max_depth", defaults.MaxDepth)
	v.SetDefault("crawl.page_delay", defaults.PageDelay)
	v.SetDefault("crawl.nav_timeout", defaults.NavTimeout)
	v.SetDefault("crawl.headless", defaults.Headless)
	v.SetDefault("crawl.viewport_width", defaults.ViewportWidth)
	v.SetDefault("crawl.viewport_height", defaults.ViewportHeight)
	v.SetDefault("crawl.tile_overlap", defaults.TileOverlap)
	v.SetDefault("crawl.max_capture_height", defaults.MaxCaptureHeight)
	v.SetDefault("crawl.settle_delay", defaults.SettleDelay)
	v.SetDefault("crawl.user_agent", defaults.UserAgent)
	v.SetDefault("crawl.archive_name", defaults.ArchiveName)

	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 输出配置默认值
	v.SetDefault("output.base_dir", "output")
}

// GetCrawlConfig 从配置中提取爬取配置
func (c *Config) GetCrawlConfig() models.CrawlConfig {
	return c.Crawl
}

// MergeCLIFlags 合并命令行参数到配置
// 命令行参数优先于配置文件
func (c *Config) MergeCLIFlags(
	depth int,
	pageDelay int,
	settleDelay int,
	headless bool,
	archiveName string,
) {
	if depth >= 0 {
		c.Crawl.MaxDepth = depth
	}
	if pageDelay >= 0 {
		c.Crawl.PageDelay = pageDelay
	}
	if settleDelay >= 0 {
		c.Crawl.SettleDelay = settleDelay
	}
	c.Crawl.Headless = headless
	if archiveName != "" {
		c.Crawl.ArchiveName = archiveName
	}
}
