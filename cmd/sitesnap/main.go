package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/sitesnap/internal/core"
	"github.com/RecoveryAshes/sitesnap/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// 爬取参数
	targetURL    string
	depth        int
	pageDelay    int
	settleDelay  int
	headless     bool
	priorityFile string
	archiveName  string
	outputDir    string
)

var rootCmd = &cobra.Command{
	Use:   "sitesnap",
	Short: "网站全页截图采集工具",
	Long: `SiteSnap - 有界网站截图采集工具 (Go版本)

在真实浏览器中渲染目标网站并逐页采集全页截图,支持:
  • BFS层序遍历,深度可控
  • 分阶段渲染完成度检测(DOM/脚本/图片/懒加载/网络静默)
  • 三层截图策略链(原生全页/分块拼接/有界兜底)
  • 悬停展开下拉菜单与隐藏内容
  • 预置高价值页面清单
  • 截图打包与JSON报告

使用示例:
  # 默认深度截图整站
  sitesnap -u https://example.com

  # 指定深度与输出目录
  sitesnap -u https://example.com -d 3 -o ./snapshots

  # 附加预置页面清单
  sitesnap -u https://example.com --priority-file pages.txt

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 加载配置
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		// 初始化日志系统
		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}

		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if verbose {
			utils.Info("详细模式已启用")
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// 设置信号处理(Ctrl+C优雅退出)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		go func() {
			sig := <-sigChan
			utils.Warnf("\n收到中断信号: %v, 正在优雅关闭...", sig)
			os.Exit(0)
		}()

		if targetURL == "" {
			return cmd.Help()
		}

		normalized, err := NormalizeURL(targetURL)
		if err != nil {
			return fmt.Errorf("规范化URL失败: %w", err)
		}
		targetURL = normalized

		// 验证参数
		if err := ValidateFlags(targetURL, depth, pageDelay, settleDelay); err != nil {
			return err
		}

		appConfig, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		appConfig.MergeCLIFlags(depth, pageDelay, settleDelay, headless, archiveName)

		crawlConfig := appConfig.GetCrawlConfig()

		// 附加预置页面清单
		if priorityFile != "" {
			pages, err := utils.ReadURLsFromFile(priorityFile)
			if err != nil {
				return fmt.Errorf("读取预置页面文件失败: %w", err)
			}
			crawlConfig.PriorityPages = append(crawlConfig.PriorityPages, pages...)
		}

		if err := crawlConfig.Validate(); err != nil {
			return fmt.Errorf("配置无效: %w", err)
		}

		if outputDir == "" {
			outputDir = appConfig.Output.BaseDir
		}

		crawler, err := core.NewCrawler(targetURL, crawlConfig, outputDir)
		if err != nil {
			return fmt.Errorf("创建截图任务失败: %w", err)
		}

		if err := crawler.Crawl(); err != nil {
			if core.IsFatal(err) {
				return fmt.Errorf("浏览器不可用,任务终止: %w", err)
			}
			return fmt.Errorf("截图任务失败: %w", err)
		}

		// 显示统计结果
		stats := crawler.GetStats()
		fmt.Println("\n==================================================")
		fmt.Println("📊 截图统计")
		fmt.Println("==================================================")
		fmt.Printf("✅ 访问页面数: %d\n", stats.VisitedURLs)
		fmt.Printf("❌ 失败页面数: %d\n", stats.FailedURLs)
		fmt.Printf("✅ 产出截图数: %d\n", stats.Artifacts)
		fmt.Printf("✅ 原生全页: %d  分块拼接: %d  有界兜底: %d\n",
			stats.Tier1Count, stats.Tier2Count, stats.Tier3Count)
		if stats.CaptureMiss > 0 {
			fmt.Printf("❌ 截图全失败页面: %d\n", stats.CaptureMiss)
		}
		fmt.Printf("📦 截图总大小: %.2f MB\n", float64(stats.TotalSize)/(1024*1024))
		if stats.ArchivedFile != "" {
			fmt.Printf("📦 压缩包: %s\n", stats.ArchivedFile)
		}
		fmt.Printf("⏱️  总耗时: %.2f秒\n", stats.Duration)
		fmt.Println("==================================================")

		utils.Info("✨ 截图任务完成!")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("SiteSnap %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
		fmt.Println("Go实现版本 - 网站全页截图采集工具")
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// 爬取参数
	rootCmd.Flags().StringVarP(&targetURL, "url", "u", "", "目标URL (必需)")
	rootCmd.Flags().IntVarP(&depth, "depth", "d", 2, "爬取深度 (0-10)")
	rootCmd.Flags().IntVar(&pageDelay, "delay", 4, "页面间礼貌延迟(秒)")
	rootCmd.Flags().IntVar(&settleDelay, "settle", 8, "截图前的最终安定等待(秒)")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.Flags().StringVar(&priorityFile, "priority-file", "", "预置页面清单文件(每行一个URL)")
	rootCmd.Flags().StringVar(&archiveName, "archive-name", "", "压缩包文件名(默认site_screenshots.zip)")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "输出目录(默认output)")

	// 添加子命令
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
