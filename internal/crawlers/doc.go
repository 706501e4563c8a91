// Package crawlers 提供全站截图爬取的核心组件
//
// # 概述
//
// crawlers包实现单浏览器会话下的BFS页面遍历与全页截图,核心组件:
// 待爬队列(Frontier)、链接提取器(Extractor)、渲染完成度检测器(Detector)、
// 截图策略链(CaptureChain)、悬停展开器(Revealer)与内存防护(ResourceGuard)。
//
// # 核心组件
//
// ## Frontier (待爬队列)
//
// 严格FIFO队列,入队时按域名/协议/扩展名/片段过滤;不做入队排重,
// 已访问与超深检查由协调器在出队时完成,保证BFS层序。
//
//	frontier := NewFrontier("example.com")
//	frontier.Seed([]string{"https://example.com/"})
//	err := frontier.Push("https://example.com/about", 1)
//	entry, ok := frontier.Pop()
//
// ## Detector (渲染完成度检测器)
//
// 分七个阶段尽力推进: DOM complete → 脚本静默 → 图片定格(70%阈值) →
// 懒加载扫描 → 网络静默 → 强制加载 → 安定等待。每个阶段有界且允许降级,
// 检测器整体从不硬失败,表面不可用时退化为固定等待。
//
//	detector := NewDetector(NewRodSurface(page), DefaultDetectorConfig())
//	state := detector.WaitComplete()
//
// ## CaptureChain (截图策略链)
//
// 三层回退,首个成功即停:
//   - 层1 原生全页: 按内容完整矩形一次性裁剪截取
//   - 层2 分块拼接: 固定视口逐屏滚动,按滚动偏移拼接(100px重叠消除接缝)
//   - 层3 有界兜底: 高度钳制20000px后放大视口直接截取
//
// 文件名由URL路径确定性派生(DeriveFilename),重复抓取按文件名覆盖去重。
//
//	chain := NewCaptureChain(surface, NewResourceGuard(DefaultGuardReserve), DefaultCaptureConfig())
//	artifact, err := chain.Capture(pageURL)
//
// ## Extractor (链接提取器)
//
// 对渲染后的标记执行固定选择器组(导航/下拉/主内容区域),各组取并集去重;
// 单组执行失败被计数而非抛出,剩余组照常评估。
//
//	extractor := NewExtractor("example.com")
//	outcome, err := extractor.Extract(htmlContent, pageURL)
//
// # 错误处理
//
//   - 导航失败: 由协调器记入失败集合,页面不截图不提取,爬取继续
//   - 检测超时: 降级继续,不是错误
//   - 单层截图失败: 吞掉并尝试下一层,三层全失败返回ErrAllTiersFailed
//   - 单选择器组失败: 计入GroupErrors,提取不中断
//
// # 并发安全
//
// Frontier与CrawlSession由互斥锁保护;其余组件在单会话串行流程中使用
package crawlers
