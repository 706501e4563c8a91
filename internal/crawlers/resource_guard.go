package crawlers

import (
	"github.com/RecoveryAshes/sitesnap/internal/utils"
	"github.com/shirou/gopsutil/v3/mem"
)

// DefaultGuardReserve 默认预留给系统的安全内存(512MB)
const DefaultGuardReserve = 512 * 1024 * 1024

// ResourceGuard 拼接画布的内存防护
// 职责: 在分配整页画布前检查系统可用内存,不足时让截图链退化到兜底策略
type ResourceGuard struct {
	// 预留给系统的安全内存(字节)
	reserve uint64
}

// NewResourceGuard 创建内存防护
func NewResourceGuard(reserve uint64) *ResourceGuard {
	return &ResourceGuard{reserve: reserve}
}

// CanAllocate 判断是否可以安全分配指定字节数
// 内存信息读取失败时放行 — 防护只是尽力而为,不阻断截图
func (g *ResourceGuard) CanAllocate(size uint64) bool {
	vm, err := mem.VirtualMemory()
	if err != nil {
		utils.Debugf("读取内存信息失败,放行分配: %v", err)
		return true
	}

	if vm.Available < size+g.reserve {
		utils.Warnf("可用内存不足: 需要 %dMB + 预留 %dMB, 可用 %dMB",
			size/1024/1024, g.reserve/1024/1024, vm.Available/1024/1024)
		return false
	}
	return true
}
