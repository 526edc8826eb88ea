package sysinfo

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemInfo 运行报告携带的主机描述
//
// 基准结果离开主机描述没有意义，这里采集的是静态硬件画像，
// 运行期的动态信号交给插件。
type SystemInfo struct {
	Hostname     string    `json:"hostname"`
	OS           string    `json:"os"`
	Architecture string    `json:"architecture"`
	Kernel       string    `json:"kernel"`
	BootTime     time.Time `json:"boot_time"`
	Uptime       float64   `json:"uptime"`

	CPU    CPUInfo    `json:"cpu"`
	Memory MemoryInfo `json:"memory"`

	LoadAverage []float64 `json:"load_average"`
}

// CPUInfo CPU 画像
type CPUInfo struct {
	Model       string  `json:"model"`
	Cores       int     `json:"cores"`
	LogicalCPUs int     `json:"logical_cpus"`
	MHz         float64 `json:"mhz"`
}

// MemoryInfo 内存画像
type MemoryInfo struct {
	Total     uint64 `json:"total"`
	Available uint64 `json:"available"`
}

// Collector 主机信息收集器
type Collector struct{}

// NewCollector 创建收集器
func NewCollector() (*Collector, error) {
	return &Collector{}, nil
}

// Collect 采集主机画像
func (c *Collector) Collect() (*SystemInfo, error) {
	info := &SystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, err
	}
	info.Hostname = hostname

	if hostInfo, err := host.Info(); err == nil {
		info.Kernel = hostInfo.KernelVersion
		info.Uptime = float64(hostInfo.Uptime)
		info.BootTime = time.Unix(int64(hostInfo.BootTime), 0)
	}

	if cpuInfo, err := cpu.Info(); err == nil && len(cpuInfo) > 0 {
		info.CPU.Model = cpuInfo[0].ModelName
		info.CPU.Cores = int(cpuInfo[0].Cores)
		info.CPU.LogicalCPUs = runtime.NumCPU()
		info.CPU.MHz = cpuInfo[0].Mhz
	}

	if vmstat, err := mem.VirtualMemory(); err == nil {
		info.Memory.Total = vmstat.Total
		info.Memory.Available = vmstat.Available
	}

	if avg, err := load.Avg(); err == nil {
		info.LoadAverage = []float64{avg.Load1, avg.Load5, avg.Load15}
	}

	return info, nil
}
