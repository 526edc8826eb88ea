package plugin

import (
	"math"
	"time"

	"benchmark_agent/internal/event"
)

// NextDuration 计算距离下一个对齐执行点的等待时长
//
// 执行点相对 start 按 intervalSecs 对齐，执行耗时被吸收进等待，
// 长期运行不会产生漂移。
func NextDuration(start, now time.Time, intervalSecs float64) time.Duration {
	elapsed := now.Sub(start).Seconds()
	wait := intervalSecs - math.Mod(elapsed, intervalSecs)
	return time.Duration(wait * float64(time.Second))
}

// RunInterval 立即执行一次 fn，之后按对齐的间隔循环执行直到 stop 置位
func RunInterval(stop *event.Event, intervalSecs float64, fn func()) {
	start := time.Now()
	for {
		fn()
		if stop.Wait(NextDuration(start, time.Now(), intervalSecs)) {
			return
		}
	}
}
