package stats

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// 本包提供指标聚合与时间序列统计共用的数值函数。
//
// 除 Count 外，所有函数对空输入返回 NaN 而不是报错：
// 采集循环依赖 NaN 表示"本轮没有数据"，不应因此中断。

// Mean 算术平均值
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Sum 求和
func Sum(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum
}

// Product 连乘
func Product(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	product := 1.0
	for _, v := range values {
		product *= v
	}
	return product
}

// Min 最小值
func Min(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// Max 最大值
func Max(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// Median 中位数
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// Mode 众数，出现次数相同时取最先出现的值
func Mode(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	counts := make(map[float64]int, len(values))
	mode := values[0]
	best := 0
	for _, v := range values {
		counts[v]++
		if counts[v] > best {
			best = counts[v]
			mode = v
		}
	}
	return mode
}

// StdDev 样本标准差，少于两个数据点时返回 NaN
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	mean := Mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// Quantile 线性插值分位数，q 取值 [0, 1]
//
// 与 numpy.quantile 的默认插值方式一致：排序后按
// pos = q*(n-1) 在相邻样本间线性插值。
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// DropNaN 过滤掉 NaN 样本
func DropNaN(values []float64) []float64 {
	valid := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	return valid
}

// ParseQuantileName 解析 "q<0-100>" 形式的分位数名称为 [0, 1] 区间的小数
//
// 非法的名称以及 q0/q100 之类的边界值属于配置错误。
func ParseQuantileName(name string) (float64, error) {
	if !strings.HasPrefix(name, "q") {
		return 0, fmt.Errorf("invalid quantile function name: %q", name)
	}
	percent, err := strconv.ParseFloat(name[1:], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantile function name: %q", name)
	}
	q := percent / 100.0
	if q <= 0 || q >= 1 {
		return 0, fmt.Errorf("quantile value must be between 0 and 100 exclusive, got %q", name)
	}
	return q, nil
}
