package monitor

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Usage — снятые значения метрик в процентах.
type Usage struct {
	CPU    float64
	Memory float64
	Disk   float64
}

// Collector снимает метрики использования ресурсов хоста.
//
// CPU считается по двум чтениям /proc/stat с коротким интервалом,
// память — по /proc/meminfo, диск — по statfs корневого раздела.
type Collector struct {
	// cpuSampleInterval — пауза между двумя чтениями /proc/stat.
	cpuSampleInterval time.Duration

	// diskPath — точка монтирования для замера диска.
	diskPath string
}

// NewCollector создаёт Collector с настройками по умолчанию.
func NewCollector() *Collector {
	return &Collector{
		cpuSampleInterval: 200 * time.Millisecond,
		diskPath:          "/",
	}
}

// Collect снимает все метрики. Ошибка одной метрики не скрывает остальные:
// возвращается первая ошибка, но Usage заполняется тем, что удалось снять.
func (c *Collector) Collect() (Usage, error) {
	var usage Usage
	var firstErr error

	cpu, err := c.collectCPU()
	if err != nil {
		firstErr = err
	} else {
		usage.CPU = cpu
	}

	mem, err := collectMemory()
	if err != nil && firstErr == nil {
		firstErr = err
	} else if err == nil {
		usage.Memory = mem
	}

	disk, err := collectDisk(c.diskPath)
	if err != nil && firstErr == nil {
		firstErr = err
	} else if err == nil {
		usage.Disk = disk
	}

	return usage, firstErr
}

// collectCPU считает загрузку CPU между двумя чтениями /proc/stat.
func (c *Collector) collectCPU() (float64, error) {
	idle1, total1, err := readCPUStat()
	if err != nil {
		return 0, err
	}

	time.Sleep(c.cpuSampleInterval)

	idle2, total2, err := readCPUStat()
	if err != nil {
		return 0, err
	}

	totalDelta := total2 - total1
	if totalDelta == 0 {
		return 0, nil
	}
	idleDelta := idle2 - idle1

	busy := float64(totalDelta-idleDelta) / float64(totalDelta) * 100
	return busy, nil
}

// readCPUStat читает агрегированную строку cpu из /proc/stat.
// Возвращает (idle, total) в тиках.
func readCPUStat() (idle, total uint64, err error) {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return 0, 0, fmt.Errorf("read /proc/stat: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 || fields[0] != "cpu" {
			continue
		}

		for i, field := range fields[1:] {
			value, err := strconv.ParseUint(field, 10, 64)
			if err != nil {
				return 0, 0, fmt.Errorf("parse /proc/stat field %q: %w", field, err)
			}
			total += value
			// idle + iowait
			if i == 3 || i == 4 {
				idle += value
			}
		}
		return idle, total, nil
	}

	return 0, 0, fmt.Errorf("no cpu line in /proc/stat")
}

// collectMemory считает занятую память по /proc/meminfo.
func collectMemory() (float64, error) {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0, fmt.Errorf("read /proc/meminfo: %w", err)
	}
	return parseMeminfo(string(data))
}

// parseMeminfo извлекает MemTotal/MemAvailable и считает процент занятого.
func parseMeminfo(content string) (float64, error) {
	var total, available uint64

	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total = value
		case "MemAvailable:":
			available = value
		}
	}

	if total == 0 {
		return 0, fmt.Errorf("no MemTotal in /proc/meminfo")
	}

	used := float64(total-available) / float64(total) * 100
	return used, nil
}

// collectDisk считает занятость раздела через statfs.
func collectDisk(path string) (float64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}

	total := stat.Blocks * uint64(stat.Bsize)
	if total == 0 {
		return 0, nil
	}
	free := stat.Bavail * uint64(stat.Bsize)

	used := float64(total-free) / float64(total) * 100
	return used, nil
}
