package health

import (
	"context"
	"encoding/json"
	"runtime"
	"strconv"
	"time"

	"certhub-backend/internal/middleware"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
)

// DBPinger is optional. A nil pinger reports the database as disconnected.
type DBPinger interface {
	Ping() error
}

// Upstream is an outbound dependency checked with a GET. Any HTTP answer counts
// as reachable.
type Upstream struct {
	Name string
	URL  string
}

type CollectResult struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	AllocMB  int `json:"allocMb"`
	HeapUsed int `json:"heapUsed"`
}

type TrafficInfo struct {
	TotalRequests   int         `json:"totalRequests"`
	SuccessCount    int         `json:"successCount"`
	FailedCount     int         `json:"failedCount"`
	SuccessRate     string      `json:"successRate"`
	AvgResponseTime interface{} `json:"avgResponseTime"`
	LastRequest     interface{} `json:"lastRequest"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
}

var upstreamClient = resty.New().SetTimeout(3 * time.Second)

// CollectHealth gathers dependency status and request stats. Status is "ok"
// when both the database and Redis answer.
func CollectHealth(ctx context.Context, rdb *redis.Client, db DBPinger, upstreams ...Upstream) CollectResult {
	result := CollectResult{Dependencies: make(map[string]DepStatus)}

	dbDep := DepStatus{Status: "disconnected"}
	if db != nil {
		start := time.Now()
		if err := db.Ping(); err == nil {
			dbDep = connected(start)
		} else {
			dbDep.Status = "error"
		}
	}
	result.Dependencies["database"] = dbDep

	redisDep := DepStatus{Status: "disconnected"}
	stats := TrafficInfo{AvgResponseTime: 0, SuccessRate: "100"}
	startTimeMs := time.Now().UnixMilli()
	if rdb != nil {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err == nil {
			redisDep = connected(start)
			startTimeMs = readTraffic(ctx, rdb, &stats, startTimeMs)
		} else {
			redisDep.Status = "error"
		}
	}
	result.Dependencies["redis"] = redisDep

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := (time.Now().UnixMilli() - startTimeMs) / 1000
	if uptime < 0 {
		uptime = 0
	}
	result.Runtime = RuntimeInfo{
		UptimeSeconds: uptime,
		Memory:        MemoryInfo{AllocMB: int(m.Alloc / 1024 / 1024), HeapUsed: int(m.HeapInuse / 1024 / 1024)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}
	result.Traffic = stats

	for _, p := range upstreams {
		if p.URL == "" {
			continue
		}
		result.Dependencies[p.Name] = ping(ctx, p.URL)
	}

	result.Status = "issue"
	if dbDep.Status == "connected" && redisDep.Status == "connected" {
		result.Status = "ok"
	}
	return result
}

func readTraffic(ctx context.Context, rdb *redis.Client, stats *TrafficInfo, startTimeMs int64) int64 {
	vals, _ := rdb.MGet(ctx,
		middleware.KeyReqTotal, middleware.KeyReqErrors, middleware.KeyResTime,
		middleware.KeyResCount, middleware.KeyStartTime, middleware.KeyLastReq,
	).Result()
	get := func(i int) string {
		if i < len(vals) {
			if s, ok := vals[i].(string); ok {
				return s
			}
		}
		return ""
	}

	if s := get(4); s != "" {
		if t, err := strconv.ParseInt(s, 10, 64); err == nil {
			startTimeMs = t
		}
	} else {
		rdb.Set(ctx, middleware.KeyStartTime, startTimeMs, 0)
	}

	stats.TotalRequests, _ = strconv.Atoi(get(0))
	stats.FailedCount, _ = strconv.Atoi(get(1))
	stats.SuccessCount = stats.TotalRequests - stats.FailedCount
	if stats.TotalRequests > 0 {
		stats.SuccessRate = strconv.FormatFloat(float64(stats.SuccessCount)/float64(stats.TotalRequests)*100, 'f', 1, 64)
	}
	timeSum, _ := strconv.ParseFloat(get(2), 64)
	if n, _ := strconv.Atoi(get(3)); n > 0 {
		stats.AvgResponseTime = strconv.FormatFloat(timeSum/float64(n), 'f', 2, 64)
	}
	if s := get(5); s != "" {
		var last map[string]interface{}
		_ = json.Unmarshal([]byte(s), &last)
		stats.LastRequest = last
	}
	return startTimeMs
}

func ping(ctx context.Context, url string) DepStatus {
	start := time.Now()
	if _, err := upstreamClient.R().SetContext(ctx).Get(url); err != nil {
		return DepStatus{Status: "unreachable"}
	}
	ms := time.Since(start).Milliseconds()
	return DepStatus{Status: "reachable", PingMs: &ms}
}

func connected(start time.Time) DepStatus {
	ms := time.Since(start).Milliseconds()
	return DepStatus{Status: "connected", PingMs: &ms}
}
