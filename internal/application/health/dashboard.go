package health

import (
	"encoding/json"
	"html/template"
	"io"
	"sort"
)

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="tr">
<head>
  <meta charset="UTF-8">
  <title>CertHub · API Status</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <style>
    :root { --primary: #1d4ed8; --dark: #0f172a; --muted: #64748b; --bg: #f8fafc; }
    body { background: var(--bg); color: var(--dark); font-family: system-ui, sans-serif; margin: 0; padding: 40px 20px; }
    .container { max-width: 960px; margin: 0 auto; }
    h1 { font-size: 42px; font-weight: 900; letter-spacing: -2px; margin: 0 0 8px; }
    h1.issue { color: #b91c1c; }
    .subtext { color: var(--muted); font-weight: 700; margin-bottom: 28px; }
    .card { background: #fff; border-radius: 20px; box-shadow: 0 20px 60px -20px rgba(15, 23, 42, 0.15); display: grid; grid-template-columns: repeat(3, 1fr); }
    .col { padding: 32px; border-right: 1px solid #f1f5f9; }
    .col:last-child { border-right: none; }
    .label { text-transform: uppercase; font-size: 11px; font-weight: 900; letter-spacing: 2px; color: #94a3b8; margin-bottom: 18px; }
    .big { font-size: 36px; font-weight: 900; margin-bottom: 10px; }
    .row { display: flex; justify-content: space-between; padding: 6px 0; font-size: 14px; font-weight: 700; border-bottom: 1px solid #f8fafc; }
    .ok { color: var(--primary); }
    .err { color: #ef4444; }
    .footer { margin-top: 20px; font-family: monospace; font-size: 13px; color: var(--muted); }
    @media (max-width: 800px) { .card { grid-template-columns: 1fr; } .col { border-right: none; } }
  </style>
</head>
<body>
  <div class="container">
    {{if eq .Status "ok"}}<h1>All Systems Operational</h1>{{else}}<h1 class="issue">System Issues Detected</h1>{{end}}
    <div class="subtext">Certificate issuance API · {{.Runtime.Platform}} · {{.Runtime.GoVersion}}</div>
    <div class="card">
      <div class="col">
        <div class="label">Traffic</div>
        <div class="big">{{.Traffic.TotalRequests}}</div>
        <div class="row"><span>Successful</span><span class="ok">{{.Traffic.SuccessCount}}</span></div>
        <div class="row"><span>Failed</span><span class="err">{{.Traffic.FailedCount}}</span></div>
        <div class="row"><span>Success Rate</span><span>{{.Traffic.SuccessRate}}%</span></div>
        <div class="row"><span>Avg Latency</span><span>{{.Traffic.AvgResponseTime}}ms</span></div>
      </div>
      <div class="col">
        <div class="label">Resources</div>
        <div class="big">{{.Runtime.UptimeSeconds}}s</div>
        <div class="row"><span>Heap Used</span><span>{{.Runtime.Memory.HeapUsed}} MB</span></div>
        <div class="row"><span>Allocated</span><span>{{.Runtime.Memory.AllocMB}} MB</span></div>
        <div class="row"><span>Goroutines</span><span>{{.Runtime.Goroutines}}</span></div>
      </div>
      <div class="col">
        <div class="label">Connectivity</div>
        {{range .Deps}}<div class="row"><span>{{.Name}}</span><span class="{{if .OK}}ok{{else}}err{{end}}">{{.Status}}{{if .PingMs}} · {{.PingMs}} ms{{end}}</span></div>
        {{end}}
      </div>
    </div>
    <div class="footer">last request: {{.LastMethod}} {{.LastPath}} · <a href="/health/json">json</a> · <a href="/health/errors">errors</a></div>
  </div>
  <script id="health-data" type="application/json">{{.JSON}}</script>
</body>
</html>`))

type depRow struct {
	Name   string
	Status string
	PingMs interface{}
	OK     bool
}

// RenderDashboard writes the status page served at GET /.
func RenderDashboard(w io.Writer, h CollectResult) error {
	names := make([]string, 0, len(h.Dependencies))
	for name := range h.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	deps := make([]depRow, 0, len(names))
	for _, name := range names {
		d := h.Dependencies[name]
		var ms interface{}
		if d.PingMs != nil {
			ms = *d.PingMs
		}
		deps = append(deps, depRow{Name: name, Status: d.Status, PingMs: ms, OK: d.Status == "connected" || d.Status == "reachable"})
	}

	lastMethod, lastPath := "-", "-"
	if m, ok := h.Traffic.LastRequest.(map[string]interface{}); ok {
		if v, ok := m["method"].(string); ok {
			lastMethod = v
		}
		if v, ok := m["path"].(string); ok {
			lastPath = v
		}
	}
	payload, err := json.Marshal(h)
	if err != nil {
		return err
	}

	return dashboardTmpl.Execute(w, map[string]interface{}{
		"Status":     h.Status,
		"Runtime":    h.Runtime,
		"Traffic":    h.Traffic,
		"Deps":       deps,
		"LastMethod": lastMethod,
		"LastPath":   lastPath,
		"JSON":       template.JS(payload),
	})
}
