package output

// htmlTemplate is the standalone HTML result page.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>taskswarm - {{.Host}}</title>
    <style>
        :root {
            --bg-secondary: #f8fafc;
            --bg-card: #ffffff;
            --text-primary: #1e293b;
            --text-secondary: #64748b;
            --border-color: #e2e8f0;
            --accent-primary: #3b82f6;
            --accent-success: #22c55e;
            --accent-warning: #f59e0b;
            --accent-error: #ef4444;
            --shadow: 0 1px 3px rgba(0, 0, 0, 0.1);
        }

        * { margin: 0; padding: 0; box-sizing: border-box; }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background-color: var(--bg-secondary);
            color: var(--text-primary);
            line-height: 1.6;
        }

        .container { max-width: 1400px; margin: 0 auto; padding: 2rem; }

        .card {
            background: var(--bg-card);
            border-radius: 12px;
            padding: 1.5rem 2rem;
            margin-bottom: 2rem;
            box-shadow: var(--shadow);
        }

        h1 { font-size: 1.75rem; font-weight: 700; }
        h2 { font-size: 1.15rem; margin-bottom: 1rem; }

        .meta { display: flex; flex-wrap: wrap; gap: 2rem; margin-top: 0.5rem; font-size: 0.875rem; color: var(--text-secondary); }

        .status { display: inline-block; margin-top: 0.75rem; padding: 0.4rem 1rem; border-radius: 8px; font-weight: 600; }
        .status.pass { background: rgba(34, 197, 94, 0.1); color: var(--accent-success); }
        .status.warn { background: rgba(245, 158, 11, 0.1); color: var(--accent-warning); }

        .metrics-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 1rem; }
        .metric .label { font-size: 0.8rem; text-transform: uppercase; color: var(--text-secondary); }
        .metric .value { font-size: 1.5rem; font-weight: 700; color: var(--accent-primary); }
        .metric .value.error { color: var(--accent-error); }

        table { width: 100%; border-collapse: collapse; font-size: 0.9rem; }
        th, td { padding: 0.5rem 0.75rem; border-bottom: 1px solid var(--border-color); text-align: right; }
        th { color: var(--text-secondary); font-weight: 600; }
        td.name, th.name { text-align: left; font-family: ui-monospace, SFMono-Regular, Menlo, monospace; }
        td.fail { color: var(--accent-error); }
        td.message { text-align: left; }
    </style>
</head>
<body>
<div class="container">
    <div class="card">
        <h1>taskswarm load test</h1>
        <div class="meta">
            <span>Host: {{.Host}}</span>
            <span>Started: {{.StartTime.Format "2006-01-02 15:04:05 MST"}}</span>
            <span>Duration: {{formatDuration .Duration}}</span>
            <span>Users: {{.UsersSpawned}} ({{profileCounts .Profiles}})</span>
        </div>
        {{if .ForcedStop}}<span class="status warn">Stopped after grace period</span>
        {{else if .Interrupted}}<span class="status warn">Interrupted</span>
        {{else}}<span class="status pass">Completed</span>{{end}}
    </div>

    <div class="card">
        <h2>Totals</h2>
        <div class="metrics-grid">
            <div class="metric"><div class="label">Requests</div><div class="value">{{formatNumber .Summary.TotalRequests}}</div></div>
            <div class="metric"><div class="label">Failures</div><div class="value{{if .Summary.TotalFailures}} error{{end}}">{{formatNumber .Summary.TotalFailures}} ({{percent .Summary.FailureRatio}})</div></div>
            <div class="metric"><div class="label">Throughput</div><div class="value">{{rps .Summary.OverallRPS}} req/s</div></div>
            <div class="metric"><div class="label">Avg</div><div class="value">{{formatMillis .Summary.AvgResponseTime}}</div></div>
            <div class="metric"><div class="label">P95</div><div class="value">{{formatMillis .Summary.P95ResponseTime}}</div></div>
            <div class="metric"><div class="label">P99</div><div class="value">{{formatMillis .Summary.P99ResponseTime}}</div></div>
            <div class="metric"><div class="label">Max</div><div class="value">{{formatMillis .Summary.MaxResponseTime}}</div></div>
            <div class="metric"><div class="label">Received</div><div class="value">{{formatBytes .Summary.TotalBytes}}</div></div>
        </div>
    </div>

    {{if .Summary.Endpoints}}
    <div class="card">
        <h2>Endpoints</h2>
        <table>
            <thead>
                <tr><th class="name">Method</th><th class="name">Name</th><th>Requests</th><th>Failures</th><th>Avg</th><th>Min</th><th>P50</th><th>P95</th><th>Max</th><th>RPS</th></tr>
            </thead>
            <tbody>
            {{range .Summary.Endpoints}}
                <tr>
                    <td class="name">{{.Method}}</td>
                    <td class="name">{{.Name}}</td>
                    <td>{{formatNumber .Requests}}</td>
                    <td{{if .Failures}} class="fail"{{end}}>{{formatNumber .Failures}}</td>
                    <td>{{formatMillis .AvgResponseTime}}</td>
                    <td>{{formatMillis .MinResponseTime}}</td>
                    <td>{{formatMillis .P50ResponseTime}}</td>
                    <td>{{formatMillis .P95ResponseTime}}</td>
                    <td>{{formatMillis .MaxResponseTime}}</td>
                    <td>{{rps .RPS}}</td>
                </tr>
            {{end}}
            </tbody>
        </table>
    </div>
    {{end}}

    {{if .Summary.Failures}}
    <div class="card">
        <h2>Failures</h2>
        <table>
            <thead>
                <tr><th>Count</th><th class="name">Method</th><th class="name">Name</th><th class="name">Message</th></tr>
            </thead>
            <tbody>
            {{range .Summary.Failures}}
                <tr>
                    <td class="fail">{{formatNumber .Occurrences}}</td>
                    <td class="name">{{.Method}}</td>
                    <td class="name">{{.Name}}</td>
                    <td class="message">{{.Message}}</td>
                </tr>
            {{end}}
            </tbody>
        </table>
    </div>
    {{end}}
</div>
</body>
</html>
`
