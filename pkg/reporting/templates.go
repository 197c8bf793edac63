/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: templates.go
Description: HTML template for protodec recovery reports.
*/

package reporting

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} - protodec report</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif;
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            min-height: 100vh;
            color: #333;
        }
        .container { max-width: 1400px; margin: 0 auto; padding: 20px; }
        .card {
            background: rgba(255, 255, 255, 0.95);
            border-radius: 20px;
            padding: 30px;
            margin-bottom: 30px;
            box-shadow: 0 8px 32px rgba(0, 0, 0, 0.1);
        }
        .header { text-align: center; }
        .header h1 { color: #4a5568; font-size: 2.5rem; margin-bottom: 10px; }
        .header p { color: #718096; }
        .stats { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 20px; }
        .stat { text-align: center; }
        .stat .value { font-size: 2rem; font-weight: 700; color: #5a67d8; }
        .stat .label { color: #718096; text-transform: uppercase; font-size: 0.8rem; }
        h2 { color: #4a5568; margin-bottom: 20px; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 8px 12px; border-bottom: 1px solid #e2e8f0; vertical-align: top; }
        th { color: #718096; font-weight: 600; }
        pre { background: #1a202c; color: #e2e8f0; padding: 16px; border-radius: 10px; overflow-x: auto; font-size: 0.85rem; }
        .ok { color: #38a169; font-weight: 600; }
        .fail { color: #e53e3e; font-weight: 600; }
        .mono { font-family: monospace; }
        details summary { cursor: pointer; color: #5a67d8; }
    </style>
</head>
<body>
<div class="container">
    <div class="card header">
        <h1>{{.Title}}</h1>
        <p>Generated {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}} &middot; protodec v{{.Version}} &middot; session <span class="mono">{{.SessionID}}</span></p>
    </div>

    <div class="card stats">
        <div class="stat"><div class="value">{{.Stats.Captures}}</div><div class="label">Captures</div></div>
        <div class="stat"><div class="value">{{.Stats.Unique}}</div><div class="label">Unique</div></div>
        <div class="stat"><div class="value">{{.Stats.Decoded}}</div><div class="label">Decoded</div></div>
        <div class="stat"><div class="value">{{.Stats.Spans}}</div><div class="label">Messages found</div></div>
        <div class="stat"><div class="value">{{.Stats.Failures}}</div><div class="label">Failures</div></div>
        <div class="stat"><div class="value">{{.Stats.CacheHits}}</div><div class="label">Cache hits</div></div>
        <div class="stat"><div class="value">{{.Messages}}</div><div class="label">Recovered messages</div></div>
    </div>

    <div class="card">
        <h2>Recovered schema</h2>
        {{if .Schema}}<pre>{{.Schema}}</pre>{{else}}<p class="fail">No schema recovered{{if .SchemaError}}: {{.SchemaError}}{{end}}</p>{{end}}
    </div>

    <div class="card">
        <h2>Captures</h2>
        <table>
            <thead>
                <tr><th>Origin</th><th>Size</th><th>Mode</th><th>Spans</th><th>Status</th><th>Time</th></tr>
            </thead>
            <tbody>
            {{range .Captures}}
                <tr>
                    <td class="mono">{{.Origin}}<br><small>{{printf "%.12s" .Digest}}</small></td>
                    <td>{{.Size}}</td>
                    <td>{{.Mode}}</td>
                    <td class="mono">{{range .Spans}}[{{.Start}}, {{.End}}) {{end}}</td>
                    <td>{{if .Decoded}}<span class="ok">decoded</span>{{if .Cached}} (cached){{end}}{{else}}<span class="fail">{{.Error}}</span>{{end}}</td>
                    <td>{{.Duration}}</td>
                </tr>
                {{if .Dump}}
                <tr><td colspan="6"><details><summary>Decoded fields</summary><pre>{{.Dump}}</pre></details></td></tr>
                {{end}}
            {{else}}
                <tr><td colspan="6">No captures</td></tr>
            {{end}}
            </tbody>
        </table>
    </div>
</div>
</body>
</html>
`
