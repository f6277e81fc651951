package dashboard

import "html/template"

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{if .Selected}}{{.Selected.Name}} · {{end}}Channel stats</title>
<style>
body { font-family: -apple-system, "Segoe UI", Inter, sans-serif; margin: 0; background: #f7f8fa; color: #212529; }
header { padding: 16px 24px; background: #fff; border-bottom: 1px solid #e5e7eb; }
main { padding: 16px 24px; max-width: 1040px; }
nav a { margin-right: 12px; color: #3498db; text-decoration: none; }
nav a.active { font-weight: 600; color: #212529; }
.cards { display: flex; gap: 12px; margin: 16px 0; }
.card { flex: 1; background: #fff; border-radius: 8px; padding: 12px 16px; border-top: 4px solid; }
.card .value { font-size: 26px; font-weight: 600; }
.card .change { font-size: 13px; color: #6b7280; }
.chart { background: #fff; border-radius: 8px; padding: 8px; margin-bottom: 16px; }
.chart h3 { margin: 4px 8px; }
svg text { font-size: 11px; fill: #6b7280; }
svg circle:hover { r: 6; }
footer { color: #9ca3af; font-size: 12px; padding: 0 24px 24px; }
</style>
</head>
<body>
<header>
  <h1>Channel stats</h1>
  <nav>{{range .Channels}}<a href="/?channel={{.ID}}&period={{$.Period}}"{{if .Active}} class="active"{{end}}>{{.Name}}</a>{{end}}</nav>
</header>
<main>
{{if not .Selected}}
  <p>No data yet. Run <code>channel-tracker fetch</code> to collect the first snapshot.</p>
{{else}}{{with .Selected}}
  <nav>{{range $.Periods}}<a href="/?channel={{$.Selected.ID}}&period={{.Value}}"{{if .Active}} class="active"{{end}}>{{.Label}}</a>{{end}}</nav>
  <p>Last updated {{.Updated}} UTC · {{.Points}} data points · <a href="/charts/{{.ID}}.png">PNG</a></p>
  <div class="cards">
  {{range .Cards}}
    <div class="card" style="border-color: {{.Color}}">
      <div>{{.Title}}</div>
      <div class="value">{{.Value}}</div>
      <div class="change">day: {{.Daily}}</div>
      <div class="change">week: {{.Weekly}}</div>
    </div>
  {{end}}
  </div>
  {{range .Charts}}
  <div class="chart">
    <h3 style="color: {{.Color}}">{{.Title}}</h3>
    {{if .Empty}}<p>No data in this period.</p>{{else}}
    <svg width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}" role="img">
      {{$left := .Left}}{{$right := .Right}}{{$labelX := .LabelX}}
      {{range .Grid}}
      <line x1="{{$left}}" y1="{{.Y}}" x2="{{$right}}" y2="{{.Y}}" stroke="#ddd" stroke-dasharray="6 4"/>
      <text x="{{$labelX}}" y="{{.Y}}" text-anchor="end" dominant-baseline="middle">{{.Label}}</text>
      {{end}}
      {{$bottom := .Bottom}}
      {{range .Ticks}}<text x="{{.X}}" y="{{$bottom}}" dy="18" text-anchor="middle">{{.Label}}</text>{{end}}
      <polyline points="{{.Polyline}}" fill="none" stroke="{{.Color}}" stroke-width="2"/>
      {{$color := .Color}}
      {{range .Points}}<circle cx="{{.X}}" cy="{{.Y}}" r="4" fill="{{$color}}"><title>{{.Title}}</title></circle>{{end}}
    </svg>
    {{end}}
  </div>
  {{end}}
{{end}}{{end}}
</main>
<footer>Generated {{.Now}} UTC</footer>
</body>
</html>
`))
