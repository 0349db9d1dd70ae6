package report

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"intelbrief/internal/domain"
	"intelbrief/internal/ports"
)

// Renderer produces the executive brief HTML from a finished run.
type Renderer struct {
	tmpl                 *template.Template
	materialityThreshold int
	now                  func() time.Time
}

var _ ports.BriefRenderer = (*Renderer)(nil)

// NewRenderer parses the brief template once.
func NewRenderer(materialityThreshold int) *Renderer {
	if materialityThreshold <= 0 {
		materialityThreshold = 70
	}
	funcs := template.FuncMap{
		"upper":  strings.ToUpper,
		"typeOf": displayEventType,
		"quote":  trimQuote,
	}
	return &Renderer{
		tmpl:                 template.Must(template.New("brief").Funcs(funcs).Parse(briefTemplate)),
		materialityThreshold: materialityThreshold,
		now:                  func() time.Time { return time.Now().UTC() },
	}
}

type briefData struct {
	Date         string
	Time         string
	TotalEvents  int
	HighPriority int
	Run          domain.Run
	Sections     []domain.BriefSection
}

// Render fills the brief template with the run's sections. Empty sections
// are skipped by the template itself.
func (r *Renderer) Render(run domain.Run, sections []domain.BriefSection, events []domain.Event) (string, error) {
	now := r.now()

	high := 0
	for _, e := range events {
		if e.MaterialityScore >= r.materialityThreshold {
			high++
		}
	}

	data := briefData{
		Date:         now.Format("January 2, 2006"),
		Time:         now.Format("15:04 UTC"),
		TotalEvents:  len(events),
		HighPriority: high,
		Run:          run,
		Sections:     sections,
	}

	var out strings.Builder
	if err := r.tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("render brief: %w", err)
	}
	return out.String(), nil
}

func displayEventType(t domain.EventType) string {
	return strings.ToUpper(strings.ReplaceAll(string(t), "_", " "))
}

// trimQuote caps evidence quotes for display.
func trimQuote(q string) string {
	if len(q) > 150 {
		return q[:150] + "…"
	}
	return q
}

const briefTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family:-apple-system,sans-serif;background:#000;margin:0;padding:0;color:#fff;">
<div style="max-width:680px;margin:0 auto;">

  <div style="padding:48px 40px;text-align:center;border-bottom:1px solid #1a1a1a;">
    <h1 style="color:#fff;font-size:30px;margin:0 0 8px 0;font-weight:700;">Intelligence Brief</h1>
    <p style="color:#888;font-size:13px;margin:0;">{{.Date}} · {{.Time}}</p>
  </div>

  <div style="display:flex;border-bottom:1px solid #1a1a1a;">
    <div style="flex:1;padding:28px;text-align:center;border-right:1px solid #1a1a1a;">
      <p style="color:#fff;font-size:32px;font-weight:700;margin:0;font-family:monospace;">{{.TotalEvents}}</p>
      <p style="color:#555;font-size:10px;margin:8px 0 0 0;text-transform:uppercase;">Events</p>
    </div>
    <div style="flex:1;padding:28px;text-align:center;border-right:1px solid #1a1a1a;">
      <p style="color:#fff;font-size:32px;font-weight:700;margin:0;font-family:monospace;">{{.HighPriority}}</p>
      <p style="color:#555;font-size:10px;margin:8px 0 0 0;text-transform:uppercase;">High Priority</p>
    </div>
    <div style="flex:1;padding:28px;text-align:center;">
      <p style="color:#fff;font-size:32px;font-weight:700;margin:0;font-family:monospace;">{{.Run.SourcesOK}}/{{.Run.SourcesTotal}}</p>
      <p style="color:#555;font-size:10px;margin:8px 0 0 0;text-transform:uppercase;">Sources</p>
    </div>
  </div>

  <div style="padding:40px;">
  {{range .Sections}}{{if .Events}}
    <div style="margin-bottom:40px;">
      <div style="margin-bottom:20px;padding-bottom:12px;border-bottom:1px solid #222;">
        <h2 style="color:#fff;font-size:14px;margin:0;font-weight:600;text-transform:uppercase;letter-spacing:2px;">{{.Title}}</h2>
        <p style="color:#555;font-size:12px;margin:6px 0 0 0;">{{.Total}} item{{if ne .Total 1}}s{{end}}</p>
      </div>
      {{range .Events}}
      <div style="background:#0a0a0a;border-radius:12px;padding:24px;margin-bottom:16px;border:1px solid #1a1a1a;border-left:3px solid #fff;">
        <div style="margin-bottom:16px;">
          <span style="background:#fff;color:#000;padding:5px 14px;border-radius:100px;font-size:10px;font-weight:700;">{{typeOf .EventType}}</span>
          <span style="color:#fff;font-size:22px;font-weight:700;font-family:monospace;float:right;">{{.MaterialityScore}}</span>
        </div>
        <h3 style="color:#fff;margin:0 0 10px 0;font-size:20px;font-weight:600;">{{.Title}}</h3>
        <p style="color:#666;font-size:13px;margin:0 0 14px 0;text-transform:uppercase;">{{.Company}}</p>
        <p style="color:#aaa;font-size:15px;margin:0 0 16px 0;line-height:1.7;">{{.Summary}}</p>
        <div style="background:#111;border-radius:8px;padding:16px;margin:16px 0;border:1px solid #222;">
          <p style="color:#fff;font-size:11px;margin:0 0 6px 0;text-transform:uppercase;opacity:0.5;">Why It Matters</p>
          <p style="color:#ccc;font-size:14px;margin:0;line-height:1.6;">{{.WhyItMatters}}</p>
        </div>
        {{range $i, $q := .EvidenceQuotes}}{{if lt $i 2}}
        <div style="border-left:2px solid #333;padding-left:14px;margin:12px 0;">
          <p style="font-style:italic;color:#888;font-size:13px;margin:0;">"{{quote $q}}"</p>
        </div>
        {{end}}{{end}}
        <div style="margin-top:16px;padding-top:16px;border-top:1px solid #222;">
          <a href="{{.SourceURL}}" style="color:#fff;font-size:12px;text-decoration:none;text-transform:uppercase;opacity:0.6;">View Source →</a>
        </div>
      </div>
      {{end}}
    </div>
  {{end}}{{end}}
  </div>

  <div style="padding:32px 40px;background:#0a0a0a;border-top:1px solid #1a1a1a;">
    <p style="color:#555;font-size:10px;margin:0 0 16px 0;text-transform:uppercase;letter-spacing:2px;">Pipeline Health</p>
    <p style="color:#ccc;font-size:13px;margin:0;">
      Status: {{upper (printf "%s" .Run.Status)}} ·
      New: {{.Run.ItemsNew}} ·
      Updated: {{.Run.ItemsUpdated}} ·
      Unchanged: {{.Run.ItemsUnchanged}} ·
      Events: {{.Run.EventsCreated}}
    </p>
  </div>

</div>
</body>
</html>
`
