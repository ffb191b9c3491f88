package web

import (
	"bytes"
	"html/template"

	"github.com/jaminalder/ndtictactoe/internal/app"
	"github.com/jaminalder/ndtictactoe/internal/domain"
	"github.com/jaminalder/ndtictactoe/internal/render"
	"github.com/jaminalder/ndtictactoe/internal/strategy"
)

type templates struct {
	base  *template.Template
	match *template.Template
	board *template.Template
	index *template.Template
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
</head><body>{{template "content" .}}</body></html>`))
	template.Must(base.New("board").Parse(boardTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(indexTemplate))
	match := template.Must(template.Must(base.Clone()).New("content").Parse(`
<h1>Match {{.ID}}</h1>
<div hx-ext="sse" hx-sse="connect:/matches/{{.ID}}/events">
  <div id="board" hx-sse="swap:board">{{template "board" .Board}}</div>
</div>`))
	board := template.Must(template.New("board_only").Parse(boardTemplate))
	return &templates{base: base, match: match, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	if name == "" {
		_ = t.Execute(&buf, data)
	} else {
		_ = t.ExecuteTemplate(&buf, name, data)
	}
	return buf.Bytes()
}

const indexTemplate = `<h1>Tic-Tac-Toe</h1>
<form action="/matches" method="post">
  <label>Dimension <select name="dimension"><option>2</option><option>3</option></select></label>
  <label>Size <input name="size" type="number" min="1" value="3"></label>
  {{range $i, $p := .Players}}
  <label>Player {{$i}} <select name="player{{$i}}">{{range $.Strategies}}<option{{if eq . $p}} selected{{end}}>{{.}}</option>{{end}}</select></label>
  {{end}}
  <label>Seed <input name="seed" type="number" value="0"></label>
  <button>Start</button>
</form>
<ul>
{{range .Matches}}<li><a href="/matches/{{.ID}}">{{.ID}}</a> {{.Dimension}}D {{.Size}} {{.State}}</li>
{{end}}
</ul>`

const boardTemplate = `
<div id="board">
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  <div class="status">{{.Status}}</div>
  {{range .Layers}}
  <table class="layer">
    {{range .}}
    <tr>{{range .}}<td data-cell="{{.Index}}">{{.Sign}}</td>{{end}}</tr>
    {{end}}
  </table>
  {{end}}
</div>
`

type cellData struct {
	Index int
	Sign  string
}

type boardData struct {
	ID     string
	Status string
	Error  string
	Layers [][][]cellData
}

type indexData struct {
	Strategies []string
	Players    [2]string
	Matches    []app.MatchState
}

// hostedStrategies lists what the form offers; interactive sources need a
// terminal.
func hostedStrategies() []string {
	var out []string
	for _, n := range strategy.Names() {
		if !strategy.IsInteractive(n) && n != strategy.Scripted {
			out = append(out, n)
		}
	}
	return out
}

func newBoardData(st app.MatchState) boardData {
	b := st.Board()
	n := b.Size()
	layers := 1
	if b.Dimension() == 3 {
		layers = n
	}
	d := boardData{ID: st.ID, Status: status(st), Error: st.Error}
	for l := 0; l < layers; l++ {
		rows := make([][]cellData, n)
		for r := 0; r < n; r++ {
			rows[r] = make([]cellData, n)
			for c := 0; c < n; c++ {
				idx := l*n*n + r*n + c
				sign := ""
				if p := b.At(idx); p != domain.NoPlayer {
					sign = p.String()
				}
				rows[r][c] = cellData{Index: idx, Sign: sign}
			}
		}
		d.Layers = append(d.Layers, rows)
	}
	return d
}

func status(st app.MatchState) string {
	switch {
	case st.Error != "":
		return "failed"
	case st.State == domain.InProgress.String():
		return "in progress"
	default:
		return render.Result(domain.Result{State: stateOf(st.State), Winner: st.Winner})
	}
}

func stateOf(s string) domain.State {
	for _, st := range []domain.State{domain.InProgress, domain.Draw, domain.Won} {
		if st.String() == s {
			return st
		}
	}
	return domain.NotStarted
}
