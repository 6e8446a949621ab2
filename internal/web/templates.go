package web

import (
	"html/template"
	"time"

	"github.com/Tomlord1122/space-todo/internal/typeahead"
)

func newTemplates() *template.Template {
	funcs := template.FuncMap{
		"formatTime":         formatTime,
		"formatOptionalTime": formatOptionalTime,
		"isSelected":         func(s typeahead.State) bool { return s == typeahead.Selected },
		"isCreating":         func(s typeahead.State) bool { return s == typeahead.Creating },
	}
	return template.Must(template.New("page").Funcs(funcs).Parse(pageTemplate + spaceTemplate + notFoundTemplate))
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Format("Jan 2, 2006 15:04")
}

func formatOptionalTime(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return formatTime(*value)
}

const pageTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  {{if .Pending}}<meta http-equiv="refresh" content="{{.RefreshSeconds}}">{{end}}
  <title>{{.List.Title}} · {{.Space.Name}}</title>
  <style>
    body {
      margin: 0;
      font-family: system-ui, sans-serif;
      color: #1f2328;
      background: #f6f8fa;
    }
    header, main {
      max-width: 720px;
      margin: 0 auto;
      padding: 16px 24px;
    }
    header h1 {
      margin: 0;
      font-size: 22px;
    }
    .breadcrumb {
      margin-bottom: 4px;
      color: #59636e;
      font-size: 14px;
    }
    .pending {
      color: #9a6700;
      font-size: 13px;
    }
    .toast {
      padding: 10px 14px;
      border-radius: 6px;
      background: #ffebe9;
      border: 1px solid #ff8182;
      margin-bottom: 16px;
    }
    form.inline {
      display: inline;
    }
    .typeahead input[type=text] {
      width: 100%;
      box-sizing: border-box;
      padding: 8px;
      margin-bottom: 8px;
    }
    .matches {
      list-style: none;
      padding: 0;
    }
    .matches li {
      padding: 4px 0;
    }
    .todos {
      list-style: none;
      padding: 0;
    }
    .todo {
      display: flex;
      gap: 12px;
      align-items: flex-start;
      padding: 12px;
      margin-bottom: 8px;
      background: #fff;
      border: 1px solid #d1d9e0;
      border-radius: 6px;
    }
    .todo.optimistic {
      opacity: 0.6;
    }
    .todo.completed .title {
      text-decoration: line-through;
    }
    .todo .body {
      flex: 1;
    }
    .description, .meta {
      color: #59636e;
      font-size: 13px;
    }
    .avatar {
      width: 28px;
      height: 28px;
      border-radius: 50%;
      background: #ddf4ff;
      display: inline-flex;
      align-items: center;
      justify-content: center;
      font-size: 12px;
    }
  </style>
</head>
<body>
  <header>
    <nav class="breadcrumb" aria-label="breadcrumb">
      <a href="{{.SpacePath}}">{{.Space.Name}}</a> / <span>{{.List.Title}}</span>
    </nav>
    <h1>{{.List.Title}}</h1>
  </header>
  <main>
    {{if .Toast}}<div class="toast" role="alert">{{.Toast}}</div>{{end}}

    <section class="typeahead">
      <form method="post" action="{{.Path}}/query">
        <input type="hidden" name="csrf" value="{{.CSRF}}">
        <input type="text" name="q" value="{{.Query}}" placeholder="Search or create a task" autocomplete="off">
        <button type="submit">Search</button>
      </form>

      {{if isSelected .State}}
        <form method="post" action="{{.Path}}/submit">
          <input type="hidden" name="csrf" value="{{.CSRF}}">
          <button type="submit" {{if .Submitting}}disabled{{end}}>Add "{{.Selected.Title}}"</button>
        </form>
      {{else}}
        {{if .Matches}}
        <ul class="matches">
          {{range .Matches}}
          <li>
            <form class="inline" method="post" action="{{$.Path}}/select">
              <input type="hidden" name="csrf" value="{{$.CSRF}}">
              <input type="hidden" name="task" value="{{.Task.ID}}">
              <button type="submit" {{if .Pending}}disabled{{end}}>{{.Task.Title}}</button>
            </form>
            {{if .Task.Description}}<span class="description">{{.Task.Description}}</span>{{end}}
          </li>
          {{end}}
        </ul>
        {{end}}
        {{if isCreating .State}}
        <form method="post" action="{{.Path}}/submit">
          <input type="hidden" name="csrf" value="{{.CSRF}}">
          <input type="hidden" name="q" value="{{.Query}}">
          <input type="text" name="description" value="{{.Description}}" placeholder="Description (optional)">
          <button type="submit" {{if .Submitting}}disabled{{end}}>Create "{{.Query}}"</button>
        </form>
        {{end}}
      {{end}}
    </section>

    <ul class="todos">
      {{range .Todos}}
      <li class="todo{{if .Optimistic}} optimistic{{end}}{{if .Completed}} completed{{end}}" id="todo-{{.ID}}">
        <form class="inline" method="post" action="{{$.Path}}/todos/{{.ID}}/toggle">
          <input type="hidden" name="csrf" value="{{$.CSRF}}">
          <input type="hidden" name="completed" value="{{if .Completed}}false{{else}}true{{end}}">
          <button type="submit" aria-label="toggle" {{if .CheckboxDisabled}}disabled{{end}}>{{if .Completed}}&#9745;{{else}}&#9744;{{end}}</button>
        </form>
        <div class="body">
          <div class="title">{{.Title}}{{if .Optimistic}} <span class="pending" role="status" aria-label="saving">&#8635;</span>{{end}}</div>
          {{if .Description}}<div class="description">{{.Description}}</div>{{end}}
          <div class="meta">Added {{formatTime .CreatedAt}}{{if .Completed}} · Done {{formatOptionalTime .CompletedAt}}{{end}}</div>
        </div>
        {{if and .Owner .Owner.Image}}
          <img class="avatar" src="{{.Owner.Image}}" alt="{{.Owner.Name}}">
        {{else}}
          <span class="avatar">{{.Initials}}</span>
        {{end}}
        <form class="inline" method="post" action="{{$.Path}}/todos/{{.ID}}/delete">
          <input type="hidden" name="csrf" value="{{$.CSRF}}">
          <button type="submit" {{if not .DeleteEnabled}}disabled{{end}}>Delete</button>
        </form>
      </li>
      {{else}}
      <li class="meta">Nothing here yet.</li>
      {{end}}
    </ul>
  </main>
</body>
</html>
`

const spaceTemplate = `{{define "space"}}<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Space.Name}}</title>
</head>
<body>
  <h1>{{.Space.Name}}</h1>
  <ul>
    {{range .Lists}}
    <li><a href="/space/{{$.Space.Slug}}/{{.ID}}">{{.Title}}</a>{{if .Private}} (private){{end}}</li>
    {{else}}
    <li>No lists yet.</li>
    {{end}}
  </ul>
</body>
</html>
{{end}}`

const notFoundTemplate = `{{define "notfound"}}<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Not found</title>
</head>
<body>
  <h1>404</h1>
  <p>This page could not be found.</p>
</body>
</html>
{{end}}`
